package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"socialposts/internal/db"
	"socialposts/internal/models"
)

// ErrPostNotFound is returned when no post exists in the visibility state
// an operation requires. Handlers translate it straight to a 404.
var ErrPostNotFound = errors.New("post not found")

// PostRepository owns all reads and writes against the posts table.
// Every operation runs on a session scoped to the caller's context.
type PostRepository interface {
	ListActive(ctx context.Context) ([]models.Post, error)
	GetActiveByID(ctx context.Context, id uint) (*models.Post, error)
	GetArchivedByID(ctx context.Context, id uint) (*models.Post, error)
	Create(ctx context.Context, content string) (*models.Post, error)
	Edit(ctx context.Context, id uint, content string) (*models.Post, error)
	SoftDelete(ctx context.Context, id uint) (*models.Post, error)
	Restore(ctx context.Context, id uint) (*models.Post, error)
	Like(ctx context.Context, id uint) (*models.Post, error)
	Dislike(ctx context.Context, id uint) (*models.Post, error)
}

// GormPostRepository implements PostRepository on a GORM pool handle.
type GormPostRepository struct {
	db *gorm.DB
}

func NewGormPostRepository(database *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: database}
}

// ListActive returns all non-removed posts, newest id first.
func (r *GormPostRepository) ListActive(ctx context.Context) ([]models.Post, error) {
	sess := db.Session(ctx, r.db)

	posts := []models.Post{}
	if err := sess.Where("removed = ?", false).Order("id desc").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *GormPostRepository) GetActiveByID(ctx context.Context, id uint) (*models.Post, error) {
	return fetch(db.Session(ctx, r.db), id, false)
}

// GetArchivedByID looks a post up among removed rows. Only the restore
// flow needs this.
func (r *GormPostRepository) GetArchivedByID(ctx context.Context, id uint) (*models.Post, error) {
	return fetch(db.Session(ctx, r.db), id, true)
}

// Create inserts a new active post with zero likes and returns the row
// under its store-assigned id.
func (r *GormPostRepository) Create(ctx context.Context, content string) (*models.Post, error) {
	sess := db.Session(ctx, r.db)

	post := models.Post{Content: content}
	if err := sess.Create(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Edit replaces the content of an active post. Archived and nonexistent
// ids are indistinguishable to the caller.
func (r *GormPostRepository) Edit(ctx context.Context, id uint, content string) (*models.Post, error) {
	sess := db.Session(ctx, r.db)

	res := sess.Model(&models.Post{}).
		Where("id = ? AND removed = ?", id, false).
		Update("content", content)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}
	return fetch(sess, id, false)
}

// SoftDelete moves an active post to the archive. The conditional UPDATE
// makes double deletion report not-found rather than silently succeeding.
func (r *GormPostRepository) SoftDelete(ctx context.Context, id uint) (*models.Post, error) {
	sess := db.Session(ctx, r.db)

	res := sess.Model(&models.Post{}).
		Where("id = ? AND removed = ?", id, false).
		Update("removed", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}
	return fetch(sess, id, true)
}

// Restore moves an archived post back to the active set.
func (r *GormPostRepository) Restore(ctx context.Context, id uint) (*models.Post, error) {
	sess := db.Session(ctx, r.db)

	res := sess.Model(&models.Post{}).
		Where("id = ? AND removed = ?", id, true).
		Update("removed", false)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}
	return fetch(sess, id, false)
}

// Like increments the counter in a single UPDATE so concurrent likes on
// the same post cannot lose updates.
func (r *GormPostRepository) Like(ctx context.Context, id uint) (*models.Post, error) {
	return r.adjustLikes(ctx, id, gorm.Expr("likes + 1"))
}

// Dislike decrements the counter, clamped at zero. The CASE expression
// runs on both postgres and sqlite, unlike GREATEST.
func (r *GormPostRepository) Dislike(ctx context.Context, id uint) (*models.Post, error) {
	return r.adjustLikes(ctx, id, gorm.Expr("CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END"))
}

func (r *GormPostRepository) adjustLikes(ctx context.Context, id uint, expr interface{}) (*models.Post, error) {
	sess := db.Session(ctx, r.db)

	res := sess.Model(&models.Post{}).
		Where("id = ? AND removed = ?", id, false).
		Update("likes", expr)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}
	return fetch(sess, id, false)
}

// fetch reads a single post by primary key in the requested visibility
// state, on the session already open for the operation.
func fetch(sess *gorm.DB, id uint, removed bool) (*models.Post, error) {
	var post models.Post
	err := sess.Where("id = ? AND removed = ?", id, removed).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}
