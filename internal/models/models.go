package models

import (
	"time"
)

// Post is a single entry in the feed. Deleting a post only flips Removed;
// rows are never physically erased, so an archived post can be restored
// with its id, content and created timestamp intact.
type Post struct {
	ID      uint      `gorm:"primarykey" json:"id"`
	Content string    `gorm:"not null" json:"content"`
	Likes   int       `gorm:"not null;default:0" json:"likes"`
	Removed bool      `gorm:"not null;default:false;index" json:"-"` // Hidden from API responses
	Created time.Time `gorm:"autoCreateTime" json:"created"`
}
