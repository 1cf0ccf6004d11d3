package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"socialposts/internal/repository"
	"socialposts/internal/ws"
)

// --- Configuration Constants ---
const (
	maxPostLength  = 1000
	rateLimitRPS   = 1.0 / 3.0 // 1 request every 3 seconds
	rateLimitBurst = 1
)

// --- Structs for request binding ---
// Parameters ride on the query string; the binding layer rejects a
// missing id, a non-integer id, and empty or oversized content before
// any store access happens.
type IDInput struct {
	ID uint `form:"id" binding:"required"`
}
type CreateInput struct {
	Content string `form:"content" binding:"required,max=1000"`
}
type EditInput struct {
	ID      uint   `form:"id" binding:"required"`
	Content string `form:"content" binding:"required,max=1000"`
}

// WsMessage defines the JSON structure pushed to websocket subscribers.
type WsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// --- Rate Limiter ---
type IPRateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		mu:       sync.RWMutex{},
		rps:      r,
		burst:    b,
	}
}
func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = limiter
	}
	return limiter
}
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}

// --- Handlers ---
type Env struct {
	Repo repository.PostRepository
	Hub  *ws.Hub
}

func (e *Env) GetPosts(c *gin.Context) {
	posts, err := e.Repo.ListActive(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching posts: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (e *Env) GetPostByID(c *gin.Context) {
	var input IDInput
	if err := c.ShouldBindQuery(&input); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	post, err := e.Repo.GetActiveByID(c.Request.Context(), input.ID)
	if err != nil {
		e.fail(c, "fetch post", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (e *Env) CreatePost(c *gin.Context) {
	var input CreateInput
	if err := c.ShouldBindQuery(&input); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	post, err := e.Repo.Create(c.Request.Context(), input.Content)
	if err != nil {
		e.fail(c, "create post", err)
		return
	}

	e.broadcastMessage(WsMessage{Type: "new_post", Data: post})
	c.JSON(http.StatusOK, post)
}

func (e *Env) EditPost(c *gin.Context) {
	var input EditInput
	if err := c.ShouldBindQuery(&input); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	post, err := e.Repo.Edit(c.Request.Context(), input.ID, input.Content)
	if err != nil {
		e.fail(c, "edit post", err)
		return
	}

	e.broadcastMessage(WsMessage{Type: "edit_post", Data: post})
	c.JSON(http.StatusOK, post)
}

func (e *Env) DeletePost(c *gin.Context) {
	var input IDInput
	if err := c.ShouldBindQuery(&input); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if _, err := e.Repo.SoftDelete(c.Request.Context(), input.ID); err != nil {
		e.fail(c, "delete post", err)
		return
	}

	e.broadcastMessage(WsMessage{Type: "delete_post", Data: gin.H{"id": input.ID}})
	c.Status(http.StatusNoContent)
}

func (e *Env) RestorePost(c *gin.Context) {
	var input IDInput
	if err := c.ShouldBindQuery(&input); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	post, err := e.Repo.Restore(c.Request.Context(), input.ID)
	if err != nil {
		e.fail(c, "restore post", err)
		return
	}

	e.broadcastMessage(WsMessage{Type: "restore_post", Data: post})
	c.JSON(http.StatusOK, post)
}

func (e *Env) LikePost(c *gin.Context) {
	var input IDInput
	if err := c.ShouldBindQuery(&input); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	post, err := e.Repo.Like(c.Request.Context(), input.ID)
	if err != nil {
		e.fail(c, "like post", err)
		return
	}

	e.broadcastMessage(WsMessage{Type: "vote", Data: gin.H{"id": post.ID, "likes": post.Likes}})
	c.JSON(http.StatusOK, post)
}

func (e *Env) DislikePost(c *gin.Context) {
	var input IDInput
	if err := c.ShouldBindQuery(&input); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	post, err := e.Repo.Dislike(c.Request.Context(), input.ID)
	if err != nil {
		e.fail(c, "dislike post", err)
		return
	}

	e.broadcastMessage(WsMessage{Type: "vote", Data: gin.H{"id": post.ID, "likes": post.Likes}})
	c.JSON(http.StatusOK, post)
}

// fail maps a repository error onto the wire: not-found becomes a bare
// 404, anything else is logged and becomes a bare 500.
func (e *Env) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, repository.ErrPostNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	log.Printf("Error in %s: %v", op, err)
	c.Status(http.StatusInternalServerError)
}

func (e *Env) broadcastMessage(msg WsMessage) {
	if e.Hub == nil {
		return
	}
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WS message: %v", err)
		return
	}
	e.Hub.Broadcast <- jsonMsg
}
