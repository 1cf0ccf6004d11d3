package http

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"socialposts/internal/repository"
	"socialposts/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
// The route table is built once at startup and never mutated; the
// protocol dispatches on path alone, so every operation is registered
// for any HTTP verb.
func SetupRoutes(router *gin.Engine, database *gorm.DB, hub *ws.Hub) {

	// --- Dependencies ---
	env := &Env{Repo: repository.NewGormPostRepository(database), Hub: hub}

	// --- Middleware ---

	router.Use(gin.Logger())
	router.Use(gin.Recovery()) // uncaught failures become a bare 500
	router.Use(SecurityHeadersMiddleware())

	// CORS Middleware
	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*" // Default to allow all for local dev
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.mu.Lock()
			for ip, v := range limiter.visitors {
				if v.Allow() {
					// Idle long enough to have refilled, forget it.
					delete(limiter.visitors, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	// --- Operations ---

	router.Any("/posts.get", env.GetPosts)
	router.Any("/posts.getById", env.GetPostByID)
	router.Any("/posts.post", RateLimitMiddleware(limiter), env.CreatePost)
	router.Any("/posts.edit", env.EditPost)
	router.Any("/posts.delete", env.DeletePost)
	router.Any("/posts.restore", env.RestorePost)
	router.Any("/posts.like", env.LikePost)
	router.Any("/posts.dislike", env.DislikePost)

	// Unknown paths answer 404 with an empty body, not gin's default text.
	router.NoRoute(func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	// --- WebSocket Route ---

	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(hub, c.Writer, c.Request)
	})
}
