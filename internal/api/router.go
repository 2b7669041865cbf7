package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/api/handlers"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/api/middleware"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/captcha"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/email"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/services"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/storage"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/tasks"
)

// SetupRouter configures and returns the main Gin engine. Idle rate limiter entries are
// swept until done is closed.
func SetupRouter(cfg *config.Config, db *mongo.Database, taskClient tasks.Enqueuer, storageService storage.IS3Storage, done <-chan struct{}) *gin.Engine {
	userService := services.NewUserService(db, cfg)
	bookService := services.NewBookService(db, cfg)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	go rateLimiter.RunCleanup(5*time.Minute, done)

	// Order matters: preflight requests are answered before they are rate limited.
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigin))
	r.Use(rateLimiter.Limit())

	restAuthHandler := handlers.NewRestAuthHandler(cfg, userService)
	restBookHandler := handlers.NewRestBookHandler(bookService, storageService, taskClient)
	restAdminHandler := handlers.NewRestAdminHandler(userService)

	authRequired := middleware.AuthMiddleware(cfg.JwtSecret, userService)
	captchaRequired := middleware.CaptchaMiddleware(captcha.NewTurnstileVerifier(cfg))

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Public
		v1.POST("/auth/signup", captchaRequired, restAuthHandler.Signup)
		v1.POST("/auth/login", restAuthHandler.Login)
		v1.GET("/books", restBookHandler.ListBooks)
		v1.GET("/books/recommendations", restBookHandler.Recommendations)
		v1.GET("/books/:id", restBookHandler.GetBook)

		// Authenticated
		v1.GET("/auth/me", authRequired, restAuthHandler.Me)
		v1.GET("/books/user/:userId", authRequired, restBookHandler.ListSellerBooks)
		v1.POST("/books", authRequired, restBookHandler.CreateBook)
		v1.POST("/books/image-upload-url", authRequired, restBookHandler.ImageUploadURL)
		v1.PUT("/books/:id", authRequired, restBookHandler.UpdateBook)
		v1.PUT("/books/:id/request", authRequired, restBookHandler.RequestBook)
		v1.PUT("/books/:id/sold", authRequired, restBookHandler.MarkSold)
		v1.POST("/books/:id/image", authRequired, restBookHandler.AttachImage)
		v1.DELETE("/books/:id", authRequired, restBookHandler.DeleteBook)

		adminRequired := v1.Group("/admin")
		adminRequired.Use(authRequired, middleware.AdminMiddleware())
		{
			adminRequired.GET("/users", restAdminHandler.ListUsers)
			adminRequired.DELETE("/users/:id", restAdminHandler.DeleteUser)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service engine. capture may be nil when
// outgoing mail is not captured, in which case getTestEmail always reports not found.
func SetupServiceRouter(capture *email.RedisSender, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // [kind, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			if capture == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Email capture is disabled"})
				return
			}
			captured, err := pollTestEmail(c.Request.Context(), capture, args[0], args[1])
			if err != nil {
				if errors.Is(err, email.ErrNoTestEmail) {
					c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("No %s email captured for %s", args[0], args[1])})
					return
				}
				log.Printf("Service API: failed to read captured email: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": captured})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// pollTestEmail waits up to about two seconds for the worker to deliver the message.
func pollTestEmail(ctx context.Context, capture *email.RedisSender, kind, recipient string) (*email.CapturedEmail, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var err error
	for i := 0; i < 10; i++ {
		var captured *email.CapturedEmail
		captured, err = capture.Latest(ctx, kind, recipient)
		if err == nil {
			return captured, nil
		}
		if !errors.Is(err, email.ErrNoTestEmail) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil, err
}
