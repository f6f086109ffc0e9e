// Package http wires the gin endpoints the rating and chart pages use.
package http

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/strickvl/storygraph-rater/internal/database"
)

// RouterConfig receives all router dependencies, improving testability
// and reducing parameter count.
type RouterConfig struct {
	RatingStore RatingStore
	Database    *database.Database
	BooksPath   string
	RatingsPath string
	StaticPath  string
	Version     string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	booksController := NewBooksController(cfg.BooksPath)
	ratingsController := NewRatingsController(cfg.RatingStore, cfg.RatingsPath)
	healthController := NewHealthController(cfg.Database, cfg.Version)

	router.GET("/api/books", booksController.List)
	router.GET("/api/ratings", ratingsController.List)
	router.POST("/api/rate", ratingsController.Rate)
	router.GET("/health", healthController.Status)

	// The rating UI and chart page are plain static files
	if cfg.StaticPath != "" {
		if _, err := os.Stat(cfg.StaticPath); err == nil {
			router.Static("/static", cfg.StaticPath)
			router.StaticFile("/", cfg.StaticPath+"/index.html")
		}
	}

	return router
}
