package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strickvl/storygraph-rater/internal/config"
	"github.com/strickvl/storygraph-rater/internal/covers"
	"github.com/strickvl/storygraph-rater/internal/database"
	"github.com/strickvl/storygraph-rater/internal/database/covercache"
	"github.com/strickvl/storygraph-rater/internal/database/ratings"
	"github.com/strickvl/storygraph-rater/internal/enrich"
	http_controllers "github.com/strickvl/storygraph-rater/internal/http"
	"github.com/strickvl/storygraph-rater/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the rating store, router and optional cover-refresh
// scheduler together and serves the rating UI.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting storygraph-rater v%s", version)

	if _, err := os.Stat(cfg.Output.BooksPath); os.IsNotExist(err) {
		log.Printf("WARNING: books file %s does not exist yet. Run 'storygraph-rater process -file <export.csv>' to generate it.", cfg.Output.BooksPath)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	ratingStore := ratings.NewRepository(db.DB)

	var refreshScheduler *scheduler.CoverRefreshScheduler
	if cfg.CoverRefresh.Enabled {
		resolver := covers.NewClient(cfg.Covers.RequestTimeout, cfg.Covers.RequestsPerSecond)
		enricher := enrich.New(resolver, enrich.Config{
			Workers:     cfg.Covers.Workers,
			MaxRetries:  cfg.Covers.MaxRetries,
			BackoffBase: cfg.Covers.BackoffBase,
			JitterMax:   cfg.Covers.JitterMax,
		})
		enricher.SetCache(covercache.NewRepository(db.DB))

		refreshScheduler = scheduler.NewCoverRefreshScheduler(enricher, cfg.Output.BooksPath, cfg.CoverRefresh.Schedule)
		if err := refreshScheduler.Start(context.Background()); err != nil {
			log.Printf("Failed to start cover refresh scheduler: %v", err)
		}
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		RatingStore: ratingStore,
		Database:    db,
		BooksPath:   cfg.Output.BooksPath,
		RatingsPath: cfg.Output.RatingsPath,
		StaticPath:  cfg.UI.StaticPath,
		Version:     version,
	})

	Serve(router, cfg, func(ctx context.Context) {
		if refreshScheduler != nil {
			refreshScheduler.Stop()
		}
	})
}
