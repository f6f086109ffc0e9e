package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Output
		UI
		Covers
		CoverRefresh
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Output struct {
		BooksPath   string
		RatingsPath string
	}
	UI struct {
		StaticPath string
	}
	Covers struct {
		Workers           int           // parallel cover lookups
		MaxRetries        int           // attempts per book before giving up
		BackoffBase       time.Duration // first retry delay, doubled per attempt
		JitterMax         time.Duration // random extra delay per retry
		RequestTimeout    time.Duration // per-call HTTP timeout
		RequestsPerSecond float64       // politeness cap towards OpenLibrary
	}
	CoverRefresh struct {
		Enabled  bool
		Schedule string // Cron format: "0 */6 * * *" = every 6 hours
	}
)

func NewConfig() *Config {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("books_path", DefaultBooksPath)
	v.SetDefault("ratings_path", DefaultRatingsPath)
	v.SetDefault("static_path", "./static")

	// Cover enrichment defaults
	v.SetDefault("cover_workers", 5)
	v.SetDefault("cover_max_retries", 3)
	v.SetDefault("cover_backoff_base", "1s")
	v.SetDefault("cover_jitter_max", "1s")
	v.SetDefault("cover_request_timeout", "10s")
	v.SetDefault("cover_requests_per_second", 2.0)

	// Missing-cover refresh defaults
	v.SetDefault("cover_refresh_enabled", false)
	v.SetDefault("cover_refresh_schedule", "0 */6 * * *") // Every 6 hours

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Output: Output{
			BooksPath:   v.GetString("BOOKS_PATH"),
			RatingsPath: v.GetString("RATINGS_PATH"),
		},
		UI: UI{
			StaticPath: v.GetString("STATIC_PATH"),
		},
		Covers: Covers{
			Workers:           v.GetInt("COVER_WORKERS"),
			MaxRetries:        v.GetInt("COVER_MAX_RETRIES"),
			BackoffBase:       v.GetDuration("COVER_BACKOFF_BASE"),
			JitterMax:         v.GetDuration("COVER_JITTER_MAX"),
			RequestTimeout:    v.GetDuration("COVER_REQUEST_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("COVER_REQUESTS_PER_SECOND"),
		},
		CoverRefresh: CoverRefresh{
			Enabled:  v.GetBool("COVER_REFRESH_ENABLED"),
			Schedule: v.GetString("COVER_REFRESH_SCHEDULE"),
		},
	}
}
