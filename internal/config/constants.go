package config

// Default filesystem locations
const (
	// DefaultDatabasePath is the default path for the ratings/cache database
	DefaultDatabasePath = "./storygraph-rater.db"

	// DefaultBooksPath is where the processed book artifact is written
	DefaultBooksPath = "./data/books.json"

	// DefaultRatingsPath is where saved ratings are mirrored for the chart page
	DefaultRatingsPath = "./data/ratings.json"
)
