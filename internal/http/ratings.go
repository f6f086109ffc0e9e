package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/strickvl/storygraph-rater/internal/entities"
	"github.com/strickvl/storygraph-rater/internal/output"
)

// RatingStore defines database operations for rating management.
type RatingStore interface {
	SetRating(bookID, verdict string) error
	GetRatings() (map[string]string, error)
	Count() (int64, error)
}

// RatingsController persists rating verdicts and mirrors them to the
// JSON artifact the chart page reads.
type RatingsController struct {
	store       RatingStore
	ratingsPath string
}

func NewRatingsController(store RatingStore, ratingsPath string) *RatingsController {
	return &RatingsController{
		store:       store,
		ratingsPath: ratingsPath,
	}
}

type rateRequest struct {
	BookID string `json:"book_id"`
	Rating string `json:"rating"`
}

type rateResponse struct {
	Status       string `json:"status"`
	TotalRatings int64  `json:"total_ratings"`
}

// Rate saves one verdict for one book.
// POST /api/rate
func (rc *RatingsController) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid JSON")
		return
	}

	if req.BookID == "" || req.Rating == "" {
		respondBadRequest(c, "missing book_id or rating")
		return
	}
	if !entities.ValidRatingVerdict(req.Rating) {
		respondBadRequest(c, "rating must be 'yes', 'no', or 'skip'")
		return
	}

	if err := rc.store.SetRating(req.BookID, req.Rating); err != nil {
		respondInternalError(c, err, "save rating")
		return
	}

	total, err := rc.store.Count()
	if err != nil {
		respondInternalError(c, err, "count ratings")
		return
	}

	rc.exportRatings()

	log.Printf("Saved rating: %s = %s (%d total)", req.BookID, req.Rating, total)
	c.JSON(http.StatusOK, rateResponse{Status: "ok", TotalRatings: total})
}

// List returns all saved ratings as a book_id -> verdict object.
// GET /api/ratings
func (rc *RatingsController) List(c *gin.Context) {
	ratings, err := rc.store.GetRatings()
	if err != nil {
		respondInternalError(c, err, "load ratings")
		return
	}
	c.JSON(http.StatusOK, ratings)
}

// exportRatings mirrors the store to the ratings artifact. A failed
// mirror only logs: the verdict is already safe in the database.
func (rc *RatingsController) exportRatings() {
	if rc.ratingsPath == "" {
		return
	}
	ratings, err := rc.store.GetRatings()
	if err != nil {
		log.Printf("Warning: failed to load ratings for export: %v", err)
		return
	}
	if err := output.WriteRatings(rc.ratingsPath, ratings); err != nil {
		log.Printf("Warning: failed to export ratings to %s: %v", rc.ratingsPath, err)
	}
}
