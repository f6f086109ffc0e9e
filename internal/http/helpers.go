package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
func respondInternalError(c *gin.Context, err error, operation string) {
	log.Printf("Error during %s: %v", operation, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to " + operation})
}

// corsMiddleware mirrors the permissive CORS behavior the static rating
// UI relies on when opened straight from the filesystem.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
