package http

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// BooksController serves the processed book artifact to the rating and
// chart pages.
type BooksController struct {
	booksPath string
}

func NewBooksController(booksPath string) *BooksController {
	return &BooksController{booksPath: booksPath}
}

// List returns the book artifact verbatim.
// GET /api/books
func (bc *BooksController) List(c *gin.Context) {
	data, err := os.ReadFile(bc.booksPath)
	if os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no book data found - run 'storygraph-rater process <export.csv>' first",
		})
		return
	}
	if err != nil {
		respondInternalError(c, err, "read book data")
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
