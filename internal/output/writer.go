// Package output persists pipeline artifacts as JSON, atomically enough
// that an interrupted run never leaves a truncated file behind.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/strickvl/storygraph-rater/internal/entities"
)

// WriteBooks writes the enriched book artifact to path as an indented
// JSON array. The parent directory is created if needed.
func WriteBooks(path string, books []entities.Book) error {
	if books == nil {
		books = []entities.Book{}
	}
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal books: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// ReadBooks loads a book artifact written by WriteBooks.
func ReadBooks(path string) ([]entities.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read books artifact: %w", err)
	}

	var books []entities.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("parse books artifact: %w", err)
	}
	return books, nil
}

// WriteRatings mirrors the ratings store to path as a book_id -> verdict
// object, the shape the chart page consumes.
func WriteRatings(path string, ratings map[string]string) error {
	if ratings == nil {
		ratings = map[string]string{}
	}
	data, err := json.MarshalIndent(ratings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file in the destination
// directory and renames it into place, so readers only ever see a
// complete file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp_")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
