// Package storygraph parses StoryGraph reading-history CSV exports into
// book records ready for cover enrichment.
package storygraph

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/strickvl/storygraph-rater/internal/entities"
)

// Column name candidates, by field. StoryGraph has renamed columns
// between export versions, and Goodreads-style exports use yet other
// names, so each field is matched against every known alias.
var (
	titleColumns  = []string{"title", "book title"}
	authorColumns = []string{"authors", "author", "author(s)"}
	statusColumns = []string{"read status", "status", "exclusive shelf"}
	dateColumns   = []string{"last date read", "date read", "dates read", "date finished"}
	isbnColumns   = []string{"isbn/uid", "isbn", "isbn13", "isbn-13"}
	formatColumns = []string{"format", "binding"}
)

// ParseExport reads a StoryGraph CSV export and returns the books marked
// as read, in file order. Rows that cannot be used (unread status,
// no recoverable year, duplicate of an earlier row) are reported in the
// returned warnings rather than failing the run. Only an unreadable
// header is a hard error.
func ParseExport(r io.Reader) ([]entities.Book, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		// Exports written on Windows start with a UTF-8 BOM
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	if _, ok := lookupColumn(headerIndex, titleColumns); !ok {
		return nil, nil, fmt.Errorf("no title column found (columns: %s)", strings.Join(header, ", "))
	}

	var books []entities.Book
	var warnings []string
	seen := make(map[string]bool)
	rowNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: %v", rowNum+1, err))
			rowNum++
			continue
		}

		book, warning := parseRow(record, headerIndex, rowNum)
		rowNum++
		if warning != "" {
			warnings = append(warnings, warning)
			continue
		}
		if book == nil {
			continue
		}

		key := book.DedupKey()
		if seen[key] {
			warnings = append(warnings, fmt.Sprintf("row %d: duplicate of an earlier row (%q), skipping", rowNum, book.Title))
			continue
		}
		seen[key] = true

		books = append(books, *book)
	}

	return books, warnings, nil
}

// parseRow converts one CSV record into a book. It returns (nil, "")
// for rows that are silently irrelevant (not marked read) and a warning
// for rows that look like books but cannot be kept.
func parseRow(record []string, headerIndex map[string]int, rowNum int) (*entities.Book, string) {
	title := strings.TrimSpace(getColumn(record, headerIndex, titleColumns))
	authors := strings.TrimSpace(getColumn(record, headerIndex, authorColumns))
	status := strings.ToLower(strings.TrimSpace(getColumn(record, headerIndex, statusColumns)))
	rawDate := getColumn(record, headerIndex, dateColumns)
	isbn := getColumn(record, headerIndex, isbnColumns)
	format := strings.TrimSpace(getColumn(record, headerIndex, formatColumns))

	if status != "read" && status != "finished" {
		return nil, ""
	}
	if title == "" {
		return nil, fmt.Sprintf("row %d: no title, skipping", rowNum+1)
	}

	dateRead, year, precision := ParseDate(rawDate)
	if precision != entities.PrecisionDay {
		// "Dates read" can hold a range; the end of the range is the
		// date the book was finished. Only a more precise result
		// replaces what the full string already gave us.
		if datesRead := getColumn(record, headerIndex, []string{"dates read"}); datesRead != "" {
			parts := strings.Split(datesRead, "-")
			d, y, p := ParseDate(parts[len(parts)-1])
			if p == entities.PrecisionDay || (year == 0 && y != 0) {
				dateRead, year, precision = d, y, p
			}
		}
	}
	if year == 0 {
		return nil, fmt.Sprintf("row %d: no year found for %q, skipping", rowNum+1, title)
	}

	return &entities.Book{
		ID:            fmt.Sprintf("book_%d", rowNum),
		Title:         title,
		Authors:       authors,
		YearRead:      year,
		DateRead:      dateRead,
		DatePrecision: precision,
		ISBN:          CleanISBN(isbn),
		Format:        format,
		ReadStatus:    status,
	}, ""
}

// lookupColumn returns the index of the first candidate name present in
// the header.
func lookupColumn(headerIndex map[string]int, names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := headerIndex[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// getColumn safely extracts a value from a record using the header
// index, trying each candidate column name in order.
func getColumn(record []string, headerIndex map[string]int, names []string) string {
	idx, ok := lookupColumn(headerIndex, names)
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// CleanISBN strips everything but digits and the ISBN-10 check
// character, then accepts only well-formed lengths. Anything else is
// treated as no ISBN at all.
func CleanISBN(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		if c >= '0' && c <= '9' || c == 'X' || c == 'x' {
			b.WriteRune(c)
		}
	}

	cleaned := strings.ToUpper(b.String())
	if len(cleaned) != 10 && len(cleaned) != 13 {
		return ""
	}
	return cleaned
}
