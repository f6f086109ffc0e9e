package storygraph

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/strickvl/storygraph-rater/internal/entities"
)

// Date layouts StoryGraph exports have been seen to use. Day-first is
// tried before month-first, matching the export tool's locale handling.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"January 2, 2006",
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ParseDate normalizes a free-form date string from the export.
// It returns the canonical ISO date, the year, and how precise the
// result is. Malformed input degrades to PrecisionUnknown; ParseDate
// never fails.
func ParseDate(raw string) (string, int, entities.DatePrecision) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0, entities.PrecisionUnknown
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), t.Year(), entities.PrecisionDay
		}
	}

	// Year-only values ("2019") and the last-resort scan for a 4-digit
	// year anywhere in the string are pinned to January 1st so the
	// artifact still carries a sortable date.
	if t, err := time.Parse("2006", raw); err == nil {
		return t.Format("2006-01-02"), t.Year(), entities.PrecisionYear
	}

	if match := yearPattern.FindString(raw); match != "" {
		year, err := strconv.Atoi(match)
		if err == nil {
			return match + "-01-01", year, entities.PrecisionYear
		}
	}

	return "", 0, entities.PrecisionUnknown
}
