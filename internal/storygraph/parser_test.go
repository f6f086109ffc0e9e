package storygraph

import (
	"strings"
	"testing"

	"github.com/strickvl/storygraph-rater/internal/entities"
)

const sampleExport = `Title,Authors,Read Status,Last Date Read,ISBN/UID,Format
Dune,Frank Herbert,read,2020/03/15,9780441013593,paperback
Project Hail Mary,Andy Weir,to-read,,9780593135204,hardcover
Piranesi,Susanna Clarke,read,2021-09-02,978-1-63557-563-4,ebook
The Dispossessed,Ursula K. Le Guin,read,finished it in 2018,,
Dune,Frank Herbert,read,2020/03/15,9780441013593,paperback
Mystery Book,Some Author,read,no idea when,,
`

func TestParseExport(t *testing.T) {
	books, warnings, err := ParseExport(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseExport failed: %v", err)
	}

	if len(books) != 3 {
		t.Fatalf("expected 3 books, got %d", len(books))
	}

	dune := books[0]
	if dune.ID != "book_0" {
		t.Errorf("ID = %q, expected book_0", dune.ID)
	}
	if dune.Title != "Dune" || dune.Authors != "Frank Herbert" {
		t.Errorf("unexpected title/authors: %q / %q", dune.Title, dune.Authors)
	}
	if dune.DateRead != "2020-03-15" || dune.YearRead != 2020 {
		t.Errorf("date = %q year = %d, expected 2020-03-15 / 2020", dune.DateRead, dune.YearRead)
	}
	if dune.DatePrecision != entities.PrecisionDay {
		t.Errorf("precision = %q, expected day", dune.DatePrecision)
	}
	if dune.ISBN != "9780441013593" {
		t.Errorf("ISBN = %q, expected 9780441013593", dune.ISBN)
	}
	if dune.CoverURL != "" {
		t.Errorf("cover must be absent before enrichment, got %q", dune.CoverURL)
	}

	piranesi := books[1]
	if piranesi.ISBN != "9781635575634" {
		t.Errorf("hyphenated ISBN not cleaned: %q", piranesi.ISBN)
	}

	// Year-only fallback keeps the record with reduced precision
	dispossessed := books[2]
	if dispossessed.YearRead != 2018 || dispossessed.DateRead != "2018-01-01" {
		t.Errorf("year fallback: got %q / %d", dispossessed.DateRead, dispossessed.YearRead)
	}
	if dispossessed.DatePrecision != entities.PrecisionYear {
		t.Errorf("precision = %q, expected year", dispossessed.DatePrecision)
	}

	// Duplicate Dune row and the dateless row produce warnings
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %d: %v", len(warnings), warnings)
	}
}

func TestParseExportFlexibleColumns(t *testing.T) {
	// Goodreads-style column names and a UTF-8 BOM
	csv := "\ufeffBook Title,Author,Exclusive Shelf,Date Read\n" +
		"Dune,Frank Herbert,read,2020-03-15\n"

	books, _, err := ParseExport(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseExport failed: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(books))
	}
	if books[0].Title != "Dune" || books[0].DateRead != "2020-03-15" {
		t.Errorf("unexpected record: %+v", books[0])
	}
}

func TestParseExportDatesReadRange(t *testing.T) {
	csv := "Title,Authors,Read Status,Dates Read\n" +
		"Dune,Frank Herbert,read,2020/01/02 - 2020/03/15\n"

	books, _, err := ParseExport(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseExport failed: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(books))
	}
	if books[0].DateRead != "2020-03-15" {
		t.Errorf("range end not used: %q", books[0].DateRead)
	}
}

func TestParseExportMissingOptionalColumns(t *testing.T) {
	csv := "Title,Read Status\nDune,read\n"

	books, warnings, err := ParseExport(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("missing optional columns must not fail the run: %v", err)
	}
	// No date column at all means no year, so the row is warned away.
	if len(books) != 0 {
		t.Errorf("expected 0 books, got %d", len(books))
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}
}

func TestParseExportNoTitleColumn(t *testing.T) {
	csv := "Something,Else\na,b\n"
	if _, _, err := ParseExport(strings.NewReader(csv)); err == nil {
		t.Fatal("expected error for export without a title column")
	}
}

func TestCleanISBN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"9780441013593", "9780441013593"},
		{"978-0-441-01359-3", "9780441013593"},
		{"044101359X", "044101359X"},
		{"044101359x", "044101359X"},
		{"isbn: 9780441013593", "9780441013593"},
		{"123", ""},
		{"12345678901234", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CleanISBN(tt.input); got != tt.expected {
				t.Errorf("CleanISBN(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
