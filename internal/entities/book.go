package entities

// DatePrecision describes how much of a book's read date is known.
type DatePrecision string

const (
	// PrecisionDay means the full read date was parsed from the export.
	PrecisionDay DatePrecision = "day"
	// PrecisionYear means only a year could be recovered; DateRead is
	// pinned to January 1st of that year.
	PrecisionYear DatePrecision = "year"
	// PrecisionUnknown means no date information could be parsed.
	PrecisionUnknown DatePrecision = "unknown"
)

// Book is a single record from a reading-history export, enriched with
// a verified cover URL when one could be found. Field order here is the
// field order of the serialized artifact; keep it stable so re-runs
// produce diff-friendly output.
type Book struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Authors       string        `json:"authors"`
	YearRead      int           `json:"year_read"`
	DateRead      string        `json:"date_read,omitempty"`
	DatePrecision DatePrecision `json:"date_precision"`
	ISBN          string        `json:"isbn,omitempty"`
	CoverURL      string        `json:"cover_url,omitempty"`
	Format        string        `json:"format,omitempty"`
	ReadStatus    string        `json:"read_status,omitempty"`
}

// DedupKey identifies a book within a single export. The export carries
// no stable ID, so (title, authors, date read) has to serve.
func (b Book) DedupKey() string {
	return b.Title + "\x00" + b.Authors + "\x00" + b.DateRead
}
