package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/strickvl/storygraph-rater/internal/config"
	"github.com/strickvl/storygraph-rater/internal/covers"
	"github.com/strickvl/storygraph-rater/internal/database"
	"github.com/strickvl/storygraph-rater/internal/database/covercache"
	"github.com/strickvl/storygraph-rater/internal/enrich"
	"github.com/strickvl/storygraph-rater/internal/entities"
	"github.com/strickvl/storygraph-rater/internal/output"
	"github.com/strickvl/storygraph-rater/internal/storygraph"
)

// ProcessCommand converts a StoryGraph CSV export into the enriched
// books.json artifact.
type ProcessCommand struct {
	ExportPath   string
	OutputPath   string
	DatabasePath string
	NoCovers     bool
	NoCache      bool
	Verbose      bool
}

func NewProcessCommand() *ProcessCommand {
	return &ProcessCommand{}
}

func (cmd *ProcessCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)

	fs.StringVar(&cmd.ExportPath, "file", "", "Path to the StoryGraph CSV export (required)")
	fs.StringVar(&cmd.OutputPath, "output", config.DefaultBooksPath, "Path for the enriched books JSON artifact")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database used for the cover-URL cache")
	fs.BoolVar(&cmd.NoCovers, "no-covers", false, "Skip cover fetching entirely (no network calls)")
	fs.BoolVar(&cmd.NoCache, "no-cache", false, "Disable the persistent cover-URL cache")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s process -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Convert a StoryGraph CSV export into an enriched JSON dataset with\n")
		fmt.Fprintf(os.Stderr, "verified cover URLs from OpenLibrary.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Full pipeline with cover lookups:\n")
		fmt.Fprintf(os.Stderr, "  %s process -file storygraph_export.csv\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Quick iteration without hitting the network:\n")
		fmt.Fprintf(os.Stderr, "  %s process -file storygraph_export.csv -no-covers\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ExportPath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	return nil
}

func (cmd *ProcessCommand) Run() error {
	cfg := config.NewConfig()

	if _, err := os.Stat(cmd.ExportPath); os.IsNotExist(err) {
		return fmt.Errorf("export file not found: %s", cmd.ExportPath)
	}

	file, err := os.Open(cmd.ExportPath)
	if err != nil {
		return fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	fmt.Printf("Processing: %s\n", cmd.ExportPath)

	fmt.Println("\n[1/2] Parsing CSV...")
	books, warnings, err := storygraph.ParseExport(file)
	if err != nil {
		return fmt.Errorf("failed to parse export: %w", err)
	}

	for _, warning := range warnings {
		if cmd.Verbose {
			fmt.Printf("  Warning: %s\n", warning)
		}
	}
	if len(warnings) > 0 && !cmd.Verbose {
		fmt.Printf("  %d rows skipped (use -verbose for details)\n", len(warnings))
	}

	fmt.Printf("  Found %d read books\n", len(books))
	if len(books) == 0 {
		return fmt.Errorf("no books found - check that the export has 'read' status books")
	}

	fmt.Println("\n[2/2] Fetching cover images...")
	if cmd.NoCovers {
		fmt.Println("  Skipping cover fetch (-no-covers flag)")
	}

	enrichCfg := enrich.Config{
		Workers:     cfg.Covers.Workers,
		MaxRetries:  cfg.Covers.MaxRetries,
		BackoffBase: cfg.Covers.BackoffBase,
		JitterMax:   cfg.Covers.JitterMax,
	}

	resolver := covers.NewClient(cfg.Covers.RequestTimeout, cfg.Covers.RequestsPerSecond)
	enricher := enrich.New(resolver, enrichCfg)

	if !cmd.NoCovers && !cmd.NoCache {
		db, err := database.NewDatabase(cmd.DatabasePath)
		if err != nil {
			log.Printf("Warning: cover cache unavailable: %v", err)
		} else {
			defer db.Close()
			enricher.SetCache(covercache.NewRepository(db.DB))
		}
	}

	if !cmd.NoCovers {
		withISBN := 0
		for _, b := range books {
			if b.ISBN != "" {
				withISBN++
			}
		}
		fmt.Printf("  %d books have ISBNs (will verify)\n", withISBN)
		fmt.Printf("  %d books need search\n", len(books)-withISBN)
		fmt.Printf("  Using %d parallel workers\n", enrichCfg.Workers)
	}

	enriched := enricher.Enrich(context.Background(), books, cmd.NoCovers)

	if err := output.WriteBooks(cmd.OutputPath, enriched); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Printf("\nSaved %d books to: %s\n", len(enriched), cmd.OutputPath)
	printSummary(enriched)

	return nil
}

// printSummary reports the year range and cover hit rate of a run.
func printSummary(books []entities.Book) {
	minYear, maxYear := 0, 0
	withCovers := 0
	for _, b := range books {
		if b.CoverURL != "" {
			withCovers++
		}
		if b.YearRead == 0 {
			continue
		}
		if minYear == 0 || b.YearRead < minYear {
			minYear = b.YearRead
		}
		if b.YearRead > maxYear {
			maxYear = b.YearRead
		}
	}

	if minYear != 0 {
		fmt.Printf("  Years covered: %d - %d\n", minYear, maxYear)
	}
	fmt.Printf("  Books with covers: %d/%d\n", withCovers, len(books))
}
