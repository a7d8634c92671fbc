package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"

	"doorbell-lab/repositories"
)

type Config struct {
	JournalPath string `envconfig:"JOURNAL_PATH"`
	// VIEWER_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"VIEWER_COLOURS" default:"true"`
}

// viewer dumps the ring journal as a table. It opens Badger read-only with
// the lock guard bypassed so it can run while the daemon holds the lock.
func main() {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	dbPath := flag.String("db", config.JournalPath, "Path to the ring journal")
	kind := flag.String("kind", string(repositories.KindRing), "Entry kind to list: ring or artifact")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("No journal path: set JOURNAL_PATH or pass -db")
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer db.Close()

	journal := repositories.NewRingJournal(db, slog.Default(), nil)
	entries, err := journal.GetEntries(repositories.EntryKind(*kind))
	if err != nil {
		log.Fatalf("Failed to read journal: %v", err)
	}

	if config.Colours {
		color.Cyan.Printf("Ring journal: %d %q entries in %s\n", len(entries), *kind, *dbPath)
	} else {
		fmt.Printf("Ring journal: %d %q entries in %s\n", len(entries), *kind, *dbPath)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "ID", "Label", "Confidence", "Detail", "Path"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, entry := range entries {
		// First 8 characters of the ID are enough on screen
		displayID := entry.ID.String()
		if len(displayID) > 8 {
			displayID = displayID[:8]
		}

		confidence := "-"
		if entry.Confidence > 0 {
			confidence = fmt.Sprintf("%.2f", entry.Confidence)
		}

		table.Append([]string{
			entry.At.Format("2006-01-02 15:04:05"),
			displayID,
			entry.Label,
			confidence,
			entry.Detail,
			entry.Path,
		})
	}

	table.Render()
}
