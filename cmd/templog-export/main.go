// Command templog-export writes stored samples to CSV.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"templog"
)

// parseWhen accepts ISO-8601 timestamps or bare dates. A bare date
// snaps to the start or end of that day depending on which bound it
// is, so "-start 2026-08-01 -end 2026-08-02" covers both days fully.
func parseWhen(value string, endOfDay bool) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000000",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date/time %q", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return t.UTC(), nil
}

// defaultOutput derives the CSV name from the database name and the
// requested range, e.g. templog_20260801-20260802.csv.
func defaultOutput(dbPath string, start, end time.Time) string {
	stem := strings.TrimSuffix(dbPath, filepath.Ext(dbPath))
	if start.IsZero() && end.IsZero() {
		return stem + ".csv"
	}
	label := func(t time.Time, fallback string) string {
		if t.IsZero() {
			return fallback
		}
		return t.Format("20060102")
	}
	return fmt.Sprintf("%s_%s-%s.csv", stem, label(start, "start"), label(end, "end"))
}

func main() {
	cfg := templog.LoadConfig()

	dbPath := flag.String("db", cfg.DBPath, "SQLite database to export from")
	startStr := flag.String("start", "", "range start, ISO-8601 or YYYY-MM-DD (default: beginning)")
	endStr := flag.String("end", "", "range end, ISO-8601 or YYYY-MM-DD (default: latest)")
	outPath := flag.String("o", "", "output CSV path (default: derived from the database name)")
	flag.Parse()

	var start, end time.Time
	var err error
	if *startStr != "" {
		if start, err = parseWhen(*startStr, false); err != nil {
			log.Fatalf("bad -start: %v", err)
		}
	}
	if *endStr != "" {
		if end, err = parseWhen(*endStr, true); err != nil {
			log.Fatalf("bad -end: %v", err)
		}
	}

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("database not found: %s", *dbPath)
	}

	store, err := templog.OpenStore(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	out := *outPath
	if out == "" {
		out = defaultOutput(*dbPath, start, end)
	}
	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}

	n, err := templog.ExportCSV(store, start, end, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	if n == 0 {
		log.Printf("no rows matched the specified range")
	}
	log.Printf("exported %d rows to %s", n, out)
}
