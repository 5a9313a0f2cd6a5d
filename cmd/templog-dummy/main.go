// Command templog-dummy creates a synthetic sample database for
// testing the exporter without hardware.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"templog"
)

func main() {
	startStr := flag.String("start", "", "first timestamp, ISO-8601 (default: now minus 2 days)")
	points := flag.Int("points", 8, "number of sample timestamps to generate")
	interval := flag.Duration("interval", 6*time.Hour, "spacing between timestamps")
	force := flag.Bool("force", false, "overwrite the output file if it exists")
	flag.Parse()

	path := "dummy-templog.sqlite3"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	start := time.Now().Add(-48 * time.Hour)
	if *startStr != "" {
		var err error
		start, err = time.Parse(time.RFC3339, *startStr)
		if err != nil {
			log.Fatalf("bad -start: %v", err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if !*force {
			log.Fatalf("refusing to overwrite %s (use -force)", path)
		}
		if err := os.Remove(path); err != nil {
			log.Fatalf("remove %s: %v", path, err)
		}
	}

	store, err := templog.OpenStore(path)
	if err != nil {
		log.Fatalf("create database: %v", err)
	}

	n, err := templog.FillDummy(store, start, *points, *interval)
	if cerr := store.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("generate samples: %v", err)
	}

	log.Printf("created %s with %d timestamps and %d sample rows", path, *points, n)
}
