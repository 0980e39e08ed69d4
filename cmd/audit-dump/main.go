// Package main dumps the durable audit trail for compliance review. It reads
// the same SQLite database the server writes, so it can run against a live
// deployment or a copied-off database file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"careshield/internal/audit"
)

func main() {
	dbPath := flag.String("db", "careshield-audit.db", "Path to the audit database")
	limit := flag.Int("limit", 50, "Maximum number of events to print")
	jsonOutput := flag.Bool("json", false, "Output events as JSON lines")
	flag.Parse()

	store, err := audit.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := store.RecentEvents(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading events: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		for _, event := range events {
			if err := enc.Encode(event); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding event: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return
	}

	for _, event := range events {
		user := event.UserID
		if user == "" {
			user = "-"
		}
		fmt.Printf("%s  %-8s %-30s ip=%-15s user=%s %s %s\n",
			event.Timestamp.Format(time.RFC3339),
			event.Severity,
			event.Type,
			event.IP,
			user,
			event.Method,
			event.Path,
		)
	}
	fmt.Printf("\n%d event(s)\n", len(events))
}
