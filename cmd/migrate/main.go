// migrate applies the strategy database schema migrations and reports their status.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"product-strategy-gateway/internal/config"
	"product-strategy-gateway/internal/storage"
)

const migrateTimeout = 2 * time.Minute

func main() {
	var (
		driver  = flag.String("driver", "", "Database driver: postgres or sqlite3 (default from config)")
		dsn     = flag.String("dsn", "", "Database DSN (default from config)")
		status  = flag.Bool("status", false, "Only report which migrations are applied")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	if err := run(ctx, storage.Dialect(cfg.Storage.Driver), cfg.Storage.DSN, *status); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dialect storage.Dialect, dsn string, statusOnly bool) error {
	db, err := storage.Open(ctx, dialect, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if statusOnly {
		statuses, err := storage.Status(ctx, db, dialect)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			switch {
			case s.Drifted:
				state = "DRIFTED"
			case s.Applied:
				state = "applied"
			}
			fmt.Printf("%3d  %-8s %s\n", s.Version, state, s.Description)
		}
		return nil
	}

	results, err := storage.Migrate(ctx, db, dialect)
	for _, r := range results {
		log.Printf("Applied migration %d (%s) in %s", r.Version, r.Description, r.ExecutionTime.Round(time.Millisecond))
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if len(results) == 0 {
		log.Printf("Schema is up to date (%d migrations)", len(storage.Migrations))
	}
	return nil
}
