package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

var (
	dbURL         = flag.String("db-url", getEnv("MINDGROVE_POSTGRES_URL", "postgres://localhost/mindgrove?sslmode=disable"), "PostgreSQL connection URL")
	purgeSchedule = flag.String("purge-schedule", getEnv("MINDGROVE_PURGE_SCHEDULE", "0 3 * * *"), "Cron schedule for the revoked-grant purge (default: 03:00 UTC)")
	retention     = flag.Duration("retention", getEnvDuration("MINDGROVE_REVOKED_GRANT_TTL", 30*24*time.Hour), "How long revoked grants are kept before purge")
	runOnce       = flag.Bool("run-once", false, "Run the purge once and exit (for testing)")
)

func main() {
	flag.Parse()

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	store := permissions.NewStore(db)

	if *runOnce {
		if err := runPurge(store, *retention); err != nil {
			log.Fatalf("Purge failed: %v", err)
		}
		return
	}

	c := cron.New()

	_, err = c.AddFunc(*purgeSchedule, func() {
		if err := runPurge(store, *retention); err != nil {
			log.Printf("Purge failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule purge: %v", err)
	}

	c.Start()
	log.Println("Mindgrove janitor started")
	log.Printf("Purge schedule: %s", *purgeSchedule)
	log.Printf("Revoked grant retention: %s", *retention)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()

	log.Println("Janitor stopped")
}

func runPurge(store *permissions.Store, retention time.Duration) error {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-retention)

	log.Printf("Purging grants revoked before %s", cutoff.Format(time.RFC3339))
	purged, err := store.PurgeRevokedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	log.Printf("Purged %d revoked grants", purged)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
