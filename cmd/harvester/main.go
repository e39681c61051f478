package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"match-harvester/internal/db"
	"match-harvester/internal/ingest"
	"match-harvester/internal/report"
	"match-harvester/internal/steam"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			fmt.Printf("Loaded .env from: %s\n", path)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	// Parse flags
	interval := flag.Duration("interval", 2*time.Minute, "Time between ingestion cycles")
	once := flag.Bool("once", false, "Run a single ingestion cycle and exit")
	debug := flag.Bool("debug", false, "Log the reason each invalid match was rejected")
	startSeq := flag.Int64("start-seq", 0, "Sequence cursor to use when the store is empty")
	flag.Parse()

	ctx := ingest.SetupSignalHandler()

	// Connect to the store
	store, err := db.Open(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.CreateTables(ctx); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	// Create the Steam API client
	client, err := steam.NewClient()
	if err != nil {
		log.Fatalf("Failed to create Steam client: %v", err)
	}

	// Reports go to the log, and to Discord when a webhook is configured
	var reporter report.Reporter = report.LogReporter{}
	if url := os.Getenv("DISCORD_WEBHOOK_URL"); url != "" {
		reporter = report.Multi{report.LogReporter{}, report.NewWebhookReporter(url)}
	}

	manager := ingest.NewManager(client, store, reporter, ingest.Config{
		StartSequence: *startSeq,
		Debug:         *debug,
	})

	startTime := time.Now()
	cycles := 0

	for {
		cycleStart := time.Now()
		saved, err := manager.IngestNewMatches(ctx)
		if err != nil && !errors.Is(err, ingest.ErrIngestInProgress) {
			log.Printf("[Harvester] Cycle failed: %v", err)
		}
		cycles++

		seq, ok, seqErr := manager.CurrentMaxSequenceNumber(ctx)
		cursorNote := "store empty"
		if seqErr == nil && ok {
			cursorNote = fmt.Sprintf("cursor at %d", seq)
		}
		fmt.Printf("[Cycle %d] [%s] %d new matches (%s)\n",
			cycles, time.Since(cycleStart).Round(time.Millisecond), len(saved), cursorNote)

		if *once {
			break
		}

		select {
		case <-ctx.Done():
			printSummary(manager, startTime, cycles)
			return
		case <-time.After(*interval):
		}
	}

	printSummary(manager, startTime, cycles)
}

func printSummary(manager *ingest.Manager, startTime time.Time, cycles int) {
	stats := manager.Stats()
	fmt.Printf("\n=== Harvest Complete ===\n")
	fmt.Printf("Total time: %s\n", time.Since(startTime).Round(time.Second))
	fmt.Printf("Cycles run: %d\n", cycles)
	fmt.Printf("Matches ingested: %d\n", stats.Ingested)
	fmt.Printf("Skipped (invalid): %d\n", stats.SkippedInvalid)
	fmt.Printf("Skipped (duplicate): %d\n", stats.SkippedDup)
}
