package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"match-harvester/internal/db"
	"match-harvester/internal/ingest"
	"match-harvester/internal/match"
)

var (
	store   match.Store
	manager *ingest.Manager
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

	ctx := context.Background()

	// Connect to the store
	var err error
	store, err = db.Open(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	// Read-only manager: sampling and cursor queries need no API client
	manager = ingest.NewManager(nil, store, nil, ingest.Config{})

	// API routes
	http.HandleFunc("/api/stats", handleStats)
	http.HandleFunc("/api/matches/random", handleRandomMatches)
	http.HandleFunc("/api/match/", handleMatch)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchCount, err := store.MatchCount(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	playerCount, err := store.PlayerCount(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	maxSeq, ok, err := manager.CurrentMaxSequenceNumber(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"matches": matchCount,
		"players": playerCount,
	}
	if ok {
		resp["maxSequenceNum"] = maxSeq
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func handleRandomMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count := ingest.DefaultSampleCount
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if n, err := strconv.Atoi(countStr); err == nil && n > 0 {
			count = n
		}
	}

	matches, err := manager.SampleRandom(ctx, count)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matches)
}

func handleMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Extract the ID from the URL path: /api/match/{id}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/match/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "Match ID required", http.StatusBadRequest)
		return
	}

	// ?public=1 treats the ID as the store-assigned surrogate key
	matchID, publicID := id, int64(0)
	if r.URL.Query().Get("public") == "1" {
		matchID, publicID = 0, id
	}

	rec, err := match.Load(ctx, store, matchID, publicID)
	if errors.Is(err, match.ErrNotFound) {
		http.Error(w, "Match not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}
