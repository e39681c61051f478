package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"match-harvester/internal/match"
	"match-harvester/internal/steam"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	godotenv.Load()

	matchID := flag.Int64("match-id", 0, "Match ID to inspect")
	flag.Parse()

	if *matchID == 0 {
		fmt.Println("Usage: go run cmd/matchcheck/main.go --match-id=1234567890")
		os.Exit(1)
	}

	client, err := steam.NewClient()
	if err != nil {
		log.Fatalf("Failed to create Steam client: %v", err)
	}

	ctx := context.Background()

	fmt.Printf("\n1. Fetching match %d...\n", *matchID)
	payload, err := client.GetMatchDetails(ctx, *matchID)
	if err != nil {
		log.Fatalf("Failed to fetch match: %v", err)
	}

	rec := match.FromPayload(*payload)
	fmt.Printf("   Sequence: %d\n", rec.SequenceNum)
	fmt.Printf("   Duration: %ds\n", rec.Duration)
	fmt.Printf("   Mode: %d, Lobby: %d\n", rec.GameMode, rec.LobbyType)
	winner := "radiant"
	if !rec.RadiantWin {
		winner = "dire"
	}
	fmt.Printf("   Winner: %s\n", winner)

	fmt.Printf("\n2. Players (%d)...\n", len(rec.Players))
	for _, p := range rec.Players {
		fmt.Printf("   account %-12d hero %-4d %s position %d (slot byte %d, leaver %d)\n",
			p.AccountID, p.HeroID, p.Team, p.Position, p.SlotByte, p.LeaverStatus)
	}

	fmt.Printf("\n3. Validity check...\n")
	if ok, reason := rec.Valid(); ok {
		fmt.Println("   Result: PASS (eligible for storage)")
	} else {
		fmt.Printf("   Result: SKIP (%s)\n", reason)
	}

	fmt.Println("\nDone!")
}
