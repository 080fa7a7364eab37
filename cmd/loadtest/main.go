// File: cmd/loadtest/main.go
// Project: Gargamel League Matchmaker
// Description: Load testing tool for the matchmaking queue and team formation
// Version: 1.0.0

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gargamel-league/matchmaker/internal/matchmaker"
)

var (
	playerCount = flag.Int("players", 2000, "Number of synthetic players to enqueue")
	teamSize    = flag.Int("team-size", 5, "Players per side")
	gamesToForm = flag.Int("games", 50, "Number of FormGame calls to run back to back")
	unfunMod    = flag.Int("unfun-mod", 2, "Unfairness exponent q")
	seed        = flag.Int64("seed", 1, "Random seed, for reproducible runs")
)

type loadTestResult struct {
	PlayerCount    int
	EnqueueTime    time.Duration
	EnqueuePerSec  float64
	GamesFormed    int
	FormGameTime   time.Duration
	FormGamePerSec float64
	AvgUnfairness  float64
	MaxUnfairness  float64
	Errors         []string
}

func main() {
	flag.Parse()

	fmt.Println("=== Gargamel League Matchmaker Load Test ===")
	fmt.Printf("Players: %d   Team size: %d   Games: %d   Seed: %d\n\n", *playerCount, *teamSize, *gamesToForm, *seed)

	rng := rand.New(rand.NewSource(*seed))
	queue := matchmaker.New()
	result := &loadTestResult{PlayerCount: *playerCount}

	fmt.Printf("Phase 1: Enqueueing %d players...\n", *playerCount)
	enqueueStart := time.Now()
	now := time.Now()
	for i := 0; i < *playerCount; i++ {
		discordID := int64(1_000_000 + i)
		rating := 500 + rng.Intn(2500)
		joinedAt := now.Add(-time.Duration(rng.Intn(3600)) * time.Second)
		queue.Enqueue(discordID, rating, joinedAt)
	}
	result.EnqueueTime = time.Since(enqueueStart)
	result.EnqueuePerSec = float64(*playerCount) / result.EnqueueTime.Seconds()
	fmt.Printf("done: %v (%.0f players/sec), queue depth=%d\n\n", result.EnqueueTime, result.EnqueuePerSec, queue.Len())

	fmt.Printf("Phase 2: Forming %d games...\n", *gamesToForm)
	formStart := time.Now()
	var totalUnfairness, maxUnfairness float64
	for i := 0; i < *gamesToForm; i++ {
		game, err := queue.FormGameQ(*teamSize, *unfunMod, now, rng)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("form_game %d: %v", i, err))
			continue
		}
		result.GamesFormed++
		totalUnfairness += game.Unfairness
		if game.Unfairness > maxUnfairness {
			maxUnfairness = game.Unfairness
		}
		if (i+1)%10 == 0 {
			fmt.Printf("  formed %d/%d (queue depth now %d)\n", i+1, *gamesToForm, queue.Len())
		}
	}
	result.FormGameTime = time.Since(formStart)
	if result.GamesFormed > 0 {
		result.FormGamePerSec = float64(result.GamesFormed) / result.FormGameTime.Seconds()
		result.AvgUnfairness = totalUnfairness / float64(result.GamesFormed)
		result.MaxUnfairness = maxUnfairness
	}

	fmt.Println("\n=== Load Test Results ===")
	fmt.Printf("Players enqueued: %d in %v (%.0f/sec)\n", result.PlayerCount, result.EnqueueTime, result.EnqueuePerSec)
	fmt.Printf("Games formed: %d/%d in %v (%.1f/sec)\n", result.GamesFormed, *gamesToForm, result.FormGameTime, result.FormGamePerSec)
	fmt.Printf("Unfairness: avg=%.2f max=%.2f\n", result.AvgUnfairness, result.MaxUnfairness)
	fmt.Printf("Remaining queue depth: %d\n", queue.Len())

	if len(result.Errors) > 0 {
		fmt.Printf("\n%d errors occurred:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
		os.Exit(1)
	}
	fmt.Println("\nAll games formed successfully")
}
