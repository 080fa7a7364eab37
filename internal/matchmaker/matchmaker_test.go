// File: internal/matchmaker/matchmaker_test.go
// Project: Gargamel League Matchmaker
// Description: Tests for the queue and balanced game formation
// Version: 1.0.0

package matchmaker

import (
	"math/rand"
	"testing"
	"time"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := New()
	now := time.Now()

	q.Enqueue(1, 1000, now)
	if !q.Contains(1) {
		t.Fatal("expected player 1 to be queued")
	}
	if q.Len() != 1 {
		t.Fatalf("expected queue length 1, got %d", q.Len())
	}

	if !q.Dequeue(1) {
		t.Fatal("expected Dequeue to succeed for queued player")
	}
	if q.Dequeue(1) {
		t.Fatal("expected Dequeue to report false for already-removed player")
	}
}

func TestQueue_EnqueueIsIdempotent(t *testing.T) {
	q := New()
	first := time.Now().Add(-time.Minute)
	later := time.Now()

	q.Enqueue(1, 1000, first)
	q.Enqueue(1, 1500, later)

	if q.Len() != 1 {
		t.Fatalf("expected exactly one entry for a re-enqueued player, got %d", q.Len())
	}
	entry, ok := q.Get(1)
	if !ok {
		t.Fatal("expected player 1 to still be queued")
	}
	if entry.Rating != 1000 {
		t.Fatalf("expected the first enqueue's rating 1000 to be preserved, got %d", entry.Rating)
	}
	if !entry.JoinedAt.Equal(first) {
		t.Fatalf("expected the first enqueue's join time to be preserved, got %v", entry.JoinedAt)
	}
}

func TestQueue_SnapshotOrderedByJoinTime(t *testing.T) {
	q := New()
	base := time.Now()

	q.Enqueue(3, 1000, base.Add(2*time.Second))
	q.Enqueue(1, 1000, base)
	q.Enqueue(2, 1000, base.Add(1*time.Second))

	snap := q.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	for i, want := range []int64{1, 2, 3} {
		if snap[i].DiscordID != want {
			t.Fatalf("expected order [1,2,3], got position %d = %d", i, snap[i].DiscordID)
		}
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New()
	now := time.Now()
	q.Enqueue(1, 1000, now)
	q.Enqueue(2, 1000, now)

	removed := q.Clear()
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed entries, got %d", len(removed))
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after Clear, got %d", q.Len())
	}
}

func TestFormGame_NotEnoughPlayers(t *testing.T) {
	q := New()
	q.Enqueue(1, 1000, time.Now())

	_, err := q.FormGame(1, time.Now(), rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("expected error when queue has fewer than 2*teamSize players")
	}
}

func TestFormGame_ProducesDisjointTeamsAndDrainsQueue(t *testing.T) {
	q := New()
	now := time.Now()
	ratings := []int{900, 950, 1000, 1050, 1100, 1150}
	for i, r := range ratings {
		q.Enqueue(int64(i+1), r, now.Add(-time.Duration(i)*time.Minute))
	}

	rng := rand.New(rand.NewSource(42))
	game, err := q.FormGame(3, now, rng)
	if err != nil {
		t.Fatalf("FormGame failed: %v", err)
	}

	if len(game.Radiant) != 3 || len(game.Dire) != 3 {
		t.Fatalf("expected 3v3, got radiant=%d dire=%d", len(game.Radiant), len(game.Dire))
	}

	seen := make(map[int64]bool)
	for _, e := range append(append([]Entry{}, game.Radiant...), game.Dire...) {
		if seen[e.DiscordID] {
			t.Fatalf("player %d appears on both teams", e.DiscordID)
		}
		seen[e.DiscordID] = true
	}

	if q.Len() != 0 {
		t.Fatalf("expected all 6 sampled players removed from a 6-player queue, got %d remaining", q.Len())
	}
}

func TestFormGame_PrefersBalancedSplitOverWorstCase(t *testing.T) {
	q := New()
	now := time.Now()
	// Two strong, two weak: the balanced split pairs one strong with one
	// weak per team; the worst split stacks both strong players together.
	q.Enqueue(1, 2000, now.Add(-4*time.Minute))
	q.Enqueue(2, 2000, now.Add(-3*time.Minute))
	q.Enqueue(3, 1000, now.Add(-2*time.Minute))
	q.Enqueue(4, 1000, now.Add(-1*time.Minute))

	rng := rand.New(rand.NewSource(7))
	game, err := q.FormGame(2, now, rng)
	if err != nil {
		t.Fatalf("FormGame failed: %v", err)
	}

	// The only perfectly balanced split (one strong + one weak per team)
	// scores 0; the stacked split scores ~1414. A correct search weighted
	// toward the best-scoring splits should land well below the stacked
	// split's score most of the time.
	const stackedSplitUnfairness = 1414.2
	if game.Unfairness >= stackedSplitUnfairness {
		t.Fatalf("expected FormGame to avoid the worst-case stacked split, got unfairness %f", game.Unfairness)
	}
}
