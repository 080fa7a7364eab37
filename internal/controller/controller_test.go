// File: internal/controller/controller_test.go
// Project: Gargamel League Matchmaker
// Description: Integration tests for match lifecycle orchestration
// Version: 1.0.0

package controller

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/gargamel-league/matchmaker/internal/matchmaker"
	"github.com/gargamel-league/matchmaker/internal/platform"
	"github.com/gargamel-league/matchmaker/internal/platform/dota2"
	"github.com/gargamel-league/matchmaker/internal/platform/fake"
	"github.com/gargamel-league/matchmaker/internal/pool"
	"github.com/gargamel-league/matchmaker/internal/store"
)

// setupTestStore connects to a real Postgres instance for integration
// testing. Tests are skipped, not failed, when no database is reachable so
// that `go test ./...` stays green on a machine without Postgres installed.
func setupTestStore(t *testing.T) (*store.MatchRepository, *store.RatingRepository) {
	t.Helper()

	cfg := store.DefaultConfig()
	cfg.Database = "gargamel_league_test"

	db, err := store.NewDB(cfg)
	if err != nil {
		t.Skipf("skipping controller tests: failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := db.ClearDatabase(ctx); err != nil {
		t.Skipf("skipping controller tests: failed to reset schema: %v", err)
	}
	if err := db.RunMigrations(ctx, "../store"); err != nil {
		t.Skipf("skipping controller tests: failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return store.NewMatchRepository(db), store.NewRatingRepository(db)
}

var fakeClients []*fake.Client

// newFakeClientFunc builds fresh fake.Client instances and immediately
// signals LoggedOn on each one, exactly like the real client does once its
// Steam handshake completes, so CreateLobby doesn't block on the Supervisor's
// ready timeout in tests.
func newFakeClientFunc() NewClientFunc {
	return func(creds dota2.Credentials) platform.Client {
		c := fake.New()
		fakeClients = append(fakeClients, c)
		go c.Emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{}})
		return c
	}
}

func testController(t *testing.T, teamSize int) (*Controller, *matchmaker.Queue) {
	t.Helper()
	matches, ratings := setupTestStore(t)

	ctx := context.Background()
	for i := 0; i < teamSize*2; i++ {
		discordID := int64(1000 + i)
		if _, err := ratings.Register(ctx, discordID, 76561198000000000+discordID, 1000); err != nil {
			t.Fatalf("failed to register player %d: %v", discordID, err)
		}
	}

	fakeClients = nil
	p := pool.New([]dota2.Credentials{{Username: "bot0", Password: "pw"}})
	rng := rand.New(rand.NewSource(1))
	cfg := Config{TeamSize: teamSize, EloK: 32, UnfairnessExponent: 2}
	ctrl := New(matchmaker.New(), p, matches, ratings, nil, newFakeClientFunc(), cfg, rng)

	go ctrl.Run(ctx)
	return ctrl, ctrl.queue
}

func formTestGame(t *testing.T, q *matchmaker.Queue, teamSize int) *matchmaker.Game {
	t.Helper()
	now := time.Now()
	for i := 0; i < teamSize*2; i++ {
		q.Enqueue(int64(1000+i), 1000, now)
	}
	game, err := q.FormGameQ(teamSize, 2, now, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("FormGameQ failed: %v", err)
	}
	return game
}

func TestMakeGame_CreatesLobbyAndTracksPending(t *testing.T) {
	ctrl, queue := testController(t, 2)
	game := formTestGame(t, queue, 2)

	gameID, password, err := ctrl.MakeGame(context.Background(), game)
	if err != nil {
		t.Fatalf("MakeGame failed: %v", err)
	}
	if gameID == 0 {
		t.Fatal("expected a non-zero game id")
	}
	if len(password) != 4 {
		t.Fatalf("expected a 4-digit password, got %q", password)
	}

	got, err := ctrl.GetPassword(gameID)
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if got != password {
		t.Fatalf("GetPassword returned %q, want %q", got, password)
	}

	if len(fakeClients) != 1 {
		t.Fatalf("expected exactly one platform client to be spawned, got %d", len(fakeClients))
	}
	if fakeClients[0].LobbyConfig.Password != password {
		t.Fatalf("expected the lobby to be configured with the returned password, got %q", fakeClients[0].LobbyConfig.Password)
	}
}

func TestMakeGame_RequeuesOnPoolExhaustion(t *testing.T) {
	matches, ratings := setupTestStore(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		discordID := int64(2000 + i)
		if _, err := ratings.Register(ctx, discordID, 76561198000001000+discordID, 1000); err != nil {
			t.Fatalf("failed to register player %d: %v", discordID, err)
		}
	}

	fakeClients = nil
	p := pool.New(nil) // zero slots: Acquire always fails
	rng := rand.New(rand.NewSource(3))
	ctrl := New(matchmaker.New(), p, matches, ratings, nil, newFakeClientFunc(), Config{TeamSize: 2}, rng)

	now := time.Now()
	for i := 0; i < 4; i++ {
		ctrl.queue.Enqueue(int64(2000+i), 1000, now)
	}
	game, err := ctrl.queue.FormGameQ(2, 2, now, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("FormGameQ failed: %v", err)
	}

	if _, _, err := ctrl.MakeGame(ctx, game); err == nil {
		t.Fatal("expected MakeGame to fail when the slot pool is exhausted")
	}
	if ctrl.queue.Len() != 4 {
		t.Fatalf("expected all 4 players requeued after a failed MakeGame, got queue depth %d", ctrl.queue.Len())
	}
}

func TestCancelGame_RemovesPendingMatchAndReleasesSlot(t *testing.T) {
	ctrl, queue := testController(t, 2)
	game := formTestGame(t, queue, 2)

	gameID, _, err := ctrl.MakeGame(context.Background(), game)
	if err != nil {
		t.Fatalf("MakeGame failed: %v", err)
	}

	if err := ctrl.CancelGame(context.Background(), gameID); err != nil {
		t.Fatalf("CancelGame failed: %v", err)
	}
	if _, err := ctrl.GetPassword(gameID); err == nil {
		t.Fatal("expected GetPassword to fail after CancelGame")
	}
	if ctrl.pool.ActiveCount() != 0 {
		t.Fatalf("expected the slot to be released, active count = %d", ctrl.pool.ActiveCount())
	}
}

func TestCancelGame_UnknownGameReturnsError(t *testing.T) {
	ctrl, _ := testController(t, 2)
	if err := ctrl.CancelGame(context.Background(), 999999); err == nil {
		t.Fatal("expected an error for an unknown game id")
	}
}

func TestSwap_ForwardsToOwningSupervisor(t *testing.T) {
	ctrl, queue := testController(t, 2)
	game := formTestGame(t, queue, 2)

	gameID, _, err := ctrl.MakeGame(context.Background(), game)
	if err != nil {
		t.Fatalf("MakeGame failed: %v", err)
	}

	radiant := game.Radiant[0].DiscordID
	dire := game.Dire[0].DiscordID
	if err := ctrl.Swap(context.Background(), gameID, radiant, dire); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
}

func TestSwap_UnknownGameReturnsError(t *testing.T) {
	ctrl, _ := testController(t, 2)
	if err := ctrl.Swap(context.Background(), 999999, 1, 2); err == nil {
		t.Fatal("expected an error for an unknown game id")
	}
}
