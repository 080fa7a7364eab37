// File: internal/controller/controller.go
// Project: Gargamel League Matchmaker
// Description: Match lifecycle orchestration: forms games, tracks their
// progress through the external platform, and settles ratings
// Version: 1.0.0

// Package controller is the Match Lifecycle Controller: it asks the
// matchmaker for a balanced partition, acquires a Supervisor Pool slot,
// drives the Supervisor through lobby creation, and reacts to the
// lifecycle events the Supervisor posts back (lobby_running, lobby_ended)
// by persisting match history and updating ratings.
package controller

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	gerrors "github.com/gargamel-league/matchmaker/internal/errors"
	"github.com/gargamel-league/matchmaker/internal/logger"
	"github.com/gargamel-league/matchmaker/internal/matchmaker"
	"github.com/gargamel-league/matchmaker/internal/metrics"
	"github.com/gargamel-league/matchmaker/internal/platform"
	"github.com/gargamel-league/matchmaker/internal/platform/dota2"
	"github.com/gargamel-league/matchmaker/internal/pool"
	"github.com/gargamel-league/matchmaker/internal/ratingmath"
	"github.com/gargamel-league/matchmaker/internal/store"
	"github.com/gargamel-league/matchmaker/internal/supervisor"
)

var log = logger.WithComponent("Controller")

// Config tunes the Controller's rating math and lobby defaults. cmd/server
// fills it field by field from internal/config.Config; EloDivisor has no
// counterpart there and is left at its default.
type Config struct {
	TeamSize           int
	EloK               int
	EloDivisor         float64
	UnfairnessExponent int
	DebugMode          bool
	LeagueID           int
	ServerRegion       int
}

func (c Config) withDefaults() Config {
	if c.TeamSize <= 0 {
		c.TeamSize = 5
	}
	if c.EloK <= 0 {
		c.EloK = 32
	}
	if c.EloDivisor <= 0 {
		c.EloDivisor = ratingmath.DefaultEloDivisor
	}
	if c.UnfairnessExponent <= 0 {
		c.UnfairnessExponent = ratingmath.DefaultUnfairnessExponent
	}
	return c
}

// NewClientFunc constructs a fresh platform.Client for one pool slot's
// credentials. Production wiring passes dota2.New; tests pass a factory
// that returns fake.Client instances instead.
type NewClientFunc func(creds dota2.Credentials) platform.Client

// pendingMatch tracks a lobby created but not yet confirmed RUNNING.
type pendingMatch struct {
	radiant, dire         []matchmaker.Entry
	radiantMean, direMean float64
	unfairness            float64
	password              string
	sup                   *supervisor.Supervisor
	slot                  int
	runID                 string
	cancel                context.CancelFunc
	done                  chan struct{}
}

// activeMatch tracks a match from RUNNING to its terminal event.
type activeMatch struct {
	radiantIDs, direIDs       []int64
	radiantBefore, direBefore map[int64]int
	password                  string
	sup                       *supervisor.Supervisor
	slot                      int
	runID                     string
	cancel                    context.CancelFunc
	done                  chan struct{}
}

// Controller owns the pending/active match tables and reacts to
// Supervisor lifecycle events. All mutating methods are safe for
// concurrent use; the Go translation of the spec's single control-loop
// serialization is a mutex around these tables, the same pattern
// internal/pool uses for its slot set.
type Controller struct {
	mu      sync.Mutex
	pending map[int64]*pendingMatch
	active  map[int64]*activeMatch

	queue    *matchmaker.Queue
	pool     *pool.Pool
	matches  *store.MatchRepository
	ratings  *store.RatingRepository
	notifier platform.Notifier
	newClient NewClientFunc

	cfg    Config
	events chan supervisor.Event

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Controller. rng seeds password generation and should be
// time-seeded in production, fixed in tests.
func New(queue *matchmaker.Queue, p *pool.Pool, matches *store.MatchRepository, ratings *store.RatingRepository, notifier platform.Notifier, newClient NewClientFunc, cfg Config, rng *rand.Rand) *Controller {
	return &Controller{
		pending:   make(map[int64]*pendingMatch),
		active:    make(map[int64]*activeMatch),
		queue:     queue,
		pool:      p,
		matches:   matches,
		ratings:   ratings,
		notifier:  notifier,
		newClient: newClient,
		cfg:       cfg.withDefaults(),
		events:    make(chan supervisor.Event, 256),
		rng:       rng,
	}
}

// Run consumes Supervisor lifecycle events until ctx is cancelled. Call it
// once, in its own goroutine, alongside the Controller's lifetime.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.handleSupervisorEvent(context.Background(), ev)
		}
	}
}

func (c *Controller) handleSupervisorEvent(ctx context.Context, ev supervisor.Event) {
	switch {
	case ev.LobbyRunning != nil:
		c.onLobbyRunning(ctx, ev.GameID, ev.LobbyRunning)
	case ev.LobbyEnded != nil:
		c.onLobbyEnded(ctx, ev.GameID, ev.LobbyEnded)
	}
}

// MakeGame forms a lobby for an already-partitioned game: it reserves a
// game id, acquires a pool slot, spawns a Supervisor, translates player
// ids to platform ids, and asks the Supervisor to create the lobby. On
// any failure the sampled players are returned to the queue.
func (c *Controller) MakeGame(ctx context.Context, game *matchmaker.Game) (gameID int64, password string, err error) {
	gameID, err = c.matches.NextGameID(ctx)
	if err != nil {
		c.requeue(game)
		return 0, "", fmt.Errorf("make_game: %w", err)
	}

	slot, err := c.pool.Acquire(gameID)
	if err != nil {
		c.requeue(game)
		return 0, "", err
	}

	client := c.newClient(slot.Credentials)
	runCtx, cancel := context.WithCancel(context.Background())
	sup := supervisor.New(gameID, slot.Index, client, c.notifier, supervisor.Config{DebugMode: c.cfg.DebugMode}, c.events)
	done := make(chan struct{})
	go func() {
		sup.Run(runCtx)
		close(done)
	}()

	radiantSteam, err := c.steamIDs(ctx, game.Radiant)
	if err != nil {
		c.abortSpawn(sup, cancel, done, slot.Index)
		c.requeue(game)
		return 0, "", fmt.Errorf("make_game: %w", err)
	}
	direSteam, err := c.steamIDs(ctx, game.Dire)
	if err != nil {
		c.abortSpawn(sup, cancel, done, slot.Index)
		c.requeue(game)
		return 0, "", fmt.Errorf("make_game: %w", err)
	}

	password = fmt.Sprintf("%04d", 1000+c.nextRand(9000))

	if err := sup.CreateLobby(ctx, radiantSteam, direSteam, password); err != nil {
		c.abortSpawn(sup, cancel, done, slot.Index)
		c.requeue(game)
		return 0, "", fmt.Errorf("make_game: create_lobby: %w", err)
	}

	c.mu.Lock()
	c.pending[gameID] = &pendingMatch{
		radiant:     game.Radiant,
		dire:        game.Dire,
		radiantMean: game.RadiantMean,
		direMean:    game.DireMean,
		unfairness:  game.Unfairness,
		password:    password,
		sup:         sup,
		slot:        slot.Index,
		runID:       sup.RunID(),
		cancel:      cancel,
		done:        done,
	}
	c.mu.Unlock()

	metrics.Global().IncrementGamesFormed()
	log.Info("game %d formed, awaiting lobby confirmation", gameID)
	return gameID, password, nil
}

func (c *Controller) abortSpawn(sup *supervisor.Supervisor, cancel context.CancelFunc, done chan struct{}, slotIndex int) {
	_ = sup.Teardown(context.Background())
	cancel()
	<-done
	c.pool.Release(slotIndex)
}

func (c *Controller) requeue(game *matchmaker.Game) {
	now := time.Now()
	for _, e := range game.Radiant {
		c.queue.Enqueue(e.DiscordID, e.Rating, now)
	}
	for _, e := range game.Dire {
		c.queue.Enqueue(e.DiscordID, e.Rating, now)
	}
}

func (c *Controller) steamIDs(ctx context.Context, entries []matchmaker.Entry) ([]int64, error) {
	out := make([]int64, len(entries))
	for i, e := range entries {
		id, err := c.ratings.GetSteamID(ctx, e.DiscordID)
		if err != nil {
			return nil, fmt.Errorf("resolve steam id for %d: %w", e.DiscordID, err)
		}
		out[i] = id
	}
	return out, nil
}

func (c *Controller) nextRand(n int) int {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.rng.Intn(n)
}

// CancelGame tears down the Supervisor for gameID, releases its slot, and
// removes it from whichever table holds it. It does not write a match row
// if none exists and never adjusts ratings; an already-RUNNING match's row
// is marked cancelled rather than left at status "running" forever.
func (c *Controller) CancelGame(ctx context.Context, gameID int64) error {
	c.mu.Lock()
	if pm, ok := c.pending[gameID]; ok {
		delete(c.pending, gameID)
		c.mu.Unlock()
		c.teardownMatch(pm.sup, pm.cancel, pm.done, pm.slot)
		metrics.Global().IncrementGamesCancelled()
		return nil
	}
	if am, ok := c.active[gameID]; ok {
		delete(c.active, gameID)
		c.mu.Unlock()
		c.teardownMatch(am.sup, am.cancel, am.done, am.slot)
		if err := c.matches.SetStatus(ctx, gameID, store.MatchStatusCancelled); err != nil {
			log.Error("game %d: failed to mark match row cancelled: %v", gameID, err)
		}
		metrics.Global().IncrementGamesCancelled()
		return nil
	}
	c.mu.Unlock()
	return gerrors.New(gerrors.KindNotFound, "controller.CancelGame", fmt.Errorf("game %d not found", gameID))
}

func (c *Controller) teardownMatch(sup *supervisor.Supervisor, cancel context.CancelFunc, done chan struct{}, slotIndex int) {
	_ = sup.Teardown(context.Background())
	cancel()
	<-done
	c.pool.Release(slotIndex)
}
