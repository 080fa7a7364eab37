// File: internal/supervisor/supervisor.go
// Project: Gargamel League Matchmaker
// Description: Owns one external game-client session and drives one lobby
// Version: 1.0.0

// Package supervisor bridges an external, single-threaded game-client
// session to the Controller's request/response world. Every Supervisor
// runs its own goroutine; every call against its platform.Client
// originates from that goroutine. Public methods marshal onto the
// Supervisor's command channel and block the caller until the command has
// been processed, without blocking the Supervisor's own event loop.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	gerrors "github.com/gargamel-league/matchmaker/internal/errors"
	"github.com/gargamel-league/matchmaker/internal/logger"
	"github.com/gargamel-league/matchmaker/internal/metrics"
	"github.com/gargamel-league/matchmaker/internal/platform"
)

var log = logger.WithComponent("Supervisor")

// State is the Supervisor's position in its lobby state machine.
type State int

const (
	StateInit State = iota
	StateReady
	StateSeating
	StateRunning
	StateEnded
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReady:
		return "ready"
	case StateSeating:
		return "seating"
	case StateRunning:
		return "running"
	case StateEnded:
		return "ended"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config tunes the Supervisor's timeouts. Zero values fall back to the
// spec's defaults.
type Config struct {
	ReadyTimeout   time.Duration
	SoftIdle       time.Duration
	HardIdle       time.Duration
	MaxNoLobby     int
	MaxGameTime    time.Duration
	DebugMode      bool
}

func (c Config) withDefaults() Config {
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 60 * time.Second
	}
	if c.SoftIdle <= 0 {
		c.SoftIdle = 120 * time.Second
	}
	if c.HardIdle <= 0 {
		c.HardIdle = 300 * time.Second
	}
	if c.MaxNoLobby <= 0 {
		c.MaxNoLobby = 6
	}
	if c.MaxGameTime <= 0 {
		c.MaxGameTime = 3 * time.Hour
	}
	return c
}

// LobbyRunningEvent is posted once the platform confirms the lobby left UI
// and entered RUN.
type LobbyRunningEvent struct {
	LobbyID uint64
	MatchID uint64
	Radiant []int64
	Dire    []int64
}

// LobbyEndedEvent is posted once the platform confirms POSTGAME, or the
// watchdog synthesizes an end after the session is judged lost.
type LobbyEndedEvent struct {
	MatchID uint64
	Outcome platform.Outcome
}

// Event is one lifecycle notification posted from a Supervisor to its
// owning Controller. Exactly one of the typed fields is populated.
type Event struct {
	GameID       int64
	RunID        string
	LobbyRunning *LobbyRunningEvent
	LobbyEnded   *LobbyEndedEvent
}

// Supervisor owns one platform.Client for the lifetime of one match.
type Supervisor struct {
	gameID   int64
	runID    string
	slot     int
	client   platform.Client
	notifier platform.Notifier
	cfg      Config
	out      chan<- Event

	cmds chan command
	log  *logger.Logger

	// Fields below are only ever touched from the run goroutine.
	state        State
	radiant      []int64
	dire         []int64
	password     string
	lobbyID      uint64
	launchedOnce bool
	options      map[string]interface{}
	names        map[int64]string

	pendingCreate *command
	readyDeadline time.Time

	lastActivity  time.Time
	runStart      time.Time
	noLobbyProbes int
	lastHandshake time.Time
}

// New creates a Supervisor bound to slot for gameID. Call Run in its own
// goroutine to start it.
func New(gameID int64, slot int, client platform.Client, notifier platform.Notifier, cfg Config, out chan<- Event) *Supervisor {
	return &Supervisor{
		gameID:   gameID,
		runID:    uuid.NewString(),
		slot:     slot,
		client:   client,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		out:      out,
		cmds:     make(chan command),
		log:      log.WithMatch(gameID),
		state:    StateInit,
	}
}

// RunID returns the Supervisor's correlation id, stamped on every event it
// posts.
func (s *Supervisor) RunID() string { return s.runID }

type cmdKind int

const (
	cmdCreateLobby cmdKind = iota
	cmdSwap
	cmdReplace
	cmdUpdateTeams
	cmdChangeMode
	cmdTeardown
	cmdReadyTimeout
)

type command struct {
	kind cmdKind

	radiant, dire []int64
	password      string
	a, b          int64
	oldP, newP    int64
	modeID        string

	reply chan error
}

func (s *Supervisor) dispatch(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateLobby must be called exactly once, after construction. It blocks
// until the Supervisor reaches READY (or ReadyTimeout elapses) and the
// lobby has been created.
func (s *Supervisor) CreateLobby(ctx context.Context, radiant, dire []int64, password string) error {
	return s.dispatch(ctx, command{kind: cmdCreateLobby, radiant: radiant, dire: dire, password: password})
}

// Swap moves two players, currently on opposite teams, to each other's
// side.
func (s *Supervisor) Swap(ctx context.Context, a, b int64) error {
	return s.dispatch(ctx, command{kind: cmdSwap, a: a, b: b})
}

// Replace swaps oldPlayer out of the roster for newPlayer, on the same
// side oldPlayer occupied.
func (s *Supervisor) Replace(ctx context.Context, oldPlayer, newPlayer int64) error {
	return s.dispatch(ctx, command{kind: cmdReplace, oldP: oldPlayer, newP: newPlayer})
}

// UpdateTeams wholesale-replaces the tracked roster.
func (s *Supervisor) UpdateTeams(ctx context.Context, radiant, dire []int64) error {
	return s.dispatch(ctx, command{kind: cmdUpdateTeams, radiant: radiant, dire: dire})
}

// ChangeMode pushes a new game mode onto the lobby, preserving every other
// whitelisted option already in effect.
func (s *Supervisor) ChangeMode(ctx context.Context, modeID string) error {
	return s.dispatch(ctx, command{kind: cmdChangeMode, modeID: modeID})
}

// Teardown is idempotent: it leaves the lobby, logs the client out, and
// causes Run to return. Callers should wait for Run's goroutine to exit
// after calling Teardown.
func (s *Supervisor) Teardown(ctx context.Context) error {
	return s.dispatch(ctx, command{kind: cmdTeardown})
}

// Run drives the Supervisor's event loop until ctx is cancelled or the
// Supervisor tears itself down. It must be called exactly once, in its own
// goroutine.
func (s *Supervisor) Run(ctx context.Context) {
	s.runStart = time.Now()
	s.lastActivity = s.runStart
	s.lastHandshake = s.runStart

	go func() {
		if err := s.client.Connect(ctx); err != nil {
			s.log.Error("connect failed: %v", err)
		}
	}()

	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			s.teardown(context.Background())
			return

		case cmd := <-s.cmds:
			if s.handleCommand(ctx, cmd) {
				return
			}

		case ev, ok := <-s.client.Events():
			if !ok {
				return
			}
			metrics.Global().IncrementPlatformEvents()
			s.handleEvent(ctx, ev)

		case <-watchdog.C:
			s.checkWatchdog(ctx)
		}
	}
}

// handleCommand processes one command on the run goroutine. It returns
// true if the Supervisor has terminated and Run should exit.
func (s *Supervisor) handleCommand(ctx context.Context, cmd command) bool {
	switch cmd.kind {
	case cmdCreateLobby:
		s.handleCreateLobby(ctx, cmd)
	case cmdReadyTimeout:
		if s.pendingCreate != nil && s.state == StateInit {
			s.pendingCreate.reply <- gerrors.ErrNotReady
			s.pendingCreate = nil
		}
	case cmdSwap:
		cmd.reply <- s.handleSwap(ctx, cmd.a, cmd.b)
	case cmdReplace:
		cmd.reply <- s.handleReplace(ctx, cmd.oldP, cmd.newP)
	case cmdUpdateTeams:
		cmd.reply <- s.handleUpdateTeams(ctx, cmd.radiant, cmd.dire)
	case cmdChangeMode:
		cmd.reply <- s.handleChangeMode(ctx, cmd.modeID)
	case cmdTeardown:
		s.teardown(ctx)
		cmd.reply <- nil
		return true
	}
	return false
}

func (s *Supervisor) handleCreateLobby(ctx context.Context, cmd command) {
	if s.state == StateInit {
		s.pendingCreate = &cmd
		s.readyDeadline = time.Now().Add(s.cfg.ReadyTimeout)
		deadline := s.cfg.ReadyTimeout
		go func() {
			t := time.NewTimer(deadline)
			defer t.Stop()
			select {
			case <-t.C:
				select {
				case s.cmds <- command{kind: cmdReadyTimeout}:
				case <-ctx.Done():
				}
			case <-ctx.Done():
			}
		}()
		return
	}
	cmd.reply <- s.createLobby(ctx, cmd.radiant, cmd.dire, cmd.password)
}

func (s *Supervisor) createLobby(ctx context.Context, radiant, dire []int64, password string) error {
	s.radiant = append([]int64{}, radiant...)
	s.dire = append([]int64{}, dire...)
	s.password = password
	s.launchedOnce = false

	cfg := platform.LobbyConfig{
		GameName:     fmt.Sprintf("Gargamel Match %d", s.gameID),
		Password:     password,
		GameMode:     "all_pick",
		AllowCheats:  s.cfg.DebugMode,
		ServerRegion: 0,
	}
	if err := s.client.CreateLobby(ctx, cfg); err != nil {
		return gerrors.New(gerrors.KindPlatformFatal, "supervisor.CreateLobby", err)
	}
	s.options = map[string]interface{}{
		platform.OptionGameName:     cfg.GameName,
		platform.OptionServerRegion: cfg.ServerRegion,
		platform.OptionGameMode:     cfg.GameMode,
		platform.OptionPassword:     cfg.Password,
		platform.OptionAllowCheats:  cfg.AllowCheats,
	}
	s.state = StateSeating

	for _, id := range append(append([]int64{}, s.radiant...), s.dire...) {
		if err := s.client.InviteToLobby(ctx, id); err != nil {
			s.log.Warn("invite to %d failed: %v", id, err)
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyLobbyReady(ctx, id, cfg.GameName, password); err != nil {
				s.log.Warn("notify %d failed: %v", id, err)
			}
		}
	}
	return nil
}

func (s *Supervisor) handleSwap(ctx context.Context, a, b int64) error {
	aRadiant, aDire := contains(s.radiant, a), contains(s.dire, a)
	bRadiant, bDire := contains(s.radiant, b), contains(s.dire, b)
	switch {
	case aRadiant && bDire:
		s.radiant = replaceID(s.radiant, a, b)
		s.dire = replaceID(s.dire, b, a)
	case aDire && bRadiant:
		s.dire = replaceID(s.dire, a, b)
		s.radiant = replaceID(s.radiant, b, a)
	default:
		return gerrors.ErrNotOpposingTeams
	}
	s.kick(ctx, a)
	s.kick(ctx, b)
	return nil
}

func (s *Supervisor) handleReplace(ctx context.Context, oldPlayer, newPlayer int64) error {
	if contains(s.radiant, newPlayer) || contains(s.dire, newPlayer) {
		return gerrors.New(gerrors.KindPlayerAlreadyInGame, "supervisor.Replace", nil)
	}
	switch {
	case contains(s.radiant, oldPlayer):
		s.radiant = replaceID(s.radiant, oldPlayer, newPlayer)
	case contains(s.dire, oldPlayer):
		s.dire = replaceID(s.dire, oldPlayer, newPlayer)
	default:
		return gerrors.New(gerrors.KindNotEnoughPlayers, "supervisor.Replace", fmt.Errorf("player %d not in roster", oldPlayer))
	}
	s.kick(ctx, oldPlayer)
	if err := s.client.InviteToLobby(ctx, newPlayer); err != nil {
		s.log.Warn("invite to %d failed: %v", newPlayer, err)
	}
	return nil
}

func (s *Supervisor) handleUpdateTeams(ctx context.Context, radiant, dire []int64) error {
	kept := make(map[int64]bool)
	for _, id := range radiant {
		kept[id] = true
	}
	for _, id := range dire {
		kept[id] = true
	}
	for _, id := range append(append([]int64{}, s.radiant...), s.dire...) {
		if !kept[id] {
			s.kick(ctx, id)
		}
	}
	s.radiant = append([]int64{}, radiant...)
	s.dire = append([]int64{}, dire...)
	for _, id := range append(append([]int64{}, radiant...), dire...) {
		if err := s.client.InviteToLobby(ctx, id); err != nil {
			s.log.Warn("invite to %d failed: %v", id, err)
		}
	}
	return nil
}

func (s *Supervisor) handleChangeMode(ctx context.Context, modeID string) error {
	merged := make(map[string]interface{}, len(s.options)+1)
	for _, key := range []string{
		platform.OptionGameName, platform.OptionServerRegion, platform.OptionGameMode,
		platform.OptionVisibility, platform.OptionPassword, platform.OptionSeriesType,
		platform.OptionTVDelay, platform.OptionAllowCheats, platform.OptionBotMode,
		platform.OptionIntroMode, platform.OptionStartSetup, platform.OptionPauseSetting,
		platform.OptionLeagueID, platform.OptionBotDifficulty, platform.OptionSpectating,
		platform.OptionAllchat,
	} {
		if v, ok := s.options[key]; ok {
			merged[key] = v
		}
	}
	merged[platform.OptionGameMode] = modeID
	if err := s.client.ConfigureLobby(ctx, merged); err != nil {
		return gerrors.New(gerrors.KindPlatformTransient, "supervisor.ChangeMode", err)
	}
	s.options = merged
	return nil
}

func (s *Supervisor) kick(ctx context.Context, steamID int64) {
	if err := s.client.KickFromLobby(ctx, steamID); err != nil {
		s.log.Warn("kick %s failed: %v", s.nameOf(steamID), err)
		return
	}
	s.log.Info("kicked %s from lobby", s.nameOf(steamID))
	metrics.Global().IncrementPlatformKicks()
}

func (s *Supervisor) teardown(ctx context.Context) {
	if s.state == StateTerminated {
		return
	}
	if err := s.client.LeaveLobby(ctx); err != nil {
		s.log.Warn("leave lobby failed during teardown: %v", err)
	}
	if err := s.client.Disconnect(); err != nil {
		s.log.Warn("disconnect failed during teardown: %v", err)
	}
	s.state = StateTerminated
}

func contains(xs []int64, id int64) bool {
	for _, x := range xs {
		if x == id {
			return true
		}
	}
	return false
}

func replaceID(xs []int64, old, new int64) []int64 {
	out := make([]int64, len(xs))
	for i, x := range xs {
		if x == old {
			out[i] = new
		} else {
			out[i] = x
		}
	}
	return out
}
