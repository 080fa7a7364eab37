// File: internal/platform/fake/fake.go
// Project: Gargamel League Matchmaker
// Description: In-memory platform.Client double for supervisor tests
// Version: 1.0.0

// Package fake implements platform.Client entirely in memory so supervisor
// tests can drive lobby state transitions deterministically, without a real
// Steam account or network access.
package fake

import (
	"context"
	"sync"

	"github.com/gargamel-league/matchmaker/internal/platform"
)

// Client is a scriptable platform.Client. Tests push events through
// Emit and inspect calls via the recorded fields.
type Client struct {
	mu sync.Mutex

	events chan platform.Event

	Connected    bool
	LobbyConfig  platform.LobbyConfig
	Invited      []int64
	Kicked       []int64
	Launched     bool
	Left         bool
	Disconnected bool
	Abandoned    bool
	GameModes    []string
	Options      []map[string]interface{}
	FriendsAccepted []int64
	PersonaRequests [][]int64

	// LobbyList is returned verbatim by ListPracticeLobbies, so watchdog
	// tests can script "lobby vanished" scenarios.
	LobbyList []uint64
}

// New creates a fake client with a buffered event channel.
func New() *Client {
	return &Client{events: make(chan platform.Event, 64)}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.Connected = true
	c.mu.Unlock()
	return nil
}

func (c *Client) Events() <-chan platform.Event { return c.events }

func (c *Client) CreateLobby(ctx context.Context, cfg platform.LobbyConfig) error {
	c.mu.Lock()
	c.LobbyConfig = cfg
	c.mu.Unlock()
	return nil
}

func (c *Client) InviteToLobby(ctx context.Context, steamID int64) error {
	c.mu.Lock()
	c.Invited = append(c.Invited, steamID)
	c.mu.Unlock()
	return nil
}

func (c *Client) KickFromLobby(ctx context.Context, steamID int64) error {
	c.mu.Lock()
	c.Kicked = append(c.Kicked, steamID)
	c.mu.Unlock()
	return nil
}

func (c *Client) JoinTeam(ctx context.Context, team platform.Team) error { return nil }

func (c *Client) LaunchLobby(ctx context.Context) error {
	c.mu.Lock()
	c.Launched = true
	c.mu.Unlock()
	return nil
}

func (c *Client) LeaveLobby(ctx context.Context) error {
	c.mu.Lock()
	c.Left = true
	c.mu.Unlock()
	return nil
}

func (c *Client) ChangeGameMode(ctx context.Context, gameMode string) error {
	c.mu.Lock()
	c.GameModes = append(c.GameModes, gameMode)
	c.mu.Unlock()
	return nil
}

func (c *Client) ConfigureLobby(ctx context.Context, options map[string]interface{}) error {
	c.mu.Lock()
	c.Options = append(c.Options, options)
	c.mu.Unlock()
	return nil
}

func (c *Client) AbandonCurrentGame(ctx context.Context) error {
	c.mu.Lock()
	c.Abandoned = true
	c.mu.Unlock()
	return nil
}

func (c *Client) AcceptFriend(ctx context.Context, steamID int64) error {
	c.mu.Lock()
	c.FriendsAccepted = append(c.FriendsAccepted, steamID)
	c.mu.Unlock()
	return nil
}

func (c *Client) RequestPersonaState(ctx context.Context, steamIDs []int64) error {
	c.mu.Lock()
	c.PersonaRequests = append(c.PersonaRequests, append([]int64{}, steamIDs...))
	c.mu.Unlock()
	return nil
}

func (c *Client) ListPracticeLobbies(ctx context.Context, password string) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64{}, c.LobbyList...), nil
}

// SetLobbyList lets a test script the watchdog probe's result.
func (c *Client) SetLobbyList(ids []uint64) {
	c.mu.Lock()
	c.LobbyList = ids
	c.mu.Unlock()
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.Disconnected = true
	c.mu.Unlock()
	close(c.events)
	return nil
}

// Emit pushes an event onto the client's event stream, as if the platform
// had sent it.
func (c *Client) Emit(e platform.Event) {
	c.events <- e
}

// WasKicked reports whether steamID was ever kicked.
func (c *Client) WasKicked(steamID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.Kicked {
		if id == steamID {
			return true
		}
	}
	return false
}
