// File: internal/platform/dota2/client.go
// Project: Gargamel League Matchmaker
// Description: platform.Client implementation backed by go-steam and go-dota2
// Version: 1.0.0

// Package dota2 implements platform.Client against the real Dota 2 game
// coordinator, using paralin/go-steam for the Steam session and
// paralin/go-dota2 for the coordinator protocol. This is the one place in
// the codebase that talks logrus, since go-dota2's constructor requires a
// logrus.FieldLogger; everywhere else uses internal/logger.
package dota2

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paralin/go-dota2"
	"github.com/paralin/go-dota2/cso"
	"github.com/paralin/go-dota2/protocol"
	"github.com/paralin/go-steam"
	"github.com/paralin/go-steam/protocol/steamlang"
	"github.com/paralin/go-steam/steamid"
	"github.com/sirupsen/logrus"

	"github.com/gargamel-league/matchmaker/internal/logger"
	"github.com/gargamel-league/matchmaker/internal/platform"
)

var log = logger.WithComponent("Dota2Client")

// Credentials are the Steam account a single supervisor slot logs in as.
type Credentials struct {
	Username string
	Password string
	// TwoFactorCode, when non-empty, is sent alongside the password (as both
	// the auth code and the two-factor code) on every LogOn this client
	// makes.
	TwoFactorCode string
}

// Client drives one Steam + Dota 2 session. It is not safe for concurrent
// use by more than one goroutine beyond reading Events().
type Client struct {
	creds Credentials

	steamClient *steam.Client
	dotaClient  *dota2.Dota2

	events chan platform.Event

	mu        sync.Mutex
	connected bool
}

// New creates a Client for the given Steam credentials. It does not connect
// until Connect is called.
func New(creds Credentials) *Client {
	steamClient := steam.NewClient()
	gcLog := logrus.New()
	gcLog.SetLevel(logrus.WarnLevel)

	dotaClient := dota2.New(steamClient, gcLog)

	return &Client{
		creds:       creds,
		steamClient: steamClient,
		dotaClient:  dotaClient,
		events:      make(chan platform.Event, 64),
	}
}

// Connect logs into Steam and starts the background event pump. It blocks
// until the initial connection attempt resolves, then returns. A later
// disconnect is surfaced as a DisconnectedEvent on the Events channel; the
// client does not reconnect by itself.
func (c *Client) Connect(ctx context.Context) error {
	go c.runEventLoop(ctx)

	c.steamClient.Connect()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timed out waiting for steam connection")
	case ev := <-c.waitForLogin(ctx):
		return ev
	}
}

// waitForLogin returns a channel that yields nil once logged in, or ctx's
// error if ctx ends first. A dropped connection is not detected here;
// Connect's 30-second timeout covers that case.
func (c *Client) waitForLogin(ctx context.Context) <-chan error {
	out := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				out <- ctx.Err()
				return
			case <-time.After(100 * time.Millisecond):
				c.mu.Lock()
				connected := c.connected
				c.mu.Unlock()
				if connected {
					out <- nil
					return
				}
			}
		}
	}()
	return out
}

func (c *Client) runEventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.steamClient.Events():
			if !ok {
				return
			}
			c.processSteamEvent(ctx, ev)
		}
	}
}

func (c *Client) processSteamEvent(ctx context.Context, ev interface{}) {
	switch e := ev.(type) {
	case *steam.ConnectedEvent:
		log.Info("connected to steam, logging on as %s", c.creds.Username)
		c.steamClient.Auth.LogOn(&steam.LogOnDetails{
			Username:      c.creds.Username,
			Password:      c.creds.Password,
			AuthCode:      c.creds.TwoFactorCode,
			TwoFactorCode: c.creds.TwoFactorCode,
		})

	case *steam.LoggedOnEvent:
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		log.Info("logged on to steam as %s", c.creds.Username)
		c.dotaClient.SayHello()
		c.emit(platform.Event{LoggedOn: &platform.LoggedOnEvent{}})

	case *steam.DisconnectedEvent:
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		log.Warn("disconnected from steam: %v", e)
		c.emit(platform.Event{Disconnected: &platform.DisconnectedEvent{Err: fmt.Errorf("steam disconnected")}})

	case *steam.FriendStateEvent:
		if e.Relationship == steamlang.EFriendRelationship_RequestRecipient {
			c.emit(platform.Event{FriendRequest: &platform.FriendRequestEvent{SteamID: int64(e.SteamId.ToUint64())}})
		}

	case *steam.PersonaStateEvent:
		c.emit(platform.Event{PersonaState: &platform.PersonaStateEvent{
			SteamID: int64(e.FriendId.ToUint64()),
			Name:    e.Name,
		}})
	}
}

func (c *Client) emit(ev platform.Event) {
	select {
	case c.events <- ev:
	default:
		log.Warn("platform event dropped, consumer too slow")
	}
}

func (c *Client) Events() <-chan platform.Event { return c.events }

// CreateLobby tears down any existing lobby and creates a fresh practice
// lobby with the given configuration, exactly the LeaveCreateLobby pattern
// used by the reference bot to guarantee a clean slate per match.
func (c *Client) CreateLobby(ctx context.Context, cfg platform.LobbyConfig) error {
	details := &protocol.CMsgPracticeLobbySetDetails{
		GameName:     &cfg.GameName,
		PassKey:      &cfg.Password,
		AllowCheats:  &cfg.AllowCheats,
		Visibility:   protocol.DOTALobbyVisibility_DOTALobbyVisibility_Public.Enum(),
	}

	if err := c.dotaClient.LeaveCreateLobby(ctx, details, true); err != nil {
		return fmt.Errorf("failed to create lobby: %w", err)
	}

	c.dotaClient.JoinLobbyTeam(protocol.DOTA_GC_TEAM_DOTA_GC_TEAM_PLAYER_POOL, 1)

	c.subscribeLobbyState(ctx)
	return nil
}

func (c *Client) subscribeLobbyState(ctx context.Context) {
	eventCh, unsubscribe, err := c.dotaClient.GetCache().SubscribeType(cso.Lobby)
	if err != nil {
		log.Warn("failed to subscribe to lobby events: %v", err)
		return
	}
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-eventCh:
				if !ok {
					return
				}
				lobby, ok := update.Object.(*protocol.CSODOTALobby)
				if !ok {
					continue
				}
				c.emit(platform.Event{LobbyChanged: translateLobby(lobby)})
			}
		}
	}()
}

func translateLobby(lobby *protocol.CSODOTALobby) *platform.LobbyChangedEvent {
	members := make([]platform.Member, 0, len(lobby.GetAllMembers()))
	for _, m := range lobby.GetAllMembers() {
		members = append(members, platform.Member{
			SteamID: int64(m.GetId()),
			Team:    translateTeam(m.GetTeam()),
		})
	}

	return &platform.LobbyChangedEvent{
		LobbyID: lobby.GetLobbyId(),
		State:   translateState(lobby.GetState()),
		Members: members,
		MatchID: lobby.GetMatchId(),
		Outcome: translateOutcome(lobby),
	}
}

func translateTeam(t protocol.DOTA_GC_TEAM) platform.Team {
	switch t {
	case protocol.DOTA_GC_TEAM_DOTA_GC_TEAM_GOOD_GUYS:
		return platform.TeamRadiant
	case protocol.DOTA_GC_TEAM_DOTA_GC_TEAM_BAD_GUYS:
		return platform.TeamDire
	default:
		return platform.TeamUnassigned
	}
}

func translateState(s protocol.CSODOTALobby_State) platform.LobbyState {
	switch s {
	case protocol.CSODOTALobby_UI:
		return platform.LobbyStateUI
	case protocol.CSODOTALobby_READYUP:
		return platform.LobbyStateReadyUp
	case protocol.CSODOTALobby_SERVERSETUP:
		return platform.LobbyStateServerSetup
	case protocol.CSODOTALobby_RUN:
		return platform.LobbyStateRun
	case protocol.CSODOTALobby_POSTGAME:
		return platform.LobbyStatePostGame
	case protocol.CSODOTALobby_NOTREADY:
		return platform.LobbyStateNotReady
	default:
		return platform.LobbyStateUnknown
	}
}

func translateOutcome(lobby *protocol.CSODOTALobby) platform.Outcome {
	switch lobby.GetMatchOutcome() {
	case protocol.EMatchOutcome_k_EMatchOutcome_RadVictory:
		return platform.OutcomeRadiantWin
	case protocol.EMatchOutcome_k_EMatchOutcome_DireVictory:
		return platform.OutcomeDireWin
	default:
		return platform.OutcomeUnknown
	}
}

func (c *Client) InviteToLobby(ctx context.Context, steamID int64) error {
	c.dotaClient.InviteLobbyMember(steamid.SteamId(steamID))
	return nil
}

func (c *Client) KickFromLobby(ctx context.Context, steamID int64) error {
	id32 := steamid.SteamId(steamID).GetAccountId()
	c.dotaClient.KickLobbyMemberFromTeam(id32)
	return nil
}

func (c *Client) JoinTeam(ctx context.Context, team platform.Team) error {
	var gcTeam protocol.DOTA_GC_TEAM
	switch team {
	case platform.TeamRadiant:
		gcTeam = protocol.DOTA_GC_TEAM_DOTA_GC_TEAM_GOOD_GUYS
	case platform.TeamDire:
		gcTeam = protocol.DOTA_GC_TEAM_DOTA_GC_TEAM_BAD_GUYS
	default:
		gcTeam = protocol.DOTA_GC_TEAM_DOTA_GC_TEAM_PLAYER_POOL
	}
	c.dotaClient.JoinLobbyTeam(gcTeam, 1)
	return nil
}

func (c *Client) LaunchLobby(ctx context.Context) error {
	c.dotaClient.LaunchLobby()
	return nil
}

func (c *Client) LeaveLobby(ctx context.Context) error {
	return c.dotaClient.DestroyLobby(ctx)
}

func (c *Client) ChangeGameMode(ctx context.Context, gameMode string) error {
	mode := protocol.DOTA_GameMode_value[gameMode]
	gm := protocol.DOTA_GameMode(mode)
	return c.dotaClient.ConfigPracticeLobby(&protocol.CMsgPracticeLobbySetDetails{
		GameMode: &gm,
	})
}

// ConfigureLobby translates a filtered options map (as produced by
// Supervisor.ChangeMode's whitelist-and-merge step) into a single
// CMsgPracticeLobbySetDetails and pushes it to the coordinator. Unknown
// keys are ignored; this is the one place in the codebase that treats the
// lobby config as a dynamic map instead of typed fields, per the
// "filtered map, not generic schema evolution" design note.
func (c *Client) ConfigureLobby(ctx context.Context, options map[string]interface{}) error {
	details := &protocol.CMsgPracticeLobbySetDetails{}

	if v, ok := options[platform.OptionGameName].(string); ok {
		details.GameName = &v
	}
	if v, ok := options[platform.OptionPassword].(string); ok {
		details.PassKey = &v
	}
	if v, ok := options[platform.OptionAllowCheats].(bool); ok {
		details.AllowCheats = &v
	}
	if v, ok := options[platform.OptionServerRegion].(int); ok {
		region := protocol.ServerRegion(v)
		details.ServerRegion = &region
	}
	if v, ok := options[platform.OptionLeagueID].(int); ok {
		id := uint32(v)
		details.LeagueId = &id
	}
	if v, ok := options[platform.OptionGameMode].(string); ok {
		mode := protocol.DOTA_GameMode(protocol.DOTA_GameMode_value[v])
		details.GameMode = &mode
	}
	if v, ok := options[platform.OptionAllchat].(bool); ok {
		details.Allchat = &v
	}
	if v, ok := options[platform.OptionSpectating].(bool); ok {
		visibility := protocol.DOTALobbyVisibility_DOTALobbyVisibility_Public
		if !v {
			visibility = protocol.DOTALobbyVisibility_DOTALobbyVisibility_Private
		}
		details.Visibility = visibility.Enum()
	}

	return c.dotaClient.ConfigPracticeLobby(details)
}

func (c *Client) AbandonCurrentGame(ctx context.Context) error {
	return c.dotaClient.AbandonGame()
}

// AcceptFriend accepts a pending incoming friend request via the Steam
// social list, mirroring the reference bot's auto-accept behavior.
func (c *Client) AcceptFriend(ctx context.Context, steamID int64) error {
	return c.steamClient.Social.AddFriend(steamid.SteamId(steamID))
}

// RequestPersonaState asks Steam to resolve display names for the given
// accounts, mirroring the reference client's per-member
// steam.request_persona_state call on every lobby_changed event.
// Resolutions arrive asynchronously as PersonaStateEvents.
func (c *Client) RequestPersonaState(ctx context.Context, steamIDs []int64) error {
	ids := make([]steamid.SteamId, len(steamIDs))
	for i, id := range steamIDs {
		ids[i] = steamid.SteamId(id)
	}
	c.steamClient.Social.RequestFriendInfo(ids, steam.EClientPersonaStateFlagPlayerName)
	return nil
}

// ListPracticeLobbies asks the game coordinator for the practice lobbies
// visible to this account under the given password. Used only by the
// Supervisor watchdog to detect a silently dropped lobby; not part of the
// normal create/invite/launch flow.
func (c *Client) ListPracticeLobbies(ctx context.Context, password string) ([]uint64, error) {
	lobbies, err := c.dotaClient.GetPracticeLobbyList(password)
	if err != nil {
		return nil, fmt.Errorf("failed to list practice lobbies: %w", err)
	}
	ids := make([]uint64, 0, len(lobbies))
	for _, l := range lobbies {
		ids = append(ids, l.GetLobbyId())
	}
	return ids, nil
}

func (c *Client) Disconnect() error {
	c.dotaClient.SetPlaying(false)
	c.steamClient.Disconnect()
	close(c.events)
	return nil
}
