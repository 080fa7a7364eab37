// File: internal/platform/platform.go
// Project: Gargamel League Matchmaker
// Description: Contract for the external game-platform client a supervisor drives
// Version: 1.0.0

// Package platform defines the interface a Supervisor uses to drive one
// game-client session on the external platform (Steam + Dota 2's game
// coordinator), independent of whether the concrete implementation is the
// real client (package platform/dota2) or the in-memory fake used in tests.
package platform

import "context"

// Team identifies a lobby side.
type Team int

const (
	TeamUnassigned Team = iota
	TeamRadiant
	TeamDire
	TeamSpectator
)

// LobbyState mirrors the platform's lobby state machine.
type LobbyState int

const (
	LobbyStateUnknown LobbyState = iota
	LobbyStateUI                 // lobby open, players still joining/picking sides
	LobbyStateReadyUp
	LobbyStateServerSetup
	LobbyStateRun
	LobbyStatePostGame
	LobbyStateNotReady
)

// Outcome is the final result of a completed game, as seen by the platform.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeRadiantWin
	OutcomeDireWin
)

// Member is one player's seat inside a lobby, as reported by the platform.
// Name is best-effort and the dota2 client leaves it empty: display names
// arrive separately, as PersonaStateEvents answering RequestPersonaState.
type Member struct {
	SteamID int64
	Team    Team
	Name    string
}

// LobbyConfig describes how to create a practice lobby.
type LobbyConfig struct {
	GameName      string
	Password      string
	GameMode      string
	AllowCheats   bool
	ServerRegion  int
}

// Event is the set of asynchronous notifications a Client can emit.
// Exactly one of the typed fields is populated.
type Event struct {
	LoggedOn      *LoggedOnEvent
	Disconnected  *DisconnectedEvent
	FriendRequest *FriendRequestEvent
	LobbyNew      *LobbyNewEvent
	LobbyChanged  *LobbyChangedEvent
	PersonaState  *PersonaStateEvent
}

type LoggedOnEvent struct{}

type DisconnectedEvent struct {
	Err error
}

type FriendRequestEvent struct {
	SteamID int64
}

type LobbyNewEvent struct {
	LobbyID uint64
}

type LobbyChangedEvent struct {
	LobbyID   uint64
	State     LobbyState
	Members   []Member
	MatchID   uint64 // populated once State == LobbyStateRun
	Outcome   Outcome
}

// PersonaStateEvent reports a resolved display name for a SteamID, in
// response to a RequestPersonaState call.
type PersonaStateEvent struct {
	SteamID int64
	Name    string
}

// Option keys recognized by ConfigureLobby. These are the whitelisted
// fields a Supervisor is allowed to read back from its own tracked lobby
// config and push forward unmodified when changing only the game mode.
const (
	OptionGameName      = "game_name"
	OptionServerRegion  = "server_region"
	OptionGameMode      = "game_mode"
	OptionVisibility    = "visibility"
	OptionPassword      = "password"
	OptionSeriesType    = "series_type"
	OptionTVDelay       = "tv_delay"
	OptionAllowCheats   = "allow_cheats"
	OptionBotMode       = "bot_mode"
	OptionIntroMode     = "intro_mode"
	OptionStartSetup    = "allow_start_setup"
	OptionPauseSetting  = "pause_setting"
	OptionLeagueID      = "league_id"
	OptionBotDifficulty = "bot_difficulty"
	OptionSpectating    = "allow_spectating"
	OptionAllchat       = "allchat"
)

// Client is one logged-in game-client session. A Supervisor owns exactly
// one Client for the lifetime of a single match.
type Client interface {
	// Connect logs the client in and begins emitting Events.
	Connect(ctx context.Context) error
	// Events returns the channel of asynchronous platform notifications.
	Events() <-chan Event
	// CreateLobby creates (or recreates) a practice lobby with the given
	// configuration.
	CreateLobby(ctx context.Context, cfg LobbyConfig) error
	// InviteToLobby invites a Steam account to the currently open lobby.
	InviteToLobby(ctx context.Context, steamID int64) error
	// KickFromLobby removes a member from the currently open lobby.
	KickFromLobby(ctx context.Context, steamID int64) error
	// JoinTeam assigns the local bot account to a lobby side (used to hold
	// the player-pool slot before launch).
	JoinTeam(ctx context.Context, team Team) error
	// LaunchLobby starts the game once every seat is correctly filled.
	LaunchLobby(ctx context.Context) error
	// LeaveLobby leaves or destroys the currently open lobby.
	LeaveLobby(ctx context.Context) error
	// ChangeGameMode reconfigures the open lobby's game mode.
	ChangeGameMode(ctx context.Context, gameMode string) error
	// ConfigureLobby pushes a filtered key->scalar options map back to the
	// platform, as produced by change_mode's whitelist-and-merge step.
	// Keys are the Option* constants above; values are coerced to their
	// documented scalar type by the implementation.
	ConfigureLobby(ctx context.Context, options map[string]interface{}) error
	// AbandonCurrentGame forfeits the in-progress match. The cancel-game
	// control path does not call it; Supervisor teardown only leaves the
	// lobby and disconnects.
	AbandonCurrentGame(ctx context.Context) error
	// AcceptFriend accepts a pending incoming friend request.
	AcceptFriend(ctx context.Context, steamID int64) error
	// RequestPersonaState asks the platform to resolve display names for
	// the given SteamIDs; resolutions arrive later as PersonaStateEvents
	// on Events(). Best-effort: callers treat a failure here as
	// non-fatal, since it only affects log readability.
	RequestPersonaState(ctx context.Context, steamIDs []int64) error
	// ListPracticeLobbies returns the practice lobby ids currently visible
	// to this account for the given password, used by the Supervisor
	// watchdog to probe for a silently dropped session.
	ListPracticeLobbies(ctx context.Context, password string) ([]uint64, error)
	// Disconnect logs the client out and releases platform resources.
	Disconnect() error
}

// Notifier delivers an out-of-band message to a platform account, e.g. the
// lobby invite notice the original bot sent over direct message. Optional:
// a Supervisor with a nil Notifier simply skips the notification.
type Notifier interface {
	NotifyLobbyReady(ctx context.Context, steamID int64, lobbyName, password string) error
}
