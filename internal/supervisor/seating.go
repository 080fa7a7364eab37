// File: internal/supervisor/seating.go
// Project: Gargamel League Matchmaker
// Description: Platform event handling and seating enforcement
// Version: 1.0.0

package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/gargamel-league/matchmaker/internal/metrics"
	"github.com/gargamel-league/matchmaker/internal/platform"
)

func (s *Supervisor) handleEvent(ctx context.Context, ev platform.Event) {
	s.lastActivity = time.Now()

	switch {
	case ev.LoggedOn != nil:
		s.handleLoggedOn(ctx)
	case ev.Disconnected != nil:
		s.log.Warn("disconnected: %v", ev.Disconnected.Err)
	case ev.FriendRequest != nil:
		s.handleFriendRequest(ctx, ev.FriendRequest.SteamID)
	case ev.LobbyNew != nil:
		s.lobbyID = ev.LobbyNew.LobbyID
	case ev.LobbyChanged != nil:
		s.handleLobbyChanged(ctx, ev.LobbyChanged)
	case ev.PersonaState != nil:
		s.handlePersonaState(ev.PersonaState)
	}
}

// handlePersonaState records a resolved display name so later log lines
// can show a human-readable name instead of a bare SteamID.
func (s *Supervisor) handlePersonaState(ev *platform.PersonaStateEvent) {
	if s.names == nil {
		s.names = make(map[int64]string)
	}
	s.names[ev.SteamID] = ev.Name
	s.log.Info("persona resolved: %d -> %s", ev.SteamID, ev.Name)
}

// nameOf returns the best-known display name for steamID, falling back to
// the bare id if no persona response has arrived yet.
func (s *Supervisor) nameOf(steamID int64) string {
	if name, ok := s.names[steamID]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("%d", steamID)
}

func (s *Supervisor) handleLoggedOn(ctx context.Context) {
	if s.state != StateInit {
		return
	}
	s.state = StateReady
	s.log.Info("client ready")
	if s.pendingCreate != nil {
		cmd := s.pendingCreate
		s.pendingCreate = nil
		cmd.reply <- s.createLobby(ctx, cmd.radiant, cmd.dire, cmd.password)
	}
}

func (s *Supervisor) handleFriendRequest(ctx context.Context, steamID int64) {
	if err := s.client.AcceptFriend(ctx, steamID); err != nil {
		s.log.Warn("accept friend %d failed: %v", steamID, err)
		return
	}
	if contains(s.radiant, steamID) || contains(s.dire, steamID) {
		if err := s.client.InviteToLobby(ctx, steamID); err != nil {
			s.log.Warn("post-friend invite to %d failed: %v", steamID, err)
		}
	}
}

func (s *Supervisor) handleLobbyChanged(ctx context.Context, ev *platform.LobbyChangedEvent) {
	s.lobbyID = ev.LobbyID
	s.requestPersonas(ctx, ev.Members)

	switch ev.State {
	case platform.LobbyStateRun:
		if s.state != StateRunning {
			s.state = StateRunning
			s.emitRunning(ev)
		}
		return
	case platform.LobbyStatePostGame:
		if s.state != StateEnded {
			s.state = StateEnded
			s.emitEnded(ev.MatchID, ev.Outcome)
		}
		return
	}

	if s.state != StateSeating {
		return
	}
	s.enforceSeating(ctx, ev.Members)
}

// requestPersonas asks the platform to resolve a display name for every
// member currently in the lobby, best-effort: a failure here never blocks
// seating enforcement or any other lobby progress, it just means log
// lines keep showing bare SteamIDs.
func (s *Supervisor) requestPersonas(ctx context.Context, members []platform.Member) {
	if len(members) == 0 {
		return
	}
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.SteamID
	}
	if err := s.client.RequestPersonaState(ctx, ids); err != nil {
		s.log.Warn("request persona state failed: %v", err)
	}
}

// enforceSeating implements the per-event seating check: members on the
// wrong side are kicked, members with no claim on either roster are
// kicked, and once every roster member sits on its assigned side the
// lobby is launched.
func (s *Supervisor) enforceSeating(ctx context.Context, members []platform.Member) {
	correct := 0
	total := len(s.radiant) + len(s.dire)

	for _, m := range members {
		inRadiant := contains(s.radiant, m.SteamID)
		inDire := contains(s.dire, m.SteamID)

		switch {
		case inRadiant && m.Team != platform.TeamRadiant:
			s.kick(ctx, m.SteamID)
		case inDire && m.Team != platform.TeamDire:
			s.kick(ctx, m.SteamID)
		case inRadiant && m.Team == platform.TeamRadiant:
			correct++
		case inDire && m.Team == platform.TeamDire:
			correct++
		case !inRadiant && !inDire && m.Team != platform.TeamUnassigned && m.Team != platform.TeamSpectator:
			s.kick(ctx, m.SteamID)
		}
	}

	if total > 0 && correct == total && !s.launchedOnce {
		s.launchedOnce = true
		if err := s.client.LaunchLobby(ctx); err != nil {
			s.log.Error("launch lobby failed: %v", err)
			s.launchedOnce = false
		}
	}
}

func (s *Supervisor) emitRunning(ev *platform.LobbyChangedEvent) {
	metrics.Global().IncrementGamesLaunched()
	s.post(Event{
		GameID: s.gameID,
		RunID:  s.runID,
		LobbyRunning: &LobbyRunningEvent{
			LobbyID: ev.LobbyID,
			MatchID: ev.MatchID,
			Radiant: append([]int64{}, s.radiant...),
			Dire:    append([]int64{}, s.dire...),
		},
	})
}

func (s *Supervisor) emitEnded(matchID uint64, outcome platform.Outcome) {
	s.post(Event{
		GameID: s.gameID,
		RunID:  s.runID,
		LobbyEnded: &LobbyEndedEvent{
			MatchID: matchID,
			Outcome: outcome,
		},
	})
}

func (s *Supervisor) post(ev Event) {
	if s.out == nil {
		return
	}
	s.out <- ev
}
