// File: internal/supervisor/watchdog.go
// Project: Gargamel League Matchmaker
// Description: Idle-session detection for supervisors stuck in RUNNING
// Version: 1.0.0

package supervisor

import (
	"context"
	"time"

	"github.com/gargamel-league/matchmaker/internal/platform"
)

// checkWatchdog guards against a silently dropped platform session: if the
// external client stops emitting anything while a game should be in
// progress, probe for the lobby and eventually synthesize an end rather
// than hold the slot forever.
func (s *Supervisor) checkWatchdog(ctx context.Context) {
	if s.state != StateRunning {
		return
	}

	if time.Since(s.runStart) > s.cfg.MaxGameTime {
		s.log.Warn("max game time exceeded, synthesizing lobby_ended")
		s.state = StateEnded
		s.emitEnded(0, platform.OutcomeUnknown)
		return
	}

	idle := time.Since(s.lastActivity)
	if idle < s.cfg.SoftIdle {
		return
	}

	if idle >= s.cfg.HardIdle && time.Since(s.lastHandshake) >= s.cfg.HardIdle {
		s.log.Warn("hard idle threshold reached, re-handshaking game coordinator")
		if err := s.client.Connect(ctx); err != nil {
			s.log.Warn("re-handshake failed: %v", err)
		}
		s.lastHandshake = time.Now()
	}

	s.probeLobby(ctx)
}

func (s *Supervisor) probeLobby(ctx context.Context) {
	lobbies, err := s.client.ListPracticeLobbies(ctx, s.password)
	if err != nil {
		s.log.Warn("liveness probe failed: %v", err)
		return
	}

	present := false
	for _, id := range lobbies {
		if id == s.lobbyID {
			present = true
			break
		}
	}

	if present {
		s.noLobbyProbes = 0
		return
	}

	s.noLobbyProbes++
	s.log.Warn("owned lobby %d absent from probe (%d/%d)", s.lobbyID, s.noLobbyProbes, s.cfg.MaxNoLobby)
	if s.noLobbyProbes >= s.cfg.MaxNoLobby {
		s.log.Warn("lobby missing for %d consecutive probes, synthesizing lobby_ended", s.noLobbyProbes)
		s.state = StateEnded
		s.emitEnded(0, platform.OutcomeUnknown)
	}
}
