// File: internal/api/handlers_games.go
// Project: Gargamel League Matchmaker
// Description: Match formation and in-flight operator endpoints
// Version: 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gargamel-league/matchmaker/internal/store"
)

type gameDTO struct {
	GameID       int64      `json:"game_id"`
	MatchID      int64      `json:"match_id,omitempty"`
	LobbyID      int64      `json:"lobby_id,omitempty"`
	Status       string     `json:"status"`
	Outcome      string     `json:"outcome,omitempty"`
	RadiantMean  int        `json:"radiant_mean"`
	DireMean     int        `json:"dire_mean"`
	Unfairness   float64    `json:"unfairness"`
	Password     string     `json:"password,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func toGameDTO(m *store.Match, password string) gameDTO {
	return gameDTO{
		GameID:      m.GameID,
		MatchID:     m.MatchID,
		LobbyID:     m.LobbyID,
		Status:      string(m.Status),
		Outcome:     string(m.Outcome),
		RadiantMean: m.RadiantMean,
		DireMean:    m.DireMean,
		Unfairness:  m.Unfairness,
		Password:    password,
		CreatedAt:   m.CreatedAt,
		FinishedAt:  m.FinishedAt,
	}
}

// handleFormGameNow samples the queue immediately rather than waiting for
// a scheduled tick, forms a balanced split, and asks the Controller to
// spin up a lobby for it.
func (s *Server) handleFormGameNow(w http.ResponseWriter, r *http.Request) {
	s.rngMu.Lock()
	game, err := s.queue.FormGameQ(s.cfg.TeamSize, s.cfg.UnfairnessExponent, time.Now(), s.rng)
	s.rngMu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	gameID, password, err := s.ctrl.MakeGame(r.Context(), game)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, gameDTO{
		GameID:      gameID,
		Status:      "pending",
		RadiantMean: int(game.RadiantMean),
		DireMean:    int(game.DireMean),
		Unfairness:  game.Unfairness,
		Password:    password,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	m, err := s.matches.GetMatch(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, store.ErrMatchNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "game not found"})
			return
		}
		writeError(w, err)
		return
	}

	password, _ := s.ctrl.GetPassword(gameID)
	writeJSON(w, http.StatusOK, toGameDTO(m, password))
}

func (s *Server) handleGetPassword(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	password, err := s.ctrl.GetPassword(gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"password": password})
}

func (s *Server) handleCancelGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := s.ctrl.CancelGame(r.Context(), gameID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type swapRequest struct {
	PlayerA int64 `json:"player_a"`
	PlayerB int64 `json:"player_b"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.ctrl.Swap(r.Context(), gameID, req.PlayerA, req.PlayerB); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type replaceRequest struct {
	OldPlayer int64 `json:"old_player"`
	NewPlayer int64 `json:"new_player"`
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.ctrl.Replace(r.Context(), gameID, req.OldPlayer, req.NewPlayer); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := s.ctrl.RebalanceGame(r.Context(), gameID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeModeRequest struct {
	ModeID string `json:"mode_id"`
}

func (s *Server) handleChangeMode(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var req changeModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.ctrl.ChangeMode(r.Context(), gameID, req.ModeID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseGameID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid game id")
	}
	return id, nil
}
