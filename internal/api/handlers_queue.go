// File: internal/api/handlers_queue.go
// Project: Gargamel League Matchmaker
// Description: Matchmaking queue read/write endpoints
// Version: 1.0.0

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gargamel-league/matchmaker/internal/metrics"
)

type queueEntryDTO struct {
	DiscordID int64     `json:"discord_id"`
	Rating    int       `json:"rating"`
	JoinedAt  time.Time `json:"joined_at"`
}

type queueSnapshotDTO struct {
	Players []queueEntryDTO `json:"players"`
	Count   int             `json:"count"`
}

// handleQueueSnapshot returns every queued player, oldest-joined first.
func (s *Server) handleQueueSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.queue.Snapshot()
	dto := queueSnapshotDTO{Players: make([]queueEntryDTO, len(snap)), Count: len(snap)}
	for i, e := range snap {
		dto.Players[i] = queueEntryDTO{DiscordID: e.DiscordID, Rating: e.Rating, JoinedAt: e.JoinedAt}
	}
	writeJSON(w, http.StatusOK, dto)
}

// handleEnqueue adds a registered player to the queue at their current
// rating. The caller's Discord id is the URL parameter; rating is looked
// up from the ratings store rather than trusted from the request body.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	discordID, err := strconv.ParseInt(chi.URLParam(r, "discordID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid discord id"})
		return
	}

	rating, err := s.ratings.GetRating(r.Context(), discordID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "player is not registered"})
		return
	}

	s.queue.Enqueue(discordID, rating, time.Now())
	metrics.Global().IncrementPlayersEnqueued()
	metrics.Global().SetQueueDepth(int64(s.queue.Len()))
	entry, _ := s.queue.Get(discordID)
	writeJSON(w, http.StatusOK, queueEntryDTO{DiscordID: entry.DiscordID, Rating: entry.Rating, JoinedAt: entry.JoinedAt})
}

// handleDequeue removes a player from the queue.
func (s *Server) handleDequeue(w http.ResponseWriter, r *http.Request) {
	discordID, err := strconv.ParseInt(chi.URLParam(r, "discordID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid discord id"})
		return
	}

	if !s.queue.Dequeue(discordID) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "player is not queued"})
		return
	}
	metrics.Global().IncrementPlayersDequeued()
	metrics.Global().SetQueueDepth(int64(s.queue.Len()))
	w.WriteHeader(http.StatusNoContent)
}
