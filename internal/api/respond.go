// File: internal/api/respond.go
// Project: Gargamel League Matchmaker
// Description: JSON response helpers shared by every handler
// Version: 1.0.0

package api

import (
	"encoding/json"
	"net/http"

	gerrors "github.com/gargamel-league/matchmaker/internal/errors"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// writeError maps a domain error to an HTTP status the way the kind was
// meant to be handled: a missing game or player is a 404, client-fixable
// conditions (not ready, not enough players, wrong teams) are 409s, and
// anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case gerrors.Is(err, gerrors.KindNotFound):
		status = http.StatusNotFound
	case gerrors.Is(err, gerrors.KindNotEnoughPlayers),
		gerrors.Is(err, gerrors.KindNoSlotAvailable),
		gerrors.Is(err, gerrors.KindNotReady),
		gerrors.Is(err, gerrors.KindNotOpposingTeams),
		gerrors.Is(err, gerrors.KindPlayerAlreadyInGame),
		gerrors.Is(err, gerrors.KindStaleEvent):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
