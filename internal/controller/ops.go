// File: internal/controller/ops.go
// Project: Gargamel League Matchmaker
// Description: Mid-match operations forwarded to a game's Supervisor
// Version: 1.0.0

package controller

import (
	"context"
	"fmt"

	gerrors "github.com/gargamel-league/matchmaker/internal/errors"
	"github.com/gargamel-league/matchmaker/internal/supervisor"
)

var errGameNotFound = fmt.Errorf("game not found")

func (c *Controller) lookupSupervisor(gameID int64) (*supervisor.Supervisor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pm, ok := c.pending[gameID]; ok {
		return pm.sup, nil
	}
	if am, ok := c.active[gameID]; ok {
		return am.sup, nil
	}
	return nil, gerrors.New(gerrors.KindNotFound, "controller.lookupSupervisor", errGameNotFound)
}

// Swap forwards a same-game player swap to the owning Supervisor.
func (c *Controller) Swap(ctx context.Context, gameID, playerA, playerB int64) error {
	sup, err := c.lookupSupervisor(gameID)
	if err != nil {
		return err
	}
	return sup.Swap(ctx, playerA, playerB)
}

// Replace forwards a same-game player substitution to the owning
// Supervisor.
func (c *Controller) Replace(ctx context.Context, gameID, oldPlayer, newPlayer int64) error {
	sup, err := c.lookupSupervisor(gameID)
	if err != nil {
		return err
	}
	return sup.Replace(ctx, oldPlayer, newPlayer)
}

// UpdateTeams forwards a wholesale roster replacement to the owning
// Supervisor.
func (c *Controller) UpdateTeams(ctx context.Context, gameID int64, radiant, dire []int64) error {
	sup, err := c.lookupSupervisor(gameID)
	if err != nil {
		return err
	}
	return sup.UpdateTeams(ctx, radiant, dire)
}

// ChangeMode forwards a game-mode change to the owning Supervisor.
func (c *Controller) ChangeMode(ctx context.Context, gameID int64, modeID string) error {
	sup, err := c.lookupSupervisor(gameID)
	if err != nil {
		return err
	}
	return sup.ChangeMode(ctx, modeID)
}

// GetPassword returns the lobby password for a pending or active game. The
// Supervisor's copy of the password is private to its run goroutine, so the
// Controller keeps its own alongside the match tables for lookups after the
// initial make_game response.
func (c *Controller) GetPassword(gameID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pm, ok := c.pending[gameID]; ok {
		return pm.password, nil
	}
	if am, ok := c.active[gameID]; ok {
		return am.password, nil
	}
	return "", gerrors.New(gerrors.KindNotFound, "controller.GetPassword", errGameNotFound)
}
