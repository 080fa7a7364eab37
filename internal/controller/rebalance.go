// File: internal/controller/rebalance.go
// Project: Gargamel League Matchmaker
// Description: Re-runs team selection in place against a live roster
// Version: 1.0.0

package controller

import (
	"context"
	"fmt"

	gerrors "github.com/gargamel-league/matchmaker/internal/errors"
	"github.com/gargamel-league/matchmaker/internal/matchmaker"
)

// RebalanceGame re-partitions a pending or active game's current roster
// with the same balanced-split search FormGame uses, then pushes the new
// rosters to the owning Supervisor via update_teams. Useful after an
// operator Replace call leaves a game lopsided.
func (c *Controller) RebalanceGame(ctx context.Context, gameID int64) error {
	c.mu.Lock()
	var entries []matchmaker.Entry
	pm, pending := c.pending[gameID]
	am, active := c.active[gameID]
	switch {
	case pending:
		entries = append(append([]matchmaker.Entry{}, pm.radiant...), pm.dire...)
	case active:
		entries = ratingEntries(am.radiantIDs, am.direIDs, am.radiantBefore, am.direBefore)
	default:
		c.mu.Unlock()
		return gerrors.New(gerrors.KindNotFound, "controller.RebalanceGame", fmt.Errorf("game %d not found", gameID))
	}
	c.mu.Unlock()

	if len(entries)%2 != 0 {
		return gerrors.New(gerrors.KindNotEnoughPlayers, "controller.RebalanceGame", fmt.Errorf("game %d has an odd roster", gameID))
	}
	teamSize := len(entries) / 2

	game, err := matchmaker.Rebalance(entries, teamSize, c.cfg.UnfairnessExponent, c.rng)
	if err != nil {
		return fmt.Errorf("rebalance: %w", err)
	}

	supHandle, err := c.lookupSupervisor(gameID)
	if err != nil {
		return err
	}
	radiantIDs := discordIDs(game.Radiant)
	direIDs := discordIDs(game.Dire)
	if err := supHandle.UpdateTeams(ctx, radiantIDs, direIDs); err != nil {
		return fmt.Errorf("rebalance: update_teams: %w", err)
	}

	c.mu.Lock()
	if pm, ok := c.pending[gameID]; ok {
		pm.radiant = game.Radiant
		pm.dire = game.Dire
		pm.radiantMean = game.RadiantMean
		pm.direMean = game.DireMean
		pm.unfairness = game.Unfairness
	}
	if am, ok := c.active[gameID]; ok {
		combined := mergeRatings(am.radiantBefore, am.direBefore)
		newRadiantBefore := make(map[int64]int, len(radiantIDs))
		for _, id := range radiantIDs {
			newRadiantBefore[id] = combined[id]
		}
		newDireBefore := make(map[int64]int, len(direIDs))
		for _, id := range direIDs {
			newDireBefore[id] = combined[id]
		}
		am.radiantIDs = radiantIDs
		am.direIDs = direIDs
		am.radiantBefore = newRadiantBefore
		am.direBefore = newDireBefore
	}
	c.mu.Unlock()

	log.Info("game %d rebalanced: unfairness=%.1f", gameID, game.Unfairness)
	return nil
}

func ratingEntries(radiantIDs, direIDs []int64, radiantBefore, direBefore map[int64]int) []matchmaker.Entry {
	out := make([]matchmaker.Entry, 0, len(radiantIDs)+len(direIDs))
	for _, id := range radiantIDs {
		out = append(out, matchmaker.Entry{DiscordID: id, Rating: radiantBefore[id]})
	}
	for _, id := range direIDs {
		out = append(out, matchmaker.Entry{DiscordID: id, Rating: direBefore[id]})
	}
	return out
}
