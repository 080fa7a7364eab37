// File: internal/controller/lifecycle.go
// Project: Gargamel League Matchmaker
// Description: Reacts to Supervisor lifecycle events: confirms a lobby's
// start, settles ratings at its end
// Version: 1.0.0

package controller

import (
	"context"

	"github.com/gargamel-league/matchmaker/internal/matchmaker"
	"github.com/gargamel-league/matchmaker/internal/metrics"
	"github.com/gargamel-league/matchmaker/internal/platform"
	"github.com/gargamel-league/matchmaker/internal/ratingmath"
	"github.com/gargamel-league/matchmaker/internal/store"
	"github.com/gargamel-league/matchmaker/internal/supervisor"
)

// onLobbyRunning runs the make_game -> RUNNING transition at most once
// per game id: a duplicate lobby_running for a game already moved to
// active (or never pending) is dropped.
func (c *Controller) onLobbyRunning(ctx context.Context, gameID int64, ev *supervisor.LobbyRunningEvent) {
	c.mu.Lock()
	pm, ok := c.pending[gameID]
	if !ok {
		c.mu.Unlock()
		log.Warn("lobby_running for unknown or already-confirmed game %d, dropping", gameID)
		return
	}
	delete(c.pending, gameID)
	c.mu.Unlock()

	radiantIDs := discordIDs(pm.radiant)
	direIDs := discordIDs(pm.dire)
	allIDs := append(append([]int64{}, radiantIDs...), direIDs...)

	ratingsNow, err := c.ratings.GetRatings(ctx, allIDs)
	if err != nil {
		log.Error("failed to fetch ratings for game %d: %v", gameID, err)
	}

	radiantPlayers := make([]store.MatchPlayer, len(pm.radiant))
	for i, e := range pm.radiant {
		radiantPlayers[i] = store.MatchPlayer{GameID: gameID, DiscordID: e.DiscordID, Team: "radiant", RatingBefore: ratingsNow[e.DiscordID]}
	}
	direPlayers := make([]store.MatchPlayer, len(pm.dire))
	for i, e := range pm.dire {
		direPlayers[i] = store.MatchPlayer{GameID: gameID, DiscordID: e.DiscordID, Team: "dire", RatingBefore: ratingsNow[e.DiscordID]}
	}

	m := &store.Match{
		GameID:       gameID,
		MatchID:      int64(ev.MatchID),
		LobbyID:      int64(ev.LobbyID),
		Status:       store.MatchStatusRunning,
		GameMode:     "all_pick",
		LobbyType:    "practice",
		ServerRegion: c.cfg.ServerRegion,
		LeagueID:     c.cfg.LeagueID,
		RadiantMean:  int(pm.radiantMean),
		DireMean:     int(pm.direMean),
		Unfairness:   pm.unfairness,
	}
	if err := c.matches.InsertMatch(ctx, m, radiantPlayers, direPlayers); err != nil {
		log.Error("failed to insert match for game %d: %v", gameID, err)
	}

	radiantBefore := make(map[int64]int, len(radiantIDs))
	for _, id := range radiantIDs {
		radiantBefore[id] = ratingsNow[id]
	}
	direBefore := make(map[int64]int, len(direIDs))
	for _, id := range direIDs {
		direBefore[id] = ratingsNow[id]
	}

	c.mu.Lock()
	c.active[gameID] = &activeMatch{
		radiantIDs:    radiantIDs,
		direIDs:       direIDs,
		radiantBefore: radiantBefore,
		direBefore:    direBefore,
		password:      pm.password,
		sup:           pm.sup,
		slot:          pm.slot,
		runID:         pm.runID,
		cancel:        pm.cancel,
		done:          pm.done,
	}
	c.mu.Unlock()

	log.Info("game %d running: match_id=%d lobby_id=%d", gameID, ev.MatchID, ev.LobbyID)
}

// onLobbyEnded settles ratings and finalizes match history at most once
// per game id: a duplicate lobby_ended for a game no longer active is
// dropped.
func (c *Controller) onLobbyEnded(ctx context.Context, gameID int64, ev *supervisor.LobbyEndedEvent) {
	c.mu.Lock()
	am, ok := c.active[gameID]
	if !ok {
		c.mu.Unlock()
		log.Warn("lobby_ended for unknown or already-finalized game %d, dropping", gameID)
		return
	}
	delete(c.active, gameID)
	c.mu.Unlock()

	outcome := store.OutcomeUnknown
	var radiantAfter map[int64]int

	radiantRatings := mapValues(am.radiantIDs, am.radiantBefore)
	direRatings := mapValues(am.direIDs, am.direBefore)
	radiantAgg := ratingmath.TeamRating(radiantRatings)
	direAgg := ratingmath.TeamRating(direRatings)

	switch ev.Outcome {
	case platform.OutcomeRadiantWin:
		outcome = store.OutcomeRadiant
		radiantAfter = settleTeam(am.radiantIDs, radiantRatings, radiantAgg, direAgg, true, c.cfg.EloK, c.cfg.EloDivisor)
		direAfter := settleTeam(am.direIDs, direRatings, direAgg, radiantAgg, false, c.cfg.EloK, c.cfg.EloDivisor)
		radiantAfter = mergeRatings(radiantAfter, direAfter)
	case platform.OutcomeDireWin:
		outcome = store.OutcomeDire
		direAfter := settleTeam(am.direIDs, direRatings, direAgg, radiantAgg, true, c.cfg.EloK, c.cfg.EloDivisor)
		rAfter := settleTeam(am.radiantIDs, radiantRatings, radiantAgg, direAgg, false, c.cfg.EloK, c.cfg.EloDivisor)
		radiantAfter = mergeRatings(rAfter, direAfter)
	default:
		// Outcome unknown (watchdog-synthesized or platform-ambiguous): the
		// match is finalized as ended but no rating changes are applied.
		radiantAfter = map[int64]int{}
	}

	for discordID, rating := range radiantAfter {
		if err := c.ratings.SetRating(ctx, discordID, rating); err != nil {
			log.Error("failed to persist rating for %d: %v", discordID, err)
		}
	}

	if err := c.matches.FinalizeMatch(ctx, gameID, outcome, radiantAfter); err != nil {
		log.Error("failed to finalize match %d: %v", gameID, err)
	}

	metrics.Global().IncrementGamesCompleted()
	c.teardownMatch(am.sup, am.cancel, am.done, am.slot)
	log.Info("game %d ended: outcome=%s", gameID, outcome)
}

func settleTeam(ids []int64, ratings []int, teamAgg, opponentAgg float64, won bool, k int, divisor float64) map[int64]int {
	updated := ratingmath.UpdateTeamD(ratings, teamAgg, opponentAgg, won, k, divisor)
	out := make(map[int64]int, len(ids))
	for i, id := range ids {
		out[id] = updated[i]
	}
	return out
}

func mergeRatings(a, b map[int64]int) map[int64]int {
	out := make(map[int64]int, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mapValues(ids []int64, m map[int64]int) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}

func discordIDs(entries []matchmaker.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.DiscordID
	}
	return out
}
