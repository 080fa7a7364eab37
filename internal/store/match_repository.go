// File: internal/store/match_repository.go
// Project: Gargamel League Matchmaker
// Description: Repository for formed games and their rosters
// Version: 1.0.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchRepository handles reads and writes against matches/match_players.
type MatchRepository struct {
	db *DB
}

// NewMatchRepository creates a new match repository.
func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// NextGameID atomically reserves and returns the next game id. It is
// equivalent to a strictly increasing sequence, but kept as an explicit
// counter table so operators can inspect or reset it without touching
// Postgres sequence internals.
func (r *MatchRepository) NextGameID(ctx context.Context) (int64, error) {
	var id int64
	err := r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT next_id FROM game_counter FOR UPDATE").Scan(&id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE game_counter SET next_id = next_id + 1")
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reserve game id: %w", err)
	}
	return id, nil
}

// InsertMatch records a newly formed game and its roster in a single
// transaction, so a match is never visible without its players. Called once
// a lobby reaches RUNNING and the platform has assigned a match id.
func (r *MatchRepository) InsertMatch(ctx context.Context, m *Match, radiant, dire []MatchPlayer) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO matches (game_id, match_id, lobby_id, status, game_mode, lobby_type, server_region, league_id, radiant_mean, dire_mean, unfairness)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, m.GameID, m.MatchID, m.LobbyID, m.Status, m.GameMode, m.LobbyType, m.ServerRegion, m.LeagueID, m.RadiantMean, m.DireMean, m.Unfairness)
		if err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}

		for _, p := range append(append([]MatchPlayer{}, radiant...), dire...) {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO match_players (game_id, discord_id, team, rating_before)
				VALUES ($1, $2, $3, $4)
			`, p.GameID, p.DiscordID, p.Team, p.RatingBefore)
			if err != nil {
				return fmt.Errorf("failed to insert match player %d: %w", p.DiscordID, err)
			}
		}
		return nil
	})
}

// SetStatus transitions a match to a new status.
func (r *MatchRepository) SetStatus(ctx context.Context, gameID int64, status MatchStatus) error {
	result, err := r.db.ExecContext(ctx, "UPDATE matches SET status = $1 WHERE game_id = $2", status, gameID)
	if err != nil {
		return fmt.Errorf("failed to set match status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// FinalizeMatch records the outcome of a finished game and the post-game
// rating of every roster member, in one transaction.
func (r *MatchRepository) FinalizeMatch(ctx context.Context, gameID int64, outcome Outcome, ratingAfter map[int64]int) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		_, err := tx.ExecContext(ctx, `
			UPDATE matches SET status = $1, outcome = $2, finished_at = $3 WHERE game_id = $4
		`, MatchStatusFinished, outcome, now, gameID)
		if err != nil {
			return fmt.Errorf("failed to finalize match: %w", err)
		}

		for discordID, rating := range ratingAfter {
			_, err := tx.ExecContext(ctx, `
				UPDATE match_players SET rating_after = $1 WHERE game_id = $2 AND discord_id = $3
			`, rating, gameID, discordID)
			if err != nil {
				return fmt.Errorf("failed to record post-game rating for %d: %w", discordID, err)
			}
		}
		return nil
	})
}

// ListUnfinished returns every match not yet in a terminal status, used on
// startup to recover matches that were in flight when the process exited.
func (r *MatchRepository) ListUnfinished(ctx context.Context) ([]Match, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT game_id, match_id, lobby_id, status, game_mode, lobby_type, server_region, league_id, radiant_mean, dire_mean, unfairness, created_at
		FROM matches
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at ASC
	`, MatchStatusFinished, MatchStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var matchID, lobbyID sql.NullInt64
		if err := rows.Scan(&m.GameID, &matchID, &lobbyID, &m.Status, &m.GameMode, &m.LobbyType, &m.ServerRegion, &m.LeagueID, &m.RadiantMean, &m.DireMean, &m.Unfairness, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		m.MatchID = matchID.Int64
		m.LobbyID = lobbyID.Int64
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetMatch returns a single match by game id.
func (r *MatchRepository) GetMatch(ctx context.Context, gameID int64) (*Match, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT game_id, match_id, lobby_id, status, game_mode, lobby_type, server_region, league_id, radiant_mean, dire_mean, unfairness, outcome, created_at, finished_at
		FROM matches WHERE game_id = $1
	`, gameID)

	var m Match
	var matchID, lobbyID sql.NullInt64
	var outcome sql.NullString
	var finishedAt sql.NullTime
	if err := row.Scan(&m.GameID, &matchID, &lobbyID, &m.Status, &m.GameMode, &m.LobbyType, &m.ServerRegion, &m.LeagueID, &m.RadiantMean, &m.DireMean, &m.Unfairness, &outcome, &m.CreatedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to fetch match %d: %w", gameID, err)
	}
	m.MatchID = matchID.Int64
	m.LobbyID = lobbyID.Int64
	m.Outcome = Outcome(outcome.String)
	if finishedAt.Valid {
		m.FinishedAt = &finishedAt.Time
	}
	return &m, nil
}

// GetRoster returns the roster rows for a given match.
func (r *MatchRepository) GetRoster(ctx context.Context, gameID int64) ([]MatchPlayer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT game_id, discord_id, team, rating_before, rating_after
		FROM match_players WHERE game_id = $1
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}
	defer rows.Close()

	var roster []MatchPlayer
	for rows.Next() {
		var p MatchPlayer
		var ratingAfter sql.NullInt64
		if err := rows.Scan(&p.GameID, &p.DiscordID, &p.Team, &p.RatingBefore, &ratingAfter); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		if ratingAfter.Valid {
			v := int(ratingAfter.Int64)
			p.RatingAfter = &v
		}
		roster = append(roster, p)
	}
	return roster, rows.Err()
}
