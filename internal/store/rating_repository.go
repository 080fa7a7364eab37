// File: internal/store/rating_repository.go
// Project: Gargamel League Matchmaker
// Description: Repository for player identities and ratings
// Version: 1.0.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already registered")
)

// RatingRepository handles reads and writes against the users table.
type RatingRepository struct {
	db *DB
}

// NewRatingRepository creates a new rating repository.
func NewRatingRepository(db *DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Register creates a new league player with the given starting rating.
func (r *RatingRepository) Register(ctx context.Context, discordID, steamID int64, startingRating int) (*User, error) {
	query := `
		INSERT INTO users (discord_id, steam_id, rating)
		VALUES ($1, $2, $3)
		RETURNING discord_id, steam_id, rating, created_at
	`

	var u User
	err := r.db.QueryRowContext(ctx, query, discordID, steamID, startingRating).Scan(
		&u.DiscordID, &u.SteamID, &u.Rating, &u.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	return &u, nil
}

// GetRating returns a player's current rating by Discord id.
func (r *RatingRepository) GetRating(ctx context.Context, discordID int64) (int, error) {
	var rating int
	err := r.db.QueryRowContext(ctx, "SELECT rating FROM users WHERE discord_id = $1", discordID).Scan(&rating)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to fetch rating: %w", err)
	}
	return rating, nil
}

// GetSteamID returns the Steam id associated with a Discord id.
func (r *RatingRepository) GetSteamID(ctx context.Context, discordID int64) (int64, error) {
	var steamID int64
	err := r.db.QueryRowContext(ctx, "SELECT steam_id FROM users WHERE discord_id = $1", discordID).Scan(&steamID)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to fetch steam id: %w", err)
	}
	return steamID, nil
}

// SetRating overwrites a player's rating, e.g. after an Elo update.
func (r *RatingRepository) SetRating(ctx context.Context, discordID int64, rating int) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET rating = $1 WHERE discord_id = $2", rating, discordID)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetRatings returns the ratings for a set of Discord ids, keyed by id.
// Ids with no matching row are omitted from the result rather than erroring,
// mirroring the queue's tolerance for players who drop out of the league.
func (r *RatingRepository) GetRatings(ctx context.Context, discordIDs []int64) (map[int64]int, error) {
	result := make(map[int64]int, len(discordIDs))
	if len(discordIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, "SELECT discord_id, rating FROM users WHERE discord_id = ANY($1)", discordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var rating int
		if err := rows.Scan(&id, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		result[id] = rating
	}
	return result, rows.Err()
}

// ListPlayers returns every registered league player, ordered by rating
// descending, for the accounts CLI's listing command.
func (r *RatingRepository) ListPlayers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT discord_id, steam_id, rating, created_at FROM users ORDER BY rating DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.DiscordID, &u.SteamID, &u.Rating, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func isDuplicateKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}
