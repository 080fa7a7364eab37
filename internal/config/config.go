// File: internal/config/config.go
// Project: Gargamel League Matchmaker
// Description: Service-wide configuration loaded from the environment
// Version: 1.0.0

// Package config loads the matchmaker service's startup configuration from
// environment variables, following the same getEnv/getEnvAsInt pattern the
// store package uses for database settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gargamel-league/matchmaker/internal/logger"
	"github.com/gargamel-league/matchmaker/internal/platform/dota2"
)

var log = logger.WithComponent("Config")

// Config holds every setting the matchmaking service needs at startup.
type Config struct {
	// TeamSize is T: the number of players per side.
	TeamSize int
	// EloK is the per-match Elo K-factor.
	EloK int
	// UnfairnessExponent is q, the exponent used by the partition fairness
	// score.
	UnfairnessExponent int
	// DebugMode toggles the external "allow cheats" lobby flag. It does not
	// change any countdown or timeout.
	DebugMode bool
	// LeagueID is the external league identifier recorded on each match
	// row. Lobbies are created without a league id.
	LeagueID int
	// ServerRegion is the external platform's region id recorded on each
	// match row. Lobbies are created with region 0 regardless of it.
	ServerRegion int

	// Clients are the N bot-account credential pairs, one per Supervisor
	// Pool slot, in slot-index order.
	Clients []dota2.Credentials
}

// DefaultConfig reads Config from the environment. NUM_CLIENTS credential
// pairs are read from CLIENT_{i}_USERNAME / CLIENT_{i}_PASSWORD for
// i in [0, NUM_CLIENTS).
func DefaultConfig() (*Config, error) {
	numClients := getEnvAsInt("NUM_CLIENTS", 1)
	if numClients < 1 {
		return nil, fmt.Errorf("NUM_CLIENTS must be >= 1, got %d", numClients)
	}

	clients := make([]dota2.Credentials, numClients)
	for i := 0; i < numClients; i++ {
		username := os.Getenv(fmt.Sprintf("CLIENT_%d_USERNAME", i))
		password := os.Getenv(fmt.Sprintf("CLIENT_%d_PASSWORD", i))
		if username == "" {
			log.Warn("CLIENT_%d_USERNAME not set; slot %d will fail to log in", i, i)
		}
		clients[i] = dota2.Credentials{
			Username:      username,
			Password:      password,
			TwoFactorCode: os.Getenv(fmt.Sprintf("CLIENT_%d_2FA", i)),
		}
	}

	cfg := &Config{
		TeamSize:           getEnvAsInt("TEAM_SIZE", 5),
		EloK:               getEnvAsInt("ELO_K", 32),
		UnfairnessExponent: getEnvAsInt("UNFUN_MOD", 2),
		DebugMode:          getEnvAsBool("DEBUG_MODE", false),
		LeagueID:           getEnvAsInt("LEAGUE_ID", 0),
		ServerRegion:       getEnvAsInt("SERVER_REGION", 0),
		Clients:            clients,
	}

	log.Info("configuration loaded: team_size=%d elo_k=%d unfun_mod=%d debug=%v league_id=%d num_clients=%d",
		cfg.TeamSize, cfg.EloK, cfg.UnfairnessExponent, cfg.DebugMode, cfg.LeagueID, len(cfg.Clients))

	return cfg, nil
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn("invalid integer value for %s: %s, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		log.Warn("invalid boolean value for %s: %s, using default %v", key, value, defaultValue)
	}
	return defaultValue
}
