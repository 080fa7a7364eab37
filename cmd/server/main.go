// File: cmd/server/main.go
// Project: Gargamel League Matchmaker
// Description: Matchmaker service entry point
// Version: 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gargamel-league/matchmaker/internal/api"
	"github.com/gargamel-league/matchmaker/internal/config"
	"github.com/gargamel-league/matchmaker/internal/controller"
	"github.com/gargamel-league/matchmaker/internal/logger"
	"github.com/gargamel-league/matchmaker/internal/matchmaker"
	"github.com/gargamel-league/matchmaker/internal/metrics"
	"github.com/gargamel-league/matchmaker/internal/platform"
	"github.com/gargamel-league/matchmaker/internal/platform/dota2"
	"github.com/gargamel-league/matchmaker/internal/pool"
	"github.com/gargamel-league/matchmaker/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	log = logger.WithComponent("main")
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		addr        = flag.String("addr", ":8080", "HTTP API listen address")
		migrate     = flag.Bool("migrate", true, "Run schema migrations on startup")
		migrateDir  = flag.String("migrations-dir", "internal/store", "Directory containing schema.sql")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFile     = flag.String("log-file", "", "Log file path (empty for stdout only)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("gargamel-matchmaker %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	logCfg := logger.Config{Level: *logLevel, FilePath: *logFile, ToStdout: true, WithCaller: true}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	log.Info("gargamel matchmaker starting up (version %s, commit %s)", version, commit)
	metrics.Init()

	cfg, err := config.DefaultConfig()
	if err != nil {
		log.Fatal("failed to load configuration: %v", err)
	}

	dbCfg := store.DefaultConfig()
	db, err := store.NewDB(dbCfg)
	if err != nil {
		log.Fatal("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *migrate {
		if err := db.RunMigrations(ctx, *migrateDir); err != nil {
			log.Fatal("failed to run migrations: %v", err)
		}
	}

	matches := store.NewMatchRepository(db)
	ratings := store.NewRatingRepository(db)

	queue := matchmaker.New()
	slotPool := pool.New(cfg.Clients)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	newClient := func(creds dota2.Credentials) platform.Client {
		return dota2.New(creds)
	}

	ctrlCfg := controller.Config{
		TeamSize:           cfg.TeamSize,
		EloK:               cfg.EloK,
		UnfairnessExponent: cfg.UnfairnessExponent,
		DebugMode:          cfg.DebugMode,
		LeagueID:           cfg.LeagueID,
		ServerRegion:       cfg.ServerRegion,
	}
	ctrlRNG := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctrl := controller.New(queue, slotPool, matches, ratings, nil, newClient, ctrlCfg, ctrlRNG)
	go ctrl.Run(ctx)

	recoverInFlightMatches(ctx, matches)

	apiCfg := api.Config{
		Addr:               *addr,
		TeamSize:           cfg.TeamSize,
		UnfairnessExponent: cfg.UnfairnessExponent,
	}
	apiRNG := rand.New(rand.NewSource(time.Now().UnixNano() + 1))
	server := api.New(apiCfg, queue, ctrl, matches, ratings, apiRNG)

	log.Info("server initialized successfully, starting main loop")
	if err := server.Run(ctx); err != nil {
		log.Fatal("api server error: %v", err)
	}

	log.Info("matchmaker shutdown complete")
}

// recoverInFlightMatches logs matches left unfinished by a prior process
// exit. Their Supervisors are gone; an operator must cancel or otherwise
// reconcile them, since re-attaching to an external lobby session across
// a restart is not supported.
func recoverInFlightMatches(ctx context.Context, matches *store.MatchRepository) {
	unfinished, err := matches.ListUnfinished(ctx)
	if err != nil {
		log.Warn("failed to list unfinished matches on startup: %v", err)
		return
	}
	for _, m := range unfinished {
		log.Warn("match %d was left in status %s by a prior run; no Supervisor is attached to it", m.GameID, m.Status)
	}
}
