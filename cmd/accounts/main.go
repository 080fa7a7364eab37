// File: cmd/accounts/main.go
// Project: Gargamel League Matchmaker
// Description: Operator CLI for league player registration and ratings
// Version: 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/gargamel-league/matchmaker/internal/store"
)

func main() {
	registerCmd := flag.NewFlagSet("register", flag.ExitOnError)
	registerDiscord := registerCmd.Int64("discord-id", 0, "Discord id of the player")
	registerSteam := registerCmd.Int64("steam-id", 0, "Steam 64-bit community id of the player")
	registerRating := registerCmd.Int("rating", 1000, "Starting Elo rating")

	ratingCmd := flag.NewFlagSet("set-rating", flag.ExitOnError)
	ratingDiscord := ratingCmd.Int64("discord-id", 0, "Discord id of the player")
	ratingValue := ratingCmd.Int("rating", 0, "New rating")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	dbCfg := store.DefaultConfig()
	db, err := store.NewDB(dbCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ratings := store.NewRatingRepository(db)
	ctx := context.Background()

	switch os.Args[1] {
	case "register":
		registerCmd.Parse(os.Args[2:])
		if *registerDiscord == 0 || *registerSteam == 0 {
			fmt.Fprintln(os.Stderr, "error: -discord-id and -steam-id are required")
			registerCmd.Usage()
			os.Exit(1)
		}
		if err := requireOperatorPassphrase(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if err := registerPlayer(ctx, ratings, *registerDiscord, *registerSteam, *registerRating); err != nil {
			fmt.Fprintf(os.Stderr, "failed to register player: %v\n", err)
			os.Exit(1)
		}

	case "set-rating":
		ratingCmd.Parse(os.Args[2:])
		if *ratingDiscord == 0 {
			fmt.Fprintln(os.Stderr, "error: -discord-id is required")
			ratingCmd.Usage()
			os.Exit(1)
		}
		if err := requireOperatorPassphrase(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if err := ratings.SetRating(ctx, *ratingDiscord, *ratingValue); err != nil {
			fmt.Fprintf(os.Stderr, "failed to set rating: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rating for %d set to %d\n", *ratingDiscord, *ratingValue)

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listPlayers(ctx, ratings); err != nil {
			fmt.Fprintf(os.Stderr, "failed to list players: %v\n", err)
			os.Exit(1)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Gargamel League - Account Management")
	fmt.Println("\nUsage:")
	fmt.Println("  accounts register -discord-id <id> -steam-id <id> [-rating <n>]")
	fmt.Println("  accounts set-rating -discord-id <id> -rating <n>")
	fmt.Println("  accounts list")
}

// requireOperatorPassphrase gates mutating subcommands behind the
// operator passphrase, hashed with bcrypt and stored out-of-band in
// ACCOUNTS_PASSPHRASE_HASH. If unset, the CLI runs unauthenticated, which
// is the expected local-operator setup.
func requireOperatorPassphrase() error {
	hash := os.Getenv("ACCOUNTS_PASSPHRASE_HASH")
	if hash == "" {
		return nil
	}

	fmt.Print("Operator passphrase: ")
	entered, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), entered); err != nil {
		return fmt.Errorf("incorrect passphrase")
	}
	return nil
}

func registerPlayer(ctx context.Context, ratings *store.RatingRepository, discordID, steamID int64, rating int) error {
	user, err := ratings.Register(ctx, discordID, steamID, rating)
	if err != nil {
		return err
	}
	fmt.Printf("player registered: discord_id=%d steam_id=%d rating=%d\n", user.DiscordID, user.SteamID, user.Rating)
	return nil
}

func listPlayers(ctx context.Context, ratings *store.RatingRepository) error {
	players, err := ratings.ListPlayers(ctx)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		fmt.Println("no registered players")
		return nil
	}
	fmt.Printf("%-12s %-12s %-8s %s\n", "DISCORD ID", "STEAM ID", "RATING", "REGISTERED")
	for _, p := range players {
		fmt.Printf("%-12s %-12s %-8s %s\n",
			strconv.FormatInt(p.DiscordID, 10),
			strconv.FormatInt(p.SteamID, 10),
			strconv.Itoa(p.Rating),
			p.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
