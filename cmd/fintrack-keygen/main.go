package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// fintrack-keygen issues an API key directly against the database. It
// exists for bootstrapping: the first key cannot be issued over the API
// because the API itself requires a key.
func main() {
	owner := flag.String("owner", "", "owner id the key authenticates as")
	name := flag.String("name", "default", "display name for the key")
	flag.Parse()

	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelWarn,
		Component: applog.ComponentAuth,
	})
	applog.SetDefault(logger)

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "usage: fintrack-keygen -owner <owner-id> [-name <name>]")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open storage:", err)
		os.Exit(1)
	}
	defer repo.Close()

	svc := services.NewAPIKeyService(repo, cfg.KeyRequestsPerHour)
	plaintext, key, err := svc.Issue(context.Background(), *owner, *name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue key:", err)
		os.Exit(1)
	}

	fmt.Printf("issued key %s for owner %s\n", key.ID, key.OwnerID)
	fmt.Println(plaintext)
}
