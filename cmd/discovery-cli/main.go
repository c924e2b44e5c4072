// Package main provides the Discovery Engine CLI entrypoint.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/storely-ai/discovery-engine/internal/catalog"
	"github.com/storely-ai/discovery-engine/internal/config"
	"github.com/storely-ai/discovery-engine/internal/engine"
	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "discovery-cli",
	Short: "Discovery Engine CLI for catalog management and administration",
	Long: `Discovery Engine CLI provides commands for managing the book catalog
and chat infrastructure.

Use this tool to:
- Seed the product catalog from a JSON file
- Run database migrations
- Chat with the discovery engine from the terminal
- Inspect learned preference profiles

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}

		level := cfg.Observability.LogLevel
		if !verbose {
			level = "warn"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      logFormat,
			ServiceName: "discovery-cli",
		})

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newSeedCmd creates the seed subcommand.
func newSeedCmd() *cobra.Command {
	var (
		file    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the product catalog from a JSON file",
		Long: `Seed parses a catalog JSON file and upserts every product.
Re-running with the same file is idempotent: items keep their
title-derived IDs, so existing rows are updated in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			ui := NewUI(outputJSON)

			if file == "" {
				file = cfg.Catalog.SeedPath
			}
			if file == "" {
				return fmt.Errorf("either --file or catalog.seed_path is required")
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if migrate {
				if err := storage.Migrate(ctx, db); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
			}

			repos := storage.NewRepositories(db)

			bar := ui.ProgressBar(0, "seeding catalog")
			count, err := catalog.Seed(ctx, repos.Catalog, file, func(done, total int) {
				bar.SetTotal(int64(total))
				bar.Set(int64(done))
			})
			bar.Finish()
			if err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				return enc.Encode(map[string]interface{}{
					"seeded": count,
					"file":   file,
				})
			}

			ui.Success("Seeded %d products from %s", count, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog JSON file (default: catalog.seed_path from config)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run migrations before seeding")

	return cmd
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Migrate creates or updates the schema for the configured database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			ui := NewUI(outputJSON)

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			logger.Info().
				Str("driver", cfg.Database.Driver).
				Msg("Running migrations")

			if err := storage.Migrate(ctx, db); err != nil {
				return fmt.Errorf("execute migration: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				return enc.Encode(map[string]string{
					"status": "ok",
					"driver": cfg.Database.Driver,
				})
			}

			ui.Success("Migrations applied on %s", cfg.Database.Driver)
			return nil
		},
	}

	return cmd
}

// newChatCmd creates the chat subcommand.
func newChatCmd() *cobra.Command {
	var (
		message string
		session string
		user    string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the discovery engine",
		Long: `Chat runs the discovery pipeline against the configured database.
With --message it answers once and exits; without it, it starts an
interactive session. Type /quit to leave the interactive session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := NewUI(outputJSON)

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			repos := storage.NewRepositories(db)
			eng := engine.New(
				repos.Catalog,
				repos.Sessions,
				storage.NewPreferenceStore(repos.Users),
				logger,
				cfg.Chat,
			)

			var userID *uuid.UUID
			if user != "" {
				uid, err := uuid.Parse(user)
				if err != nil {
					return fmt.Errorf("invalid user ID: %w", err)
				}
				userID = &uid
			}

			if message != "" {
				return runChatTurn(cmd.Context(), eng, ui, message, &session, userID)
			}

			return runChatREPL(cmd.Context(), eng, ui, &session, userID)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "single message (non-interactive)")
	cmd.Flags().StringVar(&session, "session", "", "session ID to continue (default: new session)")
	cmd.Flags().StringVar(&user, "user", "", "user ID for preference learning")

	return cmd
}

// runChatTurn processes one message and prints the reply.
func runChatTurn(ctx context.Context, eng *engine.Engine, ui *UI, message string, session *string, userID *uuid.UUID) error {
	turnCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sp := ui.Spinner("thinking")
	sp.Start()
	result, err := eng.Process(turnCtx, engine.Request{
		Message:   message,
		SessionID: *session,
		UserID:    userID,
	})
	sp.Stop()
	if err != nil {
		return fmt.Errorf("process message: %w", err)
	}
	*session = result.SessionID

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"session_id":               result.SessionID,
			"response":                 result.Response,
			"user_preferences_updated": result.PreferencesUpdated,
		})
	}

	ui.Reply(result.Response.Message)

	for i, p := range result.Response.Products {
		ui.Product(i+1, p.Title, p.Category, p.Price, p.Rating)
	}
	if len(result.Response.Suggestions) > 0 {
		ui.Info("Try: %s", strings.Join(result.Response.Suggestions, ", "))
	}
	if result.PreferencesUpdated {
		ui.Info("Preferences updated")
	}

	return nil
}

// runChatREPL reads messages from stdin until EOF or /quit.
func runChatREPL(ctx context.Context, eng *engine.Engine, ui *UI, session *string, userID *uuid.UUID) error {
	ui.Info("Interactive session. Type /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		ui.Prompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		if err := runChatTurn(ctx, eng, ui, line, session, userID); err != nil {
			ui.Error("%v", err)
		}
	}

	if *session != "" {
		ui.Info("Session: %s", *session)
	}
	return scanner.Err()
}

// newProfileCmd creates the profile subcommand.
func newProfileCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show a user's learned preference profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			ui := NewUI(outputJSON)

			uid, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid user ID: %w", err)
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			repos := storage.NewRepositories(db)
			prefs, err := storage.NewPreferenceStore(repos.Users).GetPreferences(ctx, uid)
			if err != nil {
				return fmt.Errorf("load preferences: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(prefs)
			}

			ui.Section("Preference profile")
			ui.KeyValue("Categories", strings.Join(prefs.PreferredCategories, ", "))
			if prefs.BudgetRange.Min != nil {
				ui.KeyValue("Budget min", fmt.Sprintf("$%.2f", *prefs.BudgetRange.Min))
			}
			if prefs.BudgetRange.Max != nil {
				ui.KeyValue("Budget max", fmt.Sprintf("$%.2f", *prefs.BudgetRange.Max))
			}
			ui.KeyValue("Recent searches", strings.Join(prefs.LastSearches, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.Encode(map[string]string{
					"version": "0.1.0",
					"go":      "1.23",
				})
				return
			}
			fmt.Println("discovery-cli v0.1.0")
		},
	}
}

// openDatabase opens a database connection based on the configuration.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	return db, nil
}
