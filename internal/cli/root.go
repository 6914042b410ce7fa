// Package cli implements wortctl, the operator command line for content
// checks and ledger maintenance.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"wortschatz/internal/config"
	"wortschatz/internal/content"
	"wortschatz/internal/database"
	"wortschatz/internal/models"
	"wortschatz/internal/repository"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ContentPath string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for wortctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wortctl",
		Short: "Wortschatz operator tool",
		Long:  "Checks learning content and maintains the progress ledger of the Wortschatz bot.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			opts.cfg = config.Load()
			if opts.ContentPath == "" {
				opts.ContentPath = opts.cfg.ContentPath
			}

			level := opts.cfg.LogLevel
			if opts.Verbose {
				level = slog.LevelDebug
			}
			// logs go to stderr so JSON output stays parseable
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ContentPath, "content", "", "content root (default $CONTENT_PATH)")

	cmd.AddCommand(NewLevelsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewRemindersCommand(opts))

	return cmd
}

func (o *RootOptions) store() *content.FSStore {
	return content.NewFSStore(os.DirFS(o.ContentPath))
}

// currentLevel is the level an admin saved through the API, or the
// configured default when none was saved.
func (o *RootOptions) currentLevel(ctx context.Context, db *database.DB) models.Level {
	lvl, ok, err := repository.NewSettingsRepository(db).CurrentLevel(ctx)
	if err != nil {
		slog.Warn("failed to load saved level", "error", err)
	}
	if !ok {
		return o.cfg.DefaultLevel
	}
	return lvl
}

// openDB connects to the configured ledger and brings its schema up to date.
func (o *RootOptions) openDB(ctx context.Context) (*database.DB, error) {
	db, err := database.InitializeWithConfig(o.cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "run migrations", err)
	}
	return db, nil
}
