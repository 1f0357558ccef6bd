package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/dukerupert/checklist/internal/config"
	"github.com/dukerupert/checklist/internal/database"
	"github.com/dukerupert/checklist/internal/format"
	"github.com/dukerupert/checklist/internal/grocery"
	"github.com/dukerupert/checklist/internal/importer"
	"github.com/dukerupert/checklist/internal/logging"
	"github.com/dukerupert/checklist/internal/store"
)

type App struct {
	DBPath   string
	LogLevel string
	Format   string
	Pretty   bool

	cfg    config.Config
	logger *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "checklist",
		Short:        "Grocery checklist backed by SQLite",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Show the list
  checklist list

  # Add and tick off an item
  checklist add "Rice" --quantity "2 kg" --category Pantry
  checklist toggle 4

  # Merge a remote list, skipping names already present
  checklist import --url https://example.com/items.json

  # Serve the JSON API and change feed
  checklist serve --port 8080
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("db") {
			cfg.DBPath = app.DBPath
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = app.LogLevel
		}
		app.cfg = cfg
		app.logger = logging.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.DBPath, "db", envOr("CHECKLIST_DB_PATH", config.Default().DBPath), "Path to the SQLite database file")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("CHECKLIST_LOG_LEVEL", config.Default().LogLevel), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("CHECKLIST_FORMAT", "json"), "Output format (json|yaml)")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newToggleCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newClearBoughtCmd(app))
	cmd.AddCommand(newImportCmd(app))

	return cmd
}

func openDB(ctx context.Context, app *App) (*sqlx.DB, error) {
	db, err := database.Open(ctx, app.cfg.DBPath, app.logger.With("component", "database"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// openList opens the database and returns a refreshed controller over it.
// The caller closes the returned database.
func openList(ctx context.Context, app *App) (*grocery.Controller, *sqlx.DB, error) {
	db, err := openDB(ctx, app)
	if err != nil {
		return nil, nil, err
	}

	items := store.NewItemStore(db)
	list := grocery.NewController(items, grocery.Options{
		AutoCategorize: app.cfg.AutoCategorize,
		Importer: importer.New(items, importer.Options{
			Timeout: app.cfg.ImportTimeout,
			Logger:  app.logger.With("component", "importer"),
		}),
		Logger: app.logger.With("component", "list"),
	})
	if err := list.Refresh(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return list, db, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id: %q", s)
	}
	return id, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.Pretty)
}
