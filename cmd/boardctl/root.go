package main

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/reactboard/internal/adapter/postgres"
	"github.com/pscheid92/reactboard/internal/adapter/sqlite"
	"github.com/pscheid92/reactboard/internal/domain"
	"github.com/pscheid92/reactboard/internal/platform/config"
	"github.com/pscheid92/reactboard/internal/platform/logging"
	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var validFormats = []string{formatText, formatJSON}

// rootOptions holds global flags and the config loaded before every subcommand.
type rootOptions struct {
	Format   string
	LogLevel string

	cfg *config.Config
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "boardctl",
		Short:         "Inspect and migrate the reaction board mapping store",
		Long:          "boardctl reads the same environment as the server (STORE_DRIVER, DATABASE_URL, SQLITE_PATH) and operates on the mapping store directly.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}

			logging.InitLogger(opts.LogLevel, formatText)

			cfg, err := config.LoadStore()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", formatText, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newLookupCmd(opts),
		newCountCmd(opts),
	)

	return cmd
}

// openStore opens the configured store. Postgres is migrated only when migrate is set;
// SQLite always ensures its schema on open.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (domain.MappingStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewMappingRepo(db, clockwork.NewRealClock()), closeSQL(db), nil
	default:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, nil)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return postgres.NewMappingRepo(pool), closePool(pool), nil
	}
}

func closeSQL(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

func closePool(pool *pgxpool.Pool) func() {
	return pool.Close
}
