package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pscheid92/reactboard/internal/domain"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeStore, err := openStore(cmd.Context(), opts.cfg, true)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer closeStore()

			return writeOutput(cmd.OutOrStdout(), opts.Format,
				map[string]string{"status": "ok", "driver": opts.cfg.StoreDriver},
				fmt.Sprintf("Schema up to date (%s)", opts.cfg.StoreDriver))
		},
	}
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var byCounter bool

	cmd := &cobra.Command{
		Use:   "lookup <message-id>",
		Short: "Show the board mapping for a source message",
		Long: `Show the board mapping for a source message.

With --by-counter the argument is the board entry's message ID instead.

Examples:
  boardctl lookup 1193046000000000001
  boardctl lookup --by-counter 1193046000000000099 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer closeStore()

			find := store.FindByReference
			if byCounter {
				find = store.FindByCounter
			}

			mapping, err := find(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrMappingNotFound) {
				return fmt.Errorf("no mapping for %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}

			return writeOutput(cmd.OutOrStdout(), opts.Format, mapping,
				fmt.Sprintf("reference=%s counter=%s created=%s",
					mapping.ReferenceID, mapping.CounterID, mapping.CreatedAt.UTC().Format(time.RFC3339)))
		},
	}

	cmd.Flags().BoolVar(&byCounter, "by-counter", false, "look up by board entry ID")

	return cmd
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count board mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), opts.cfg, false)
			if err != nil {
				return err
			}
			defer closeStore()

			n, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count failed: %w", err)
			}

			return writeOutput(cmd.OutOrStdout(), opts.Format, map[string]int64{"count": n}, fmt.Sprint(n))
		},
	}
}

func writeOutput(w io.Writer, format string, v any, text string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
