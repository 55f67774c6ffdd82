package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/filebridge/internal/bridge"
	"github.com/berrythewa/filebridge/internal/handlers"
	"github.com/berrythewa/filebridge/internal/storage"
	"github.com/berrythewa/filebridge/internal/types"
	"github.com/berrythewa/filebridge/pkg/format"
)

// journalSource is where history commands read records from: the journal
// file itself, or the running host when it holds the file lock.
type journalSource interface {
	handlers.JournalReader
	Close() error
}

// remoteJournal reads the journal through the host's journal.* methods.
type remoteJournal struct {
	ctx    context.Context
	client *bridge.Client
}

func (r *remoteJournal) GetHistory(options types.HistoryOptions) ([]*types.CallRecord, error) {
	params, err := toParams(options)
	if err != nil {
		return nil, err
	}
	var records []*types.CallRecord
	if err := r.client.CallInto(r.ctx, "journal.history", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *remoteJournal) GetRecord(requestID string) (*types.CallRecord, error) {
	var record types.CallRecord
	if err := r.client.CallInto(r.ctx, "journal.get", map[string]any{"request_id": requestID}, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *remoteJournal) Stats() (*types.JournalStats, error) {
	var stats types.JournalStats
	if err := r.client.CallInto(r.ctx, "journal.stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *remoteJournal) Close() error { return nil }

// openJournal opens the journal file, falling back to the running host when
// the file is locked.
func openJournal(ctx context.Context) (journalSource, error) {
	if !cfg.Journal.Enabled {
		return nil, fmt.Errorf("journal is disabled (set journal.enabled in the config)")
	}

	store, err := openLocalJournal()
	if errors.Is(err, storage.ErrJournalBusy) {
		GetZapLogger().Debug("Journal locked, reading through the host", zap.String("db_path", cfg.Journal.DBPath))
		return &remoteJournal{ctx: ctx, client: newClient(0)}, nil
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openLocalJournal() (*storage.BoltStorage, error) {
	return storage.NewBoltStorage(storage.StorageConfig{
		DBPath:    cfg.Journal.DBPath,
		KeepItems: cfg.Journal.KeepItems,
		Logger:    GetZapLogger().Named("journal"),
	})
}

func toParams(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	return params, nil
}

// historyFormat holds the formatting flags shared by history subcommands.
type historyFormat struct {
	compact  bool
	noIcons  bool
	maxLines int
	maxWidth int
}

func (f *historyFormat) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.compact, "compact", "c", false, "use compact single-line format")
	cmd.Flags().BoolVar(&f.noIcons, "no-icons", false, "disable icons in output")
	cmd.Flags().IntVar(&f.maxLines, "max-lines", 10, "maximum lines to show per payload (0 = no limit)")
	cmd.Flags().IntVar(&f.maxWidth, "max-width", 80, "maximum width per line (0 = no limit)")
}

func (f *historyFormat) options(out io.Writer) format.Options {
	opts := format.DefaultOptions()
	if f.compact {
		opts = format.CompactOptions()
	}
	opts.UseColors = colorsFor(out)
	if f.noIcons {
		opts.UseIcons = false
	}
	if !f.compact {
		opts.MaxLines = f.maxLines
	}
	opts.MaxWidth = f.maxWidth
	return opts
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newHistoryCmd creates the history command with all subcommands
func newHistoryCmd() *cobra.Command {
	list := newHistoryListCmd()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse the journal of handled calls",
		Long: `Browse the journal of calls handled by the host:
  • List journal entries
  • Show a single call by request id
  • Show journal statistics
  • Prune old entries

Without a subcommand, lists the most recent calls.`,
		Args: cobra.NoArgs,
		RunE: list.RunE,
	}
	cmd.Flags().AddFlagSet(list.Flags())

	cmd.AddCommand(list)
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryStatsCmd())
	cmd.AddCommand(newHistoryPruneCmd())

	return cmd
}

// newHistoryListCmd creates the list subcommand
func newHistoryListCmd() *cobra.Command {
	var (
		limit   int
		since   time.Duration
		reverse bool
		method  string
		outcome string
		failed  bool
		style   historyFormat
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries",
		Long: `List journal entries, newest first, with filtering and formatting options.

Examples:
  filebridge history list                    # Show last 10 calls
  filebridge history list -n 50              # Show last 50 calls
  filebridge history list --since 1h         # Calls from the last hour
  filebridge history list --method echo      # Only echo calls
  filebridge history list --outcome error    # Only failed calls
  filebridge history list --compact          # Compact single-line format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options := types.HistoryOptions{
				Limit:   limit,
				Method:  method,
				Outcome: types.Outcome(outcome),
				Reverse: !reverse,
			}
			if since > 0 {
				options.Since = time.Now().Add(-since)
			}
			switch options.Outcome {
			case "", types.OutcomeOK, types.OutcomeError, types.OutcomeDropped, types.OutcomeLost:
			default:
				return fmt.Errorf("unknown outcome %q (want ok, error, dropped or lost)", outcome)
			}

			journal, err := openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer journal.Close()

			records, err := journal.GetHistory(options)
			if err != nil {
				return err
			}
			if failed {
				kept := records[:0]
				for _, record := range records {
					if record.Failed() {
						kept = append(kept, record)
					}
				}
				records = kept
			}

			out := cmd.OutOrStdout()
			if useJSON {
				if records == nil {
					records = []*types.CallRecord{}
				}
				return writeJSON(out, records)
			}
			fmt.Fprintln(out, format.FormatRecordList(records, style.options(out)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of entries to show (0 = all)")
	cmd.Flags().DurationVar(&since, "since", 0, "show entries since duration (e.g. 24h)")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "reverse order (oldest first)")
	cmd.Flags().StringVarP(&method, "method", "m", "", "only calls to this method")
	cmd.Flags().StringVarP(&outcome, "outcome", "o", "", "only calls with this outcome (ok, error, dropped, lost)")
	cmd.Flags().BoolVar(&failed, "failed", false, "only calls that did not produce a result")
	style.bind(cmd)

	return cmd
}

// newHistoryShowCmd creates the show subcommand
func newHistoryShowCmd() *cobra.Command {
	var (
		raw   bool
		style historyFormat
	)

	cmd := &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show a single call",
		Long: `Show a single call by its request id.

Examples:
  filebridge history show 0f8fad5b-d9cb-469f-a165-70867728950e
  filebridge history show 0f8fad5b-d9cb-469f-a165-70867728950e --raw  # Result only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer journal.Close()

			record, err := journal.GetRecord(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case raw:
				_, err := fmt.Fprintln(out, string(record.Result))
				return err
			case useJSON:
				return writeJSON(out, record)
			}

			opts := style.options(out)
			opts.MaxLines = 0 // No line limit for single entry view
			opts.MaxWidth = 0
			opts.Compact = false
			opts.ShowMetadata = true
			fmt.Fprintln(out, format.FormatRecord(record, opts))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "output the raw result without metadata")
	style.bind(cmd)

	return cmd
}

// newHistoryStatsCmd creates the stats subcommand
func newHistoryStatsCmd() *cobra.Command {
	var noIcons bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show journal statistics",
		Long: `Show statistics about the call journal.

Examples:
  filebridge history stats          # Show detailed statistics
  filebridge history stats --json   # Output statistics as JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer journal.Close()

			stats, err := journal.Stats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if useJSON {
				return writeJSON(out, stats)
			}
			opts := format.DefaultOptions()
			opts.UseColors = colorsFor(out)
			opts.UseIcons = !noIcons
			fmt.Fprintln(out, format.New(opts).FormatStats(stats))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noIcons, "no-icons", false, "disable icons in output")
	return cmd
}

// newHistoryPruneCmd creates the prune subcommand
func newHistoryPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop old journal entries",
		Long: `Drop all but the newest journal entries. The host must not be running.

Examples:
  filebridge history prune --keep 100   # Keep the last 100 calls
  filebridge history prune --keep 0     # Empty the journal`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("journal is disabled (set journal.enabled in the config)")
			}
			store, err := openLocalJournal()
			if errors.Is(err, storage.ErrJournalBusy) {
				return fmt.Errorf("%w; stop the host before pruning", err)
			}
			if err != nil {
				return err
			}
			defer store.Close()

			before, err := store.Stats()
			if err != nil {
				return err
			}
			if err := store.Prune(keep); err != nil {
				return fmt.Errorf("failed to prune journal: %w", err)
			}
			removed := before.TotalEntries - keep
			if removed < 0 {
				removed = 0
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d entries\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 1000, "number of newest entries to keep")
	return cmd
}
