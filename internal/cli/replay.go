package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statsim/internal/session"
	"github.com/roach88/statsim/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayResult reports a journal replay.
type ReplayResult struct {
	Sheet         string                   `json:"sheet"`
	SheetHash     string                   `json:"sheet_hash"`
	Sessions      int                      `json:"sessions"`
	Deterministic bool                     `json:"deterministic"`
	Mismatches    []session.DigestMismatch `json:"mismatches,omitempty"`
	Values        map[string]float64       `json:"values"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <sheet>",
		Short: "Replay confirmed sessions and verify their digests",
		Long: `Rebuild the sheet, re-apply every confirmed session journaled for it in
seq order, and check that each reproduces the state digest recorded when
it was confirmed.

Sessions journaled against a different version of the sheet are ignored.

Exit codes:
  0 - Every session reproduced its digest
  1 - Determinism verification failed
  2 - Command error (database not found, etc.)

Examples:
  statsim replay sheet.cue --db ./statsim.db
  statsim replay sheet.cue --db ./statsim.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "session journal (defaults to the config's database)")

	return cmd
}

func runReplay(opts *ReplayOptions, sheetPath string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	spec, err := LoadSheet(sheetPath)
	if err != nil {
		return formatter.failLoad(err, ExitCommandError)
	}

	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "no journal given: use --db or set database in the config", nil)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	res, err := session.Replay(ctx, spec, st, opts.logger())
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeDatabase, fmt.Sprintf("replay failed: %v", err), nil)
	}

	result := ReplayResult{
		Sheet:         spec.Name,
		SheetHash:     res.SheetHash,
		Sessions:      res.Sessions,
		Deterministic: res.OK(),
		Mismatches:    res.Mismatches,
		Values:        res.Final.Values(),
	}

	if formatter.JSON() {
		if !result.Deterministic {
			if err := formatter.Failure(ErrCodeDigest, "digest mismatch", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "determinism verification failed")
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Sessions == 0 {
		fmt.Fprintf(w, "No confirmed sessions for sheet %s.\n", spec.Name)
		return nil
	}
	fmt.Fprintf(w, "Replayed %d confirmed session(s) for sheet %s\n", result.Sessions, spec.Name)
	if result.Deterministic {
		fmt.Fprintln(w, "✓ All state digests reproduced")
		return nil
	}
	fmt.Fprintf(w, "✗ %d session(s) diverged\n", len(result.Mismatches))
	for _, mm := range result.Mismatches {
		fmt.Fprintf(w, "  %s (seq %d)\n    recorded: %s\n    replayed: %s\n", mm.SessionID, mm.Seq, mm.Expected, mm.Got)
	}
	return NewExitError(ExitFailure, "determinism verification failed")
}
