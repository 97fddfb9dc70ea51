package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/statsim/internal/action"
	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Session  string // show one session in full
	Sheet    string
	Status   string
	After    int64
}

// JournalEntry summarizes a journaled session.
type JournalEntry struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Sheet   string `json:"sheet"`
	Status  string `json:"status"`
	Actions int    `json:"actions"`
	Changed int    `json:"changed"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List or show journaled sessions",
		Long: `List the sessions recorded in a journal in seq order, or show one
session's actions and diffs with --session. The list can be narrowed by
sheet, status and seq.

Examples:
  statsim journal --db ./statsim.db
  statsim journal --db ./statsim.db --sheet knight --status confirmed
  statsim journal --db ./statsim.db --session 0190c3e2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "session journal (defaults to the config's database)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "show this session in full")
	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "only sessions of this sheet")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only sessions with this status (confirmed|cancelled)")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only sessions after this seq")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "no journal given: use --db or set database in the config", nil)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	if opts.Session != "" {
		return showSession(ctx, formatter, st, opts.Session)
	}

	sessions, err := st.FindSessions(ctx, store.SessionQuery{
		Sheet:    opts.Sheet,
		Status:   opts.Status,
		AfterSeq: opts.After,
	})
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	entries := make([]JournalEntry, len(sessions))
	for i, rec := range sessions {
		entries[i] = JournalEntry{
			ID:      rec.ID,
			Seq:     rec.Seq,
			Sheet:   rec.Sheet,
			Status:  rec.Status,
			Actions: len(rec.Actions),
			Changed: len(rec.Diffs),
		}
	}

	if formatter.JSON() {
		return formatter.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No sessions journaled.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSESSION\tSHEET\tSTATUS\tACTIONS\tCHANGED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n", e.Seq, e.ID, e.Sheet, e.Status, e.Actions, e.Changed)
	}
	return tw.Flush()
}

func showSession(ctx context.Context, formatter *OutputFormatter, st *store.Store, id string) error {
	rec, err := st.ReadSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session %s not found", id), nil)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	if formatter.JSON() {
		return formatter.Success(rec)
	}
	return printSession(formatter.Writer, rec)
}

func printSession(w io.Writer, rec ir.SessionRecord) error {
	fmt.Fprintf(w, "Session %s\n", rec.ID)
	fmt.Fprintf(w, "  seq:    %d\n", rec.Seq)
	fmt.Fprintf(w, "  sheet:  %s (%s)\n", rec.Sheet, rec.SheetHash)
	fmt.Fprintf(w, "  status: %s\n", rec.Status)
	fmt.Fprintf(w, "  digest: %s\n", rec.StateDigest)

	fmt.Fprintln(w, "\nActions:")
	for i, a := range rec.Actions {
		fmt.Fprintf(w, "  %d. %s\n", i+1, action.Describe(a))
	}

	fmt.Fprintln(w, "\nDiffs:")
	if len(rec.Diffs) == 0 {
		fmt.Fprintln(w, "  no stat changes")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range rec.Diffs {
		fmt.Fprintf(tw, "  %s\t%s\t->\t%s\n", d.Stat, diffSide(d.Before, "(new)"), diffSide(d.After, "(removed)"))
	}
	return tw.Flush()
}
