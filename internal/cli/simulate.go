package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/statsim/internal/action"
	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/session"
	"github.com/roach88/statsim/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Confirm  bool
	Database string
}

// SimulateResult is the outcome of one what-if session.
type SimulateResult struct {
	Sheet     string          `json:"sheet"`
	Session   string          `json:"session"`
	Seq       int64           `json:"seq"`
	Status    string          `json:"status"`
	Journaled bool            `json:"journaled"`
	Diffs     []ir.DiffRecord `json:"diffs"`
	Digest    string          `json:"digest"` // Live state after the session closed
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <sheet> <actions.yaml>",
		Short: "Preview a batch of actions as a what-if session",
		Long: `Run a list of actions against a sandbox copy of the sheet and print
the resulting stat diffs.

The session is cancelled unless --confirm is given. With a journal
(--db or the config's database) the live state is first restored from
earlier confirmed sessions, and the session is recorded either way.

The actions file is a YAML list:

  - {op: add_modifier, stat: strength, kind: flat, value: 5, source: sword}
  - {op: set_base, stat: vitality, value: 30}

Exit codes:
  0 - Session simulated
  1 - An action failed or the journal no longer replays
  2 - Command error (missing file, invalid actions, etc.)`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Confirm, "confirm", false, "apply the session to the live state")
	cmd.Flags().StringVar(&opts.Database, "db", "", "session journal (defaults to the config's database)")

	return cmd
}

func runSimulate(opts *SimulateOptions, sheetPath, actionsPath string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	spec, err := LoadSheet(sheetPath)
	if err != nil {
		return formatter.failLoad(err, ExitCommandError)
	}
	actions, err := LoadActions(actionsPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeActions, err.Error(), nil)
	}

	mopts := []session.Option{session.WithLogger(logger)}
	dbPath := opts.database(opts.Database)
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
		}
		defer st.Close()
		mopts = append(mopts, session.WithStore(st))
	}

	m, err := session.NewManager(ctx, spec, mopts...)
	if err != nil {
		if errors.Is(err, session.ErrDigestMismatch) {
			return formatter.fail(ExitFailure, ErrCodeDigest, err.Error(), nil)
		}
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	id, err := m.Begin()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	for _, a := range actions {
		formatter.VerboseLog("  %s", action.Describe(a))
	}
	if _, err := m.Simulate(actions...); err != nil {
		if _, cerr := m.Cancel(ctx); cerr != nil {
			logger.Warn("cancel after failed simulation", "session", id, "error", cerr)
		}
		return formatter.fail(ExitFailure, ErrCodeActions, err.Error(), nil)
	}

	var rec ir.SessionRecord
	if opts.Confirm {
		rec, err = m.Confirm(ctx)
	} else {
		rec, err = m.Cancel(ctx)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	result := SimulateResult{
		Sheet:     spec.Name,
		Session:   rec.ID,
		Seq:       rec.Seq,
		Status:    rec.Status,
		Journaled: dbPath != "",
		Diffs:     rec.Diffs,
		Digest:    rec.StateDigest,
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputSimulateText(formatter.Writer, result)
}

func outputSimulateText(w io.Writer, result SimulateResult) error {
	fmt.Fprintf(w, "Session %s (seq %d) %s\n", result.Session, result.Seq, result.Status)
	if len(result.Diffs) == 0 {
		fmt.Fprintln(w, "  no stat changes")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, d := range result.Diffs {
			fmt.Fprintf(tw, "  %s\t%s\t->\t%s\n", d.Stat, diffSide(d.Before, "(new)"), diffSide(d.After, "(removed)"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if result.Journaled {
		fmt.Fprintln(w, "Journaled.")
	}
	return nil
}

func diffSide(v *float64, absent string) string {
	if v == nil {
		return absent
	}
	return ir.FormatNumber(*v)
}

// LoadActions reads a YAML list of actions and validates each one.
func LoadActions(path string) ([]ir.ActionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actions file: %w", err)
	}

	var actions []ir.ActionSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&actions); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("actions file %s is empty", path)
		}
		return nil, fmt.Errorf("failed to parse actions file: %w", err)
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("actions file %s is empty", path)
	}
	for i, a := range actions {
		if err := action.Validate(a); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}
	return actions, nil
}
