package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statsim/internal/sheet"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Sheet  string            `json:"sheet,omitempty"`
	Stats  int               `json:"stats,omitempty"`
	Order  []string          `json:"order,omitempty"` // Dependency order stats are built in
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a sheet.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <sheet>",
		Short: "Validate a stat sheet",
		Long: `Validate a CUE stat sheet without writing output.

Checks the sheet against the schema, resolves every dependency and
rejects dependency cycles.

Exit codes:
  0 - Sheet is valid
  1 - Sheet is invalid
  2 - Command error (sheet not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	spec, err := LoadSheet(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Code != ErrCodeNotFound &&
			loadErr.Code != ErrCodeNoFiles && loadErr.Code != ErrCodeScanError {
			return outputValidationErrors(formatter, []ValidationIssue{issueFor(loadErr)})
		}
		return formatter.failLoad(err, ExitFailure)
	}

	// Compile already rejects cycles; the order is reported for -v.
	order, err := sheet.BuildOrder(spec)
	if err != nil {
		return outputValidationErrors(formatter, []ValidationIssue{{Code: ErrCodeCycle, Message: err.Error()}})
	}
	formatter.VerboseLog("Build order: %v", order)
	opts.logger().Debug("sheet validated", "sheet", spec.Name, "stats", len(spec.Stats))

	result := ValidationResult{Valid: true, Sheet: spec.Name, Stats: len(spec.Stats), Order: order}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Sheet %s valid (%d stats)\n", spec.Name, len(spec.Stats))
	return nil
}

func issueFor(e *LoadError) ValidationIssue {
	issue := ValidationIssue{Code: e.Code, Field: e.Field, Message: e.Message}
	if e.Pos.IsValid() {
		issue.Line = e.Pos.Line()
	}
	return issue
}

// outputValidationErrors reports an invalid sheet and exits with 1.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	msg := fmt.Sprintf("validation failed with %d error(s)", len(issues))
	if formatter.JSON() {
		if err := formatter.Failure(issues[0].Code, issues[0].Message, ValidationResult{Errors: issues}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		if issue.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	}
	return NewExitError(ExitFailure, msg)
}
