package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is a compiled sheet with its content hash.
type CompilationResult struct {
	Sheet *ir.SheetSpec `json:"sheet"`
	Hash  string        `json:"hash"`
	Order []string      `json:"order"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <sheet>",
		Short: "Compile a CUE stat sheet to canonical JSON",
		Long: `Compile a CUE stat sheet to its canonical JSON form.

The canonical form is what the sheet hash is computed over; journaled
sessions are tied to that hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	spec, err := LoadSheet(path)
	if err != nil {
		// Compilation errors are command-level errors (exit code 2)
		return formatter.failLoad(err, ExitCommandError)
	}
	order, err := sheet.BuildOrder(spec)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeCycle, err.Error(), nil)
	}
	hash, err := ir.HashSheet(spec)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Output != "" {
		if err := writeCanonical(spec, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}
	opts.logger().Debug("sheet compiled", "sheet", spec.Name, "hash", hash)

	result := CompilationResult{Sheet: spec, Hash: hash, Order: order}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputCompileText(formatter, result, opts.Output)
}

func outputCompileText(formatter *OutputFormatter, result CompilationResult, outputFile string) error {
	w := formatter.Writer
	spec := result.Sheet

	fmt.Fprintf(w, "✓ Compiled sheet %s: %d stat(s)\n", spec.Name, len(spec.Stats))
	fmt.Fprintf(w, "  hash: %s\n\n", result.Hash)

	byID := make(map[string]ir.StatSpec, len(spec.Stats))
	for _, s := range spec.Stats {
		byID[s.ID] = s
	}
	fmt.Fprintln(w, "Stats (build order):")
	for _, id := range result.Order {
		s := byID[id]
		if s.Kind == ir.KindPrimary {
			fmt.Fprintf(w, "  %s: base %s\n", id, ir.FormatNumber(s.Base))
			continue
		}
		fmt.Fprintf(w, "  %s: %s of %v\n", id, s.Formula, s.Dependencies())
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote canonical JSON to %s\n", outputFile)
	}
	return nil
}

// writeCanonical writes the sheet's canonical JSON, the exact bytes its
// hash covers.
func writeCanonical(spec *ir.SheetSpec, filename string) error {
	data, err := ir.MarshalCanonical(spec.ToIR())
	if err != nil {
		return fmt.Errorf("marshaling sheet: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
