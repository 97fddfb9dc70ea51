package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
)

// LoadError is a sheet loading or compilation failure with an error code.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSheet loads and compiles the sheet at path, a .cue file or a
// directory holding one CUE package. Every failure is a *LoadError.
func LoadSheet(path string) (*ir.SheetSpec, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("sheet not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing sheet: %v", err)}
	}
	if info.IsDir() {
		files, err := sheet.FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	v, err := sheet.Load(path)
	if err != nil {
		return nil, toLoadError(ErrCodeLoadFailed, err)
	}
	spec, err := sheet.Compile(v)
	if err != nil {
		return nil, toLoadError(ErrCodeBuildFailed, err)
	}
	return spec, nil
}

// toLoadError converts err, using fallback when it carries no field.
func toLoadError(fallback string, err error) *LoadError {
	var compileErr *sheet.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapCompileErrorToCode(compileErr),
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: fallback, Message: err.Error()}
}

// Error code constants, shared by every command.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Sheet compile failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Journal open/read/write error
	ErrCodeActions     = "E009" // Actions file invalid
	ErrCodeDigest      = "E010" // Journal does not reproduce its digests

	// Sheet errors
	ErrCodeSchema     = "E100" // CUE schema or evaluation error
	ErrCodeSheetName  = "E101" // Missing sheet name
	ErrCodeNoStats    = "E102" // No stats declared
	ErrCodeFormula    = "E103" // Unknown formula
	ErrCodeDependency = "E104" // Unknown or duplicate dependency
	ErrCodeCycle      = "E105" // Dependency cycle
	ErrCodeClamp      = "E106" // Min exceeds max
	ErrCodePipeline   = "E107" // Invalid pipeline stage
	ErrCodeStat       = "E108" // Invalid stat declaration
)

// MapCompileErrorToCode maps a sheet compile error to an error code.
func MapCompileErrorToCode(err *sheet.CompileError) string {
	f := err.Field
	switch {
	case f == "cue":
		return ErrCodeSchema
	case f == "name":
		return ErrCodeSheetName
	case f == "stats":
		return ErrCodeNoStats
	case strings.HasSuffix(f, ".formula"):
		return ErrCodeFormula
	case strings.HasSuffix(f, ".deps"):
		if strings.HasPrefix(err.Message, "dependency cycle") {
			return ErrCodeCycle
		}
		return ErrCodeDependency
	case strings.Contains(f, "pipeline"):
		return ErrCodePipeline
	case strings.Contains(err.Message, "exceeds max"):
		return ErrCodeClamp
	case strings.HasPrefix(f, "stats."):
		return ErrCodeStat
	default:
		return ErrCodeGeneric
	}
}
