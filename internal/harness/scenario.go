package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statsim/internal/action"
	"github.com/roach88/statsim/internal/ir"
)

// Scenario is a scripted sequence of sessions over one sheet.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Sheet is the path of the CUE sheet, relative to the scenario file
	// once loaded.
	Sheet string `yaml:"sheet"`

	// Setup runs as a single confirmed session before the first step.
	Setup []ir.ActionSpec `yaml:"setup,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Expect lists live values required after the last step.
	Expect map[string]float64 `yaml:"expect,omitempty"`
}

// Step is one stage of a scenario.
type Step struct {
	// Apply runs as a one-shot confirmed session. It cannot be combined
	// with simulate, confirm or cancel.
	Apply []ir.ActionSpec `yaml:"apply,omitempty"`

	// Simulate runs as one batch in the open session, opening one first
	// if needed.
	Simulate []ir.ActionSpec `yaml:"simulate,omitempty"`

	// ExpectDiffs is the session's required net diff after Simulate.
	ExpectDiffs []ir.DiffRecord `yaml:"expect_diffs,omitempty"`

	// ExpectError makes Simulate required to fail with an error whose
	// message contains this text. The session stays open.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Confirm or Cancel closes the open session after Simulate.
	Confirm bool `yaml:"confirm,omitempty"`
	Cancel  bool `yaml:"cancel,omitempty"`

	// Preview lists sandbox values required after the step.
	Preview map[string]float64 `yaml:"preview,omitempty"`

	// Expect lists live values required after the step.
	Expect map[string]float64 `yaml:"expect,omitempty"`
}

// LoadScenario reads a scenario file, resolving its sheet path against the
// file's directory. Unknown fields are rejected so typos surface.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Sheet != "" && !filepath.IsAbs(scenario.Sheet) {
		scenario.Sheet = filepath.Join(filepath.Dir(path), scenario.Sheet)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields, step shape and action specs.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Sheet == "" {
		return fmt.Errorf("sheet is required")
	}
	if _, err := os.Stat(s.Sheet); os.IsNotExist(err) {
		return fmt.Errorf("sheet not found: %s", s.Sheet)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if err := validateActions("setup", s.Setup); err != nil {
		return err
	}
	for i, step := range s.Steps {
		if err := validateStep(fmt.Sprintf("steps[%d]", i), step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(at string, step Step) error {
	simulates := len(step.Simulate) > 0
	switch {
	case len(step.Apply) > 0 && (simulates || step.Confirm || step.Cancel):
		return fmt.Errorf("%s: apply cannot be combined with simulate, confirm or cancel", at)
	case step.Confirm && step.Cancel:
		return fmt.Errorf("%s: confirm and cancel are mutually exclusive", at)
	case len(step.ExpectDiffs) > 0 && !simulates:
		return fmt.Errorf("%s: expect_diffs requires simulate", at)
	case step.ExpectError != "" && !simulates:
		return fmt.Errorf("%s: expect_error requires simulate", at)
	case step.ExpectError != "" && len(step.ExpectDiffs) > 0:
		return fmt.Errorf("%s: expect_error and expect_diffs are mutually exclusive", at)
	case len(step.Apply) == 0 && !simulates && !step.Confirm && !step.Cancel &&
		len(step.Expect) == 0 && len(step.Preview) == 0:
		return fmt.Errorf("%s: step does nothing", at)
	}

	// A batch expected to fail may hold the invalid action under test.
	if step.ExpectError == "" {
		if err := validateActions(at+".simulate", step.Simulate); err != nil {
			return err
		}
	}
	if err := validateActions(at+".apply", step.Apply); err != nil {
		return err
	}
	for j, d := range step.ExpectDiffs {
		if d.Stat == "" {
			return fmt.Errorf("%s.expect_diffs[%d]: stat is required", at, j)
		}
		if d.Before == nil && d.After == nil {
			return fmt.Errorf("%s.expect_diffs[%d]: before or after is required", at, j)
		}
	}
	return nil
}

func validateActions(at string, specs []ir.ActionSpec) error {
	for i, spec := range specs {
		if err := action.Validate(spec); err != nil {
			return fmt.Errorf("%s[%d]: %w", at, i, err)
		}
	}
	return nil
}
