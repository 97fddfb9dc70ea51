package ir

// SheetSpec is a compiled stat sheet.
type SheetSpec struct {
	Name     string     `json:"name"`
	Pipeline []PassSpec `json:"pipeline"`
	Stats    []StatSpec `json:"stats"` // Declaration order
}

// Stat kinds.
const (
	KindPrimary = "primary"
	KindDerived = "derived"
)

// StatSpec describes one stat on a sheet.
type StatSpec struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name,omitempty"`
	Kind        string      `json:"kind"` // "primary" or "derived"
	Base        float64     `json:"base,omitempty"`
	Formula     string      `json:"formula,omitempty"`
	Deps        []string    `json:"deps,omitempty"`
	Inputs      []InputSpec `json:"inputs,omitempty"` // Weighted formula coefficients
	Constant    float64     `json:"constant,omitempty"`
	Clamp       ClampSpec   `json:"clamp"`
	Pipeline    []PassSpec  `json:"pipeline,omitempty"` // Overrides the sheet pipeline
}

// Dependencies returns every stat the formula reads: Deps followed by
// Inputs, without duplicates.
func (s StatSpec) Dependencies() []string {
	seen := make(map[string]bool, len(s.Deps)+len(s.Inputs))
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, d := range s.Deps {
		add(d)
	}
	for _, in := range s.Inputs {
		add(in.Stat)
	}
	return out
}

// InputSpec is a weighted formula input.
type InputSpec struct {
	Stat   string  `json:"stat"`
	Weight float64 `json:"weight"`
}

// ClampSpec bounds a stat's final value. Nil means unbounded.
type ClampSpec struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// PassSpec is one pipeline stage. Kind selects both the modifier type the
// stage folds and the fold itself. Label, when set, narrows the stage to
// modifiers carrying that label.
type PassSpec struct {
	Kind  string `json:"kind"`
	Label string `json:"label,omitempty"`
}

// Modifier kinds, shared by pipeline stages and actions.
const (
	ModFlat     = "flat"
	ModPercent  = "percent"
	ModFactor   = "factor"
	ModOverride = "override"
)

// ValidModifierKinds lists the accepted modifier and stage kinds.
var ValidModifierKinds = map[string]bool{
	ModFlat:     true,
	ModPercent:  true,
	ModFactor:   true,
	ModOverride: true,
}

// DiffRecord is a serializable stat diff. A nil side is absent.
type DiffRecord struct {
	Stat   string   `json:"stat" yaml:"stat"`
	Before *float64 `json:"before,omitempty" yaml:"before,omitempty"`
	After  *float64 `json:"after,omitempty" yaml:"after,omitempty"`
}

// ModifierState is a serializable attached modifier.
type ModifierState struct {
	Kind   string  `json:"kind"`
	Value  float64 `json:"value"`
	Label  string  `json:"label,omitempty"`
	Source string  `json:"source,omitempty"`
}

// StatState is a serializable view of one stat.
type StatState struct {
	Stat      string          `json:"stat"`
	Base      float64         `json:"base"`
	Value     float64         `json:"value"`
	Modifiers []ModifierState `json:"modifiers,omitempty"`
}

// StatSnapshot lists stats in container table order.
type StatSnapshot []StatState

// Values returns the snapshot as a stat to value map.
func (s StatSnapshot) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, st := range s {
		out[st.Stat] = st.Value
	}
	return out
}
