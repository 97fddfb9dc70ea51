package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSheet    = "statsim/sheet/v1"
	DomainSnapshot = "statsim/snapshot/v1"
	DomainSession  = "statsim/session/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashSheet computes the identity of a compiled sheet. Journaled sessions
// record it so replay can refuse a sheet that changed underneath them.
func HashSheet(spec *SheetSpec) (string, error) {
	canonical, err := MarshalCanonical(spec.ToIR())
	if err != nil {
		return "", fmt.Errorf("HashSheet: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSheet, canonical), nil
}

// HashSnapshot computes the digest of a container state.
func HashSnapshot(snap StatSnapshot) (string, error) {
	canonical, err := MarshalCanonical(snap.ToIR())
	if err != nil {
		return "", fmt.Errorf("HashSnapshot: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// HashSession computes the content hash of a journaled session. The
// journal stores it beside the record and checks it on read.
func HashSession(rec SessionRecord) (string, error) {
	canonical, err := MarshalCanonical(rec.ToIR())
	if err != nil {
		return "", fmt.Errorf("HashSession: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSession, canonical), nil
}

// MustHashSheet is like HashSheet but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHashSheet(spec *SheetSpec) string {
	h, err := HashSheet(spec)
	if err != nil {
		panic(err)
	}
	return h
}

func passesToIR(passes []PassSpec) IRArray {
	arr := make(IRArray, len(passes))
	for i, p := range passes {
		obj := IRObject{"kind": IRString(p.Kind)}
		if p.Label != "" {
			obj["label"] = IRString(p.Label)
		}
		arr[i] = obj
	}
	return arr
}

// ToIR renders the sheet for canonical encoding.
func (s *SheetSpec) ToIR() IRObject {
	stats := make(IRArray, len(s.Stats))
	for i, st := range s.Stats {
		stats[i] = st.ToIR()
	}
	return IRObject{
		"name":       IRString(s.Name),
		"pipeline":   passesToIR(s.Pipeline),
		"stats":      stats,
		"ir_version": IRString(IRVersion),
	}
}

// ToIR renders the stat for canonical encoding.
func (s StatSpec) ToIR() IRObject {
	obj := IRObject{
		"id":   IRString(s.ID),
		"kind": IRString(s.Kind),
	}
	if s.DisplayName != "" {
		obj["display_name"] = IRString(s.DisplayName)
	}
	switch s.Kind {
	case KindPrimary:
		obj["base"] = Num(s.Base)
	case KindDerived:
		obj["formula"] = IRString(s.Formula)
		deps := make(IRArray, len(s.Deps))
		for i, d := range s.Deps {
			deps[i] = IRString(d)
		}
		obj["deps"] = deps
		if len(s.Inputs) > 0 {
			inputs := make(IRArray, len(s.Inputs))
			for i, in := range s.Inputs {
				inputs[i] = IRObject{"stat": IRString(in.Stat), "weight": Num(in.Weight)}
			}
			obj["inputs"] = inputs
		}
		if s.Constant != 0 {
			obj["constant"] = Num(s.Constant)
		}
	}
	if s.Clamp.Min != nil {
		obj["min"] = Num(*s.Clamp.Min)
	}
	if s.Clamp.Max != nil {
		obj["max"] = Num(*s.Clamp.Max)
	}
	if s.Pipeline != nil {
		obj["pipeline"] = passesToIR(s.Pipeline)
	}
	return obj
}

// ToIR renders the snapshot for canonical encoding.
func (s StatSnapshot) ToIR() IRArray {
	arr := make(IRArray, len(s))
	for i, st := range s {
		obj := IRObject{
			"stat":  IRString(st.Stat),
			"base":  Num(st.Base),
			"value": Num(st.Value),
		}
		if len(st.Modifiers) > 0 {
			mods := make(IRArray, len(st.Modifiers))
			for j, m := range st.Modifiers {
				mo := IRObject{"kind": IRString(m.Kind), "value": Num(m.Value)}
				if m.Label != "" {
					mo["label"] = IRString(m.Label)
				}
				if m.Source != "" {
					mo["source"] = IRString(m.Source)
				}
				mods[j] = mo
			}
			obj["modifiers"] = mods
		}
		arr[i] = obj
	}
	return arr
}

// ToIR renders the diff for canonical encoding. Absent sides are omitted.
func (d DiffRecord) ToIR() IRObject {
	obj := IRObject{"stat": IRString(d.Stat)}
	if d.Before != nil {
		obj["before"] = Num(*d.Before)
	}
	if d.After != nil {
		obj["after"] = Num(*d.After)
	}
	return obj
}
