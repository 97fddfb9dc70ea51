package ir

// Session statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// SessionRecord is a finished what-if session as the journal stores it.
// Seq comes from the logical clock and orders sessions; there are no
// wall-clock timestamps.
type SessionRecord struct {
	ID            string       `json:"id"`
	Seq           int64        `json:"seq"`
	Sheet         string       `json:"sheet"`
	SheetHash     string       `json:"sheet_hash"`
	Status        string       `json:"status"`
	Actions       []ActionSpec `json:"actions"`
	Diffs         []DiffRecord `json:"diffs"`
	StateDigest   string       `json:"state_digest"` // Live state after the session closed
	EngineVersion string       `json:"engine_version"`
	IRVersion     string       `json:"ir_version"`
}

// ToIR renders the record for canonical encoding.
func (r SessionRecord) ToIR() IRObject {
	actions := make(IRArray, len(r.Actions))
	for i, a := range r.Actions {
		actions[i] = a.ToIR()
	}
	diffs := make(IRArray, len(r.Diffs))
	for i, d := range r.Diffs {
		diffs[i] = d.ToIR()
	}
	return IRObject{
		"id":             IRString(r.ID),
		"seq":            IRInt(r.Seq),
		"sheet":          IRString(r.Sheet),
		"sheet_hash":     IRString(r.SheetHash),
		"status":         IRString(r.Status),
		"actions":        actions,
		"diffs":          diffs,
		"state_digest":   IRString(r.StateDigest),
		"engine_version": IRString(r.EngineVersion),
		"ir_version":     IRString(r.IRVersion),
	}
}
