package ir

// Version constants for the sheet schema and engine.
const (
	// IRVersion is the compiled sheet schema version.
	IRVersion = "1"

	// EngineVersion is the statsim engine version.
	EngineVersion = "0.1.0"
)
