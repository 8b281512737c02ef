package cooccur

import (
	"geoanomaly/domain/core"
	"geoanomaly/domain/observation"
)

// Pairing names an ordered set of categories tested together. The combined
// all-categories pairing uses every category in enumeration order.
type Pairing struct {
	Categories []observation.Category `json:"categories"`
	Label      string                 `json:"label"`
}

// PairingResult scores one pairing against its Monte Carlo null
// distribution.
type PairingResult struct {
	Pairing       Pairing `json:"pairing"`
	ObservedCount int     `json:"observed_count"`
	Expected      float64 `json:"expected"`
	StdDev        float64 `json:"std_dev"`
	ZScore        float64 `json:"z_score"`
	PValue        float64 `json:"p_value"`
	// Ratio is observed/expected, 0 when expected is 0.
	Ratio float64 `json:"ratio"`
	// Null distribution summary kept for reviewer-facing reports.
	NullMin float64 `json:"null_min"`
	NullMax float64 `json:"null_max"`
	NullP95 float64 `json:"null_p95"`
}

// Result is one immutable analysis run. Re-analysis produces a new Result;
// prior ones remain as history.
type Result struct {
	RunID        core.RunID      `json:"run_id"`
	Resolution   float64         `json:"resolution"`
	ShuffleCount int             `json:"shuffle_count"`
	CellCount    int             `json:"cell_count"`
	Pairings     []PairingResult `json:"pairings"`
	// Strongest is the pairing with the maximum z-score. Ties keep the
	// first pairing in the fixed enumeration order.
	Strongest *PairingResult `json:"strongest,omitempty"`
	// WindowEffectDetected is true when any pairing's z-score exceeds the
	// configured threshold (default 2.0).
	WindowEffectDetected bool           `json:"window_effect_detected"`
	Stratified           []StratumResult `json:"stratified,omitempty"`
	AnalyzedAt           core.Timestamp `json:"analyzed_at"`
}

// StratumResult holds the pairing results recomputed within one population
// quartile, separating genuine clustering from observer-density effects.
type StratumResult struct {
	Quartile  int             `json:"quartile"`
	CellCount int             `json:"cell_count"`
	Pairings  []PairingResult `json:"pairings"`
}

// ResolutionPoint is one resolution's contribution to a multi-resolution
// sweep.
type ResolutionPoint struct {
	Resolution        float64 `json:"resolution"`
	CellCount         int     `json:"cell_count"`
	MultiTypeCells    int     `json:"multi_type_cells"`
	MultiTypeFraction float64 `json:"multi_type_fraction"`
	StrongestZ        float64 `json:"strongest_z"`
	WindowEffect      bool    `json:"window_effect"`
}

// MultiResolutionResult reports scale-dependent clustering across grid
// resolutions. Fine resolutions showing anti-correlation while coarse ones
// show positive correlation is an expected outcome, not an error.
type MultiResolutionResult struct {
	RunID  core.RunID        `json:"run_id"`
	Points []ResolutionPoint `json:"points"`
	// Correlation between resolution and multi-type presence fraction.
	ResolutionCorrelation float64        `json:"resolution_correlation"`
	AnalyzedAt            core.Timestamp `json:"analyzed_at"`
}
