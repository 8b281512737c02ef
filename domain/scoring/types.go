package scoring

import (
	"geoanomaly/domain/core"
)

// Level is one of the four discrete sub-score levels. Modeling the closed
// set as an enum keeps invalid intermediate values out of the multiplicative
// formula.
type Level string

const (
	LevelFail     Level = "fail"
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// Weight returns the numeric factor for the level.
func (l Level) Weight() float64 {
	switch l {
	case LevelFail:
		return 0.0
	case LevelLow:
		return 0.1
	case LevelModerate:
		return 0.5
	case LevelHigh:
		return 1.0
	}
	return 0.0
}

// IsValid reports whether l is one of the four defined levels.
func (l Level) IsValid() bool {
	switch l {
	case LevelFail, LevelLow, LevelModerate, LevelHigh:
		return true
	}
	return false
}

// ParseLevel converts a stored string into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.IsValid() {
		return "", core.NewInvalidInputError("level", "unknown sub-score level "+s)
	}
	return l, nil
}

// Tier classifies a final quality score.
type Tier string

const (
	TierVerified    Tier = "verified"
	TierProvisional Tier = "provisional"
	TierRejected    Tier = "rejected"
)

// SubScores are the four independent methodological sub-scores assigned by
// upstream review.
type SubScores struct {
	Isolation Level `json:"isolation"`
	Target    Level `json:"target"`
	Integrity Level `json:"integrity"`
	Baseline  Level `json:"baseline"`
}

// Breakdown is the derived quality score. Final is always recomputed from
// the sub-scores and never stored independently of them.
type Breakdown struct {
	SubScores SubScores `json:"sub_scores"`
	// Final is the 0-10 multiplicative score. Any fail-level sub-score
	// forces it to exactly 0: no strength elsewhere compensates for one
	// disqualifying flaw.
	Final float64 `json:"final"`
	Tier  Tier    `json:"tier"`
	// FatalFlaw is true when a single sub-score zeroed the total.
	FatalFlaw bool `json:"fatal_flaw"`
}
