package scoring

import (
	"math"

	"geoanomaly/domain/core"
	"geoanomaly/domain/scoring"
)

// Tier boundaries are inclusive-lower: [8,10] verified, [4,8) provisional,
// [0,4) rejected.
const (
	verifiedFloor    = 8.0
	provisionalFloor = 4.0
)

// Score computes the multiplicative quality score from four independent
// sub-scores. The result is always derived, never stored independently of
// its inputs. A single fail-level sub-score zeroes the total: no strength
// elsewhere compensates for one disqualifying flaw.
func Score(sub scoring.SubScores) (scoring.Breakdown, error) {
	for _, pair := range []struct {
		name  string
		level scoring.Level
	}{
		{"isolation", sub.Isolation},
		{"target", sub.Target},
		{"integrity", sub.Integrity},
		{"baseline", sub.Baseline},
	} {
		if !pair.level.IsValid() {
			return scoring.Breakdown{}, core.NewInvalidInputError(pair.name, "sub-score level is not one of the defined levels")
		}
	}

	final := sub.Isolation.Weight() * sub.Target.Weight() * sub.Integrity.Weight() * sub.Baseline.Weight() * 10
	// Round to the precision used for tier comparison so derived and
	// compared values can never disagree.
	final = math.Round(final*100) / 100

	return scoring.Breakdown{
		SubScores: sub,
		Final:     final,
		Tier:      tierFor(final),
		FatalFlaw: final == 0 && anyFail(sub),
	}, nil
}

func tierFor(final float64) scoring.Tier {
	switch {
	case final >= verifiedFloor:
		return scoring.TierVerified
	case final >= provisionalFloor:
		return scoring.TierProvisional
	default:
		return scoring.TierRejected
	}
}

func anyFail(sub scoring.SubScores) bool {
	return sub.Isolation == scoring.LevelFail ||
		sub.Target == scoring.LevelFail ||
		sub.Integrity == scoring.LevelFail ||
		sub.Baseline == scoring.LevelFail
}
