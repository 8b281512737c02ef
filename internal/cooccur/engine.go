package cooccur

import (
	"context"
	"fmt"
	"sync"

	"github.com/montanaflynn/stats"

	"geoanomaly/domain/cooccur"
	"geoanomaly/domain/core"
	"geoanomaly/domain/grid"
	"geoanomaly/domain/observation"
	dstats "geoanomaly/domain/stats"
	"geoanomaly/internal/config"
	"geoanomaly/ports"
)

// Engine runs the permutation co-occurrence test: cell category-presence is
// randomly reassigned while preserving each category's global prevalence,
// and the observed co-occurrence count is scored against the simulated null
// distribution.
type Engine struct {
	cfg config.AnalysisConfig
	rng ports.RNGPort
}

// NewEngine creates a cooccurrence engine.
func NewEngine(cfg config.AnalysisConfig, rng ports.RNGPort) *Engine {
	return &Engine{cfg: cfg, rng: rng}
}

// Analyze runs the full co-occurrence test over a grid snapshot. The
// returned result is immutable history; re-analysis produces a new result.
func (e *Engine) Analyze(ctx context.Context, snap *grid.Snapshot, shuffleCount int) (*cooccur.Result, error) {
	if snap == nil || len(snap.Cells) == 0 {
		return nil, core.ErrInsufficientData
	}
	shuffleCount = e.clampShuffles(shuffleCount)

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	runID := core.RunID(core.NewID())
	pairings, err := e.analyzeCells(ctx, runID, snap.Cells, shuffleCount, "full")
	if err != nil {
		return nil, err
	}

	result := &cooccur.Result{
		RunID:        runID,
		Resolution:   snap.Resolution,
		ShuffleCount: shuffleCount,
		CellCount:    len(snap.Cells),
		Pairings:     pairings,
		AnalyzedAt:   core.Now(),
	}
	result.Strongest, result.WindowEffectDetected = e.pickStrongest(pairings)
	return result, nil
}

// AnalyzeStratified repeats the pairing computation independently within
// each population quartile, separating genuine clustering from
// observer-density effects.
func (e *Engine) AnalyzeStratified(ctx context.Context, snap *grid.Snapshot, shuffleCount int) ([]cooccur.StratumResult, error) {
	if snap == nil || len(snap.Cells) == 0 {
		return nil, core.ErrInsufficientData
	}
	shuffleCount = e.clampShuffles(shuffleCount)
	runID := core.RunID(core.NewID())

	strata := make([]cooccur.StratumResult, 0, 4)
	for quartile := 1; quartile <= 4; quartile++ {
		var cells []grid.Cell
		for _, cell := range snap.Cells {
			if cell.PopulationQuartile == quartile {
				cells = append(cells, cell)
			}
		}
		if len(cells) == 0 {
			continue
		}
		pairings, err := e.analyzeCells(ctx, runID, cells, shuffleCount, fmt.Sprintf("q%d", quartile))
		if err != nil {
			return nil, err
		}
		strata = append(strata, cooccur.StratumResult{
			Quartile:  quartile,
			CellCount: len(cells),
			Pairings:  pairings,
		})
	}
	return strata, nil
}

// analyzeCells runs the shuffle test over one cell set. Categories with
// zero prevalence in the set are excluded rather than scored degenerately.
func (e *Engine) analyzeCells(ctx context.Context, runID core.RunID, cells []grid.Cell, shuffleCount int, streamPrefix string) ([]cooccur.PairingResult, error) {
	presence, included := presenceVectors(cells)
	if len(included) < 2 {
		return nil, fmt.Errorf("%w: fewer than two categories present", core.ErrInsufficientData)
	}

	pairings := enumeratePairings(included)
	observed := make([]int, len(pairings))
	for i, p := range pairings {
		observed[i] = countCooccurrence(presence, p.Categories)
	}

	// Null distributions: one simulated count per shuffle per pairing.
	null := make([][]float64, len(pairings))
	for i := range null {
		null[i] = make([]float64, shuffleCount)
	}

	numWorkers := 4
	if shuffleCount < 100 {
		numWorkers = 1
	}

	workChan := make(chan int, shuffleCount)
	errChan := make(chan error, numWorkers)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sim := range workChan {
				select {
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				default:
				}

				// Each simulation gets its own deterministic stream so
				// results do not depend on worker scheduling.
				rng, err := e.rng.Stream(ctx, runID.String(), fmt.Sprintf("%s-sim-%d", streamPrefix, sim), e.cfg.Seed)
				if err != nil {
					errChan <- err
					return
				}

				shuffled := make(map[observation.Category][]bool, len(included))
				for _, cat := range included {
					vec := make([]bool, len(presence[cat]))
					copy(vec, presence[cat])
					// Fisher-Yates label shuffle preserves the category's
					// global prevalence exactly.
					for i := len(vec) - 1; i > 0; i-- {
						j := rng.Intn(i + 1)
						vec[i], vec[j] = vec[j], vec[i]
					}
					shuffled[cat] = vec
				}

				mu.Lock()
				for i, p := range pairings {
					null[i][sim] = float64(countCooccurrence(shuffled, p.Categories))
				}
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < shuffleCount; i++ {
		workChan <- i
	}
	close(workChan)
	wg.Wait()

	select {
	case err := <-errChan:
		return nil, err
	default:
	}

	results := make([]cooccur.PairingResult, len(pairings))
	for i, p := range pairings {
		expected, _ := stats.Mean(null[i])
		stdDev, _ := stats.StandardDeviation(null[i])
		nullMin, _ := stats.Min(null[i])
		nullMax, _ := stats.Max(null[i])
		nullP95, _ := stats.Percentile(null[i], 95)

		obs := float64(observed[i])
		z := dstats.ZScore(obs, expected, stdDev)
		ratio := 0.0
		if expected != 0 {
			ratio = obs / expected
		}

		results[i] = cooccur.PairingResult{
			Pairing:       p,
			ObservedCount: observed[i],
			Expected:      expected,
			StdDev:        stdDev,
			ZScore:        z,
			PValue:        dstats.PValueFromZ(z),
			Ratio:         ratio,
			NullMin:       nullMin,
			NullMax:       nullMax,
			NullP95:       nullP95,
		}
	}
	return results, nil
}

// pickStrongest returns the pairing with the maximum z-score and whether
// any pairing crossed the window-effect threshold. Ties keep the first
// pairing in enumeration order.
func (e *Engine) pickStrongest(pairings []cooccur.PairingResult) (*cooccur.PairingResult, bool) {
	if len(pairings) == 0 {
		return nil, false
	}
	strongest := 0
	detected := false
	for i, p := range pairings {
		if p.ZScore > pairings[strongest].ZScore {
			strongest = i
		}
		if p.ZScore > e.cfg.ZThreshold {
			detected = true
		}
	}
	s := pairings[strongest]
	return &s, detected
}

func (e *Engine) clampShuffles(shuffleCount int) int {
	if shuffleCount <= 0 {
		shuffleCount = e.cfg.ShuffleCount
	}
	if e.cfg.MaxIterations > 0 && shuffleCount > e.cfg.MaxIterations {
		shuffleCount = e.cfg.MaxIterations
	}
	return shuffleCount
}

// presenceVectors converts cells into one boolean presence vector per
// category, returning only categories present somewhere in the set.
// Included categories keep the fixed enumeration order.
func presenceVectors(cells []grid.Cell) (map[observation.Category][]bool, []observation.Category) {
	presence := make(map[observation.Category][]bool)
	var included []observation.Category
	for _, cat := range observation.AllCategories() {
		vec := make([]bool, len(cells))
		prevalence := 0
		for i, cell := range cells {
			if cell.HasCategory(cat) {
				vec[i] = true
				prevalence++
			}
		}
		if prevalence > 0 {
			presence[cat] = vec
			included = append(included, cat)
		}
	}
	return presence, included
}

// enumeratePairings lists every 2-combination of the included categories in
// enumeration order, then the combined all-categories pairing when more
// than two categories are included.
func enumeratePairings(included []observation.Category) []cooccur.Pairing {
	var pairings []cooccur.Pairing
	for i := 0; i < len(included); i++ {
		for j := i + 1; j < len(included); j++ {
			pairings = append(pairings, cooccur.Pairing{
				Categories: []observation.Category{included[i], included[j]},
				Label:      string(included[i]) + "+" + string(included[j]),
			})
		}
	}
	if len(included) > 2 {
		label := ""
		for i, cat := range included {
			if i > 0 {
				label += "+"
			}
			label += string(cat)
		}
		pairings = append(pairings, cooccur.Pairing{
			Categories: append([]observation.Category(nil), included...),
			Label:      label,
		})
	}
	return pairings
}

// countCooccurrence counts cells where every pairing category is present.
func countCooccurrence(presence map[observation.Category][]bool, cats []observation.Category) int {
	if len(cats) == 0 {
		return 0
	}
	n := len(presence[cats[0]])
	count := 0
	for i := 0; i < n; i++ {
		all := true
		for _, cat := range cats {
			if !presence[cat][i] {
				all = false
				break
			}
		}
		if all {
			count++
		}
	}
	return count
}
