package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoanomaly/domain/core"
	"geoanomaly/domain/prediction"
	"geoanomaly/internal"
	"geoanomaly/internal/config"
	"geoanomaly/internal/lifecycle"
	"geoanomaly/internal/testkit"
	"geoanomaly/ports"
)

func newPredictionFixture() (*PredictionService, *testkit.MemoryPredictionRepository, *testkit.CapturePublisher) {
	repo := testkit.NewMemoryPredictionRepository()
	publisher := &testkit.CapturePublisher{}
	svc := NewPredictionService(repo, lifecycle.NewMachine(config.DefaultLifecycleConfig()), publisher, internal.NewDefaultLogger())
	return svc, repo, publisher
}

func qualifyingResult(id core.PredictionID, pValue float64, sampleSize int, effect bool) *prediction.TestResult {
	return &prediction.TestResult{
		ID:             core.ResultID(core.NewID()),
		PredictionID:   id,
		SampleSize:     sampleSize,
		PValue:         pValue,
		EffectObserved: effect,
		QualityScore:   8.0,
		AcceptedAt:     core.Now(),
	}
}

func TestPredictionService_RecomputeStatus(t *testing.T) {
	ctx := context.Background()
	id := core.PredictionID("p1")

	t.Run("unknown prediction", func(t *testing.T) {
		svc, _, _ := newPredictionFixture()
		_, err := svc.RecomputeStatus(ctx, id)
		require.Error(t, err)
		assert.True(t, core.IsNotFoundError(err))
	})

	t.Run("terminal prediction short-circuits", func(t *testing.T) {
		svc, repo, publisher := newPredictionFixture()
		repo.Put(&prediction.Prediction{ID: id, Status: prediction.StatusConfirmed})

		status, err := svc.RecomputeStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, prediction.StatusConfirmed, status)
		assert.Empty(t, publisher.Events)
	})

	t.Run("no qualifying results keeps open", func(t *testing.T) {
		svc, repo, _ := newPredictionFixture()
		repo.Put(&prediction.Prediction{ID: id, Status: prediction.StatusOpen})

		status, err := svc.RecomputeStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, prediction.StatusOpen, status)
	})

	t.Run("strong consistent results confirm and emit", func(t *testing.T) {
		svc, repo, publisher := newPredictionFixture()
		repo.Put(&prediction.Prediction{ID: id, Status: prediction.StatusTesting})
		for i := 0; i < 4; i++ {
			require.NoError(t, repo.SaveResult(ctx, qualifyingResult(id, 0.01, 200, true)))
		}

		status, err := svc.RecomputeStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, prediction.StatusConfirmed, status)

		stored, err := repo.GetPrediction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, prediction.StatusConfirmed, stored.Status)
		require.NotNil(t, stored.ResolvedAt)
		assert.Len(t, publisher.Named(ports.EventPredictionResolved), 1)
	})

	t.Run("contradicting results refute", func(t *testing.T) {
		svc, repo, _ := newPredictionFixture()
		repo.Put(&prediction.Prediction{ID: id, Status: prediction.StatusTesting})
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.SaveResult(ctx, qualifyingResult(id, 0.01, 200, false)))
		}

		status, err := svc.RecomputeStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, prediction.StatusRefuted, status)
	})

	t.Run("update conflict retries with fresh data", func(t *testing.T) {
		svc, repo, _ := newPredictionFixture()
		repo.Put(&prediction.Prediction{ID: id, Status: prediction.StatusOpen})
		require.NoError(t, repo.SaveResult(ctx, qualifyingResult(id, 0.01, 100, true)))
		repo.ConflictsBeforeSuccess = 2

		status, err := svc.RecomputeStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, prediction.StatusTesting, status)
	})

	t.Run("persistent conflict surfaces after retries", func(t *testing.T) {
		svc, repo, _ := newPredictionFixture()
		repo.Put(&prediction.Prediction{ID: id, Status: prediction.StatusOpen})
		require.NoError(t, repo.SaveResult(ctx, qualifyingResult(id, 0.01, 100, true)))
		repo.ConflictsBeforeSuccess = 3

		_, err := svc.RecomputeStatus(ctx, id)
		require.Error(t, err)
		assert.True(t, core.IsConflictError(err))
	})
}

func TestPredictionService_AcceptResult(t *testing.T) {
	ctx := context.Background()
	id := core.PredictionID("p1")

	svc, repo, _ := newPredictionFixture()
	repo.Put(&prediction.Prediction{ID: id, Status: prediction.StatusOpen})

	status, err := svc.AcceptResult(ctx, qualifyingResult(id, 0.01, 100, true))
	require.NoError(t, err)
	assert.Equal(t, prediction.StatusTesting, status)

	results, err := repo.ListQualifyingResults(ctx, id, 7.0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
