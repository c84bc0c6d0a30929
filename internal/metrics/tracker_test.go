package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/saffron/internal/metrics"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/testutil"
)

func TestReportEmpty(t *testing.T) {
	store := testutil.SetupTestDB(t)
	tracker := metrics.NewTracker(store)

	report, err := tracker.Report(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Methods)
	assert.Zero(t, report.TotalPredictions)
	assert.Zero(t, report.OverallAccuracy)
}

func TestReportAggregates(t *testing.T) {
	store := testutil.SetupTestDB(t)
	tracker := metrics.NewTracker(store)
	ctx := context.Background()

	require.NoError(t, store.RecordPrediction(ctx, model.MethodRegexRule, 0.9))
	require.NoError(t, store.RecordPrediction(ctx, model.MethodRegexRule, 0.7))
	require.NoError(t, store.RecordPrediction(ctx, model.MethodRegexRule, 0.8))
	require.NoError(t, store.RecordApproval(ctx, model.MethodRegexRule, true))
	require.NoError(t, store.RecordApproval(ctx, model.MethodRegexRule, false))

	require.NoError(t, store.RecordPrediction(ctx, model.MethodLLM, 0.6))
	require.NoError(t, store.RecordApproval(ctx, model.MethodLLM, true))

	report, err := tracker.Report(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Methods, 2)
	// Sorted by prediction volume
	assert.Equal(t, model.MethodRegexRule, report.Methods[0].Method)
	assert.Equal(t, model.MethodLLM, report.Methods[1].Method)

	rule := report.Methods[0]
	assert.Equal(t, 3, rule.Predictions)
	assert.Equal(t, 2, rule.Approvals)
	assert.Equal(t, 1, rule.Correct)
	assert.InDelta(t, 0.5, rule.Accuracy, 1e-9)
	assert.InDelta(t, 0.8, rule.MeanConfidence, 1e-9)

	assert.Equal(t, 4, report.TotalPredictions)
	assert.Equal(t, 3, report.TotalApprovals)
	assert.InDelta(t, 2.0/3.0, report.OverallAccuracy, 1e-9)
}

func TestReportNoApprovals(t *testing.T) {
	store := testutil.SetupTestDB(t)
	tracker := metrics.NewTracker(store)
	ctx := context.Background()

	require.NoError(t, store.RecordPrediction(ctx, model.MethodEmbedding, 0.85))

	report, err := tracker.Report(ctx)
	require.NoError(t, err)

	require.Len(t, report.Methods, 1)
	assert.Zero(t, report.Methods[0].Accuracy, "accuracy undefined without approvals")
	assert.InDelta(t, 0.85, report.Methods[0].MeanConfidence, 1e-9)
}
