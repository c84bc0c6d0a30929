package embed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/saffron/internal/embed"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/storage"
	"github.com/halcyonlabs/saffron/internal/testutil"
)

func seedLabeled(t *testing.T, store *storage.SQLiteStore, id int64, description string, accountID int64, accountName string) {
	t.Helper()

	testutil.SeedTransactions(t, store, model.Transaction{
		ID:          id,
		Description: description,
		Amount:      -25.00,
	})

	err := store.SaveResult(context.Background(), &model.Result{
		TransactionID: id,
		AccountID:     accountID,
		AccountName:   accountName,
		Confidence:    0.95,
		Method:        model.MethodRegexRule,
	})
	require.NoError(t, err)
}

func TestAttemptClassifyExactNeighbor(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedLabeled(t, store, 1, "STARBUCKS COFFEE #0417", 4, "Meals & Entertainment")
	seedLabeled(t, store, 2, "SHELL OIL 57444", 3, "Vehicle Expenses")

	matcher := embed.NewMatcher(store, nil, embed.Config{}, nil)

	// Punctuation differences vanish under normalization, so the query
	// embeds to the same vector as the stored example.
	result, err := matcher.AttemptClassify(context.Background(), model.Transaction{
		ID:          10,
		Description: "starbucks coffee #0417",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.MethodEmbedding, result.Method)
	assert.Equal(t, int64(4), result.AccountID)
	assert.Equal(t, "Meals & Entertainment", result.AccountName)
	assert.InDelta(t, 1.0, result.SimilarityScore, 1e-9)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestAttemptClassifyBelowFloor(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedLabeled(t, store, 1, "STARBUCKS COFFEE", 4, "Meals & Entertainment")

	matcher := embed.NewMatcher(store, nil, embed.Config{FloorThreshold: 0.99}, nil)

	result, err := matcher.AttemptClassify(context.Background(), model.Transaction{
		ID:          10,
		Description: "COMPLETELY UNRELATED VENDOR XYZ",
	})
	require.NoError(t, err)
	assert.Nil(t, result, "dissimilar query should yield no result, not an error")
}

func TestAttemptClassifyEmptyCorpus(t *testing.T) {
	store := testutil.SetupTestDB(t)
	matcher := embed.NewMatcher(store, nil, embed.Config{}, nil)

	result, err := matcher.AttemptClassify(context.Background(), model.Transaction{
		ID:          10,
		Description: "STARBUCKS COFFEE",
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestReloadPicksUpNewExamples(t *testing.T) {
	store := testutil.SetupTestDB(t)
	matcher := embed.NewMatcher(store, nil, embed.Config{}, nil)
	ctx := context.Background()

	// First classify loads an empty corpus.
	result, err := matcher.AttemptClassify(ctx, model.Transaction{ID: 10, Description: "ADOBE CREATIVE CLOUD"})
	require.NoError(t, err)
	require.Nil(t, result)

	seedLabeled(t, store, 1, "ADOBE CREATIVE CLOUD", 5, "Software Expenses")
	require.NoError(t, matcher.Reload(ctx))

	result, err = matcher.AttemptClassify(ctx, model.Transaction{ID: 10, Description: "ADOBE CREATIVE CLOUD"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Software Expenses", result.AccountName)
}

func TestMatcherName(t *testing.T) {
	matcher := embed.NewMatcher(nil, nil, embed.Config{}, nil)
	assert.Equal(t, model.MethodEmbedding, matcher.Name())
}
