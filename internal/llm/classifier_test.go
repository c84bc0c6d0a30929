package llm_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/saffron/internal/llm"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/testutil"
)

// stubClient returns canned responses, failing a fixed number of times first.
type stubClient struct {
	calls    atomic.Int64
	failures int64
	response string
}

func (s *stubClient) Complete(_ context.Context, _ string) (string, error) {
	if s.calls.Add(1) <= s.failures {
		return "", errors.New("connection refused")
	}
	return s.response, nil
}

func testConfig() llm.Config {
	return llm.Config{
		Provider:   "openai",
		APIKey:     "test-key",
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		RateLimit:  1000,
	}
}

func TestAttemptClassifySuggestion(t *testing.T) {
	store := testutil.SetupTestDB(t)
	client := &stubClient{
		response: `{"account_code": "5300", "confidence": 0.88, "reason": "Monthly software subscription charge"}`,
	}
	classifier := llm.NewClassifierWithClient(client, testConfig(), store, nil)
	defer classifier.Close()

	result, err := classifier.AttemptClassify(context.Background(), model.Transaction{
		ID:          1,
		Description: "FIGMA MONTHLY",
		Amount:      -15.00,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.MethodLLM, result.Method)
	assert.Equal(t, "Software Expenses", result.AccountName)
	assert.InDelta(t, 0.88, result.Confidence, 1e-9)
	assert.Equal(t, "Monthly software subscription charge", result.Reason)
}

func TestAttemptClassifyRetriesTransientFailure(t *testing.T) {
	store := testutil.SetupTestDB(t)
	client := &stubClient{
		failures: 2,
		response: `{"account_code": "5100", "confidence": 0.8, "reason": "Fuel purchase at a gas station"}`,
	}
	classifier := llm.NewClassifierWithClient(client, testConfig(), store, nil)
	defer classifier.Close()

	result, err := classifier.AttemptClassify(context.Background(), model.Transaction{
		ID:          1,
		Description: "SHELL OIL 57444",
		Amount:      -52.10,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodLLM, result.Method)
	assert.Equal(t, int64(3), client.calls.Load())
}

func TestAttemptClassifyProviderDownFallsBack(t *testing.T) {
	store := testutil.SetupTestDB(t)
	client := &stubClient{failures: 100}
	classifier := llm.NewClassifierWithClient(client, testConfig(), store, nil)
	defer classifier.Close()

	result, err := classifier.AttemptClassify(context.Background(), model.Transaction{
		ID:          1,
		Description: "MYSTERY CHARGE",
		Amount:      -9.99,
	})
	require.NoError(t, err, "provider failure degrades, it does not error")
	require.NotNil(t, result)

	assert.Equal(t, model.MethodFallback, result.Method)
	assert.Equal(t, "Uncategorized Expenses", result.AccountName)
	assert.InDelta(t, model.FallbackConfidence, result.Confidence, 1e-9)
}

func TestAttemptClassifyUnknownAccountCodeFallsBack(t *testing.T) {
	store := testutil.SetupTestDB(t)
	client := &stubClient{
		response: `{"account_code": "9999", "confidence": 0.9, "reason": "Completely made up account"}`,
	}
	classifier := llm.NewClassifierWithClient(client, testConfig(), store, nil)
	defer classifier.Close()

	result, err := classifier.AttemptClassify(context.Background(), model.Transaction{
		ID:          1,
		Description: "MYSTERY CHARGE",
		Amount:      -9.99,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodFallback, result.Method)
}

func TestAttemptClassifyCachesByFingerprint(t *testing.T) {
	store := testutil.SetupTestDB(t)
	client := &stubClient{
		response: `{"account_code": "5200", "confidence": 0.82, "reason": "Coffee shop food purchase"}`,
	}
	classifier := llm.NewClassifierWithClient(client, testConfig(), store, nil)
	defer classifier.Close()

	ctx := context.Background()
	txn := model.Transaction{ID: 1, Description: "BLUE BOTTLE COFFEE", Amount: -7.50}

	_, err := classifier.AttemptClassify(ctx, txn)
	require.NoError(t, err)
	_, err = classifier.AttemptClassify(ctx, txn)
	require.NoError(t, err)

	assert.Equal(t, int64(1), client.calls.Load(), "identical fingerprints share one provider call")
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := llm.NewClient(llm.Config{Provider: "carrier-pigeon", APIKey: "k"})
	assert.Error(t, err)
}
