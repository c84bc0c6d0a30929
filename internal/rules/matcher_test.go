package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/testutil"
)

func TestAttemptClassifyVendorMapping(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	account, err := store.GetAccountByCode(ctx, "5200")
	require.NoError(t, err)

	require.NoError(t, store.SaveVendorMapping(ctx, &model.VendorMapping{
		VendorName: "BLUE BOTTLE",
		AccountID:  account.ID,
		Confidence: 0.97,
	}))

	matcher := NewMatcher(store, nil)
	result, err := matcher.AttemptClassify(ctx, model.Transaction{
		ID:           1,
		Description:  "POS DEBIT 4412",
		Counterparty: "Blue Bottle",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.MethodVendorMapping, result.Method)
	assert.Equal(t, account.ID, result.AccountID)
	assert.Equal(t, "Meals & Entertainment", result.AccountName)
	assert.InDelta(t, 0.97, result.Confidence, 1e-9)
	assert.Zero(t, result.RuleID)
}

func TestAttemptClassifySeededRule(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	matcher := NewMatcher(store, nil)

	tests := []struct {
		name        string
		description string
		wantAccount string
		wantConf    float64
	}{
		{"office supplies", "STAPLES STORE #0042", "Office Expenses", 0.95},
		{"fuel", "SHELL SERVICE 9921", "Vehicle Expenses", 0.90},
		{"coffee", "STARBUCKS 0417 SEATTLE", "Meals & Entertainment", 0.85},
		{"software", "ADOBE CREATIVE CLOUD", "Software Expenses", 0.90},
		{"ride share", "UBER TRIP HELP.UBER.COM", "Travel Expenses", 0.90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := matcher.AttemptClassify(ctx, model.Transaction{Description: tt.description})
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.Equal(t, model.MethodRegexRule, result.Method)
			assert.Equal(t, tt.wantAccount, result.AccountName)
			assert.InDelta(t, tt.wantConf, result.Confidence, 1e-9)
			assert.NotZero(t, result.RuleID)
		})
	}
}

func TestAttemptClassifyVendorBeatsRule(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	travel, err := store.GetAccountByCode(ctx, "5400")
	require.NoError(t, err)

	// The description matches the seeded coffee rule, but the vendor
	// mapping wins because exact lookups run first
	require.NoError(t, store.SaveVendorMapping(ctx, &model.VendorMapping{
		VendorName: "STARBUCKS",
		AccountID:  travel.ID,
		Confidence: 0.99,
	}))

	matcher := NewMatcher(store, nil)
	result, err := matcher.AttemptClassify(ctx, model.Transaction{
		Description:  "STARBUCKS 0417",
		Counterparty: "Starbucks",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodVendorMapping, result.Method)
	assert.Equal(t, travel.ID, result.AccountID)
}

func TestAttemptClassifyNoMatch(t *testing.T) {
	store := testutil.SetupTestDB(t)

	matcher := NewMatcher(store, nil)
	result, err := matcher.AttemptClassify(context.Background(), model.Transaction{
		Description: "WIRE TRANSFER 8872",
	})
	require.NoError(t, err)
	assert.Nil(t, result, "no match must be nil, not an error")
}

func TestAttemptClassifyLiteralPattern(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &model.Rule{
		Name:       "gym",
		Pattern:    "equinox",
		IsRegex:    false,
		AccountID:  2,
		Confidence: 0.98,
	}))

	matcher := NewMatcher(store, nil)
	result, err := matcher.AttemptClassify(ctx, model.Transaction{Description: "EQUINOX MEMBERSHIP"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodRegexRule, result.Method)

	// Word boundaries: a literal pattern must not match inside a word
	result, err = matcher.AttemptClassify(ctx, model.Transaction{Description: "PREEQUINOXIAL LLC"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestAttemptClassifySkipsInvalidRegex(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	// Highest confidence but an unparseable pattern; matching must skip
	// it and still find the valid rule below
	require.NoError(t, store.CreateRule(ctx, &model.Rule{
		Name:       "broken",
		Pattern:    "(unclosed",
		IsRegex:    true,
		AccountID:  2,
		Confidence: 0.99,
	}))
	require.NoError(t, store.CreateRule(ctx, &model.Rule{
		Name:       "postage",
		Pattern:    "(USPS|FEDEX)",
		IsRegex:    true,
		AccountID:  2,
		Confidence: 0.9,
	}))

	matcher := NewMatcher(store, nil)
	result, err := matcher.AttemptClassify(ctx, model.Transaction{Description: "USPS PO 440122"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Office Expenses", result.AccountName)
}

func TestMatcherName(t *testing.T) {
	matcher := NewMatcher(testutil.SetupTestDB(t), nil)
	assert.Equal(t, model.MethodRegexRule, matcher.Name())
}
