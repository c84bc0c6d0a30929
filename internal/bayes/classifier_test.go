package bayes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/saffron/internal/bayes"
	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
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

func TestAttemptClassifyUntrained(t *testing.T) {
	store := testutil.SetupTestDB(t)
	// One labeled account is not enough to distinguish anything.
	seedLabeled(t, store, 1, "STARBUCKS COFFEE", 4, "Meals & Entertainment")

	classifier := bayes.NewClassifier(store, nil)

	result, err := classifier.AttemptClassify(context.Background(), model.Transaction{
		ID:          10,
		Description: "STARBUCKS COFFEE",
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestAttemptClassifyPredicts(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedLabeled(t, store, 1, "STARBUCKS COFFEE DOWNTOWN", 4, "Meals & Entertainment")
	seedLabeled(t, store, 2, "STARBUCKS COFFEE AIRPORT", 4, "Meals & Entertainment")
	seedLabeled(t, store, 3, "SHELL OIL FUEL STATION", 3, "Vehicle Expenses")
	seedLabeled(t, store, 4, "SHELL FUEL HIGHWAY", 3, "Vehicle Expenses")

	classifier := bayes.NewClassifier(store, nil)
	ctx := context.Background()

	result, err := classifier.AttemptClassify(ctx, model.Transaction{
		ID:          10,
		Description: "STARBUCKS COFFEE MIDTOWN",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodML, result.Method)
	assert.Equal(t, "Meals & Entertainment", result.AccountName)
	assert.Equal(t, int64(4), result.AccountID)
	assert.Greater(t, result.Confidence, 0.5)
	assert.LessOrEqual(t, result.Confidence, 1.0)

	result, err = classifier.AttemptClassify(ctx, model.Transaction{
		ID:          11,
		Description: "SHELL FUEL STATION 57444",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Vehicle Expenses", result.AccountName)
}

func TestAttemptClassifyEmptyDescription(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedLabeled(t, store, 1, "STARBUCKS COFFEE", 4, "Meals & Entertainment")
	seedLabeled(t, store, 2, "SHELL OIL", 3, "Vehicle Expenses")

	classifier := bayes.NewClassifier(store, nil)

	result, err := classifier.AttemptClassify(context.Background(), model.Transaction{
		ID:          10,
		Description: "###",
	})
	require.NoError(t, err)
	assert.Nil(t, result, "no tokens means no prediction")
}

func TestTrainPicksUpNewLabels(t *testing.T) {
	store := testutil.SetupTestDB(t)
	seedLabeled(t, store, 1, "STARBUCKS COFFEE", 4, "Meals & Entertainment")

	classifier := bayes.NewClassifier(store, nil)
	ctx := context.Background()

	result, err := classifier.AttemptClassify(ctx, model.Transaction{ID: 10, Description: "SHELL OIL"})
	require.NoError(t, err)
	require.Nil(t, result)

	seedLabeled(t, store, 2, "SHELL OIL FUEL", 3, "Vehicle Expenses")
	require.NoError(t, classifier.Train(ctx))

	result, err = classifier.AttemptClassify(ctx, model.Transaction{ID: 10, Description: "SHELL OIL"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Vehicle Expenses", result.AccountName)
}

// stubStore serves a fixed corpus without a database. Unused Store methods
// panic if reached.
type stubStore struct {
	service.Store
	examples []service.LabeledExample
	accounts map[string]*model.Account
}

func (s *stubStore) GetLabeledExamples(_ context.Context) ([]service.LabeledExample, error) {
	return s.examples, nil
}

func (s *stubStore) FindAccountByName(_ context.Context, name string) (*model.Account, error) {
	if account, ok := s.accounts[name]; ok {
		return account, nil
	}
	return nil, common.ErrNotFound
}

func TestTrainResolvesMissingAccountIDs(t *testing.T) {
	store := &stubStore{
		examples: []service.LabeledExample{
			{Description: "STARBUCKS COFFEE DOWNTOWN", AccountName: "Meals & Entertainment"},
			{Description: "STARBUCKS COFFEE AIRPORT", AccountName: "Meals & Entertainment"},
			{Description: "SHELL OIL FUEL STATION", AccountName: "Vehicle Expenses", AccountID: 3},
		},
		accounts: map[string]*model.Account{
			"Meals & Entertainment": {ID: 4, Code: "5200", Name: "Meals & Entertainment"},
		},
	}
	classifier := bayes.NewClassifier(store, nil)

	result, err := classifier.AttemptClassify(context.Background(), model.Transaction{
		ID:          10,
		Description: "STARBUCKS COFFEE MIDTOWN",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Meals & Entertainment", result.AccountName)
	assert.Equal(t, int64(4), result.AccountID, "id-less labels resolve through the chart of accounts")
}

func TestClassifierName(t *testing.T) {
	classifier := bayes.NewClassifier(nil, nil)
	assert.Equal(t, model.MethodML, classifier.Name())
}
