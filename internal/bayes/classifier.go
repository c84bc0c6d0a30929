package bayes

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/jbrukh/bayesian"

	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// minClasses is the smallest corpus that produces a usable model. With a
// single class every prediction is that class, which tells us nothing.
const minClasses = 2

// Classifier is the statistical stage. It trains a TF-IDF naive Bayes model
// over previously labeled transactions and predicts the account whose
// posterior probability is highest. When too little training data exists the
// stage fails closed and reports no result.
type Classifier struct {
	store   service.Store
	logger  *slog.Logger
	model   *bayesian.Classifier
	classes []bayesian.Class
	ids     map[string]int64
	mu      sync.RWMutex
	trained bool
}

// NewClassifier creates an untrained classifier. Train is called lazily on
// first use and can be invoked again after approvals to pick up new labels.
func NewClassifier(store service.Store, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		store:  store,
		logger: logger,
	}
}

// Name reports the method tag this stage produces.
func (c *Classifier) Name() model.Method {
	return model.MethodML
}

// Train rebuilds the model from the labeled corpus. A corpus with fewer than
// two distinct accounts leaves the classifier untrained.
func (c *Classifier) Train(ctx context.Context) error {
	examples, err := c.store.GetLabeledExamples(ctx)
	if err != nil {
		return fmt.Errorf("failed to load labeled examples: %w", err)
	}

	seen := make(map[string]int64)
	for _, ex := range examples {
		seen[ex.AccountName] = ex.AccountID
	}

	// Older results may carry a label with no account id; resolve those
	// against the chart of accounts so predictions stay addressable
	for name, id := range seen {
		if id != 0 {
			continue
		}
		account, lookupErr := c.store.FindAccountByName(ctx, name)
		if lookupErr != nil {
			c.logger.Warn("labeled account not in chart", "account", name)
			continue
		}
		seen[name] = account.ID
	}

	if len(seen) < minClasses {
		c.mu.Lock()
		c.trained = false
		c.model = nil
		c.mu.Unlock()
		c.logger.Debug("statistical model not trained", "distinct_accounts", len(seen))
		return nil
	}

	classes := make([]bayesian.Class, 0, len(seen))
	for name := range seen {
		classes = append(classes, bayesian.Class(name))
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, ex := range examples {
		cl.Learn(tokenize(ex.Description), bayesian.Class(ex.AccountName))
	}
	cl.ConvertTermsFreqToTfIdf()

	c.mu.Lock()
	c.model = cl
	c.classes = classes
	c.ids = seen
	c.trained = true
	c.mu.Unlock()

	c.logger.Debug("statistical model trained",
		"examples", len(examples), "classes", len(classes))
	return nil
}

// AttemptClassify predicts an account for the transaction. Returns nil when
// the model is untrained or the posterior is too diffuse to be meaningful.
func (c *Classifier) AttemptClassify(ctx context.Context, txn model.Transaction) (*model.StageResult, error) {
	c.mu.RLock()
	trained := c.trained
	c.mu.RUnlock()

	if !trained {
		if err := c.Train(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.trained {
		return nil, nil
	}

	terms := tokenize(txn.Description)
	if len(terms) == 0 {
		return nil, nil
	}

	scores, best, _ := c.model.LogScores(terms)

	confidence := posterior(scores, best)
	if math.IsNaN(confidence) || confidence <= 0 {
		return nil, nil
	}

	name := string(c.classes[best])

	c.logger.Debug("statistical match",
		"transaction_id", txn.ID,
		"account", name,
		"confidence", confidence)

	return &model.StageResult{
		Method:      model.MethodML,
		AccountID:   c.ids[name],
		AccountName: name,
		Confidence:  confidence,
	}, nil
}

// posterior converts log scores into the winning class's normalized
// probability using log-sum-exp for stability.
func posterior(scores []float64, best int) float64 {
	max := scores[best]
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - max)
	}
	return 1.0 / sum
}

// tokenize splits a description into lowercase terms for the model. Matching
// is term-based, so punctuation is stripped rather than preserved.
func tokenize(desc string) []string {
	desc = strings.ToLower(desc)
	desc = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, desc)
	return strings.Fields(desc)
}
