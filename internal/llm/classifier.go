package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// maxPromptAccounts caps the chart of accounts listed in the prompt.
const maxPromptAccounts = 20

// uncategorizedCode is the chart of accounts code used for degraded results.
const uncategorizedCode = "6000"

// Classifier is the terminal stage of the cascade. It asks an LLM provider
// to classify the transaction and degrades to a fallback result when the
// provider is unreachable or its output cannot be validated. Unlike the
// other stages it always produces a result.
type Classifier struct {
	client    Client
	cache     *suggestionCache
	store     service.Store
	logger    *slog.Logger
	limiter   *rateLimiter
	retryOpts service.RetryOptions
}

// NewClassifier creates a new LLM-based classifier stage.
func NewClassifier(cfg Config, store service.Store, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewClassifierWithClient(client, cfg, store, logger), nil
}

// NewClassifierWithClient creates a classifier stage around an existing
// client. Used by tests to inject a stub provider.
func NewClassifierWithClient(client Client, cfg Config, store service.Store, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:    client,
		cache:     newSuggestionCache(cfg.CacheTTL),
		store:     store,
		logger:    logger,
		limiter:   newRateLimiter(cfg.RateLimit),
		retryOpts: retryOpts,
	}
}

// Name reports the method tag this stage produces.
func (c *Classifier) Name() model.Method {
	return model.MethodLLM
}

// AttemptClassify classifies the transaction via the LLM provider. Results
// are cached by transaction fingerprint and concurrent requests for the same
// fingerprint share a single backend call. A provider failure after all
// retries yields the degraded fallback result rather than an error.
func (c *Classifier) AttemptClassify(ctx context.Context, txn model.Transaction) (*model.StageResult, error) {
	fingerprint := txn.Fingerprint()

	suggestion, err := c.cache.do(fingerprint, func() (Suggestion, error) {
		return c.classify(ctx, txn)
	})
	if err != nil {
		c.logger.Warn("LLM classification degraded to fallback",
			"transaction_id", txn.ID,
			"error", err)
		return c.fallback(ctx, "provider unavailable"), nil
	}

	account, err := c.store.GetAccountByCode(ctx, suggestion.AccountCode)
	if err != nil {
		c.logger.Warn("LLM suggested unknown account",
			"transaction_id", txn.ID,
			"account_code", suggestion.AccountCode)
		return c.fallback(ctx, "suggested account not in chart"), nil
	}

	c.logger.Info("transaction classified by LLM",
		"transaction_id", txn.ID,
		"account", account.Name,
		"confidence", suggestion.Confidence)

	return &model.StageResult{
		Method:      model.MethodLLM,
		AccountID:   account.ID,
		AccountName: account.Name,
		Confidence:  suggestion.Confidence,
		Reason:      suggestion.Reason,
	}, nil
}

// classify performs one rate-limited, retried provider round trip.
func (c *Classifier) classify(ctx context.Context, txn model.Transaction) (Suggestion, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return Suggestion{}, err
	}

	accounts, err := c.store.GetAccounts(ctx)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to load chart of accounts: %w", err)
	}

	prompt := buildPrompt(txn, accounts)

	var suggestion Suggestion
	err = common.WithRetry(ctx, func() error {
		content, completeErr := c.client.Complete(ctx, prompt)
		if completeErr != nil {
			return completeErr
		}
		parsed, parseErr := parseSuggestion(content)
		if parseErr != nil {
			return fmt.Errorf("invalid response: %w", parseErr)
		}
		suggestion = parsed
		return nil
	}, c.retryOpts)
	if err != nil {
		return Suggestion{}, err
	}

	return suggestion, nil
}

// fallback builds the degraded stage result, resolving the uncategorized
// account when possible.
func (c *Classifier) fallback(ctx context.Context, reason string) *model.StageResult {
	result := model.FallbackResult(reason)
	if account, err := c.store.GetAccountByCode(ctx, uncategorizedCode); err == nil {
		result.AccountID = account.ID
		result.AccountName = account.Name
	}
	return result
}

// Close releases the cache's background resources.
func (c *Classifier) Close() {
	c.cache.Close()
}

// buildPrompt formats the classification prompt with the transaction context
// and the available chart of accounts.
func buildPrompt(txn model.Transaction, accounts []model.Account) string {
	var sb strings.Builder

	sb.WriteString("Classify this business transaction into the most appropriate chart of accounts category.\n\n")
	fmt.Fprintf(&sb, "Transaction:\n- Description: %s\n- Amount: %.2f\n", txn.Description, txn.Amount)
	if txn.Counterparty != "" {
		fmt.Fprintf(&sb, "- Counterparty: %s\n", txn.Counterparty)
	}

	sb.WriteString("\nAvailable chart of accounts:\n")
	limit := len(accounts)
	if limit > maxPromptAccounts {
		limit = maxPromptAccounts
	}
	for _, account := range accounts[:limit] {
		fmt.Fprintf(&sb, "- %s: %s\n", account.Code, account.Name)
	}

	sb.WriteString(`
Respond with ONLY a valid JSON object in this exact format:
{
    "account_code": "XXXX",
    "confidence": 0.XX,
    "reason": "Brief explanation of why this classification was chosen"
}

Requirements:
- account_code: One of the codes listed above
- confidence: Number between 0.0 and 1.0 indicating certainty
- reason: At least 10 characters explaining the classification logic

Do not include any text before or after the JSON object.`)

	return sb.String()
}
