// Package pipeline sequences the classification stages and assembles final
// results according to the requested mode.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// DefaultStageThreshold gates stage acceptance in auto mode when no
// per-stage override is configured.
const DefaultStageThreshold = 0.80

// defaultMaxWorkers bounds batch parallelism. The generative backend is the
// limiting resource, so this stays small.
const defaultMaxWorkers = 5

// Stage is a single classification strategy. A nil result with a nil error
// means the stage has nothing to offer and the cascade moves on.
type Stage interface {
	Name() model.Method
	AttemptClassify(ctx context.Context, txn model.Transaction) (*model.StageResult, error)
}

// Config holds orchestrator tuning knobs.
type Config struct {
	// Thresholds overrides the acceptance threshold per result method in
	// auto mode.
	Thresholds map[model.Method]float64
	// MaxWorkers bounds batch parallelism. Zero means defaultMaxWorkers.
	MaxWorkers int
}

// Request is a batch classification request.
type Request struct {
	Mode            model.Mode
	TransactionIDs  []int64
	ForceReclassify bool
}

// ItemResult is the per-transaction outcome inside a batch. Err is set for
// per-item failures such as unknown transaction ids.
type ItemResult struct {
	Result        *model.Result
	Err           error
	TransactionID int64
}

// Orchestrator walks the stage cascade for each transaction and persists the
// accepted result.
type Orchestrator struct {
	store      service.Store
	logger     *slog.Logger
	stages     []Stage
	byMode     map[model.Mode]Stage
	thresholds map[model.Method]float64
	txnLocks   *keyedMutex
	maxWorkers int
}

// New creates an orchestrator over the given stages. Stage order is the
// cascade priority order for auto mode; single-stage modes are resolved by
// stage name.
func New(store service.Store, stages []Stage, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	byMode := make(map[model.Mode]Stage, len(stages))
	for _, stage := range stages {
		switch stage.Name() {
		case model.MethodRegexRule, model.MethodVendorMapping:
			byMode[model.ModeRule] = stage
		case model.MethodEmbedding:
			byMode[model.ModeEmbed] = stage
		case model.MethodML:
			byMode[model.ModeML] = stage
		case model.MethodLLM:
			byMode[model.ModeLLM] = stage
		}
	}

	return &Orchestrator{
		store:      store,
		logger:     logger,
		stages:     stages,
		byMode:     byMode,
		thresholds: cfg.Thresholds,
		txnLocks:   newKeyedMutex(),
		maxWorkers: maxWorkers,
	}
}

// ClassifyBatch classifies each transaction independently with bounded
// parallelism. An unknown mode rejects the whole batch before any stage
// runs; unknown transaction ids become per-item errors. Cancelling the
// context stops unstarted work and leaves finished transactions classified.
func (o *Orchestrator) ClassifyBatch(ctx context.Context, req Request) ([]ItemResult, error) {
	mode, err := model.ParseMode(string(req.Mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidMode, req.Mode)
	}
	req.Mode = mode
	if len(req.TransactionIDs) == 0 {
		return nil, common.ErrNoTransactions
	}

	results := make([]ItemResult, len(req.TransactionIDs))

	sem := make(chan struct{}, o.maxWorkers)
	var wg sync.WaitGroup

	for i, id := range req.TransactionIDs {
		wg.Add(1)
		go func(idx int, transactionID int64) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = ItemResult{TransactionID: transactionID, Err: ctx.Err()}
				return
			}

			result, err := o.ClassifyTransaction(ctx, transactionID, req.Mode, req.ForceReclassify)
			results[idx] = ItemResult{TransactionID: transactionID, Result: result, Err: err}
		}(i, id)
	}

	wg.Wait()
	return results, nil
}

// ClassifyTransaction runs the cascade for a single transaction and persists
// the outcome. Calls for the same transaction id serialize on a per-id lock,
// so the stored result always equals one complete computation.
func (o *Orchestrator) ClassifyTransaction(ctx context.Context, transactionID int64, mode model.Mode, forceReclassify bool) (*model.Result, error) {
	// Normalize here as well as in ClassifyBatch: the empty mode means auto,
	// and anything else unknown is rejected before any lock is taken.
	parsed, err := model.ParseMode(string(mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidMode, mode)
	}
	mode = parsed

	o.txnLocks.lock(transactionID)
	defer o.txnLocks.unlock(transactionID)

	txn, err := o.store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	// Idempotent read: an existing result short-circuits the cascade
	if !forceReclassify {
		existing, getErr := o.store.GetResult(ctx, transactionID)
		if getErr == nil {
			o.logger.Debug("returning existing result",
				"transaction_id", transactionID,
				"method", existing.Method)
			return existing, nil
		}
		if !errors.Is(getErr, common.ErrNotFound) {
			return nil, getErr
		}
	}

	if err := o.store.UpdateTransactionStatus(ctx, transactionID, model.StatusClassifying); err != nil {
		return nil, err
	}

	stageResult, err := o.runCascade(ctx, *txn, mode)
	if err != nil {
		return nil, err
	}

	result := o.buildResult(transactionID, stageResult)

	if err := o.store.SaveResult(ctx, result); err != nil {
		return nil, err
	}
	if err := o.store.UpdateTransactionStatus(ctx, transactionID, model.StatusClassified); err != nil {
		return nil, err
	}

	o.accept(ctx, *txn, stageResult)

	o.logger.Info("transaction classified",
		"transaction_id", transactionID,
		"mode", mode,
		"method", result.Method,
		"account", result.AccountName,
		"confidence", result.Confidence)

	return result, nil
}

// runCascade applies the mode semantics and returns the winning stage result.
// Never returns nil without an error; exhaustion yields the fallback.
func (o *Orchestrator) runCascade(ctx context.Context, txn model.Transaction, mode model.Mode) (*model.StageResult, error) {
	if mode.IsSingleStage() {
		stage, ok := o.byMode[mode]
		if !ok {
			return model.FallbackResult("stage not configured"), nil
		}
		result, err := stage.AttemptClassify(ctx, txn)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}
		if result == nil {
			return model.FallbackResult("stage produced no result"), nil
		}
		return result, nil
	}

	var best *model.StageResult
	for _, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := stage.AttemptClassify(ctx, txn)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}
		if result == nil {
			continue
		}

		// A stage's own degraded fallback is not a candidate; exhaustion
		// produces the cascade-level fallback uniformly below
		if result.Method == model.MethodFallback {
			continue
		}

		if result.Confidence >= o.threshold(result.Method) {
			return result, nil
		}

		if best == nil || result.Confidence > best.Confidence {
			best = result
		}
	}

	if best != nil {
		// No stage met its threshold; surface the best candidate but tag
		// it so reviewers know it was not a clean acceptance
		hybrid := *best
		hybrid.Method = model.MethodHybrid
		return &hybrid, nil
	}

	return model.FallbackResult("all stages exhausted"), nil
}

// threshold returns the acceptance threshold for a result method in auto
// mode. Keyed by the result's method, not the stage's, so vendor mapping and
// regex rule results from the rules stage honor separate overrides.
func (o *Orchestrator) threshold(name model.Method) float64 {
	if t, ok := o.thresholds[name]; ok {
		return t
	}
	return DefaultStageThreshold
}

// accept applies post-acceptance side effects: rule match counts, vendor
// mapping use counts, and accuracy tracking. Failures here are logged but do
// not fail the classification.
func (o *Orchestrator) accept(ctx context.Context, txn model.Transaction, result *model.StageResult) {
	switch result.Method {
	case model.MethodRegexRule:
		if result.RuleID != 0 {
			if err := o.store.IncrementRuleMatchCount(ctx, result.RuleID); err != nil {
				o.logger.Warn("failed to increment rule match count",
					"rule_id", result.RuleID, "error", err)
			}
		}
	case model.MethodVendorMapping:
		if txn.Counterparty != "" {
			if err := o.store.IncrementVendorUseCount(ctx, txn.Counterparty); err != nil {
				o.logger.Warn("failed to increment vendor use count",
					"vendor", txn.Counterparty, "error", err)
			}
		}
	}

	if err := o.store.RecordPrediction(ctx, result.Method, result.Confidence); err != nil {
		o.logger.Warn("failed to record prediction",
			"method", result.Method, "error", err)
	}
}

func (o *Orchestrator) buildResult(transactionID int64, stage *model.StageResult) *model.Result {
	return &model.Result{
		TransactionID:   transactionID,
		AccountID:       stage.AccountID,
		AccountName:     stage.AccountName,
		Confidence:      stage.Confidence,
		Method:          stage.Method,
		Reason:          stage.Reason,
		RuleID:          stage.RuleID,
		SimilarityScore: stage.SimilarityScore,
		ClassifiedAt:    time.Now(),
	}
}
