// Package metrics aggregates per-method classification outcomes into
// accuracy reports.
package metrics

import (
	"context"
	"sort"
	"sync"

	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// MethodReport summarizes one classification method's track record.
type MethodReport struct {
	Method         model.Method `json:"method"`
	Predictions    int          `json:"predictions"`
	Approvals      int          `json:"approvals"`
	Correct        int          `json:"correct"`
	Accuracy       float64      `json:"accuracy"`
	MeanConfidence float64      `json:"mean_confidence"`
}

// Report is the aggregate accuracy view across all methods.
type Report struct {
	Methods          []MethodReport `json:"methods"`
	TotalPredictions int            `json:"total_predictions"`
	TotalApprovals   int            `json:"total_approvals"`
	OverallAccuracy  float64        `json:"overall_accuracy"`
}

// Tracker assembles accuracy reports from the persisted per-method counters.
type Tracker struct {
	store service.Store
	mu    sync.Mutex
}

// NewTracker creates an accuracy tracker.
func NewTracker(store service.Store) *Tracker {
	return &Tracker{store: store}
}

// Report builds the aggregate and per-method accuracy report.
func (t *Tracker) Report(ctx context.Context) (*Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats, err := t.store.GetMethodStats(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Methods: make([]MethodReport, 0, len(stats))}
	var totalCorrect int

	for _, s := range stats {
		mr := MethodReport{
			Method:      s.Method,
			Predictions: s.Predictions,
			Approvals:   s.Approvals,
			Correct:     s.Correct,
		}
		if s.Approvals > 0 {
			mr.Accuracy = float64(s.Correct) / float64(s.Approvals)
		}
		if s.Predictions > 0 {
			mr.MeanConfidence = s.ConfidenceSum / float64(s.Predictions)
		}
		report.Methods = append(report.Methods, mr)

		report.TotalPredictions += s.Predictions
		report.TotalApprovals += s.Approvals
		totalCorrect += s.Correct
	}

	if report.TotalApprovals > 0 {
		report.OverallAccuracy = float64(totalCorrect) / float64(report.TotalApprovals)
	}

	sort.Slice(report.Methods, func(i, j int) bool {
		return report.Methods[i].Predictions > report.Methods[j].Predictions
	})

	return report, nil
}
