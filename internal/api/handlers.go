package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/halcyonlabs/saffron/internal/approval"
	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/pipeline"
)

// ClassifyRequest is the body for POST /classify.
type ClassifyRequest struct {
	Mode            string  `json:"mode"`
	TransactionIDs  []int64 `json:"transaction_ids"`
	ForceReclassify bool    `json:"force_reclassify"`
}

// LegacyClassifyRequest is the body for the backward-compatible endpoint.
// It has no mode field; it always runs the full cascade.
type LegacyClassifyRequest struct {
	TransactionIDs  []int64 `json:"transaction_ids"`
	ForceReclassify bool    `json:"force_reclassify"`
}

// ClassifyItem is one per-transaction entry in the batch response.
type ClassifyItem struct {
	TransactionID        int64    `json:"transaction_id"`
	PredictedAccountID   *int64   `json:"predicted_account_id"`
	PredictedAccountName string   `json:"predicted_account_name,omitempty"`
	ConfidenceScore      *float64 `json:"confidence_score"`
	ClassificationMethod string   `json:"classification_method,omitempty"`
	RuleID               *int64   `json:"rule_id"`
	SimilarityScore      *float64 `json:"similarity_score"`
	Reason               *string  `json:"reason"`
	Error                string   `json:"error,omitempty"`
}

// ClassifyResponse is the body for POST /classify.
type ClassifyResponse struct {
	Results []ClassifyItem `json:"results"`
}

// ApproveRequest is the body for POST /approve.
type ApproveRequest struct {
	TransactionID       int64  `json:"transaction_id"`
	ApprovedBy          string `json:"approved_by"`
	Notes               string `json:"notes"`
	CreateRule          bool   `json:"create_rule"`
	UpdateVendorMapping bool   `json:"update_vendor_mapping"`
}

// RuleItem is one rule in the rules listing.
type RuleItem struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Pattern      string  `json:"pattern"`
	IsRegex      bool    `json:"is_regex"`
	AccountID    int64   `json:"account_id"`
	Confidence   float64 `json:"confidence"`
	Priority     int     `json:"priority"`
	IsActive     bool    `json:"is_active"`
	MatchCount   int     `json:"match_count"`
	SuccessCount int     `json:"success_count"`
	AccuracyRate float64 `json:"accuracy_rate"`
}

func (s *Server) handleClassify(c *fiber.Ctx) error {
	var req ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return s.classify(c, pipeline.Request{
		Mode:            mode,
		TransactionIDs:  req.TransactionIDs,
		ForceReclassify: req.ForceReclassify,
	})
}

func (s *Server) handleClassifyLegacy(c *fiber.Ctx) error {
	var req LegacyClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	return s.classify(c, pipeline.Request{
		Mode:            model.ModeAuto,
		TransactionIDs:  req.TransactionIDs,
		ForceReclassify: req.ForceReclassify,
	})
}

func (s *Server) classify(c *fiber.Ctx, req pipeline.Request) error {
	items, err := s.orchestrator.ClassifyBatch(c.UserContext(), req)
	if err != nil {
		return s.mapError(c, err)
	}

	resp := ClassifyResponse{Results: make([]ClassifyItem, 0, len(items))}
	for _, item := range items {
		entry := ClassifyItem{TransactionID: item.TransactionID}
		switch {
		case item.Err != nil:
			entry.Error = item.Err.Error()
		case item.Result != nil:
			r := item.Result
			entry.PredictedAccountID = &r.AccountID
			entry.PredictedAccountName = r.AccountName
			entry.ConfidenceScore = &r.Confidence
			entry.ClassificationMethod = string(r.Method)
			if r.RuleID != 0 {
				entry.RuleID = &r.RuleID
			}
			if r.SimilarityScore != 0 {
				entry.SimilarityScore = &r.SimilarityScore
			}
			if r.Reason != "" {
				entry.Reason = &r.Reason
			}
		}
		resp.Results = append(resp.Results, entry)
	}

	return c.JSON(resp)
}

func (s *Server) handleApprove(c *fiber.Ctx) error {
	var req ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.TransactionID == 0 || req.ApprovedBy == "" {
		return badRequest(c, "transaction_id and approved_by are required")
	}

	resp, err := s.approvals.Approve(c.UserContext(), approval.Request{
		TransactionID:       req.TransactionID,
		ApprovedBy:          req.ApprovedBy,
		Notes:               req.Notes,
		CreateRule:          req.CreateRule,
		UpdateVendorMapping: req.UpdateVendorMapping,
	})
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":                resp.Success,
		"message":                resp.Message,
		"rule_created":           resp.RuleCreated,
		"vendor_mapping_updated": resp.VendorMappingUpdated,
	})
}

func (s *Server) handleRules(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	activeOnly := c.QueryBool("active_only", false)

	rules, err := s.store.GetRules(c.UserContext(), limit, activeOnly)
	if err != nil {
		return s.mapError(c, err)
	}

	items := make([]RuleItem, 0, len(rules))
	for i := range rules {
		r := &rules[i]
		items = append(items, RuleItem{
			ID:           r.ID,
			Name:         r.Name,
			Pattern:      r.Pattern,
			IsRegex:      r.IsRegex,
			AccountID:    r.AccountID,
			Confidence:   r.Confidence,
			Priority:     r.Priority,
			IsActive:     r.IsActive,
			MatchCount:   r.MatchCount,
			SuccessCount: r.SuccessCount,
			AccuracyRate: r.AccuracyRate(),
		})
	}

	return c.JSON(fiber.Map{"rules": items, "count": len(items)})
}

func (s *Server) handleAccuracy(c *fiber.Ctx) error {
	report, err := s.tracker.Report(c.UserContext())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(report)
}

// mapError translates the application error taxonomy into HTTP statuses.
func (s *Server) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidMode), errors.Is(err, common.ErrNoTransactions):
		return badRequest(c, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
