package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// minReasonLength guards against content-free justifications.
const minReasonLength = 10

// parseSuggestion validates and parses a model response. The response must
// be a JSON object with account_code, confidence, and reason fields; models
// that wrap the object in prose or markdown fences are recovered by
// extracting the first balanced object. A line-based fallback handles models
// that ignore the JSON instruction entirely.
func parseSuggestion(content string) (Suggestion, error) {
	content = cleanMarkdownWrapper(content)

	var jsonResp struct {
		AccountCode string  `json:"account_code"`
		Reason      string  `json:"reason"`
		Confidence  float64 `json:"confidence"`
	}

	raw := extractJSONObject(content)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &jsonResp); err == nil {
			return validateSuggestion(Suggestion{
				AccountCode: jsonResp.AccountCode,
				Confidence:  jsonResp.Confidence,
				Reason:      jsonResp.Reason,
			})
		}
	}

	// Free-text recovery
	var s Suggestion
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ACCOUNT:"):
			s.AccountCode = strings.TrimSpace(strings.TrimPrefix(line, "ACCOUNT:"))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			confStr := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			s.Confidence = parseConfidence(confStr)
		case strings.HasPrefix(line, "REASON:"):
			s.Reason = strings.TrimSpace(strings.TrimPrefix(line, "REASON:"))
		}
	}

	if s.AccountCode == "" {
		return Suggestion{}, fmt.Errorf("no account code found in response")
	}
	return validateSuggestion(s)
}

// validateSuggestion enforces the response contract shared by all providers.
func validateSuggestion(s Suggestion) (Suggestion, error) {
	if s.AccountCode == "" {
		return Suggestion{}, fmt.Errorf("missing account_code in response")
	}
	if s.Confidence < 0.0 || s.Confidence > 1.0 {
		return Suggestion{}, fmt.Errorf("confidence %.2f out of range", s.Confidence)
	}
	if len(s.Reason) < minReasonLength {
		return Suggestion{}, fmt.Errorf("reason too short: %q", s.Reason)
	}
	return s, nil
}

// extractJSONObject returns the first balanced JSON object in the content,
// or empty string when none is found.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '{':
			depth++
		case !inString && ch == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

// parseConfidence handles common formatting issues like percentages and
// trailing punctuation.
func parseConfidence(s string) float64 {
	if strings.HasSuffix(s, "%") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64); err == nil {
			return v / 100.0
		}
		return 0
	}

	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}

// cleanMarkdownWrapper strips markdown code fences that models sometimes
// wrap JSON responses in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}
