package model

import (
	"strings"
	"testing"
)

func TestNormalizedDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "uppercase and strip punctuation",
			in:   "Starbucks Coffee #1234, Seattle",
			want: "STARBUCKS COFFEE 1234 SEATTLE",
		},
		{
			name: "collapse whitespace",
			in:   "  AMAZON   MKTP\tUS  ",
			want: "AMAZON MKTP US",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "only punctuation",
			in:   "***---***",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{Description: tt.in}
			if got := txn.NormalizedDescription(); got != tt.want {
				t.Errorf("NormalizedDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	base := Transaction{Description: "STARBUCKS #1234", Amount: 5.75, Counterparty: "Starbucks"}

	fp := base.Fingerprint()
	if len(fp) != 16 {
		t.Fatalf("Fingerprint() length = %d, want 16", len(fp))
	}
	if fp != base.Fingerprint() {
		t.Error("Fingerprint() is not stable across calls")
	}

	// Punctuation differences normalize away
	variant := Transaction{Description: "Starbucks  #1234!", Amount: 6.10, Counterparty: "STARBUCKS "}
	if variant.Fingerprint() != fp {
		t.Error("normalized variants should share a fingerprint")
	}

	// A different amount magnitude lands in another bucket
	large := base
	large.Amount = 575.00
	if large.Fingerprint() == fp {
		t.Error("different amount buckets should not share a fingerprint")
	}

	other := Transaction{Description: "SHELL OIL", Amount: 5.75}
	if other.Fingerprint() == fp {
		t.Error("different descriptions should not share a fingerprint")
	}
}

func TestSearchText(t *testing.T) {
	txn := Transaction{Description: "Uber *Trip", Counterparty: "uber"}
	got := txn.SearchText()
	if !strings.Contains(got, "UBER TRIP") || !strings.Contains(got, "UBER") {
		t.Errorf("SearchText() = %q, missing normalized parts", got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Mode
		wantErr bool
	}{
		{name: "auto", in: "auto", want: ModeAuto},
		{name: "empty defaults to auto", in: "", want: ModeAuto},
		{name: "rule", in: "rule", want: ModeRule},
		{name: "embed", in: "embed", want: ModeEmbed},
		{name: "ml", in: "ml", want: ModeML},
		{name: "llm", in: "llm", want: ModeLLM},
		{name: "unknown", in: "psychic", wantErr: true},
		{name: "case sensitive", in: "Rule", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseMode(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestModeIsSingleStage(t *testing.T) {
	if ModeAuto.IsSingleStage() {
		t.Error("auto is not a single-stage mode")
	}
	for _, m := range []Mode{ModeRule, ModeEmbed, ModeML, ModeLLM} {
		if !m.IsSingleStage() {
			t.Errorf("%v should be single-stage", m)
		}
	}
}

func TestRuleAccuracyRate(t *testing.T) {
	r := Rule{MatchCount: 0, SuccessCount: 0}
	if got := r.AccuracyRate(); got != 0 {
		t.Errorf("AccuracyRate() with no matches = %f, want 0", got)
	}

	r = Rule{MatchCount: 4, SuccessCount: 3}
	if got := r.AccuracyRate(); got != 0.75 {
		t.Errorf("AccuracyRate() = %f, want 0.75", got)
	}
}

func TestFallbackResult(t *testing.T) {
	r := FallbackResult("no stage matched")
	if r.Method != MethodFallback {
		t.Errorf("Method = %v, want %v", r.Method, MethodFallback)
	}
	if r.AccountName != "Uncategorized" {
		t.Errorf("AccountName = %q", r.AccountName)
	}
	if r.Confidence != FallbackConfidence {
		t.Errorf("Confidence = %f, want %f", r.Confidence, FallbackConfidence)
	}
	if r.Reason != "no stage matched" {
		t.Errorf("Reason = %q", r.Reason)
	}
}
