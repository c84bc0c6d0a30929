package model

import "fmt"

// Mode selects which pipeline stages run for a classification request.
// Unknown mode strings are rejected up front rather than branching on free
// text at runtime.
type Mode string

// Classification modes.
const (
	ModeAuto  Mode = "auto"
	ModeRule  Mode = "rule"
	ModeEmbed Mode = "embed"
	ModeML    Mode = "ml"
	ModeLLM   Mode = "llm"
)

// ParseMode validates a mode string. An empty string defaults to ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, "":
		return ModeAuto, nil
	case ModeRule:
		return ModeRule, nil
	case ModeEmbed:
		return ModeEmbed, nil
	case ModeML:
		return ModeML, nil
	case ModeLLM:
		return ModeLLM, nil
	default:
		return "", fmt.Errorf("unknown classification mode %q", s)
	}
}

// IsSingleStage reports whether the mode forces exactly one stage.
func (m Mode) IsSingleStage() bool {
	return m != ModeAuto
}
