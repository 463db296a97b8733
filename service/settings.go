package service

import (
	"strings"

	"github.com/Igor555433/evia-ecosystem/config"
)

const (
	// DefaultCostLiteral is the fixed 45-day engagement cost quoted in every run.
	DefaultCostLiteral = "150 000 ₽"
	// DefaultMissing stands in for any absent, null or blank intake leaf.
	DefaultMissing = "MISSING/НЕ ПРЕДОСТАВЛЕНО"
)

// Gate statuses and engagement decisions, carried verbatim into stage metadata.
const (
	GateReady    = "ГОТОВО"
	GateNotReady = "НЕ ГОТОВО"

	DecisionAccept = "БЕРЁМ"
	DecisionReject = "НЕ БЕРЁМ"
)

// Settings is the process-wide pipeline configuration: cost literal,
// missing-value sentinel, stage ordering and prompt mapping, plus the
// generation mode. Constructed once at startup and passed by reference
// into every component; never mutated afterwards.
type Settings struct {
	CostLiteral  string
	ExpectedCost string
	Missing      string
	StageOrder   []string
	PromptFiles  map[string]string
	DryRun       bool
	OpenAI       config.OpenAIConfig
}

// NewSettings builds pipeline settings from configuration. The stage order
// and prompt file mapping are fixed; mode and backend credentials come
// from the config file.
func NewSettings(cfg *config.PipelineConfig) *Settings {
	order := []string{"0", "1", "2", "3", "3.5", "3.6", "3.7", "4", "5", "6"}
	files := make(map[string]string, len(order))
	for _, stage := range order {
		files[stage] = "prompt_" + strings.ReplaceAll(stage, ".", "_") + ".md"
	}

	return &Settings{
		CostLiteral:  DefaultCostLiteral,
		ExpectedCost: DefaultCostLiteral,
		Missing:      DefaultMissing,
		StageOrder:   order,
		PromptFiles:  files,
		DryRun:       cfg.Mode != "live",
		OpenAI:       cfg.OpenAI,
	}
}

// Decide computes the engagement decision by checking the cost literal
// against its expected value. Every downstream consumer must carry this
// decision verbatim, never recompute it.
//
// NOTE: with the current fixed settings both sides are the same constant,
// so the reject branch cannot trigger. It is kept until the comparison
// gets a real variable input.
func (s *Settings) Decide() (decision string, failureReason string) {
	if s.CostLiteral == s.ExpectedCost {
		return DecisionAccept, ""
	}
	return DecisionReject, "EVIA_COST mismatch"
}
