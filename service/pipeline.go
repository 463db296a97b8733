package service

import (
	"context"
	"strings"

	"github.com/Igor555433/evia-ecosystem/model"
	"github.com/Igor555433/evia-ecosystem/pkg/logger"
	"github.com/google/uuid"
)

// Pipeline orchestrates one full generation run: intake normalization,
// the readiness gate, the fixed stage sequence, fixation, validation,
// persistence and packaging. Stage execution within a run is strictly
// sequential; concurrent runs are isolated by their run directories.
type Pipeline struct {
	settings *Settings
	exec     *StageExecutor
	renderer DocumentRenderer
	newSink  func(runID string) (OutputSink, error)
}

// RunResult summarizes a completed run.
type RunResult struct {
	RunID      string
	BundlePath string
	GateStatus string
	Questions  []string
}

// NewPipeline wires the orchestrator over a filesystem sink rooted at
// runsDir.
func NewPipeline(settings *Settings, prompts *PromptStore, renderer DocumentRenderer, runsDir string) *Pipeline {
	return &Pipeline{
		settings: settings,
		exec:     NewStageExecutor(prompts, NewLLMClient(settings)),
		renderer: renderer,
		newSink: func(runID string) (OutputSink, error) {
			return NewDirSink(runsDir, runID)
		},
	}
}

// NewRunID returns a fresh 12-character hex run identifier.
func NewRunID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// Execute runs the pipeline end to end under the given run id and
// returns the bundle location. Any configuration, prompt or backend
// error aborts the run; a not-ready gate short-circuits after the first
// stage but still produces a valid bundle.
func (p *Pipeline) Execute(ctx context.Context, runID string, intakeRaw map[string]any, evidence []model.Evidence) (*RunResult, error) {
	ctx = logger.WithRunID(ctx, runID)

	sink, err := p.newSink(runID)
	if err != nil {
		return nil, err
	}

	intake := p.settings.SanitizeIntake(intakeRaw)
	if evidence == nil {
		evidence = []model.Evidence{}
	}
	base := map[string]any{
		"run_id":   runID,
		"intake":   intake,
		"evidence": evidence,
	}

	var outputs []model.StageOutput

	status, questions := p.settings.EvaluateGate(intake)
	logger.Info(ctx, "gate evaluated", "status", status, "questions", len(questions))

	s0, err := p.exec.Execute(ctx, "0", merge(base, map[string]any{
		"status":    status,
		"questions": questions,
	}), map[string]any{
		"status":    status,
		"questions": questions,
		"intake":    intake,
		"evidence":  evidence,
		"auto_web":  "disabled",
		"dry_run":   p.settings.DryRun,
	})
	if err != nil {
		return nil, err
	}
	outputs = append(outputs, s0)

	if status == GateNotReady {
		if err := PersistStages(sink, outputs); err != nil {
			return nil, err
		}
		bundle, err := sink.Finalize(runID + ".zip")
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "run short-circuited at gate", "bundle", bundle)
		return &RunResult{RunID: runID, BundlePath: bundle, GateStatus: status, Questions: questions}, nil
	}

	decision, failureReason := p.settings.Decide()
	if failureReason != "" {
		base["failure_reason"] = failureReason
	}

	for _, stage := range p.settings.StageOrder[1:8] {
		llmCtx := merge(base, map[string]any{
			"stage":             stage,
			"evia_cost_45_days": p.settings.CostLiteral,
			"evia_decision":     decision,
			"previous_stage":    outputs[len(outputs)-1].Data,
		})
		out, err := p.exec.Execute(ctx, stage, llmCtx, map[string]any{
			"run_id":            runID,
			"evia_cost_45_days": p.settings.CostLiteral,
			"evia_decision":     decision,
		})
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}

	fixation := p.settings.BuildFixation(runID, intake, decision)
	s5, err := p.exec.Execute(ctx, "5", merge(base, map[string]any{
		"fixation": fixation,
	}), map[string]any{
		"run_id":            runID,
		"evia_cost_45_days": p.settings.CostLiteral,
		FixationKey:         fixation,
	})
	if err != nil {
		return nil, err
	}
	s5.Markdown += "\n" + FixationKey + "\n" + FixationListing(fixation)
	outputs = append(outputs, s5)

	s6, s6Text, err := p.composeTerminal(runID, fixation)
	if err != nil {
		return nil, err
	}
	outputs = append(outputs, s6)

	if err := PersistStages(sink, outputs); err != nil {
		return nil, err
	}

	if _, err := p.renderer.Render(sink, "S6 Final", s6Text); err != nil {
		return nil, err
	}

	bundle, err := sink.Finalize(runID + ".zip")
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "run packaged", "bundle", bundle, "stages", len(outputs))

	return &RunResult{RunID: runID, BundlePath: bundle, GateStatus: status, Questions: questions}, nil
}

// composeTerminal builds the terminal stage record from the fixation
// block: the copied final report when the block is complete,
// OUTPUT INVALID otherwise. Returns the record and its terminal text.
func (p *Pipeline) composeTerminal(runID string, fixation map[string]string) (model.StageOutput, string, error) {
	if missing := MissingFixationFields(fixation); len(missing) > 0 {
		out, err := p.exec.Compose("6", OutputInvalid, map[string]any{
			"run_id":                  runID,
			"status":                  OutputInvalid,
			"missing_fixation_fields": missing,
		})
		return out, OutputInvalid, err
	}

	copied := CopyFixation(fixation)
	text := FinalReport(copied, "OK")
	out, err := p.exec.Compose("6", text, map[string]any{
		"run_id":               runID,
		"status":               "OK",
		"copied_from_fixation": copied,
		"evia_cost_45_days":    copied["evia_cost_45_days"],
		"evia_decision":        copied["evia_decision"],
	})
	return out, text, err
}

// merge overlays extra onto base into a fresh map.
func merge(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
