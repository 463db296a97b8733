package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Igor555433/evia-ecosystem/model"
)

// StageExecutor runs a single pipeline stage: prompt lookup, generation
// backend call, and document assembly into an immutable StageOutput.
type StageExecutor struct {
	prompts *PromptStore
	llm     *LLMClient
}

func NewStageExecutor(prompts *PromptStore, llm *LLMClient) *StageExecutor {
	return &StageExecutor{prompts: prompts, llm: llm}
}

// Execute runs a stage through the generation backend. data carries the
// stage-specific metadata fields; the stage id and generated text are
// filled in here.
func (e *StageExecutor) Execute(ctx context.Context, stage string, llmContext map[string]any, data map[string]any) (model.StageOutput, error) {
	promptText, err := e.prompts.Get(stage)
	if err != nil {
		return model.StageOutput{}, err
	}

	output, err := e.llm.Generate(ctx, stage, promptText, llmContext)
	if err != nil {
		return model.StageOutput{}, fmt.Errorf("stage %s: %w", stage, err)
	}

	return e.assemble(stage, promptText, output, data)
}

// Compose builds a stage record around pre-built text without calling the
// generation backend. Used for the terminal stage, whose text is copied
// from the fixation block rather than generated.
func (e *StageExecutor) Compose(stage, output string, data map[string]any) (model.StageOutput, error) {
	promptText, err := e.prompts.Get(stage)
	if err != nil {
		return model.StageOutput{}, err
	}
	return e.assemble(stage, promptText, output, data)
}

func (e *StageExecutor) assemble(stage, promptText, output string, data map[string]any) (model.StageOutput, error) {
	data["stage"] = stage
	data["llm_output"] = output

	meta, err := marshalIndent(data)
	if err != nil {
		return model.StageOutput{}, fmt.Errorf("stage %s: encode metadata: %w", stage, err)
	}

	return model.StageOutput{
		Stage:    stage,
		Markdown: renderStageMarkdown(stage, promptText, output, meta),
		Data:     data,
	}, nil
}

// renderStageMarkdown lays out the stage document: prompt source, backend
// output, and metadata as labeled sections.
func renderStageMarkdown(stage, promptText, output, metaJSON string) string {
	return fmt.Sprintf("# S%s\n\n"+
		"## Prompt source\n\n"+
		"```md\n%s\n```\n\n"+
		"## LLM output\n\n"+
		"%s\n\n"+
		"## Metadata\n\n"+
		"```json\n%s\n```\n",
		stage, promptText, output, metaJSON)
}

// marshalIndent encodes metadata as two-space-indented JSON without
// escaping HTML characters.
func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
