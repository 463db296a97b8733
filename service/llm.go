package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ErrMissingCredential is returned when live mode is requested without a
// configured API key. Checked before any backend call is made.
var ErrMissingCredential = errors.New("openai api_key is required in live mode")

const systemPrompt = "Ты формируешь текст stage-вывода строго по входному prompt и контексту."

// LLMClient produces stage text: synthesized locally in dry mode,
// requested from the chat-completions backend in live mode. Every live
// call is bounded by the client timeout; failures abort the run with no
// retry.
type LLMClient struct {
	settings   *Settings
	httpClient *http.Client
}

func NewLLMClient(settings *Settings) *LLMClient {
	return &LLMClient{
		settings: settings,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// stagePayload is the request contract with the generation backend.
type stagePayload struct {
	Stage       string           `json:"stage"`
	Prompt      string           `json:"prompt"`
	Context     map[string]any   `json:"context"`
	Constraints stageConstraints `json:"constraints"`
}

type stageConstraints struct {
	EviaCost       string `json:"evia_cost_45_days"`
	MissingMarker  string `json:"missing_marker"`
	NoExternalData bool   `json:"no_external_data"`
}

// Generate returns the generated text for one stage given its
// instructional prompt and context mapping.
func (c *LLMClient) Generate(ctx context.Context, stage, promptText string, stageCtx map[string]any) (string, error) {
	if c.settings.DryRun {
		return dryRunOutput(stage, stageCtx), nil
	}

	if c.settings.OpenAI.APIKey == "" {
		return "", ErrMissingCredential
	}

	payload := stagePayload{
		Stage:   stage,
		Prompt:  promptText,
		Context: stageCtx,
		Constraints: stageConstraints{
			EviaCost:       c.settings.CostLiteral,
			MissingMarker:  c.settings.Missing,
			NoExternalData: true,
		},
	}
	userContent, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stage payload: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.settings.OpenAI.Model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userContent)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.OpenAI.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.settings.OpenAI.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("backend returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// dryRunOutput synthesizes a deterministic placeholder embedding the
// stage id and the sorted context key names.
func dryRunOutput(stage string, stageCtx map[string]any) string {
	keys := make([]string, 0, len(stageCtx))
	for k := range stageCtx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return fmt.Sprintf("[DRY_RUN] Stage %s\nКраткий результат без внешнего LLM.\nКонтекст содержит поля: %s.",
		stage, strings.Join(keys, ", "))
}
