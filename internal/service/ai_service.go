package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"englishforyou_backend/internal/config"
	"englishforyou_backend/pkg/logger"
	"englishforyou_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// Generator produces one model completion for a prompt. The assessment and
// lesson services depend on this rather than on the concrete HTTP client.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []AIChatMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message      AIChatMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends one chat completion request and returns the raw assistant
// message. A completion cut off by the token limit is treated as a failure so
// callers never try to parse a truncated document.
func (s *AIService) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []AIChatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: s.config.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.AIRequestErrors.Inc()
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		monitoring.AIRequestErrors.Inc()
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var completion ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		monitoring.AIRequestErrors.Inc()
		return "", fmt.Errorf("AI API returned malformed body: %w", err)
	}
	if completion.Error != nil {
		monitoring.AIRequestErrors.Inc()
		return "", fmt.Errorf("AI API error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		monitoring.AIRequestErrors.Inc()
		return "", fmt.Errorf("AI API returned no choices")
	}

	choice := completion.Choices[0]
	if choice.FinishReason == "length" {
		monitoring.AIRequestErrors.Inc()
		logger.Log.Warn("AI completion truncated by token limit",
			zap.Int("max_tokens", maxTokens))
		return "", fmt.Errorf("AI completion truncated at %d tokens", maxTokens)
	}

	monitoring.AIRequestsTotal.Inc()
	return choice.Message.Content, nil
}
