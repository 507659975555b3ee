package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/llm"
)

const (
	// DefaultBaseURL is the public Anthropic API endpoint
	DefaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	maxErrorBody   = 4096
)

// AnthropicClient is an llm.Completer backed by the Anthropic Messages API
type AnthropicClient struct {
	apiKey      string
	baseURL     string
	modelName   string
	maxTokens   int
	temperature float32
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(
	apiKey string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	timeout time.Duration,
	logger *zap.Logger,
) *AnthropicClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &AnthropicClient{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// APIError is a non-200 reply from the API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Complete sends one Messages API request
func (c *AnthropicClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	prompt := req.Prompt
	if req.JSON {
		prompt += "\n\nReply with the JSON object only."
	}

	body, err := json.Marshal(messagesRequest{
		Model:       c.modelName,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call Anthropic: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic API error: %s", parsed.Error.Message)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			c.logger.Debug("Anthropic completion received",
				zap.String("model", c.modelName),
				zap.String("id", parsed.ID))
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}
