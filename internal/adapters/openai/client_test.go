package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mailpilot/internal/adapters/llm"
)

func TestOpenAIClient_CompleteAgainstCompatibleServer(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID: "cmpl-1",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"category":"general"}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(NewClient("test-key", srv.URL+"/v1"), "llama3", 100, 0.1, 0.9, true, zap.NewNop())
	out, err := c.Complete(context.Background(), llm.CompletionRequest{System: "sys", Prompt: "hello", JSON: true})
	require.NoError(t, err)

	assert.Equal(t, `{"category":"general"}`, out)
	assert.Equal(t, "llama3", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "hello", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, got.ResponseFormat.Type)
}

type stubChat struct {
	resp openai.ChatCompletionResponse
	err  error
	req  openai.ChatCompletionRequest
}

func (s *stubChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.req = req
	return s.resp, s.err
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	c := NewOpenAIClient(&stubChat{}, "m", 10, 0, 1, true, zap.NewNop())
	_, err := c.Complete(context.Background(), llm.CompletionRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestOpenAIClient_JSONModeDisabled(t *testing.T) {
	stub := &stubChat{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
	}}
	c := NewOpenAIClient(stub, "m", 10, 0, 1, false, zap.NewNop())

	out, err := c.Complete(context.Background(), llm.CompletionRequest{Prompt: "x", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Nil(t, stub.req.ResponseFormat)
}
