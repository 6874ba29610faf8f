// internal/gen/client.go
//
// HTTP client for an OpenAI-compatible chat-completion endpoint
// (Moonshot by default). The wire contract is fixed: an ordered list of
// role-tagged messages goes out, the generated text comes back in
// choices[0].message.content. Any non-2xx status is a hard failure.

package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://api.moonshot.cn/v1/chat/completions"
	defaultModel    = "moonshot-v1-8k"
	defaultTimeout  = 30 * time.Second
)

// Message is one role-tagged chat message ("system" or "user").
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextGenerator produces a completion for an ordered list of chat messages.
// Implemented by ChatClient; tests substitute fakes.
type TextGenerator interface {
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c chatCompletionResponse) firstMessage() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(c.Choices[0].Message.Content)
}

// ChatClient calls a chat-completion endpoint over HTTP with a bounded
// timeout. Zero-value fields fall back to Moonshot defaults.
type ChatClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewChatClient constructs a client. Empty endpoint/model select the
// Moonshot defaults; a non-positive timeout selects 30s.
func NewChatClient(endpoint, apiKey, model string, timeout time.Duration) *ChatClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ChatClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete posts the messages and returns the assistant's reply text.
func (c *ChatClient) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completion: %s", resp.Status)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	content := decoded.firstMessage()
	if content == "" {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return content, nil
}
