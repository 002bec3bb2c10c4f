// Package deepseek calls an OpenAI-compatible chat-completions endpoint.
package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyforge-app/internal/domain/stories"
)

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type completionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage *stories.Usage `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Complete implements stories.Completer.
func (c *Client) Complete(ctx context.Context, p stories.Prompt) (stories.Completion, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return stories.Completion{}, fmt.Errorf("deepseek: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return stories.Completion{}, fmt.Errorf("deepseek: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return stories.Completion{}, fmt.Errorf("deepseek: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return stories.Completion{}, fmt.Errorf("deepseek: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return stories.Completion{}, fmt.Errorf("deepseek: API error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return stories.Completion{}, fmt.Errorf("deepseek: API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return stories.Completion{}, fmt.Errorf("deepseek: %w: %v", stories.ErrMalformedCompletion, err)
	}
	if len(out.Choices) == 0 {
		return stories.Completion{}, stories.ErrMalformedCompletion
	}

	return stories.Completion{Content: out.Choices[0].Message.Content, Usage: out.Usage}, nil
}
