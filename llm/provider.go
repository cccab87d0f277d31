// Package llm is a small client for chat-completion style language model
// APIs. The analyst talks to it through [Provider]; [OpenAI] implements the
// OpenAI wire format, which Groq, OpenRouter, vLLM and Ollama also serve.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the API answers without any choice.
var ErrEmptyResponse = errors.New("llm: response has no choices")

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Message struct {
	Role    Role
	Content string
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Request is a provider-neutral completion request. System, when set, is
// sent ahead of Messages.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type Response struct {
	Model      string
	Content    string
	StopReason string
	Usage      Usage
}

// Provider sends a request and blocks until the full answer is available.
type Provider interface {
	Complete(ctx context.Context, request Request) (*Response, error)
}

// ProviderError is an error response from the API.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited reports an HTTP 429 answer.
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == 429
}
