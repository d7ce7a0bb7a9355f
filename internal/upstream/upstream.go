// Package upstream holds the single shared conversation with the hosted model.
// The process owns exactly one Conversation; callers serialize access to it.
package upstream

import (
	"context"
	"fmt"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

// Conversation is one stateful upstream chat context.
type Conversation interface {
	// SendSystemPrompt primes the conversation. The reply, if any, is discarded.
	SendSystemPrompt(ctx context.Context, text string) error
	SendUserMessage(ctx context.Context, text string) (*Reply, error)
}

// HealthChecker is implemented by backends that can probe their upstream.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Reply is the upstream answer to one user message.
type Reply struct {
	Text string
	// Usage is nil when the upstream reported no token counts.
	Usage *TokenCounts
}

type TokenCounts struct {
	Prompt     int
	Completion int
	Total      int
}

// Unavailable stands in for a conversation that failed to initialize. Every
// call fails with models.ErrUpstreamUnavailable so the server keeps serving
// the session endpoints.
type Unavailable struct {
	Err error
}

func (u Unavailable) SendSystemPrompt(context.Context, string) error {
	return u.wrapped()
}

func (u Unavailable) SendUserMessage(context.Context, string) (*Reply, error) {
	return nil, u.wrapped()
}

func (u Unavailable) HealthCheck(context.Context) error {
	return u.wrapped()
}

func (u Unavailable) wrapped() error {
	if u.Err == nil {
		return models.ErrUpstreamUnavailable
	}
	return fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, u.Err)
}
