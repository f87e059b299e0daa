package llm

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("llm provider not configured")

// Gateway pairs a Config with its provider and enforces the fail-fast rule:
// a missing credential is detected once per turn, before any stream is
// opened, never per fragment.
type Gateway struct {
	cfg      Config
	provider LLMProvider
}

func NewGateway(cfg Config, provider LLMProvider) *Gateway {
	return &Gateway{cfg: cfg, provider: provider}
}

func (g *Gateway) Config() Config {
	return g.cfg
}

// Generate opens a token stream for the given conversation. It returns
// ErrNotConfigured (wrapped) before opening anything when the provider's
// credential is missing.
func (g *Gateway) Generate(ctx context.Context, history []Message, options ...Option) (*Stream, error) {
	if ok, reason := g.cfg.Validate(); !ok {
		return nil, errors.Join(ErrNotConfigured, errors.New(reason))
	}
	return g.provider.ChatStream(ctx, history, options...)
}

// Complete is the non-streaming variant, used where a full response is wanted
// in one piece (e.g. title generation).
func (g *Gateway) Complete(ctx context.Context, history []Message, options ...Option) (string, error) {
	if ok, reason := g.cfg.Validate(); !ok {
		return "", errors.Join(ErrNotConfigured, errors.New(reason))
	}
	return g.provider.Chat(ctx, history, options...)
}
