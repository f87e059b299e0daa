package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	called bool
}

func (s *stubProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	s.called = true
	return "ok", nil
}

func (s *stubProvider) ChatStream(ctx context.Context, history []Message, options ...Option) (*Stream, error) {
	s.called = true
	stream, ch := NewStream(nil, 1)
	go func() {
		defer close(ch)
		ch <- Event{Type: EventCompleted, FinalText: "ok"}
	}()
	return stream, nil
}

func TestGenerateFailsFastWithoutCredential(t *testing.T) {
	provider := &stubProvider{}
	g := NewGateway(Config{Provider: ProviderOpenRouter, Model: "anthropic/claude-3.5-sonnet"}, provider)

	_, err := g.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	// The provider is never contacted for an unconfigured gateway.
	assert.False(t, provider.called)
}

func TestGenerateDelegatesWhenConfigured(t *testing.T) {
	provider := &stubProvider{}
	g := NewGateway(Config{
		Provider:         ProviderOpenRouter,
		Model:            "anthropic/claude-3.5-sonnet",
		OpenRouterAPIKey: "sk-or-test",
	}, provider)

	stream, err := g.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.NotNil(t, stream)
	assert.True(t, provider.called)
}

func TestConfigValidate(t *testing.T) {
	valid, reason := Config{Provider: ProviderOpenAI}.Validate()
	assert.False(t, valid)
	assert.Equal(t, "OPENAI_API_KEY not found", reason)

	valid, _ = Config{Provider: ProviderOpenAI, OpenAIAPIKey: "sk"}.Validate()
	assert.True(t, valid)

	valid, reason = Config{Provider: "groq"}.Validate()
	assert.False(t, valid)
	assert.Contains(t, reason, "unsupported LLM provider")
}

func TestFindModelSpansProviders(t *testing.T) {
	m, ok := FindModel("gpt-4o")
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, m.Provider)

	_, ok = FindModel("not-a-model")
	assert.False(t, ok)
}

func TestAllModelsIsStable(t *testing.T) {
	first := AllModels()
	second := AllModels()
	require.Equal(t, first, second)
	assert.Equal(t, ProviderOpenRouter, first[0].Provider)
}
