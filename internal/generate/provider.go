// LLM provider construction using maruel/genai.
package generate

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/maruel/genai"
	"github.com/maruel/genai/providers"
)

// Temperature keeps generated files close to deterministic.
const Temperature = 0.2

// Provider adapts a genai.Provider to Completer.
type Provider struct {
	p genai.Provider
}

// NewProvider creates a Provider for the named genai provider and model. An
// empty model lets genai pick the provider's general purpose model.
//
// The API key is required; it is passed explicitly so the provider never falls
// back to reading the environment.
func NewProvider(ctx context.Context, providerName, apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("missing API key for provider " + providerName)
	}
	cfg, ok := providers.All[providerName]
	if !ok || cfg.Factory == nil {
		return nil, errors.New("unknown LLM provider " + providerName)
	}
	opts := []genai.ProviderOption{genai.ProviderOptionAPIKey(apiKey)}
	if model != "" {
		opts = append(opts, genai.ProviderOptionModel(model))
	} else {
		opts = append(opts, genai.ModelGood)
	}
	p, err := cfg.Factory(ctx, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("generation provider ready", "provider", providerName, "model", p.ModelID())
	return &Provider{p: p}, nil
}

// Complete implements Completer.
func (c *Provider) Complete(ctx context.Context, system, user string) (string, error) {
	res, err := c.p.GenSync(ctx,
		genai.Messages{genai.NewTextMessage(user)},
		&genai.GenOptionText{
			SystemPrompt: system,
			Temperature:  Temperature,
		},
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.String()), nil
}
