package provider

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/xonecas/relic-console/internal/config"
)

type OllamaFactory struct {
	name     string
	endpoint string
	limiter  *rate.Limiter
}

func NewOllamaFactory(name string, endpoint string, rateLimit float64, rateBurst int) *OllamaFactory {
	return &OllamaFactory{
		name:     name,
		endpoint: endpoint,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
	}
}

func (f *OllamaFactory) Name() string { return f.name }

func (f *OllamaFactory) Create(model string, temperature float64) Provider {
	return NewOllama(f.name, f.endpoint, model, temperature, f.limiter)
}

type OpenAIFactory struct {
	name     string
	endpoint string
	apiKey   string
	limiter  *rate.Limiter
}

func NewOpenAIFactory(name string, endpoint, apiKey string, rateLimit float64, rateBurst int) *OpenAIFactory {
	return &OpenAIFactory{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
	}
}

func (f *OpenAIFactory) Name() string { return f.name }

func (f *OpenAIFactory) Create(model string, temperature float64) Provider {
	return NewOpenAI(f.name, f.endpoint, f.apiKey, model, temperature, f.limiter)
}

// FromConfig builds the assistant provider described by cfg. The provider
// named "ollama" talks to an Ollama server; any other name is treated as an
// OpenAI-compatible endpoint whose API key comes from creds.
func FromConfig(cfg config.AssistantConfig, creds *config.Credentials) (Provider, error) {
	if !cfg.Enabled() {
		return nil, ErrProviderNotFound
	}

	reg := NewRegistry()
	if cfg.Provider == "ollama" {
		reg.Register(NewOllamaFactory(cfg.Provider, cfg.Endpoint, cfg.RateLimit, cfg.RateBurst))
	} else {
		key := creds.GetAPIKey(cfg.Provider)
		if key == "" {
			return nil, fmt.Errorf("no API key for provider %q", cfg.Provider)
		}
		reg.Register(NewOpenAIFactory(cfg.Provider, cfg.Endpoint, key, cfg.RateLimit, cfg.RateBurst))
	}

	f, err := reg.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return f.Create(cfg.Model, cfg.Temperature), nil
}
