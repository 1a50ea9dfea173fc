package llm

import (
	"fmt"
	"strings"

	"prompt-debugger/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	}
}

func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, model, f.OpenRouterReferrer, f.OpenRouterTitle), nil
	case ProviderYandex:
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID, model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

// CreateAdapter builds one client per model, each from its own provider, and
// wraps them in an Adapter.
func (f *Factory) CreateAdapter(models map[string]config.LLMProvider) (*Adapter, error) {
	clients := make(map[string]Client, len(models))
	for m, provider := range models {
		c, err := f.CreateClient(string(provider), m)
		if err != nil {
			return nil, fmt.Errorf("create client for %s: %w", m, err)
		}
		clients[m] = c
	}
	return NewAdapter(clients), nil
}
