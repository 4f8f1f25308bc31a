// Package llm provides embedding and chat-completion clients backed by the
// OpenAI API or an Azure OpenAI deployment.
package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	"github.com/liliang-cn/ragchat/internal/domain"
)

// Providers supported by NewClient.
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

const providerName = "openai"

// Config holds connection settings shared by the embedder and the completer.
type Config struct {
	// Provider is "azure" or "openai".
	Provider string

	// BaseURL is the OpenAI-compatible base URL (provider "openai").
	BaseURL string

	// Endpoint and APIVersion address an Azure OpenAI resource (provider "azure").
	Endpoint   string
	APIVersion string

	APIKey string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// NewClient builds an openai-go client. Retries are disabled: failures
// surface to the caller on the first attempt.
func NewClient(cfg Config) (openai.Client, error) {
	if cfg.APIKey == "" {
		return openai.Client{}, fmt.Errorf("llm: API key is required")
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	switch cfg.Provider {
	case ProviderAzure:
		if cfg.Endpoint == "" || cfg.APIVersion == "" {
			return openai.Client{}, fmt.Errorf("llm: azure endpoint and api version are required")
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case ProviderOpenAI, "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	default:
		return openai.Client{}, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return openai.NewClient(opts...), nil
}

func providerError(op string, err error) error {
	pe := &domain.ProviderError{Provider: providerName, Op: op, Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
	}
	return pe
}
