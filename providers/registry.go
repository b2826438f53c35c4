package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/anserhq/anser/models"
)

// ProviderStatus reports whether a provider has the environment configuration
// it needs.
type ProviderStatus struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// providerEnv lists the environment variables a provider requires. A provider
// is configured when every listed variable is non-empty.
var providerEnv = []struct {
	id   string
	name string
	keys []string
}{
	{"openai", "OpenAI", []string{"OPENAI_API_KEY"}},
	{"anthropic", "Anthropic", []string{"ANTHROPIC_API_KEY"}},
	{"google", "Google Generative AI", []string{"GOOGLE_GENERATIVE_AI_API_KEY"}},
	{"groq", "Groq", []string{"GROQ_API_KEY"}},
	{"deepseek", "DeepSeek", []string{"DEEPSEEK_API_KEY"}},
	{"fireworks", "Fireworks", []string{"FIREWORKS_API_KEY"}},
	{"xai", "xAI", []string{"XAI_API_KEY"}},
	{"azure", "Azure OpenAI", []string{"AZURE_API_KEY", "AZURE_RESOURCE_NAME"}},
	{"ollama", "Ollama", []string{"OLLAMA_BASE_URL"}},
	{"openai-compatible", "OpenAI Compatible", []string{"OPENAI_COMPATIBLE_API_KEY", "OPENAI_COMPATIBLE_API_BASE_URL"}},
}

// Statuses returns the configuration state of every known provider.
func Statuses() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(providerEnv))
	for _, p := range providerEnv {
		out = append(out, ProviderStatus{ID: p.id, Name: p.name, Configured: Configured(p.id)})
	}
	return out
}

// Configured reports whether the provider's required environment variables
// are all set.
func Configured(providerID string) bool {
	for _, p := range providerEnv {
		if p.id != providerID {
			continue
		}
		for _, key := range p.keys {
			if os.Getenv(key) == "" {
				return false
			}
		}
		return true
	}
	return false
}

// NewModel builds a Model for the given configuration. The provider must be
// configured; unconfigured or unsupported providers return an error.
func NewModel(ctx context.Context, cfg models.ModelConfig) (Model, error) {
	if !Configured(cfg.ProviderID) {
		return nil, fmt.Errorf("provider %s is not configured", cfg.ProviderID)
	}

	switch cfg.ProviderID {
	case "openai":
		return NewOpenAIModel(os.Getenv("OPENAI_API_KEY"), "", cfg.ID), nil
	case "groq":
		return NewOpenAIModel(os.Getenv("GROQ_API_KEY"), "https://api.groq.com/openai/v1", cfg.ID), nil
	case "deepseek":
		return NewOpenAIModel(os.Getenv("DEEPSEEK_API_KEY"), "https://api.deepseek.com", cfg.ID), nil
	case "fireworks":
		return NewOpenAIModel(os.Getenv("FIREWORKS_API_KEY"), "https://api.fireworks.ai/inference/v1", cfg.ID), nil
	case "xai":
		return NewOpenAIModel(os.Getenv("XAI_API_KEY"), "https://api.x.ai/v1", cfg.ID), nil
	case "ollama":
		baseURL := strings.TrimSuffix(os.Getenv("OLLAMA_BASE_URL"), "/") + "/v1"
		return NewOpenAIModel("ollama", baseURL, cfg.ID), nil
	case "openai-compatible":
		return NewOpenAIModel(os.Getenv("OPENAI_COMPATIBLE_API_KEY"), os.Getenv("OPENAI_COMPATIBLE_API_BASE_URL"), cfg.ID), nil
	case "azure":
		endpoint := fmt.Sprintf("https://%s.openai.azure.com", os.Getenv("AZURE_RESOURCE_NAME"))
		clientConfig := openai.DefaultAzureConfig(os.Getenv("AZURE_API_KEY"), endpoint)
		return &OpenAIModel{client: openai.NewClientWithConfig(clientConfig), model: cfg.ID}, nil
	case "google":
		return NewGeminiModel(ctx, os.Getenv("GOOGLE_GENERATIVE_AI_API_KEY"), cfg.ID)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.ProviderID)
	}
}

// DefaultModelConfigs seeds the model picker on first run with one entry per
// commonly used provider.
func DefaultModelConfigs() []models.ModelConfig {
	return []models.ModelConfig{
		{ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: "OpenAI", ProviderID: "openai", Enabled: true, ToolCallType: "native"},
		{ID: "gpt-4o", Name: "GPT-4o", Provider: "OpenAI", ProviderID: "openai", Enabled: true, ToolCallType: "native"},
		{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: "Google Generative AI", ProviderID: "google", Enabled: true, ToolCallType: "manual"},
		{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", Provider: "Groq", ProviderID: "groq", Enabled: true, ToolCallType: "native"},
		{ID: "deepseek-chat", Name: "DeepSeek V3", Provider: "DeepSeek", ProviderID: "deepseek", Enabled: true, ToolCallType: "native"},
	}
}
