package providers

import (
	"errors"
	"fmt"
	"sort"

	"provsync/config/models"
	"provsync/internal/utils"
)

// Provider describes how a provider type is configured
type Provider interface {
	// Type returns the provider type handled (e.g. "anthropic", "ollama")
	Type() models.ProviderType
	// DisplayName returns a human readable name for the type
	DisplayName() string
	// DefaultBaseURL returns the default base URL, empty when the type has none
	DefaultBaseURL() string
	// ValidateConfig validates the connection fields for this type
	ValidateConfig(baseURL, apiKey string) error
	// NormalizeConfig normalizes the base URL (e.g. adds a trailing slash)
	NormalizeConfig(baseURL string) string
}

// registry stores all registered provider types
var registry = make(map[models.ProviderType]Provider)

// Register registers a provider type
func Register(provider Provider) {
	registry[provider.Type()] = provider
}

// Get returns the provider for a type
func Get(t models.ProviderType) (Provider, error) {
	provider, ok := registry[t]
	if !ok {
		return nil, errors.New("unknown provider type: " + string(t))
	}
	return provider, nil
}

// List returns all registered provider types, sorted
func List() []models.ProviderType {
	list := make([]models.ProviderType, 0, len(registry))
	for t := range registry {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// hosted is a provider type served from a fixed cloud endpoint that needs a key
type hosted struct {
	typ     models.ProviderType
	name    string
	baseURL string
}

func (p *hosted) Type() models.ProviderType { return p.typ }
func (p *hosted) DisplayName() string       { return p.name }
func (p *hosted) DefaultBaseURL() string    { return p.baseURL }

func (p *hosted) ValidateConfig(baseURL, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%s: must provide API key", p.typ)
	}
	return validateOptionalURL(p.typ, baseURL)
}

func (p *hosted) NormalizeConfig(baseURL string) string {
	return utils.NormalizeURL(baseURL)
}

// selfHosted is a provider type that needs an explicit base URL but no key
type selfHosted struct {
	typ        models.ProviderType
	name       string
	baseURL    string
	requireURL bool
}

func (p *selfHosted) Type() models.ProviderType { return p.typ }
func (p *selfHosted) DisplayName() string       { return p.name }
func (p *selfHosted) DefaultBaseURL() string    { return p.baseURL }

func (p *selfHosted) ValidateConfig(baseURL, apiKey string) error {
	if p.requireURL && baseURL == "" {
		return fmt.Errorf("%s: must provide base URL", p.typ)
	}
	return validateOptionalURL(p.typ, baseURL)
}

func (p *selfHosted) NormalizeConfig(baseURL string) string {
	return utils.NormalizeURL(baseURL)
}

// 内置提供商：浏览器原生模型，无需任何连接信息
type nativeProvider struct{}

func (nativeProvider) Type() models.ProviderType { return models.ProviderTypeNative }
func (nativeProvider) DisplayName() string       { return models.BuiltInProviderName }
func (nativeProvider) DefaultBaseURL() string    { return "" }

func (nativeProvider) ValidateConfig(baseURL, apiKey string) error {
	return validateOptionalURL(models.ProviderTypeNative, baseURL)
}

func (nativeProvider) NormalizeConfig(baseURL string) string {
	return baseURL
}

func validateOptionalURL(t models.ProviderType, baseURL string) error {
	if baseURL != "" && !utils.ValidateURL(baseURL) {
		return fmt.Errorf("%s: invalid URL format: %s", t, baseURL)
	}
	return nil
}

// 初始化：注册内置提供商类型
func init() {
	Register(nativeProvider{})
	Register(&hosted{typ: models.ProviderTypeOpenAI, name: "OpenAI", baseURL: "https://api.openai.com/v1"})
	Register(&hosted{typ: models.ProviderTypeAnthropic, name: "Anthropic", baseURL: "https://api.anthropic.com"})
	Register(&hosted{typ: models.ProviderTypeGoogleGemini, name: "Google Gemini", baseURL: "https://generativelanguage.googleapis.com"})
	Register(&hosted{typ: models.ProviderTypeOpenRouter, name: "OpenRouter", baseURL: "https://openrouter.ai/api/v1"})
	Register(&selfHosted{typ: models.ProviderTypeOpenAICompatible, name: "OpenAI Compatible", requireURL: true})
	Register(&selfHosted{typ: models.ProviderTypeOllama, name: "Ollama", baseURL: "http://localhost:11434"})
	Register(&selfHosted{typ: models.ProviderTypeCustom, name: "Custom", requireURL: true})
}
