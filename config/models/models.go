package models

import (
	"time"
)

// ProviderType identifies the kind of AI service a provider talks to
type ProviderType string

const (
	ProviderTypeNative           ProviderType = "native"
	ProviderTypeOpenAI           ProviderType = "openai"
	ProviderTypeOpenAICompatible ProviderType = "openai_compatible"
	ProviderTypeAnthropic        ProviderType = "anthropic"
	ProviderTypeGoogleGemini     ProviderType = "google_gemini"
	ProviderTypeOllama           ProviderType = "ollama"
	ProviderTypeOpenRouter       ProviderType = "openrouter"
	ProviderTypeCustom           ProviderType = "custom"
)

// ProviderTypes lists every known provider type in display order
var ProviderTypes = []ProviderType{
	ProviderTypeNative,
	ProviderTypeOpenAI,
	ProviderTypeOpenAICompatible,
	ProviderTypeAnthropic,
	ProviderTypeGoogleGemini,
	ProviderTypeOllama,
	ProviderTypeOpenRouter,
	ProviderTypeCustom,
}

// Valid reports whether t is one of the known provider types
func (t ProviderType) Valid() bool {
	for _, known := range ProviderTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Built-in provider identity. The built-in provider is the only one with
// IsBuiltIn set and can never be deleted.
const (
	BuiltInProviderID   = "analos"
	BuiltInProviderName = "AnalOS"
)

// TimestampLayout is the layout used when stamping createdAt/updatedAt
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Capabilities describes optional features of a provider
type Capabilities struct {
	SupportsImages *bool `json:"supportsImages,omitempty"`
}

// ModelConfig holds optional model tuning values
type ModelConfig struct {
	ContextWindow *int     `json:"contextWindow,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// Provider is a single AI provider configuration record
type Provider struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         ProviderType  `json:"type"`
	IsDefault    bool          `json:"isDefault"`
	IsBuiltIn    bool          `json:"isBuiltIn"`
	BaseURL      string        `json:"baseUrl,omitempty"`
	APIKey       string        `json:"apiKey,omitempty"`
	ModelID      string        `json:"modelId,omitempty"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
	ModelConfig  *ModelConfig  `json:"modelConfig,omitempty"`
	CreatedAt    string        `json:"createdAt,omitempty"`
	UpdatedAt    string        `json:"updatedAt,omitempty"`
}

// UpdatedTime parses UpdatedAt. The second return value is false when the
// timestamp is missing or not ISO-8601.
func (p Provider) UpdatedTime() (time.Time, bool) {
	return ParseTimestamp(p.UpdatedAt)
}

// Clone returns a deep copy of the provider
func (p Provider) Clone() Provider {
	out := p
	if p.Capabilities != nil {
		caps := *p.Capabilities
		if caps.SupportsImages != nil {
			v := *caps.SupportsImages
			caps.SupportsImages = &v
		}
		out.Capabilities = &caps
	}
	if p.ModelConfig != nil {
		mc := *p.ModelConfig
		if mc.ContextWindow != nil {
			v := *mc.ContextWindow
			mc.ContextWindow = &v
		}
		if mc.Temperature != nil {
			v := *mc.Temperature
			mc.Temperature = &v
		}
		out.ModelConfig = &mc
	}
	return out
}

// ProvidersConfig is the persisted document: the provider list plus the
// id of the default provider
type ProvidersConfig struct {
	DefaultProviderID string     `json:"defaultProviderId"`
	Providers         []Provider `json:"providers"`
}

// Clone returns a deep copy of the config. Cloning nil returns nil.
func (c *ProvidersConfig) Clone() *ProvidersConfig {
	if c == nil {
		return nil
	}
	out := &ProvidersConfig{
		DefaultProviderID: c.DefaultProviderID,
		Providers:         make([]Provider, len(c.Providers)),
	}
	for i, p := range c.Providers {
		out.Providers[i] = p.Clone()
	}
	return out
}

// Find returns the index of the provider with the given id, or -1
func (c *ProvidersConfig) Find(id string) int {
	if c == nil {
		return -1
	}
	for i, p := range c.Providers {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Has reports whether a provider with the given id exists
func (c *ProvidersConfig) Has(id string) bool {
	return c.Find(id) >= 0
}

// IDs returns the provider ids in order
func (c *ProvidersConfig) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, len(c.Providers))
	for i, p := range c.Providers {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of providers; nil configs have none
func (c *ProvidersConfig) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Providers)
}

// NewBuiltInProvider returns the well-known native provider stamped with now
func NewBuiltInProvider(now time.Time) Provider {
	ts := FormatTimestamp(now)
	return Provider{
		ID:        BuiltInProviderID,
		Name:      BuiltInProviderName,
		Type:      ProviderTypeNative,
		IsDefault: true,
		IsBuiltIn: true,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// NewDefaultConfig manufactures a config holding only the built-in provider
func NewDefaultConfig(now time.Time) *ProvidersConfig {
	return &ProvidersConfig{
		DefaultProviderID: BuiltInProviderID,
		Providers:         []Provider{NewBuiltInProvider(now)},
	}
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with milliseconds
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp. Fractional seconds are optional.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
