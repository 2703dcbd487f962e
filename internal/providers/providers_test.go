package providers

import (
	"strings"
	"testing"

	"provsync/config/models"
)

func TestRegistryCoversAllTypes(t *testing.T) {
	for _, typ := range models.ProviderTypes {
		t.Run(string(typ), func(t *testing.T) {
			p, err := Get(typ)
			if err != nil {
				t.Fatalf("Get(%q) error = %v", typ, err)
			}
			if p.Type() != typ {
				t.Errorf("Type() = %v, want %v", p.Type(), typ)
			}
			if p.DisplayName() == "" {
				t.Errorf("DisplayName() is empty for %v", typ)
			}
		})
	}

	if got := len(List()); got != len(models.ProviderTypes) {
		t.Errorf("List() has %d entries, want %d", got, len(models.ProviderTypes))
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("bogus")
	if err == nil {
		t.Fatal("Get(bogus) expected error")
	}
	if !strings.Contains(err.Error(), "unknown provider type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		typ     models.ProviderType
		baseURL string
		apiKey  string
		wantErr bool
	}{
		{"native needs nothing", models.ProviderTypeNative, "", "", false},
		{"openai with key", models.ProviderTypeOpenAI, "", "sk-test", false},
		{"openai without key", models.ProviderTypeOpenAI, "", "", true},
		{"anthropic bad url", models.ProviderTypeAnthropic, "not a url", "sk-test", true},
		{"ollama default url", models.ProviderTypeOllama, "", "", false},
		{"ollama custom url", models.ProviderTypeOllama, "http://10.0.0.2:11434", "", false},
		{"compatible requires url", models.ProviderTypeOpenAICompatible, "", "key", true},
		{"compatible with url", models.ProviderTypeOpenAICompatible, "https://llm.example.com/v1", "", false},
		{"custom requires url", models.ProviderTypeCustom, "", "", true},
		{"custom ftp url", models.ProviderTypeCustom, "ftp://files.example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Get(tt.typ)
			if err != nil {
				t.Fatalf("Get(%q) error = %v", tt.typ, err)
			}
			err = p.ValidateConfig(tt.baseURL, tt.apiKey)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig(%q, %q) error = %v, wantErr %v", tt.baseURL, tt.apiKey, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeConfig(t *testing.T) {
	openai, _ := Get(models.ProviderTypeOpenAI)
	native, _ := Get(models.ProviderTypeNative)

	tests := []struct {
		name     string
		provider Provider
		baseURL  string
		expected string
	}{
		{"hosted adds trailing slash", openai, "https://api.openai.com/v1", "https://api.openai.com/v1/"},
		{"hosted keeps trailing slash", openai, "https://api.openai.com/v1/", "https://api.openai.com/v1/"},
		{"hosted empty", openai, "", ""},
		{"native untouched", native, "https://host.example.com", "https://host.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.provider.NormalizeConfig(tt.baseURL); got != tt.expected {
				t.Errorf("NormalizeConfig() = %v, want %v", got, tt.expected)
			}
		})
	}
}
