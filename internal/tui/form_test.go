package tui

import (
	"strings"
	"testing"

	"provsync/config/models"
)

func TestFormDataValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    FormData
		wantErr string
	}{
		{
			name: "hosted type with key",
			data: FormData{Name: "OpenAI", Type: "openai", APIKey: "sk-test-key"},
		},
		{
			name: "self hosted without key",
			data: FormData{Name: "Local", Type: "ollama"},
		},
		{
			name: "all optional fields",
			data: FormData{
				Name:          "Full",
				Type:          "openai_compatible",
				BaseURL:       "https://llm.internal/v1",
				ModelID:       "qwen",
				ContextWindow: "32768",
				Temperature:   "0.7",
			},
		},
		{
			name:    "empty name",
			data:    FormData{Name: "  ", Type: "ollama"},
			wantErr: "name cannot be empty",
		},
		{
			name:    "unknown type",
			data:    FormData{Name: "X", Type: "bogus"},
			wantErr: "未知的提供商类型",
		},
		{
			name:    "hosted type without key",
			data:    FormData{Name: "OpenAI", Type: "openai"},
			wantErr: "must provide API key",
		},
		{
			name:    "compatible type without url",
			data:    FormData{Name: "Compat", Type: "openai_compatible"},
			wantErr: "must provide base URL",
		},
		{
			name:    "invalid url",
			data:    FormData{Name: "Local", Type: "ollama", BaseURL: "not a url"},
			wantErr: "invalid URL format",
		},
		{
			name:    "temperature out of range",
			data:    FormData{Name: "Local", Type: "ollama", Temperature: "3"},
			wantErr: "temperature must be between",
		},
		{
			name:    "context window not a number",
			data:    FormData{Name: "Local", Type: "ollama", ContextWindow: "big"},
			wantErr: "context window must be an integer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFormDataApply(t *testing.T) {
	images := true
	base := models.Provider{
		ID:           "p1",
		Name:         "Old",
		Type:         models.ProviderTypeOpenAI,
		IsBuiltIn:    false,
		APIKey:       "sk-old",
		Capabilities: &models.Capabilities{SupportsImages: &images},
		CreatedAt:    "2024-01-01T00:00:00.000Z",
		ModelConfig:  &models.ModelConfig{},
	}

	data := FormData{Name: " Local ", Type: "ollama", ModelID: "llama3"}
	p, err := data.Apply(base)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if p.ID != "p1" || p.CreatedAt != base.CreatedAt {
		t.Errorf("Apply() must keep id and createdAt, got %q %q", p.ID, p.CreatedAt)
	}
	if p.Capabilities == nil || p.Capabilities.SupportsImages == nil || !*p.Capabilities.SupportsImages {
		t.Error("Apply() must keep capabilities")
	}
	if p.Name != "Local" {
		t.Errorf("Name = %q, want trimmed %q", p.Name, "Local")
	}
	if p.BaseURL != "http://localhost:11434" {
		t.Errorf("empty base URL should take the type default, got %q", p.BaseURL)
	}
	if p.APIKey != "" {
		t.Errorf("APIKey = %q, want it cleared", p.APIKey)
	}
	if p.ModelConfig != nil {
		t.Errorf("ModelConfig = %+v, want nil when both fields are empty", p.ModelConfig)
	}

	// base is not modified
	if *base.Capabilities.SupportsImages != true || base.Name != "Old" {
		t.Error("Apply() modified its base provider")
	}

	data.Temperature = "0.5"
	p, err = data.Apply(base)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if p.ModelConfig == nil || p.ModelConfig.Temperature == nil || *p.ModelConfig.Temperature != 0.5 {
		t.Errorf("temperature not applied: %+v", p.ModelConfig)
	}
	if p.ModelConfig.ContextWindow != nil {
		t.Error("context window should stay unset")
	}

	if _, err := (&FormData{Name: "", Type: "ollama"}).Apply(base); err == nil {
		t.Error("Apply() should validate first")
	}
}

func TestFormDataFromProvider(t *testing.T) {
	window := 8192
	temp := 0.25
	p := models.Provider{
		ID:          "p1",
		Name:        "Local",
		Type:        models.ProviderTypeOllama,
		BaseURL:     "http://localhost:11434/",
		ModelID:     "llama3",
		ModelConfig: &models.ModelConfig{ContextWindow: &window, Temperature: &temp},
	}

	data := FormDataFromProvider(p)
	want := FormData{
		Name:          "Local",
		Type:          "ollama",
		BaseURL:       "http://localhost:11434/",
		ModelID:       "llama3",
		ContextWindow: "8192",
		Temperature:   "0.25",
	}
	if data != want {
		t.Errorf("FormDataFromProvider() = %+v, want %+v", data, want)
	}

	inputs := FormInputs()
	SetFormData(inputs, data)
	if got := GetFormData(inputs); got != want {
		t.Errorf("form inputs hold %+v, want %+v", got, want)
	}
}

func TestSelectableTypes(t *testing.T) {
	builtIn := SelectableTypes(true)
	if len(builtIn) != 1 || builtIn[0] != models.ProviderTypeNative {
		t.Errorf("SelectableTypes(true) = %v, want [native]", builtIn)
	}

	custom := SelectableTypes(false)
	if len(custom) != len(models.ProviderTypes)-1 {
		t.Errorf("SelectableTypes(false) has %d types, want %d", len(custom), len(models.ProviderTypes)-1)
	}
	for _, typ := range custom {
		if typ == models.ProviderTypeNative {
			t.Error("native type must not be selectable for custom providers")
		}
	}
}

func TestCycleType(t *testing.T) {
	types := []models.ProviderType{"a", "b", "c"}
	tests := []struct {
		current string
		step    int
		want    string
	}{
		{"a", 1, "b"},
		{"c", 1, "a"},
		{"a", -1, "c"},
		{"b", -1, "a"},
		{"unknown", 1, "a"},
	}
	for _, tt := range tests {
		if got := CycleType(types, tt.current, tt.step); got != tt.want {
			t.Errorf("CycleType(%q, %d) = %q, want %q", tt.current, tt.step, got, tt.want)
		}
	}
	if got := CycleType(nil, "x", 1); got != "x" {
		t.Errorf("CycleType(nil) = %q, want unchanged", got)
	}
}

func TestFormFieldNavigation(t *testing.T) {
	inputs := FormInputs()

	focus := NextFormField(inputs, 0)
	if focus != 1 || !inputs[1].Focused() || inputs[0].Focused() {
		t.Errorf("NextFormField() focus = %d", focus)
	}

	focus = PrevFormField(inputs, 0)
	if focus != FormFieldCount-1 {
		t.Errorf("PrevFormField(0) = %d, want wrap to %d", focus, FormFieldCount-1)
	}

	focus = NextFormField(inputs, FormFieldCount-1)
	if focus != 0 {
		t.Errorf("NextFormField(last) = %d, want wrap to 0", focus)
	}
}

func TestRenderForm(t *testing.T) {
	inputs := FormInputs()
	view := RenderForm(inputs, FormFieldType, "添加提供商", "name cannot be empty")

	for _, want := range []string{"添加提供商", "Context Window:", "←/→ 切换提供商类型", "name cannot be empty"} {
		if !strings.Contains(view, want) {
			t.Errorf("RenderForm() missing %q", want)
		}
	}
}
