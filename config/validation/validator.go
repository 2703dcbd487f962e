package validation

import (
	"fmt"
	"strings"

	"provsync/config/models"
	"provsync/internal/providers"
)

// MaxTemperature is the upper bound of modelConfig.temperature
const MaxTemperature = 2.0

// Validator validates typed provider configurations
type Validator struct {
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProvider checks the structural rules every stored provider must
// satisfy. It does not apply type-specific connection rules, so configs
// written by older or foreign clients still load.
func (v *Validator) ValidateProvider(p models.Provider) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("provider id cannot be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("provider %s: name cannot be empty", p.ID)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("provider %s: unknown provider type: %s", p.ID, p.Type)
	}
	if mc := p.ModelConfig; mc != nil {
		if mc.ContextWindow != nil && *mc.ContextWindow <= 0 {
			return fmt.Errorf("provider %s: context window must be positive", p.ID)
		}
		if mc.Temperature != nil && (*mc.Temperature < 0 || *mc.Temperature > MaxTemperature) {
			return fmt.Errorf("provider %s: temperature must be between 0 and %g", p.ID, MaxTemperature)
		}
	}
	return nil
}

// ValidateProviderInput applies ValidateProvider plus the connection rules of
// the provider's type. Used for providers entered by a user.
func (v *Validator) ValidateProviderInput(p models.Provider) error {
	if err := v.ValidateProvider(p); err != nil {
		return err
	}

	provider, err := providers.Get(p.Type)
	if err != nil {
		return fmt.Errorf("unknown provider type: %s", p.Type)
	}
	return provider.ValidateConfig(p.BaseURL, p.APIKey)
}

// ValidateConfig checks every provider and that ids are unique
func (v *Validator) ValidateConfig(cfg *models.ProvidersConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	seen := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if err := v.ValidateProvider(p); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id: %s", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
