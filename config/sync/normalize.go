package sync

import (
	"time"

	"provsync/config/models"
)

// Normalize returns a copy of cfg with the derived fields restored:
//   - an unresolvable defaultProviderId is repointed to the first provider,
//     or to the built-in id when there are no providers
//   - every isDefault flag is recomputed from defaultProviderId
//   - missing createdAt/updatedAt are stamped with now
//
// Normalize(nil) is nil.
func Normalize(cfg *models.ProvidersConfig, now time.Time) *models.ProvidersConfig {
	if cfg == nil {
		return nil
	}
	out := cfg.Clone()

	if !out.Has(out.DefaultProviderID) {
		if len(out.Providers) > 0 {
			out.DefaultProviderID = out.Providers[0].ID
		} else {
			out.DefaultProviderID = models.BuiltInProviderID
		}
	}

	ts := models.FormatTimestamp(now)
	for i := range out.Providers {
		p := &out.Providers[i]
		p.IsDefault = p.ID == out.DefaultProviderID
		if p.CreatedAt == "" {
			p.CreatedAt = ts
		}
		if p.UpdatedAt == "" {
			p.UpdatedAt = ts
		}
	}
	return out
}
