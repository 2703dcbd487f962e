package sync

import (
	"provsync/config/models"
)

// Merge reconciles two possibly divergent configs into one. It is pure and
// deterministic and never mutates its inputs.
//
// Providers are unioned by id: every provider of a is taken first, then
// every provider of b. A provider from b replaces the stored one with the
// same id only when its updatedAt is strictly later. Equal, missing or
// unparsable timestamps keep the stored provider, so ties resolve toward a.
// Merge never drops an id present in either input.
func Merge(a, b *models.ProvidersConfig) *models.ProvidersConfig {
	switch {
	case a == nil && b == nil:
		return nil
	case b == nil:
		return a.Clone()
	case a == nil:
		return b.Clone()
	}

	merged := make([]models.Provider, 0, len(a.Providers)+len(b.Providers))
	index := make(map[string]int, len(a.Providers)+len(b.Providers))

	insert := func(p models.Provider) {
		if i, ok := index[p.ID]; ok {
			if isNewer(p, merged[i]) {
				merged[i] = p.Clone()
			}
			return
		}
		index[p.ID] = len(merged)
		merged = append(merged, p.Clone())
	}
	for _, p := range a.Providers {
		insert(p)
	}
	for _, p := range b.Providers {
		insert(p)
	}

	defaultID := resolveDefault(a, b, merged, index)
	for i := range merged {
		merged[i].IsDefault = merged[i].ID == defaultID
	}

	return &models.ProvidersConfig{
		DefaultProviderID: defaultID,
		Providers:         merged,
	}
}

// isNewer reports whether candidate's updatedAt is strictly later than
// stored's. Both timestamps must parse.
func isNewer(candidate, stored models.Provider) bool {
	ct, ok := candidate.UpdatedTime()
	if !ok {
		return false
	}
	st, ok := stored.UpdatedTime()
	if !ok {
		return false
	}
	return ct.After(st)
}

// resolveDefault picks the merged default id. The first candidate present in
// the merged set wins:
//  1. a's default when both inputs contain it
//  2. b's default when both inputs contain it
//  3. a's default
//  4. b's default
//  5. the first merged id
//  6. the built-in id, even when absent
func resolveDefault(a, b *models.ProvidersConfig, merged []models.Provider, index map[string]int) string {
	inMerged := func(id string) bool {
		_, ok := index[id]
		return ok
	}
	inBoth := func(id string) bool {
		return a.Has(id) && b.Has(id)
	}

	switch {
	case inBoth(a.DefaultProviderID) && inMerged(a.DefaultProviderID):
		return a.DefaultProviderID
	case inBoth(b.DefaultProviderID) && inMerged(b.DefaultProviderID):
		return b.DefaultProviderID
	case inMerged(a.DefaultProviderID):
		return a.DefaultProviderID
	case inMerged(b.DefaultProviderID):
		return b.DefaultProviderID
	case len(merged) > 0:
		return merged[0].ID
	default:
		return models.BuiltInProviderID
	}
}

// NeedsRecovery reports whether merged holds providers that at least one of
// the sources lacks. A nil source holds none.
func NeedsRecovery(a, b, merged *models.ProvidersConfig) bool {
	n := merged.Len()
	return n > a.Len() || n > b.Len()
}
