package sync

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Migrate upgrades a raw persisted blob to the current shape before it is
// validated. It performs surgical edits so unknown fields are preserved:
//   - a bare array of providers (oldest shape) is wrapped into a config
//   - a missing defaultProviderId is taken from the first provider flagged
//     isDefault
//   - every provider without an explicit isDefault gets
//     isDefault = (id == defaultProviderId)
func Migrate(raw string) (string, error) {
	if !gjson.Valid(raw) {
		return "", fmt.Errorf("invalid JSON content")
	}

	root := gjson.Parse(raw)
	out := raw
	var err error

	if root.IsArray() {
		out, err = sjson.SetRaw(`{"providers":[]}`, "providers", root.Raw)
		if err != nil {
			return "", fmt.Errorf("failed to wrap legacy provider list: %w", err)
		}
		root = gjson.Parse(out)
	}
	if !root.IsObject() {
		return "", fmt.Errorf("providers config must be a JSON object")
	}

	providers := root.Get("providers")
	if !providers.IsArray() {
		// Left for schema validation to reject
		return out, nil
	}

	if !root.Get("defaultProviderId").Exists() {
		defaultID := ""
		providers.ForEach(func(_, p gjson.Result) bool {
			if p.Get("isDefault").Bool() {
				defaultID = p.Get("id").String()
				return false
			}
			return true
		})
		out, err = sjson.Set(out, "defaultProviderId", defaultID)
		if err != nil {
			return "", fmt.Errorf("failed to set defaultProviderId: %w", err)
		}
	}

	defaultID := gjson.Get(out, "defaultProviderId").String()
	for i, p := range providers.Array() {
		if !p.IsObject() || p.Get("isDefault").Exists() {
			continue
		}
		path := fmt.Sprintf("providers.%d.isDefault", i)
		out, err = sjson.Set(out, path, p.Get("id").String() == defaultID)
		if err != nil {
			return "", fmt.Errorf("failed to migrate %s: %w", path, err)
		}
	}

	return out, nil
}
