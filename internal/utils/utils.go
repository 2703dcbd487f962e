package utils

// MaskAPIKey masks an API key for display. Empty keys render as "-".
func MaskAPIKey(key string) string {
	if key == "" {
		return "-"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// ShortID shortens generated provider ids (UUIDs) for list output
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:8]
}
