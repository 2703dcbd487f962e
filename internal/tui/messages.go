package tui

import (
	"provsync/config/models"
)

// ProvidersLoadedMsg is sent when the providers config is (re)loaded
type ProvidersLoadedMsg struct {
	Config *models.ProvidersConfig
}

// DefaultChangedMsg is sent when the default provider is changed
type DefaultChangedMsg struct {
	ID  string
	Err error
}

// ProviderAddedMsg is sent when a provider is added
type ProviderAddedMsg struct {
	Provider models.Provider
	Err      error
}

// ProviderUpdatedMsg is sent when a provider is updated
type ProviderUpdatedMsg struct {
	Provider models.Provider
	Err      error
}

// ProviderDeletedMsg is sent when a provider is deleted
type ProviderDeletedMsg struct {
	ID   string
	Name string
	Err  error
}

// errMsg is an error message type
type errMsg string
