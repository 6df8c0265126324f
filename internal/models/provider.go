package models

import (
	"encoding/json"
	"time"
)

// ProviderCatalog is the moving-provider listing served by the discover endpoint.
// Providers is kept as raw JSON; the catalog file is owned by the marketing team
// and its shape changes more often than this service does.
type ProviderCatalog struct {
	Providers json.RawMessage
	Source    string
	LoadedAt  time.Time
}

// DiscoverMeta is the metadata block of a discover response.
type DiscoverMeta struct {
	Source      string `json:"source"`
	LastUpdated string `json:"lastUpdated"`
}

// DiscoverResponse is the body of GET /api/discover.
type DiscoverResponse struct {
	Meta      DiscoverMeta    `json:"meta"`
	Providers json.RawMessage `json:"providers"`
}
