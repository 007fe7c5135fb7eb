package api

import "github.com/starford/folio/internal/render"

// ListingEntry is one listing page and the project-relative patterns it
// depends on.
type ListingEntry struct {
	Page     string   `json:"page"`
	Patterns []string `json:"patterns"`
}

// ListingsResponse is the response payload for GET /listings.
type ListingsResponse struct {
	Project  string         `json:"project"`
	Listings []ListingEntry `json:"listings"`
	Total    int            `json:"total"`
}

// AffectedResponse is the response payload for GET /affected.
type AffectedResponse struct {
	Changed []string `json:"changed"`
	Pages   []string `json:"pages"`
	// CacheAvailable is false when the listing cache could not be read; a
	// render of the same files would run as a full render.
	CacheAvailable bool `json:"cache_available"`
}

// RenderResponse is the response payload for POST /render.
type RenderResponse struct {
	Result *render.Result `json:"result"`
	Failed int            `json:"failed"`
}
