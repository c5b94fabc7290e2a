package dto

// ProviderListResponse lists providers in registry order.
type ProviderListResponse struct {
	Providers []ProviderInfo `json:"providers"`
}

// ProviderInfo describes one provider.
type ProviderInfo struct {
	Name     string        `json:"name"`
	Version  string        `json:"version"`
	Info     string        `json:"info,omitempty"`
	Position int           `json:"position"`
	Services []ServiceInfo `json:"services"`
}

// ServiceInfo describes one service of a provider.
type ServiceInfo struct {
	// Type is Cipher, KeyGenerator, KeyPairGenerator or SecureRandom.
	Type      string   `json:"type"`
	Algorithm string   `json:"algorithm"`
	Aliases   []string `json:"aliases,omitempty"`

	// Combos lists "MODE/PADDING" pairs; the first is the default.
	Combos []string `json:"combos,omitempty"`
}

// ResolveRequest asks which provider serves a transformation.
type ResolveRequest struct {
	// Transformation is "ALG" or "ALG/MODE/PADDING".
	Transformation string `json:"transformation"`

	// Provider pins the request to one provider.
	Provider string `json:"provider,omitempty"`

	// Order is the registry order to resolve against. Empty means the
	// default order.
	Order []string `json:"order,omitempty"`
}

// ResolveResponse is the outcome of a resolution.
type ResolveResponse struct {
	Provider       string `json:"provider"`
	Position       int    `json:"position"`
	Algorithm      string `json:"algorithm"`
	Mode           string `json:"mode"`
	Padding        string `json:"padding"`
	Transformation string `json:"transformation"`
}
