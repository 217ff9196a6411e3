package domain

import "strings"

// Endpoint identifies one terminal instance, usually by its installation path.
// An empty path means the platform default terminal.
type Endpoint struct {
	Path string
}

// DefaultEndpoint asks the terminal bridge for the platform default terminal.
func DefaultEndpoint() Endpoint {
	return Endpoint{}
}

// IsDefault reports whether the endpoint is the default sentinel.
func (e Endpoint) IsDefault() bool {
	return e.Path == ""
}

// String returns the path, or "default" for the sentinel.
func (e Endpoint) String() string {
	if e.IsDefault() {
		return "default"
	}
	return e.Path
}

// ParseEndpoints splits a ;-delimited path list, dropping blank entries.
func ParseEndpoints(raw string) []Endpoint {
	var endpoints []Endpoint
	for _, p := range strings.Split(raw, ";") {
		p = strings.TrimSpace(p)
		if p != "" {
			endpoints = append(endpoints, Endpoint{Path: p})
		}
	}
	return endpoints
}
