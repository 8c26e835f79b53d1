package discovery

import "github.com/lone-faerie/cfstats/internal/build"

// Origin implements the origin mapping for the discovery payload. This provides context to
// Home Assistant on the origin of the components.
type Origin struct {
	Name       string `json:"name"`
	SWVersion  string `json:"sw,omitempty"`
	SupportURL string `json:"url,omitempty"`
}

// NewOrigin returns the Origin of this program, named "cfstats", with the
// version and package given by [build].
func NewOrigin() *Origin {
	o := &Origin{
		Name:      "cfstats",
		SWVersion: build.Version(),
	}
	if pkg := build.Package(); pkg != "" {
		o.SupportURL = "https://" + pkg
	}
	return o
}
