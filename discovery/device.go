package discovery

import "github.com/lone-faerie/cfstats/config"

// DashboardURL is the Cloudflare dashboard, with the zone id appended.
const DashboardURL = "https://dash.cloudflare.com/?zone="

// Device implements the device mapping for the discovery payload. This ties components
// together in Home Assistant's device registry.
type Device struct {
	ConfigurationURL string   `json:"cu,omitempty"`
	Identifiers      []string `json:"ids,omitempty"`
	Manufacturer     string   `json:"mf,omitempty"`
	Model            string   `json:"mdl,omitempty"`
	Name             string   `json:"name,omitempty"`
	SWVersion        string   `json:"sw,omitempty"`
}

// NewDevice returns the Device of the given zone, identified by
// "cloudflare_<zone_id>".
func NewDevice(zone *config.ZoneConfig) *Device {
	return &Device{
		ConfigurationURL: DashboardURL + zone.ID,
		Identifiers:      []string{"cloudflare_" + zone.ID},
		Manufacturer:     "Cloudflare",
		Model:            "Zone Analytics",
		Name:             "Cloudflare Zone " + zone.DisplayName(),
	}
}
