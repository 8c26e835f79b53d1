package config

import (
	"fmt"
	"os"
	"time"

	"github.com/lone-faerie/cfstats/internal/byteutil"
)

// DefaultBandwidthUnit is the unit of bandwidth sensors when none is configured.
const DefaultBandwidthUnit = byteutil.MB

// ZoneConfig is the configuration for polling the analytics of a single zone.
type ZoneConfig struct {
	// ID is the zone identifier, as shown on the zone's overview page.
	ID string `yaml:"id"`
	// APIToken is the token used to read the zone's analytics. If blank,
	// the value of $CFSTATS_API_TOKEN is used.
	APIToken string `yaml:"api_token"`
	// Name is the (optional) friendly name of the zone, i.e. its domain.
	Name string `yaml:"name,omitempty"`
	// Interval is the poll interval of the zone. If zero, the global
	// interval is used.
	Interval time.Duration `yaml:"interval,omitempty"`
	// BandwidthUnit is the unit bandwidth sensors are reported in, one of
	// B, KB, MB, GB or TB. The default value is MB.
	BandwidthUnit string `yaml:"bandwidth_unit,omitempty"`
	// Since is the start of the reporting window in minutes relative to now,
	// i.e. -1440 for the last day. If zero, the API default is used.
	Since int `yaml:"since,omitempty"`
	// Topic is the topic the zone's sensor states are published to. The
	// default value is "~/zone/<id>"
	Topic string `yaml:"topic,omitempty"`
}

func (z *ZoneConfig) load(cfg *Config) {
	if z.APIToken == "" {
		z.APIToken = os.Getenv("CFSTATS_API_TOKEN")
	}
	if z.Interval <= 0 {
		z.Interval = cfg.Interval
	}
	z.Interval = clampInterval(z.Interval)
	if z.Topic == "" {
		z.Topic = "~/zone/" + z.ID
	}
	z.Topic = ReplaceBase(cfg.BaseTopic, z.Topic)
}

// Unit returns the parsed bandwidth unit of z, or [DefaultBandwidthUnit]
// if none is configured or the unit is unknown.
func (z *ZoneConfig) Unit() byteutil.ByteSize {
	if z.BandwidthUnit == "" {
		return DefaultBandwidthUnit
	}
	size, err := byteutil.ParseSize(z.BandwidthUnit)
	if err != nil {
		return DefaultBandwidthUnit
	}
	return size
}

// DisplayName returns the name of z, or its id if it has no name.
func (z *ZoneConfig) DisplayName() string {
	if z.Name != "" {
		return z.Name
	}
	return z.ID
}

// Validate reports whether z has everything required to poll the zone.
func (z *ZoneConfig) Validate() error {
	if z.ID == "" {
		return ErrNoZoneID
	}
	if z.APIToken == "" {
		return fmt.Errorf("zone %s: %w", z.ID, ErrNoToken)
	}
	if z.BandwidthUnit != "" {
		if _, err := byteutil.ParseSize(z.BandwidthUnit); err != nil {
			return fmt.Errorf("zone %s: %w", z.ID, err)
		}
	}
	if z.Since > 0 {
		return fmt.Errorf("zone %s: since must be negative, got %d", z.ID, z.Since)
	}
	return nil
}
