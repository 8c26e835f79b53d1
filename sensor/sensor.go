// Package sensor defines the sensors exposed for a zone and resolves them
// against the snapshot of the most recent poll.
package sensor

import (
	"strings"

	"github.com/lone-faerie/cfstats/discovery/icon"
	"github.com/lone-faerie/cfstats/internal/byteutil"
)

// Home Assistant state classes and entity categories.
const (
	Measurement = "measurement"
	Diagnostic  = "diagnostic"
)

// Definition describes a single sensor. Key is the dotted path of the value
// in a [cloudflare.Snapshot].
type Definition struct {
	Key         string
	Name        string
	Unit        string
	DeviceClass string
	StateClass  string
	Icon        string
	Category    string
	Bandwidth   bool // value is a byte count converted to Unit
	Enabled     bool // enabled by default in Home Assistant
}

// Slug returns the key of d with dots replaced by underscores.
func (d *Definition) Slug() string {
	return strings.ReplaceAll(d.Key, ".", "_")
}

func requests(key, name string, ic string, enabled bool) Definition {
	return Definition{
		Key:        key,
		Name:       name,
		Unit:       "requests",
		StateClass: Measurement,
		Icon:       ic,
		Enabled:    enabled,
	}
}

func bandwidth(key, name string, unit byteutil.ByteSize, enabled bool) Definition {
	return Definition{
		Key:         key,
		Name:        name,
		Unit:        unit.String(),
		DeviceClass: "data_size",
		StateClass:  Measurement,
		Icon:        icon.Bandwidth,
		Bandwidth:   true,
		Enabled:     enabled,
	}
}

// Catalog returns the definitions of every sensor in publish order, with
// bandwidth sensors measured in unit. An unknown unit is treated as
// [byteutil.Bytes].
func Catalog(unit byteutil.ByteSize) []Definition {
	if unit < byteutil.Bytes {
		unit = byteutil.Bytes
	}
	return []Definition{
		requests("requests.all", "Requests (All)", icon.Requests, true),
		requests("requests.cached", "Requests (Cached)", icon.CloudCheck, true),
		requests("requests.uncached", "Requests (Uncached)", icon.CloudOff, true),
		requests("requests.ssl.encrypted", "Requests (SSL Encrypted)", icon.Lock, true),
		requests("requests.ssl.unencrypted", "Requests (SSL Unencrypted)", icon.LockOpen, true),
		requests("requests.bot", "Requests (Bots)", icon.Robot, true),
		bandwidth("bandwidth.all", "Bandwidth (All)", unit, true),
		bandwidth("bandwidth.cached", "Bandwidth (Cached)", unit, true),
		bandwidth("bandwidth.uncached", "Bandwidth (Uncached)", unit, true),
		bandwidth("bandwidth.ssl.encrypted", "Bandwidth (SSL Encrypted)", unit, false),
		bandwidth("bandwidth.ssl.unencrypted", "Bandwidth (SSL Unencrypted)", unit, false),
		{
			Key:        "threats.all",
			Name:       "Threats (All)",
			Unit:       "threats",
			StateClass: Measurement,
			Icon:       icon.Threats,
			Enabled:    true,
		},
		{
			Key:        "threats.blocked",
			Name:       "Threats (Blocked)",
			Unit:       "threats",
			StateClass: Measurement,
			Icon:       icon.ShieldCheck,
			Enabled:    true,
		},
		{
			Key:        "pageviews.all",
			Name:       "Page Views",
			Unit:       "views",
			StateClass: Measurement,
			Icon:       icon.PageViews,
			Enabled:    true,
		},
		{
			Key:        "uniques.all",
			Name:       "Unique Visitors",
			Unit:       "visitors",
			StateClass: Measurement,
			Icon:       icon.Visitors,
			Enabled:    true,
		},
		{
			Key:         "since",
			Name:        "Reporting Window Start",
			DeviceClass: "timestamp",
			Icon:        icon.Window,
			Category:    Diagnostic,
			Enabled:     true,
		},
		{
			Key:         "until",
			Name:        "Reporting Window End",
			DeviceClass: "timestamp",
			Icon:        icon.Window,
			Category:    Diagnostic,
			Enabled:     true,
		},
	}
}
