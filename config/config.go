// Package config provides the structures used for configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lone-faerie/cfstats/config/secrets"
	"github.com/lone-faerie/cfstats/internal/byteutil"
	"github.com/lone-faerie/cfstats/log"
)

const (
	// DefaultInterval is the poll interval used when none is configured.
	DefaultInterval = 5 * time.Minute
	// MinInterval is the shortest poll interval allowed. Shorter intervals
	// are raised to MinInterval.
	MinInterval = time.Minute
	// DefaultBaseTopic is the base topic substituted for "~" in topics.
	DefaultBaseTopic = "cfstats"
)

// Errors returned by [Config.Validate].
var (
	ErrNoZones  = errors.New("no zones configured")
	ErrNoZoneID = errors.New("zone id is required")
	ErrNoToken  = errors.New("api token is required")
)

// Config contains the configuration for the MQTT client and the polled zones.
// Config should be created with a call to [Default], [Read], or [Load] as
// some options require further configuration than simply setting.
type Config struct {
	Interval  time.Duration   `yaml:"interval"`
	BaseTopic string          `yaml:"base_topic"`
	Zones     []ZoneConfig    `yaml:"zones"`
	MQTT      MQTTConfig      `yaml:"mqtt,omitempty"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
	HTTP      HTTPConfig      `yaml:"http,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`
}

func defaultConfig() *Config {
	return &Config{
		Interval:  DefaultInterval,
		BaseTopic: DefaultBaseTopic,
		MQTT:      DefaultMQTT,
		Discovery: DefaultDiscovery,
	}
}

// Default returns the default Config when no config file is provided. The
// zone is read from $CFSTATS_ZONE_ID and $CFSTATS_API_TOKEN.
func Default() *Config {
	cfg := defaultConfig()
	cfg.load()
	return cfg
}

// Read returns the Config parsed from the yaml encoded config from r. If r
// contains multiple documents, each document is applied in order over the
// previous ones and the zones of every document are kept.
func Read(r io.Reader) (*Config, error) {
	cfg := defaultConfig()
	dec := yaml.NewDecoder(r)
	for {
		doc := *cfg
		doc.Zones = nil
		if err := dec.Decode(&doc); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		zones := append(cfg.Zones, doc.Zones...)
		*cfg = doc
		cfg.Zones = zones
	}
	cfg.load()
	return cfg, nil
}

// Load returns the Config parsed from the given yaml files. If the first file does
// not exist, the default config is returned. If any of the given paths are
// directories, all the yaml files in the directory are read.
func Load(file ...string) (*Config, error) {
	log.Info("Loading config", "path", file)
	if len(file) == 0 {
		return Default(), nil
	}
	if _, err := os.Stat(file[0]); err != nil {
		log.Debug("Using default config", "error", err)
		return Default(), nil
	}
	r := byteutil.NewMultiFileReader(file...)
	defer r.Close()
	return Read(r)
}

// ReplaceBase replaces a leading "~/" or trailing "/~" of topic with base.
func ReplaceBase(base, topic string) string {
	if s, ok := strings.CutPrefix(topic, "~/"); ok {
		topic = base + "/" + s
	}
	if s, ok := strings.CutSuffix(topic, "/~"); ok {
		topic = s + "/" + base
	}
	return topic
}

func clampInterval(d time.Duration) time.Duration {
	if d > 0 && d < MinInterval {
		log.Warn("Interval too short, using minimum", "interval", d, "minimum", MinInterval)
		return MinInterval
	}
	return d
}

func (cfg *Config) load() {
	if len(cfg.Zones) == 0 {
		if _, ok := os.LookupEnv("CFSTATS_ZONE_ID"); ok {
			cfg.Zones = append(cfg.Zones, ZoneConfig{ID: "$CFSTATS_ZONE_ID"})
		}
	}

	cfg.Expand()

	if cfg.BaseTopic == "" {
		cfg.BaseTopic = DefaultBaseTopic
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	cfg.Interval = clampInterval(cfg.Interval)

	cfg.MQTT.BirthWillTopic = ReplaceBase(cfg.BaseTopic, cfg.MQTT.BirthWillTopic)
	if cfg.Discovery.Availability == "" {
		cfg.Discovery.Availability = cfg.MQTT.BirthWillTopic
	}
	cfg.Discovery.Availability = ReplaceBase(cfg.BaseTopic, cfg.Discovery.Availability)

	for i := range cfg.Zones {
		cfg.Zones[i].load(cfg)
	}
}

func expandValue(v reflect.Value) {
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(Expand(v.String()))
		}
	case reflect.Struct:
		n := v.NumField()
		for i := 0; i < n; i++ {
			expandValue(v.Field(i))
		}
	case reflect.Slice, reflect.Array:
		n := v.Len()
		for i := 0; i < n; i++ {
			expandValue(v.Index(i))
		}
	case reflect.Pointer:
		if !v.IsNil() {
			expandValue(v.Elem())
		}
	}
}

// Expand replaces ${var} or $var in s according to the values of
// the current environment variables, and replaces !secret var according
// to the file at /run/secrets/<var>.
func Expand(s string) string {
	if secret, ok := secrets.CutPrefix(s); ok {
		return secrets.MustRead(secret, "")
	}
	return os.ExpandEnv(s)
}

// Expand calls [Expand] on every string field of cfg.
func (cfg *Config) Expand() {
	expandValue(reflect.ValueOf(cfg).Elem())
}

// SetInterval sets the poll interval of cfg and every zone.
func (cfg *Config) SetInterval(d time.Duration) {
	d = clampInterval(d)
	cfg.Interval = d
	for i := range cfg.Zones {
		cfg.Zones[i].Interval = d
	}
}

// SetZones keeps only the zones whose id or name is one of the given
// values. If no value is given, all zones are kept.
func (cfg *Config) SetZones(zone ...string) {
	if len(zone) == 0 {
		return
	}
	cfg.Zones = slices.DeleteFunc(cfg.Zones, func(z ZoneConfig) bool {
		return !slices.Contains(zone, z.ID) && (z.Name == "" || !slices.Contains(zone, z.Name))
	})
}

// Zone returns the zone with the given id or name.
func (cfg *Config) Zone(zone string) (*ZoneConfig, bool) {
	for i := range cfg.Zones {
		if cfg.Zones[i].ID == zone || (zone != "" && cfg.Zones[i].Name == zone) {
			return &cfg.Zones[i], true
		}
	}
	return nil, false
}

// Validate reports every problem with cfg that would prevent polling.
func (cfg *Config) Validate() error {
	if len(cfg.Zones) == 0 {
		return ErrNoZones
	}
	var errs []error
	seen := make(map[string]bool, len(cfg.Zones))
	for i := range cfg.Zones {
		z := &cfg.Zones[i]
		if err := z.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("zones[%d]: %w", i, err))
			continue
		}
		if seen[z.ID] {
			errs = append(errs, fmt.Errorf("zones[%d]: duplicate zone %s", i, z.ID))
		}
		seen[z.ID] = true
	}
	return errors.Join(errs...)
}
