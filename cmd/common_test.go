package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/internal/byteutil"
	"github.com/lone-faerie/cfstats/log"
	"github.com/lone-faerie/cfstats/sensor"
)

func TestMaybeWithPort(t *testing.T) {
	tests := []struct {
		addr string
		port int
		want string
	}{
		{"localhost", 1883, "localhost:1883"},
		{"localhost:1884", 1883, "localhost:1884"},
		{"tcp://127.0.0.1", 1883, "tcp://127.0.0.1:1883"},
		{"tcp://127.0.0.1:8883", 1883, "tcp://127.0.0.1:8883"},
		{"localhost", -1, "localhost"},
	}
	for _, tt := range tests {
		if got := maybeWithPort(tt.addr, tt.port); got != tt.want {
			t.Errorf("maybeWithPort(%q, %d) = %q, want %q", tt.addr, tt.port, got, tt.want)
		}
	}
}

func TestFlagsToConfig(t *testing.T) {
	defer func() {
		LogLevel, Broker, Port, Interval, Discovery, HTTPAddr = "", "", 1883, 0, "", ""
	}()

	cfg := &config.Config{
		Interval: config.DefaultInterval,
		Zones: []config.ZoneConfig{
			{ID: "abc", Name: "example.com"},
			{ID: "def"},
		},
		Discovery: config.DefaultDiscovery,
	}

	LogLevel = "debug"
	Broker = "127.0.0.1"
	Port = 1883
	Interval = 10 * time.Second
	Discovery = "disabled"
	HTTPAddr = ":8080"

	if err := flagsToConfig(cfg, []string{"example.com"}); err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != log.LevelDebug {
		t.Errorf("Log.Level = %v, want %v", cfg.Log.Level, log.LevelDebug)
	}
	if cfg.MQTT.Broker != "127.0.0.1:1883" {
		t.Errorf("MQTT.Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.Interval != config.MinInterval {
		t.Errorf("Interval = %v, want %v", cfg.Interval, config.MinInterval)
	}
	if cfg.Discovery.Enabled {
		t.Error("Discovery.Enabled = true")
	}
	if !cfg.HTTP.Enabled() {
		t.Error("HTTP.Enabled() = false")
	}
	if len(cfg.Zones) != 1 || cfg.Zones[0].ID != "abc" {
		t.Errorf("Zones = %v, want only abc", cfg.Zones)
	}

	if err := flagsToConfig(cfg, []string{"def"}); err == nil {
		t.Error("flagsToConfig() accepted a zone that is not configured")
	}

	LogLevel = "loud"
	if err := flagsToConfig(cfg, nil); err == nil {
		t.Error("flagsToConfig() accepted invalid log level")
	}
}

func TestFlagsToConfigLogLevel(t *testing.T) {
	defer func() { LogLevel = "" }()

	tests := []struct {
		flag string
		want log.Level
	}{
		{"disabled", log.LevelDisabled},
		{"off", log.LevelDisabled},
		{"warn", log.LevelWarn},
		{"DEBUG", log.LevelDebug},
		{"", log.LevelInfo},
	}
	for _, tt := range tests {
		LogLevel = tt.flag
		cfg := &config.Config{}
		if err := flagsToConfig(cfg, nil); err != nil {
			t.Fatalf("--log %q: %v", tt.flag, err)
		}
		if cfg.Log.Level != tt.want {
			t.Errorf("--log %q: Log.Level = %v, want %v", tt.flag, cfg.Log.Level, tt.want)
		}
	}
}

func TestPrintSensors(t *testing.T) {
	var buf bytes.Buffer
	printSensors(&buf, sensor.Catalog(byteutil.GB))
	out := buf.String()

	for _, s := range []string{"[Requests]", "[Bandwidth]", "[Threats]", "[Diagnostic]", "requests.all", "GB", "(disabled)"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}

	buf.Reset()
	printSummary(&buf, sensor.Catalog(byteutil.MB))
	if !strings.HasPrefix(buf.String(), "requests.all, requests.cached, ") {
		t.Errorf("printSummary() = %q", buf.String())
	}
}

func TestListFindsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfstats.yaml")
	conf := "zones:\n  - id: abc\n    api_token: token\n    name: example.com\n"
	if err := os.WriteFile(path, []byte(conf), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CFSTATS_CONFIG_PATH", path)
	ConfigPath = nil
	t.Cleanup(func() { ConfigPath = nil })

	var buf bytes.Buffer
	cmd := NewCmdList()
	cmd.SetOut(&buf)

	if err := listSensors(cmd, nil); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, s := range []string{"[Zones]", "Zone example.com (abc)", "topic: cfstats/zone/abc"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}
