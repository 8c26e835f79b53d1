package config

import "github.com/lone-faerie/cfstats/log"

// LogConfig is the configuration for logging.
type LogConfig struct {
	// Level is the minimum level logged. The default value is INFO.
	Level log.Level `yaml:"level"`
	// Output is one of "stderr" (default), "stdout", "discard" or the path
	// of a file to append to.
	Output string `yaml:"output"`
	// Format is one of "text" (default) or "json".
	Format string `yaml:"format"`
}

// HTTPConfig is the configuration for the read-only HTTP endpoint.
type HTTPConfig struct {
	// Addr is the address to listen on, i.e. ":8080". If blank (default)
	// the endpoint is disabled.
	Addr string `yaml:"addr,omitempty"`
}

// Enabled reports whether the HTTP endpoint should be served.
func (cfg *HTTPConfig) Enabled() bool {
	return cfg.Addr != ""
}
