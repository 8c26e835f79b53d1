package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/internal/build"
	"github.com/lone-faerie/cfstats/internal/cleanup"
	"github.com/lone-faerie/cfstats/log"
)

// Common flags
var (
	ConfigPath []string      // Path(s) to config file/directory (default is first of $CFSTATS_CONFIG_PATH, $XDG_CONFIG_HOME/cfstats.yaml, $HOME/.config/cfstats.yaml)
	Broker     string        // MQTT broker address
	Port       int           // MQTT broker port
	Username   string        // MQTT broker username
	Password   string        // MQTT broker password
	CertFile   string        // MQTT TLS certificate file (PEM encoded)
	KeyFile    string        // MQTT TLS private key file (PEM encoded)
	Interval   time.Duration // Poll interval
	Discovery  string        // Discovery prefix, or 'disabled' to disable
	HTTPAddr   string        // Address of the read-only HTTP endpoint
	LogLevel   string        // Log level
)

var cfg *config.Config

func findConfig() {
	const defaultConfigFile = "cfstats.yaml"

	if len(ConfigPath) > 0 {
		return
	}

	if env, ok := os.LookupEnv("CFSTATS_CONFIG_PATH"); ok {
		ConfigPath = strings.Split(env, ",")
		return
	}

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		ConfigPath = []string{filepath.Join(xdg, defaultConfigFile)}
		return
	}

	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	ConfigPath = []string{filepath.Join(home, ".config", defaultConfigFile)}
}

// loadConfig finds and loads the config, applies the flags and zone arguments to it and
// sets up logging with a minimum level of minLevel.
func loadConfig(args []string, minLevel log.Level) (err error) {
	findConfig()

	cfg, err = config.Load(ConfigPath...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return
	}

	if cfg == nil {
		cfg = config.Default()
	}

	if err = flagsToConfig(cfg, args); err != nil {
		return
	}

	log.Debug("Config loaded", "zones", len(cfg.Zones))
	setLogHandler(cfg, minLevel)

	return nil
}

const banner = `┌────────────────────────────────────────────────────────────┐
│                                                            │
│       ____ _____ ____ _____  _  _____ ____                 │
│      / ___|  ___/ ___|_   _|/ \|_   _/ ___|                │
│     | |   | |_  \___ \ | | / _ \ | | \___ \                │
│     | |___|  _|  ___) || |/ ___ \| |  ___) |               │
│      \____|_|   |____/ |_/_/   \_\_| |____/                │
│                                                            │
│     Author: lone-faerie                                    │
│                                                            │
│     Version: {{printf "%%-18.18s" .Version}}                            │
│     Build Time: %-26.26s                 │
│                                                            │
└────────────────────────────────────────────────────────────┘
`

// BannerTemplate returns the string used for templating the banner.
func BannerTemplate() string {
	return fmt.Sprintf(banner, build.BuildTime())
}

// PrintBanner prints the banner to the given commands output.
func PrintBanner(cmd *cobra.Command) error {
	t := template.New("banner")

	template.Must(t.Parse(BannerTemplate()))

	return t.Execute(cmd.OutOrStdout(), cmd.Root())
}

const fullDocsFooter = `Full documentation is available at:
https://pkg.go.dev/github.com/lone-faerie/cfstats`

// ExitError is an error that should cause the program to exit with the given code.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}

	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func maybeWithPort(addr string, port int) string {
	var hasPort bool

	if last := addr[len(addr)-1]; '0' <= last && last <= '9' {
		for _, c := range addr {
			switch {
			case c == ':':
				hasPort = true
			case '0' <= c && c <= '9':
			default:
				hasPort = false
			}
		}
	}

	if hasPort || port < 0 {
		return addr
	}

	return addr + ":" + strconv.Itoa(port)
}

func flagsToConfig(cfg *config.Config, args []string) error {
	if LogLevel != "" {
		var level log.Level

		if err := level.UnmarshalText([]byte(LogLevel)); err != nil {
			return err
		}

		cfg.Log.Level = level
	}

	if Broker != "" {
		cfg.MQTT.Broker = maybeWithPort(Broker, Port)
	}

	if Username != "" {
		cfg.MQTT.Username = Username
	}

	if Password != "" {
		cfg.MQTT.Password = Password
	}

	if CertFile != "" {
		cfg.MQTT.CertFile = CertFile
	}

	if KeyFile != "" {
		cfg.MQTT.KeyFile = KeyFile
	}

	if Interval > 0 {
		cfg.SetInterval(Interval)
	}

	if Discovery == "disabled" {
		cfg.Discovery.Enabled = false
	} else if Discovery != "" {
		cfg.Discovery.Prefix = Discovery
	}

	if HTTPAddr != "" {
		cfg.HTTP.Addr = HTTPAddr
	}

	for _, zone := range args {
		if _, ok := cfg.Zone(zone); !ok {
			return fmt.Errorf("unknown zone %q", zone)
		}
	}

	if len(args) > 0 {
		cfg.SetZones(args...)
	}

	return nil
}

func setLogHandler(cfg *config.Config, minLevel log.Level) {
	var w io.Writer

	switch strings.ToLower(cfg.Log.Output) {
	case "", "stderr":
	case "stdout":
		w = os.Stdout
	case "discard":
		log.SetHandler(log.DiscardHandler)
		return
	default:
		f, err := os.OpenFile(cfg.Log.Output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			log.Error(
				"Unable to open log file, deferring to stderr",
				err,
			)

			return
		}

		w = f

		cleanup.Register(func() { f.Close() })
	}

	if cfg.Log.Level < minLevel {
		cfg.Log.Level = minLevel
	}

	log.SetLogLevel(cfg.Log.Level)

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		if w == nil {
			w = os.Stderr
		}

		log.SetJSONHandler(w)
	case "text":
		if w == nil {
			w = os.Stderr
		}

		log.SetTextHandler(w)
	default:
		if w != nil {
			log.SetOutput(w)
		}
	}
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&ConfigPath, "config", "c", nil, "Path(s) to config file/directory")
	cmd.MarkFlagFilename("config", "yaml", "yml")
	cmd.MarkFlagDirname("config")
}

func addBrokerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&Broker, "broker", "b", "", "MQTT broker address")
	cmd.Flags().IntVarP(&Port, "port", "p", 1883, "MQTT broker port")
	cmd.Flags().StringVar(&Username, "username", "", "MQTT client username")
	cmd.Flags().StringVar(&Password, "password", "", "MQTT client password")
	cmd.Flags().StringVar(&CertFile, "cert", "", "MQTT TLS certificate file (PEM encoded)")
	cmd.Flags().StringVar(&KeyFile, "key", "", "MQTT TLS private key file (PEM encoded)")
}

// completeZones completes the ids and names of the configured zones.
func completeZones(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	findConfig()

	c, err := config.Load(ConfigPath...)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var comps []cobra.Completion

	for _, z := range c.Zones {
		if z.Name != "" {
			comps = append(comps, cobra.CompletionWithDesc(z.ID, z.Name))
		} else {
			comps = append(comps, z.ID)
		}
	}

	return comps, cobra.ShellCompDirectiveNoFileComp
}
