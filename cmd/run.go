package cmd

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lone-faerie/cfstats/bridge"
	"github.com/lone-faerie/cfstats/httpapi"
	"github.com/lone-faerie/cfstats/log"
	"github.com/lone-faerie/cfstats/metrics"
)

// Flags for cfstats run
var (
	Detach bool // Run detached (in background)
)

// NewCmdRun returns the [cobra.Command] used for running the bridge.
//
// Usage:
//
//	cfstats run [--config <path>]... [flags] [zone]...
//
// Aliases:
//
//	run, start
func NewCmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run [--config <path>]... [flags] [zone]...",
		Aliases: []string{"start"},
		Short:   "Run the analytics bridge",
		Long: `Run a bridge to provide the analytics of Cloudflare zones to the MQTT broker.

A connection to the MQTT broker will be established and each zone will be polled in the foreground until a signal is received.

	- SIGINT or SIGTERM will gracefully shutdown the bridge.

cfstats can load configuration from multiple YAML files, including from directories. If no config file is specified, the default path(s) will be determined by the first defined value of $CFSTATS_CONFIG_PATH, $XDG_CONFIG_HOME/cfstats.yaml, or $HOME/.config/cfstats.yaml. In the case of $CFSTATS_CONFIG_PATH, the value may be a comma-separated list of paths. If none of these files exist, the default configuration will be used, which looks for the following environment variables:

	- zone:      $CFSTATS_ZONE_ID
	- api token: $CFSTATS_API_TOKEN
	- broker:    $CFSTATS_BROKER_ADDRESS
	- username:  $CFSTATS_BROKER_USERNAME
	- password:  $CFSTATS_BROKER_PASSWORD

Zone ids or names may be supplied as arguments, which will only poll those zones of the config.

All of the flags, if specified, will override the equivalent values in the config. The format of --broker should be scheme://host:port Where "scheme" is one of "tcp", "ssl", or "ws", "host" is the ip-address (or hostname) and "port" is the port on which the broker is accepting connections. If "scheme" is not defined, it defaults to "tcp" and if "port" is not defined, it will use the value of --port (default 1883). The --interval flag may not be shorter than one minute.`,
		Example: `  cfstats run --config config.yaml
  cfstats run --config config.yaml example.com
  cfstats run --broker 127.0.0.1:1883 --username cfstats --password p@55w0rd --http :8080`,
		GroupID:           "commands",
		ValidArgsFunction: completeZones,
		PreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if Detach {
				var code int
				if err = runDetached(); err != nil {
					code = 1
				}
				return &ExitError{err, code}
			}

			if err = PrintBanner(cmd); err != nil {
				cmd.Println(err)
				return
			}

			if err = loadConfig(args, log.LevelDebug); err != nil {
				return
			}

			log.Debug("MQTT broker", "addr", cfg.MQTT.Broker)

			return
		},
		RunE: runBridge,

		DisableFlagsInUseLine: true,
	}

	cmd.Flags().SortFlags = false
	addConfigFlag(cmd)
	addBrokerFlags(cmd)
	cmd.Flags().DurationVarP(&Interval, "interval", "i", 0, "Poll interval")
	cmd.Flags().StringVarP(&Discovery, "discovery", "D", "", "Discovery prefix, or 'disabled' to disable")
	cmd.Flags().StringVar(&HTTPAddr, "http", "", "Address of the read-only HTTP endpoint")
	cmd.Flags().StringVarP(&LogLevel, "log", "l", "", "Log level")
	cmd.Flags().BoolVarP(&Detach, "detach", "d", false, "Run detached (in background)")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func runDetached() error {
	c := exec.Command(os.Args[0], os.Args[1:]...)
	if errors.Is(c.Err, exec.ErrDot) {
		c.Err = nil
	}

	c.Args = slices.DeleteFunc(c.Args, func(s string) bool { return s == "-d" || s == "--detach" })

	return c.Start()
}

func runBridge(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", err)
		return &ExitError{err, 1}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mm := metrics.New(cfg)
	if len(mm) == 0 {
		return &ExitError{bridge.ErrNoMetrics, 1}
	}

	opts := []bridge.Option{bridge.WithMetrics(mm...)}

	var store *httpapi.Store

	if cfg.HTTP.Enabled() {
		store = httpapi.NewStore()

		for _, m := range mm {
			if z, ok := m.(*metrics.Zone); ok {
				store.Register(z.ID(), z.Name(), z.Definitions())
			}
		}

		opts = append(opts, bridge.WithSink(store))
	}

	b := bridge.New(cfg, opts...)
	if err := b.Start(ctx); err != nil {
		log.Error("Not connected.", err)
		return &ExitError{err, 1}
	}

	g, gctx := errgroup.WithContext(ctx)

	if store != nil {
		srv := httpapi.NewServer(store, cfg.HTTP.Addr)

		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
	}

	g.Go(func() error {
		defer cancel()

		select {
		case <-b.Ready():
		case <-gctx.Done():
			b.Stop()
			return nil
		}

		if err := b.Error(); err != nil {
			log.WarnError("Bridge started with errors", err)
		}

		select {
		case <-b.Done():
		case <-gctx.Done():
			log.Debug("Received signal")
			b.Stop()
		}

		return nil
	})

	err := g.Wait()

	log.Info("Done")

	if err != nil {
		return &ExitError{err, 1}
	}

	return nil
}
