package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/cfstats/discovery"
	"github.com/lone-faerie/cfstats/log"
)

// Flags for cfstats purge
var (
	PurgeStatus bool // Also clear the retained availability of the bridge
)

// NewCmdPurge returns the [cobra.Command] used for removing the discovered devices of
// each zone from Home Assistant.
//
// Usage:
//
//	cfstats purge [--config <path>]... [flags] [zone]...
func NewCmdPurge() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge [--config <path>]... [flags] [zone]...",
		Short: "Remove the devices of each zone from Home Assistant",
		Long: `Remove the device of each zone from Home Assistant by publishing an empty retained payload to its discovery topic, "<prefix>/device/<node_id>/<zone_id>/config".

Zone ids or names may be supplied as arguments, which will only remove those zones of the config. With --status the retained availability of the bridge is cleared as well.`,
		GroupID:           "commands",
		ValidArgsFunction: completeZones,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetLogLevel(log.LevelWarn)
			return loadConfig(args, log.LevelWarn)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(cfg.Zones) == 0 {
				return errors.New("no zones to purge")
			}

			ctx := cmd.Context()

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Disconnect(500)

			var errs []error

			for i := range cfg.Zones {
				z := &cfg.Zones[i]
				d := discovery.New(&cfg.Discovery, z)

				if err := d.Remove(ctx, client); err != nil {
					errs = append(errs, fmt.Errorf("zone %s: %w", z.ID, err))
					continue
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Removed", d.Topic())
			}

			if PurgeStatus && cfg.MQTT.BirthWillTopic != "" {
				if err := waitToken(ctx, client.Publish(cfg.MQTT.BirthWillTopic, 1, true, []byte{})); err != nil {
					errs = append(errs, err)
				}
			}

			return errors.Join(errs...)
		},

		DisableFlagsInUseLine: true,
	}

	cmd.Flags().SortFlags = false
	addConfigFlag(cmd)
	addBrokerFlags(cmd)
	cmd.Flags().StringVarP(&Discovery, "discovery", "D", "", "Discovery prefix")
	cmd.Flags().BoolVar(&PurgeStatus, "status", false, "Also clear the retained availability of the bridge")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}
