package cmd

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/lone-faerie/cfstats/log"
)

// Flags for cfstats stop
var (
	StopPID int // PID of the process
)

// NewCmdStop returns the [cobra.Command] used for stopping a running bridge.
//
// Usage:
//
//	cfstats stop [flags] [topic]
//
// Flags:
//
//	-b, --broker string     MQTT broker address
//	-c, --config strings    Path(s) to config file/directory
//	-h, --help              help for stop
//	    --password string   MQTT client password
//	-P, --pid int           PID of the process
//	-p, --port int          MQTT broker port (default 1883)
//	    --username string   MQTT client username
func NewCmdStop() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop [flags] [topic]",
		Short: "Stop running bridge",
		Long: `Stop a running bridge by publishing to its stop topic, "<base_topic>/bridge/stop" unless a topic is given. The stop topic of a single zone, "<base_topic>/zone/<id>/stop", stops only that zone.

If --pid is given, the process is interrupted directly instead.`,
		GroupID: "commands",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			log.SetLogLevel(log.LevelWarn)

			if err := loadConfig(nil, log.LevelWarn); err != nil {
				return err
			}

			log.Debug("MQTT broker", "addr", cfg.MQTT.Broker)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if StopPID > 0 {
				pid := strconv.Itoa(StopPID)
				c := "ps cax | grep -qe '" + pid + "[[:space:]].*cfstats' && kill -2 " + pid

				log.Debug("Stopping", "pid", pid)

				if err := exec.Command("sh", "-c", c).Run(); err == nil {
					return nil
				}
			}

			topic := cfg.BaseTopic + "/bridge/stop"
			if len(args) > 0 {
				topic = args[0]
			}

			return publishOnce(cmd.Context(), topic, []byte{})
		},
	}

	cmd.Flags().SortFlags = false
	addConfigFlag(cmd)
	addBrokerFlags(cmd)
	cmd.Flags().IntVarP(&StopPID, "pid", "P", 0, "PID of the process")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

// connect returns a new client connected to the broker of cfg. The client has no LWT
// so that it does not interfere with a running bridge.
func connect(ctx context.Context) (mqtt.Client, error) {
	opts := cfg.MQTT.ClientOptions()
	opts.UnsetWill()
	opts.SetClientID("")

	client := mqtt.NewClient(opts)

	t := client.Connect()
	if err := waitToken(ctx, t); err != nil {
		return nil, err
	}

	return client, nil
}

func waitToken(ctx context.Context, t mqtt.Token) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
	}

	return t.Error()
}

// publishOnce connects to the broker, publishes payload to topic and disconnects.
func publishOnce(ctx context.Context, topic string, payload []byte) error {
	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(500)

	return waitToken(ctx, client.Publish(topic, 0, false, payload))
}
