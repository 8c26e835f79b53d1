package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lone-faerie/cfstats/cloudflare"
	"github.com/lone-faerie/cfstats/log"
	"github.com/lone-faerie/cfstats/metrics"
)

// Flags for cfstats fetch
var (
	FetchJSON    bool // Print the sensor states payload of each zone
	FetchSensors bool // Print the sensor states instead of the snapshot
)

// NewCmdFetch returns the [cobra.Command] used for polling each zone once.
//
// Usage:
//
//	cfstats fetch [--config <path>]... [flags] [zone]...
func NewCmdFetch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [--config <path>]... [flags] [zone]...",
		Short: "Poll each zone once and print the result",
		Long: `Poll the analytics of each zone once, concurrently, and print the result.

By default the flattened analytics totals of each zone are printed, one dotted key per line. With --sensors only the values of the sensors are printed, and with --json the state payload that would be published to the topic of each zone is printed instead.

Zone ids or names may be supplied as arguments, which will only poll those zones of the config.`,
		GroupID:           "commands",
		ValidArgsFunction: completeZones,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetLogLevel(log.LevelWarn)
			return loadConfig(args, log.LevelWarn)
		},
		RunE: fetchZones,

		DisableFlagsInUseLine: true,
	}

	cmd.Flags().SortFlags = false
	addConfigFlag(cmd)
	cmd.Flags().BoolVarP(&FetchSensors, "sensors", "s", false, "Print the sensor states instead of the analytics totals")
	cmd.Flags().BoolVarP(&FetchJSON, "json", "j", false, "Print the state payload of each zone")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

func printSnapshot(w io.Writer, snap cloudflare.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	for _, k := range snap.Keys() {
		fmt.Fprintf(tw, "  %s\t%v\n", k, snap[k])
	}
}

func printStates(w io.Writer, z *metrics.Zone) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	for _, s := range z.States() {
		if !s.Available {
			fmt.Fprintf(tw, "  %s\tunavailable\n", s.Key)
			continue
		}

		fmt.Fprintf(tw, "  %s\t%v\t%s\n", s.Key, s.Value, s.Unit)
	}
}

// fetch refreshes each of zones concurrently. The returned errors are in
// the order of zones.
func fetch(ctx context.Context, zones []*metrics.Zone) []error {
	errs := make([]error, len(zones))

	var g errgroup.Group

	g.SetLimit(4)

	for i, z := range zones {
		g.Go(func() error {
			errs[i] = z.Refresh(ctx)
			return nil
		})
	}

	g.Wait()

	return errs
}

func fetchZones(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var zones []*metrics.Zone

	for _, m := range metrics.New(cfg) {
		if z, ok := m.(*metrics.Zone); ok {
			zones = append(zones, z)
		}
	}

	errs := fetch(cmd.Context(), zones)
	w := cmd.OutOrStdout()

	var failed int

	for i, z := range zones {
		if FetchJSON {
			b, _ := json.Marshal(z)
			fmt.Fprintf(w, "%s\n", b)
		} else {
			fmt.Fprintf(w, "[%s]\n", z.Name())

			switch {
			case errs[i] != nil:
				fmt.Fprintf(w, "  error: %v\n", errs[i])
			case FetchSensors:
				printStates(w, z)
			default:
				printSnapshot(w, z.Snapshot())
			}
		}

		if errs[i] != nil {
			failed++
			log.WarnError("Unable to fetch zone", errs[i], "zone", z.ID())
		}
	}

	if failed > 0 {
		return &ExitError{fmt.Errorf("%d of %d zones failed", failed, len(zones)), 1}
	}

	return nil
}
