package cmd

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lone-faerie/cfstats/config"
	"github.com/lone-faerie/cfstats/internal/byteutil"
	"github.com/lone-faerie/cfstats/log"
	"github.com/lone-faerie/cfstats/metrics"
	"github.com/lone-faerie/cfstats/sensor"
)

// Flags for cfstats list
var (
	ListSummary bool   // Display a summary of the sensors
	ListUnit    string // Unit of bandwidth sensors
)

//go:embed help/list.md
var listHelp string

// NewCmdList returns the [cobra.Command] used for listing the sensors of a zone.
//
// Usage:
//
//	cfstats list [flags]
//
// Aliases:
//
//	list, l
//
// Flags:
//
//	-c, --config strings   Path(s) to config file/directory
//	-u, --unit string      Unit of bandwidth sensors (default "MB")
//	-s, --summary          Display a summary of the sensors
//	-h, --help             help for list
func NewCmdList() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "List the sensors of each zone",
		Long:    listHelp,
		GroupID: "commands",
		Args:    cobra.NoArgs,
		RunE:    listSensors,
	}

	cmd.Flags().SortFlags = false
	addConfigFlag(cmd)
	cmd.Flags().StringVarP(&ListUnit, "unit", "u", config.DefaultBandwidthUnit.String(), "Unit of bandwidth sensors")
	cmd.Flags().BoolVarP(&ListSummary, "summary", "s", false, "Display a summary of the sensors")

	cmd.SetHelpTemplate(cmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	return cmd
}

// section returns the entity category of d, or the first element of its key.
func section(d *sensor.Definition) string {
	if d.Category != "" {
		return d.Category
	}
	s, _, _ := strings.Cut(d.Key, ".")
	return s
}

func printSensors(w io.Writer, defs []sensor.Definition) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	var last string

	for i := range defs {
		d := &defs[i]

		if s := section(d); s != last {
			if last != "" {
				fmt.Fprintln(tw)
			}

			fmt.Fprintf(tw, "[%s]\n", byteutil.ToTitleString(s))
			last = s
		}

		enabled := ""
		if !d.Enabled {
			enabled = "(disabled)"
		}

		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", d.Key, d.Name, d.Unit, enabled)
	}
}

func printSummary(w io.Writer, defs []sensor.Definition) {
	for i := range defs {
		if i > 0 {
			io.WriteString(w, ", ")
		}

		io.WriteString(w, defs[i].Key)
	}

	io.WriteString(w, "\n")
}

func printZones(w io.Writer, mm []metrics.Metric) {
	r := strings.NewReplacer("\n", "\n  ")

	for _, m := range mm {
		fmt.Fprint(w, "\n  ")
		r.WriteString(w, m.String())
		fmt.Fprintln(w)
	}
}

func listSensors(cmd *cobra.Command, _ []string) (err error) {
	log.SetLogLevel(log.LevelWarn)

	unit, err := byteutil.ParseSize(ListUnit)
	if err != nil {
		return err
	}

	defs := sensor.Catalog(unit)
	w := cmd.OutOrStdout()

	if ListSummary {
		printSummary(w, defs)
		return nil
	}

	printSensors(w, defs)

	findConfig()

	cfg, err = config.Load(ConfigPath...)
	if err != nil {
		return err
	}

	setLogHandler(cfg, log.LevelWarn)

	if len(cfg.Zones) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\n[Zones]")
	printZones(w, metrics.New(cfg))

	return nil
}
