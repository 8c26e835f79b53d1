// Package cmd implements the command line interface of cfstats.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lone-faerie/cfstats/internal/build"
	"github.com/lone-faerie/cfstats/internal/cleanup"
)

// RootCommand is the base command of cfstats, which has no action of its own.
var RootCommand = &cobra.Command{
	Use:     "cfstats",
	Short:   "Provide Cloudflare zone analytics over MQTT",
	Version: build.Version(),
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup.Cleanup()
	},
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	SilenceErrors:     true,
}

func init() {
	RootCommand.AddGroup(
		&cobra.Group{ID: "commands", Title: "Commands:"},
	)

	RootCommand.AddCommand(
		NewCmdRun(),
		NewCmdList(),
		NewCmdFetch(),
		NewCmdStop(),
		NewCmdPurge(),
	)
}

// Execute runs the root command. Any error returned after a command has run
// is an [*ExitError].
func Execute() error {
	c, err := RootCommand.ExecuteC()
	if err == nil {
		return nil
	}

	if _, ok := err.(*ExitError); !ok {
		c.PrintErrln("Error:", err)
		c.Usage()
	}

	cleanup.Cleanup()

	return err
}
