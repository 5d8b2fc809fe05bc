package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zoobzio/nexus/config"
)

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the stage names usable in config files",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range config.DefaultRegistry().Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
