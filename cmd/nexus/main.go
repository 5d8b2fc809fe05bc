package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// options holds the flags shared by every command.
type options struct {
	configPath  string
	journalPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "nexus",
		Short: "Run raw records through staged processing pipelines",
		Long: `nexus feeds raw records (JSON-like text, CSV-like text or numeric streams)
through chained input, transform and output stages and prints the rendered
summaries.

A failing stage never stops the run: the record falls back to the value the
failing stage received and processing moves on to the next input.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Pipeline config file (.yaml, .yml or .toml)")
	root.PersistentFlags().StringVar(&opts.journalPath, "journal", "", "Record run outcomes in this sqlite file")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newDemoCmd())
	root.AddCommand(newStagesCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
