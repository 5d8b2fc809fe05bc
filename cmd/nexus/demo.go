package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zoobzio/nexus"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
	colorWhite  = "\033[97m"
)

// Sample records, one per format.
var (
	sampleJSON   = `{"sensor":"temp","value":"23.5","unit":"C"}`
	sampleCSV    = "user,action,timestamp\nalice,login,10:00\nbob,upload,10:05\nalice,logout,10:30"
	sampleStream = []float64{23.5, 26.6, 20.2}
)

func newDemoCmd() *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk sample records through the three adapters",
		Long: `Run one sample record of each format through a JSON, a CSV and a stream
adapter, then chain the three adapters in one manager and feed malformed
records to show recovery.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := &Demo{out: cmd.OutOrStdout(), ctx: cmd.Context(), color: !noColor}
			return d.Run()
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors")
	return cmd
}

// Demo walks through the demo sections, writing to out.
type Demo struct {
	out   io.Writer
	ctx   context.Context
	color bool
}

// Run prints every section in order.
func (d *Demo) Run() error {
	json := nexus.NewJSONAdapter("json-adapter", nexus.InputStage{}, nexus.TransformStage{}, nexus.OutputStage{})
	csv := nexus.NewCSVAdapter("csv-adapter", nexus.InputStage{}, nexus.TransformStage{}, nexus.OutputStage{})
	stream := nexus.NewStreamAdapter("stream-adapter", nexus.InputStage{}, nexus.TransformStage{}, nexus.OutputStage{})

	m := nexus.NewManager("demo")
	defer m.Close()
	for _, p := range []*nexus.Pipeline{json, csv, stream} {
		if err := m.Add(p); err != nil {
			return err
		}
	}

	d.section("ADAPTERS")
	d.outcome(json.Run(d.ctx, sampleJSON))
	d.outcome(csv.Run(d.ctx, sampleCSV))
	d.outcome(stream.Run(d.ctx, sampleStream))

	d.section("CHAINED MANAGER")
	d.note("Each pipeline's result feeds the next one.")
	for _, in := range []any{sampleJSON, sampleStream} {
		res := m.Chain(d.ctx, in)
		for _, link := range res.Links {
			d.outcome(link)
		}
		d.line("")
	}

	d.section("RECOVERY")
	d.note("Malformed records degrade to a fallback value; processing continues.")
	for _, in := range []any{"{}", 42, sampleJSON} {
		d.outcome(json.Run(d.ctx, in))
	}

	d.section("STATS")
	stats := m.Stats()
	for _, p := range m.Pipelines() {
		st := stats[p.Name()]
		d.line(fmt.Sprintf("%-16s %-7s runs=%d ok=%d degraded=%d elapsed=%v",
			p.Name(), p.Kind(), st.Runs, st.Successes, st.Failures, st.Elapsed))
	}
	return nil
}

func (d *Demo) section(title string) {
	d.line("")
	d.line(d.paint(colorCyan, "═══ "+title+" ═══"))
}

func (d *Demo) note(text string) {
	d.line(d.paint(colorGray, text))
}

func (d *Demo) outcome(o nexus.Outcome) {
	if o.OK() {
		d.line(fmt.Sprintf("%s %s %v", d.paint(colorGreen, "✓"), d.paint(colorWhite, o.Pipeline), o.Value))
		return
	}
	d.line(fmt.Sprintf("%s %s %v", d.paint(colorYellow, "!"), d.paint(colorWhite, o.Pipeline), o.Value))
	d.line("    " + d.paint(colorRed, o.Err.Error()))
}

func (d *Demo) paint(color, text string) string {
	if !d.color {
		return text
	}
	return color + text + colorReset
}

func (d *Demo) line(text string) {
	fmt.Fprintln(d.out, text)
}
