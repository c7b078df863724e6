package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yairfalse/kaiku/internal/output"
	"github.com/yairfalse/kaiku/pkg/trace"
)

var (
	statsTop    int
	statsFormat string
)

var statsCmd = &cobra.Command{
	Use:   "stats <trace-file>",
	Short: "Summarize a saved trace",
	Long: `Stats reads one trace file and prints aggregate figures: event
counts per type, the read/write split, allocated and peak live bytes,
scope nesting depth, and the most accessed buffers.`,
	Example: `  kaiku stats kaiku_trace.json
  kaiku stats --top 5 --output yaml run.json.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "buffers listed by access count (0 = none)")
	statsCmd.Flags().StringVarP(&statsFormat, "output", "o", "human", "Output format: human, json, yaml")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := output.ValidateFormat(statsFormat); err != nil {
		return err
	}
	path := args[0]

	fr, err := trace.Open(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	sum := trace.NewSummary()
	for {
		ev, err := fr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sum.Observe(ev)
	}

	formatter := output.NewFormatter(statsFormat)
	return formatter.PrintStats(output.NewStatsReport(path, sum, statsTop))
}
