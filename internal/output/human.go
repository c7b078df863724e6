package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// HumanFormatter prints reports for terminal reading.
type HumanFormatter struct {
	Writer io.Writer
}

func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{Writer: os.Stdout}
}

func (f *HumanFormatter) PrintCheck(report *CheckReport) error {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	for _, tc := range report.Traces {
		switch {
		case tc.Error != "":
			fmt.Fprintf(f.Writer, "%s %s: %s\n", red("ERROR:"), tc.Path, tc.Error)
		case len(tc.Findings) > 0:
			fmt.Fprintf(f.Writer, "%s %s: %d events, %d findings\n",
				yellow("FINDINGS:"), tc.Path, tc.Events, len(tc.Findings)+tc.Truncated)
			for _, finding := range tc.Findings {
				fmt.Fprintf(f.Writer, "   %s\n", finding)
			}
			if tc.Truncated > 0 {
				fmt.Fprintf(f.Writer, "   ... and %d more\n", tc.Truncated)
			}
		default:
			fmt.Fprintf(f.Writer, "%s %s: %d events\n", green("OK:"), tc.Path, tc.Events)
		}
	}
	return nil
}

func (f *HumanFormatter) PrintStats(report *StatsReport) error {
	fmt.Fprintf(f.Writer, "%s\n", report.Path)
	fmt.Fprintf(f.Writer, "  Events:          %d\n", report.Events)
	fmt.Fprintf(f.Writer, "    allocation     %d\n", report.Allocations)
	fmt.Fprintf(f.Writer, "    deallocation   %d\n", report.Deallocations)
	fmt.Fprintf(f.Writer, "    access         %d (%d reads, %d writes)\n",
		report.Reads+report.Writes, report.Reads, report.Writes)
	fmt.Fprintf(f.Writer, "    scope_entry    %d%s\n", report.ScopeEntries, f.scopeKinds(report))
	fmt.Fprintf(f.Writer, "    scope_exit     %d\n", report.ScopeExits)
	fmt.Fprintf(f.Writer, "  Buffers:         %d\n", report.Buffers)
	fmt.Fprintf(f.Writer, "  Allocated bytes: %d\n", report.AllocatedBytes)
	fmt.Fprintf(f.Writer, "  Peak live bytes: %d\n", report.PeakLiveBytes)
	fmt.Fprintf(f.Writer, "  Max scope depth: %d\n", report.MaxScopeDepth)

	if len(report.TopBuffers) == 0 {
		return nil
	}
	fmt.Fprintf(f.Writer, "\n  Top buffers by accesses:\n")
	for _, bc := range report.TopBuffers {
		fmt.Fprintf(f.Writer, "    %-24s %d\n", bc.Name, bc.Accesses)
	}
	return nil
}

// scopeKinds renders the per-kind breakdown in the wire order of the
// kinds, func first.
func (f *HumanFormatter) scopeKinds(report *StatsReport) string {
	if len(report.ScopeKinds) == 0 {
		return ""
	}

	out := ""
	for _, name := range []string{"func", "loop", "cond", "para", "unst", "n/a"} {
		count, ok := report.ScopeKinds[name]
		if !ok {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s %d", name, count)
	}
	return " (" + out + ")"
}
