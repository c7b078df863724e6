package cli

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yairfalse/kaiku/internal/output"
	"github.com/yairfalse/kaiku/pkg/trace"
)

var (
	checkJobs      int
	checkMaxIssues int
	outputFormat   string
)

var checkCmd = &cobra.Command{
	Use:   "check <trace-file>...",
	Short: "Check saved traces for structural problems",
	Long: `Check decodes every event in each trace file and verifies the
structure that a well-behaved instrumented run produces: scope entries
and exits balance, deallocations and accesses name buffers that are
actually live, and no event is missing required fields.

Files are checked concurrently. The exit status is non-zero when any
file fails to parse or has findings.`,
	Example: `  # Check the default trace
  kaiku check kaiku_trace.json

  # Compressed traces work too
  kaiku check run1.json.zst run2.json.gz

  # Bound the parallelism, report as JSON
  kaiku check --jobs 2 --output json runs/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 0, "traces checked in parallel (0 = GOMAXPROCS)")
	checkCmd.Flags().IntVar(&checkMaxIssues, "max-issues", 20, "findings reported per file (0 = all)")
	checkCmd.Flags().StringVarP(&outputFormat, "output", "o", "human", "Output format: human, json, yaml")
}

type checkResult struct {
	path     string
	events   int
	findings []trace.Finding
	err      error
}

// report converts a result to its rendered form, honoring the
// per-file findings cap.
func (r checkResult) report() output.TraceCheck {
	tc := output.TraceCheck{Path: r.path, Events: r.events}
	if r.err != nil {
		tc.Error = r.err.Error()
		return tc
	}

	findings := r.findings
	if checkMaxIssues > 0 && len(findings) > checkMaxIssues {
		tc.Truncated = len(findings) - checkMaxIssues
		findings = findings[:checkMaxIssues]
	}
	for _, f := range findings {
		tc.Findings = append(tc.Findings, f.String())
	}
	return tc
}

// checkTrace streams one file through the validator so large traces
// never need to fit in memory.
func checkTrace(path string) checkResult {
	res := checkResult{path: path}

	fr, err := trace.Open(path)
	if err != nil {
		res.err = err
		return res
	}
	defer fr.Close()

	v := trace.NewValidator()
	for {
		ev, err := fr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.err = err
			return res
		}
		res.findings = append(res.findings, v.Observe(ev)...)
		res.events++
	}
	res.findings = append(res.findings, v.Finish()...)
	return res
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return err
	}

	jobs := checkJobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]checkResult, len(args))

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(min(jobs, len(args)))
	for i, path := range args {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = checkTrace(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report := &output.CheckReport{Traces: make([]output.TraceCheck, 0, len(results))}
	for _, res := range results {
		report.Traces = append(report.Traces, res.report())
	}

	formatter := output.NewFormatter(outputFormat)
	if err := formatter.PrintCheck(report); err != nil {
		return err
	}

	if !report.OK() {
		bad := 0
		for _, tc := range report.Traces {
			if !tc.OK() {
				bad++
			}
		}
		return fmt.Errorf("%d of %d traces failed validation", bad, len(args))
	}
	return nil
}
