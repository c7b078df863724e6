// Package output renders check and stats reports for people and for
// machines.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/yairfalse/kaiku/pkg/trace"
)

// CheckReport is the outcome of validating one or more trace files.
type CheckReport struct {
	Traces []TraceCheck `json:"traces" yaml:"traces"`
}

// OK reports whether every trace passed.
func (r *CheckReport) OK() bool {
	for _, tc := range r.Traces {
		if !tc.OK() {
			return false
		}
	}
	return true
}

// TraceCheck holds the findings for a single file. Truncated counts
// findings dropped to honor the per-file cap.
type TraceCheck struct {
	Path      string   `json:"path" yaml:"path"`
	Events    int      `json:"events" yaml:"events"`
	Findings  []string `json:"findings,omitempty" yaml:"findings,omitempty"`
	Truncated int      `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func (t TraceCheck) OK() bool {
	return t.Error == "" && len(t.Findings) == 0
}

// StatsReport is the aggregate view of one trace file.
type StatsReport struct {
	Path           string         `json:"path" yaml:"path"`
	Events         int            `json:"events" yaml:"events"`
	Allocations    int            `json:"allocations" yaml:"allocations"`
	Deallocations  int            `json:"deallocations" yaml:"deallocations"`
	Reads          int            `json:"reads" yaml:"reads"`
	Writes         int            `json:"writes" yaml:"writes"`
	ScopeEntries   int            `json:"scope_entries" yaml:"scope_entries"`
	ScopeExits     int            `json:"scope_exits" yaml:"scope_exits"`
	Buffers        int            `json:"buffers" yaml:"buffers"`
	AllocatedBytes uint64         `json:"allocated_bytes" yaml:"allocated_bytes"`
	PeakLiveBytes  uint64         `json:"peak_live_bytes" yaml:"peak_live_bytes"`
	MaxScopeDepth  int            `json:"max_scope_depth" yaml:"max_scope_depth"`
	ScopeKinds     map[string]int `json:"scope_kinds,omitempty" yaml:"scope_kinds,omitempty"`
	TopBuffers     []BufferCount  `json:"top_buffers,omitempty" yaml:"top_buffers,omitempty"`
}

// BufferCount pairs a buffer name with its access total.
type BufferCount struct {
	Name     string `json:"name" yaml:"name"`
	Accesses int    `json:"accesses" yaml:"accesses"`
}

// NewStatsReport flattens a summary for rendering. top bounds the
// buffer list; 0 omits it.
func NewStatsReport(path string, sum *trace.Summary, top int) *StatsReport {
	r := &StatsReport{
		Path:           path,
		Events:         sum.Events,
		Allocations:    sum.Allocations,
		Deallocations:  sum.Deallocations,
		Reads:          sum.Reads,
		Writes:         sum.Writes,
		ScopeEntries:   sum.ScopeEntries,
		ScopeExits:     sum.ScopeExits,
		Buffers:        sum.Buffers,
		AllocatedBytes: sum.AllocatedBytes,
		PeakLiveBytes:  sum.PeakLiveBytes,
		MaxScopeDepth:  sum.MaxDepth,
	}

	if len(sum.ScopeKinds) > 0 {
		r.ScopeKinds = make(map[string]int, len(sum.ScopeKinds))
		for kind, count := range sum.ScopeKinds {
			r.ScopeKinds[kind.String()] = count
		}
	}

	if top > 0 {
		r.TopBuffers = topBuffers(sum.BufferAccess, top)
	}
	return r
}

// topBuffers orders buffers by access count, ties broken by name.
func topBuffers(access map[string]int, n int) []BufferCount {
	out := make([]BufferCount, 0, len(access))
	for name, count := range access {
		out = append(out, BufferCount{Name: name, Accesses: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accesses != out[j].Accesses {
			return out[i].Accesses > out[j].Accesses
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Formatter renders reports in one output format.
type Formatter interface {
	PrintCheck(report *CheckReport) error
	PrintStats(report *StatsReport) error
}

// NewFormatter creates a formatter writing to stdout.
func NewFormatter(format string) Formatter {
	return NewFormatterWithWriter(format, os.Stdout)
}

// NewFormatterWithWriter creates a formatter with a custom writer.
func NewFormatterWithWriter(format string, writer io.Writer) Formatter {
	if writer == nil {
		writer = os.Stdout
	}
	switch ParseFormat(format) {
	case "json":
		return &JSONFormatter{Writer: writer, Indent: true}
	case "yaml":
		return &YAMLFormatter{Writer: writer}
	default:
		return &HumanFormatter{Writer: writer}
	}
}

// Ensure our formatters implement the interface
var (
	_ Formatter = (*HumanFormatter)(nil)
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
)

// ValidateFormat checks if the format string is valid
func ValidateFormat(format string) error {
	switch format {
	case "human", "json", "yaml", "":
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (must be one of: human, json, yaml)", format)
	}
}

// ParseFormat normalizes the format string
func ParseFormat(format string) string {
	switch format {
	case "json", "JSON":
		return "json"
	case "yaml", "YAML", "yml":
		return "yaml"
	default:
		return "human"
	}
}
