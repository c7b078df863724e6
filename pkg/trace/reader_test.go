package trace

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader) []Event {
	t.Helper()
	tr := NewReader(r)
	var events []Event
	for {
		ev, err := tr.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestReaderStreamsInOrder(t *testing.T) {
	input := `{
  "events": [
    {"funcname":"main","filename":"a.c","line":1,"col":1,"type":"scope_entry","scope_type":"func","id":10},
    {"funcname":"main","filename":"a.c","line":2,"col":3,"type":"allocation","buffer_name":"arr","buffer_id":1,"size":40},
    {"funcname":"main","filename":"a.c","line":9,"col":1,"type":"scope_exit","id":10}
  ]
}`
	r := NewReader(strings.NewReader(input))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, KindScopeEntry, first.Kind)
	assert.Equal(t, uint32(10), first.ScopeID)

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, KindAllocation, second.Kind)
	assert.Equal(t, "arr", second.BufferName)

	third, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, KindScopeExit, third.Kind)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err, "EOF must be sticky")
}

// Extra top-level keys around the events array are skipped, so the
// format can grow metadata without breaking old readers.
func TestReaderIgnoresExtraKeys(t *testing.T) {
	input := `{
  "meta": {"version": 2, "tags": ["x", "y"]},
  "events": [
    {"funcname":"f","filename":"a.c","line":1,"col":1,"type":"scope_exit","id":3}
  ],
  "trailer": 7
}`
	events := readAll(t, strings.NewReader(input))
	require.Len(t, events, 1)
	assert.Equal(t, uint32(3), events[0].ScopeID)
}

func TestReaderMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"NotAnObject", `[1, 2]`},
		{"MissingEventsKey", `{"meta": 1}`},
		{"BadEvent", `{"events": [{"funcname":"f"}]}`},
		{"Truncated", `{"events": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input))
			for {
				_, err := r.Next()
				if err != nil {
					assert.NotEqual(t, io.EOF, err)
					return
				}
			}
		})
	}
}

func TestReaderEventErrorNamesIndex(t *testing.T) {
	input := `{"events": [
		{"funcname":"f","filename":"a.c","line":1,"col":1,"type":"scope_exit","id":3},
		{"funcname":"f","filename":"a.c","line":2,"col":1,"type":"access","buffer_name":"arr"}
	]}`
	r := NewReader(strings.NewReader(input))
	_, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event 1")
}
