// Package trace defines the event model for kaiku traces and the JSON
// serialization used to write and read them.
package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnknownName is substituted for buffer names and debug strings the
// instrumenter could not recover from compiler metadata.
const UnknownName = "$UNKNOWN$"

// EventKind discriminates the event union.
type EventKind uint8

const (
	KindAllocation EventKind = iota
	KindDeallocation
	KindAccess
	KindScopeEntry
	KindScopeExit
)

var kindNames = map[EventKind]string{
	KindAllocation:   "allocation",
	KindDeallocation: "deallocation",
	KindAccess:       "access",
	KindScopeEntry:   "scope_entry",
	KindScopeExit:    "scope_exit",
}

func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseEventKind maps a wire "type" string back to its kind.
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// ScopeKind classifies the static scope a scope_entry event opens.
// Values above ScopeUnstructured serialize as "n/a".
type ScopeKind uint8

const (
	ScopeFunction ScopeKind = iota
	ScopeLoop
	ScopeConditional
	ScopeParallel
	ScopeUnstructured

	// ScopeUnknown is any kind the instrumenter did not classify.
	ScopeUnknown ScopeKind = 0xff
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFunction:
		return "func"
	case ScopeLoop:
		return "loop"
	case ScopeConditional:
		return "cond"
	case ScopeParallel:
		return "para"
	case ScopeUnstructured:
		return "unst"
	default:
		return "n/a"
	}
}

// ParseScopeKind maps a wire "scope_type" string back to its kind.
func ParseScopeKind(s string) (ScopeKind, error) {
	switch s {
	case "func":
		return ScopeFunction, nil
	case "loop":
		return ScopeLoop, nil
	case "cond":
		return ScopeConditional, nil
	case "para":
		return ScopeParallel, nil
	case "unst":
		return ScopeUnstructured, nil
	case "n/a":
		return ScopeUnknown, nil
	default:
		return 0, fmt.Errorf("unknown scope type %q", s)
	}
}

// DebugInfo locates the instrumentation site in the traced program's
// source. All fields are best-effort; absent strings become UnknownName.
type DebugInfo struct {
	Funcname string
	Filename string
	Line     uint32
	Col      uint32
}

// Sanitize replaces empty strings with UnknownName.
func (d DebugInfo) Sanitize() DebugInfo {
	if d.Funcname == "" {
		d.Funcname = UnknownName
	}
	if d.Filename == "" {
		d.Filename = UnknownName
	}
	return d
}

// Event is one record in a trace. Kind selects which of the optional
// fields are meaningful; events are immutable once appended to a log.
type Event struct {
	Kind  EventKind
	Debug DebugInfo

	// BufferName and BufferID are valid when Kind is KindAllocation,
	// KindDeallocation, or KindAccess.
	BufferName string
	BufferID   uint64

	// Size is valid only when Kind is KindAllocation.
	Size uint64

	// Write is valid only when Kind is KindAccess.
	Write bool

	// ScopeID is valid when Kind is KindScopeEntry or KindScopeExit.
	ScopeID uint32

	// Scope is valid only when Kind is KindScopeEntry.
	Scope ScopeKind
}

// Mode returns the wire access mode, "w" for writes and "r" for reads.
// Only valid when Kind is KindAccess.
func (e Event) Mode() string {
	if e.Write {
		return "w"
	}
	return "r"
}

// Wire structs fix the JSON field order to match the trace format:
// common debug fields first, then the type tag, then type-specific
// payload fields.

type wireCommon struct {
	Funcname string `json:"funcname"`
	Filename string `json:"filename"`
	Line     uint32 `json:"line"`
	Col      uint32 `json:"col"`
	Type     string `json:"type"`
}

type wireAllocation struct {
	wireCommon
	BufferName string `json:"buffer_name"`
	BufferID   uint64 `json:"buffer_id"`
	Size       uint64 `json:"size"`
}

type wireDeallocation struct {
	wireCommon
	BufferName string `json:"buffer_name"`
	BufferID   uint64 `json:"buffer_id"`
}

type wireAccess struct {
	wireCommon
	Mode       string `json:"mode"`
	BufferName string `json:"buffer_name"`
	BufferID   uint64 `json:"buffer_id"`
}

type wireScopeEntry struct {
	wireCommon
	ScopeType string `json:"scope_type"`
	ID        uint32 `json:"id"`
}

type wireScopeExit struct {
	wireCommon
	ID uint32 `json:"id"`
}

// marshalNoEscape marshals without HTML escaping so C++ symbol names
// like vector<int> stay readable in trace files.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	common := wireCommon{
		Funcname: e.Debug.Funcname,
		Filename: e.Debug.Filename,
		Line:     e.Debug.Line,
		Col:      e.Debug.Col,
		Type:     e.Kind.String(),
	}
	switch e.Kind {
	case KindAllocation:
		return marshalNoEscape(wireAllocation{
			wireCommon: common,
			BufferName: e.BufferName,
			BufferID:   e.BufferID,
			Size:       e.Size,
		})
	case KindDeallocation:
		return marshalNoEscape(wireDeallocation{
			wireCommon: common,
			BufferName: e.BufferName,
			BufferID:   e.BufferID,
		})
	case KindAccess:
		return marshalNoEscape(wireAccess{
			wireCommon: common,
			Mode:       e.Mode(),
			BufferName: e.BufferName,
			BufferID:   e.BufferID,
		})
	case KindScopeEntry:
		return marshalNoEscape(wireScopeEntry{
			wireCommon: common,
			ScopeType:  e.Scope.String(),
			ID:         e.ScopeID,
		})
	case KindScopeExit:
		return marshalNoEscape(wireScopeExit{
			wireCommon: common,
			ID:         e.ScopeID,
		})
	default:
		return nil, fmt.Errorf("cannot marshal unknown event kind %d", uint8(e.Kind))
	}
}

// wireEvent uses pointer fields so UnmarshalJSON can distinguish absent
// fields from zero values when enforcing per-kind requirements.
type wireEvent struct {
	Funcname   *string `json:"funcname"`
	Filename   *string `json:"filename"`
	Line       *uint32 `json:"line"`
	Col        *uint32 `json:"col"`
	Type       *string `json:"type"`
	BufferName *string `json:"buffer_name"`
	BufferID   *uint64 `json:"buffer_id"`
	Size       *uint64 `json:"size"`
	Mode       *string `json:"mode"`
	ScopeType  *string `json:"scope_type"`
	ID         *uint32 `json:"id"`
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type == nil {
		return fmt.Errorf("event missing \"type\" field")
	}
	kind, err := ParseEventKind(*w.Type)
	if err != nil {
		return err
	}

	var out Event
	out.Kind = kind
	if w.Funcname != nil {
		out.Debug.Funcname = *w.Funcname
	}
	if w.Filename != nil {
		out.Debug.Filename = *w.Filename
	}
	if w.Line != nil {
		out.Debug.Line = *w.Line
	}
	if w.Col != nil {
		out.Debug.Col = *w.Col
	}

	switch kind {
	case KindAllocation:
		if w.BufferName == nil {
			return fmt.Errorf("allocation event missing \"buffer_name\"")
		}
		if w.Size == nil {
			return fmt.Errorf("allocation event missing \"size\"")
		}
		out.BufferName = *w.BufferName
		out.Size = *w.Size
		if w.BufferID != nil {
			out.BufferID = *w.BufferID
		}
	case KindDeallocation:
		if w.BufferName == nil {
			return fmt.Errorf("deallocation event missing \"buffer_name\"")
		}
		out.BufferName = *w.BufferName
		if w.BufferID != nil {
			out.BufferID = *w.BufferID
		}
	case KindAccess:
		if w.BufferName == nil {
			return fmt.Errorf("access event missing \"buffer_name\"")
		}
		if w.Mode == nil {
			return fmt.Errorf("access event missing \"mode\"")
		}
		switch *w.Mode {
		case "r":
			out.Write = false
		case "w":
			out.Write = true
		default:
			return fmt.Errorf("access event has invalid mode %q", *w.Mode)
		}
		out.BufferName = *w.BufferName
		if w.BufferID != nil {
			out.BufferID = *w.BufferID
		}
	case KindScopeEntry:
		if w.ID == nil {
			return fmt.Errorf("scope_entry event missing \"id\"")
		}
		if w.ScopeType == nil {
			return fmt.Errorf("scope_entry event missing \"scope_type\"")
		}
		scope, err := ParseScopeKind(*w.ScopeType)
		if err != nil {
			return err
		}
		out.ScopeID = *w.ID
		out.Scope = scope
	case KindScopeExit:
		if w.ID == nil {
			return fmt.Errorf("scope_exit event missing \"id\"")
		}
		out.ScopeID = *w.ID
	}

	*e = out
	return nil
}
