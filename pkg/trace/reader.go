package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Reader streams events out of a {"events": [...]} document without
// holding the whole trace in memory.
type Reader struct {
	dec     *json.Decoder
	started bool
	done    bool
	index   int
}

// NewReader returns a Reader decoding from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: json.NewDecoder(r)}
}

func (r *Reader) expectDelim(d json.Delim) error {
	tok, err := r.dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != d {
		return fmt.Errorf("malformed trace: expected %q, got %v", d.String(), tok)
	}
	return nil
}

// skipValue consumes one complete JSON value at the current position.
func (r *Reader) skipValue() error {
	depth := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
		if depth <= 0 {
			return nil
		}
	}
}

// start reads tokens up to the opening of the "events" array.
func (r *Reader) start() error {
	if err := r.expectDelim('{'); err != nil {
		return err
	}
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("malformed trace: missing \"events\" array")
		}
		if key == "events" {
			break
		}
		if err := r.skipValue(); err != nil {
			return err
		}
	}
	if err := r.expectDelim('['); err != nil {
		return err
	}
	r.started = true
	return nil
}

// finish consumes the array close and the rest of the document.
func (r *Reader) finish() error {
	if err := r.expectDelim(']'); err != nil {
		return err
	}
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		if tok == json.Delim('}') {
			r.done = true
			return nil
		}
		if _, ok := tok.(string); !ok {
			return fmt.Errorf("malformed trace: unexpected token %v", tok)
		}
		if err := r.skipValue(); err != nil {
			return err
		}
	}
}

// Next returns the next event in append order. It returns io.EOF once
// the trace is exhausted.
func (r *Reader) Next() (Event, error) {
	if r.done {
		return Event{}, io.EOF
	}
	if !r.started {
		if err := r.start(); err != nil {
			return Event{}, err
		}
	}
	if !r.dec.More() {
		if err := r.finish(); err != nil {
			return Event{}, err
		}
		return Event{}, io.EOF
	}
	var ev Event
	if err := r.dec.Decode(&ev); err != nil {
		return Event{}, fmt.Errorf("event %d: %w", r.index, err)
	}
	r.index++
	return ev, nil
}

// FileReader is a Reader bound to a file, decompressing according to
// the file's extension.
type FileReader struct {
	*Reader
	comp io.ReadCloser
	file *os.File
}

// Open opens a trace file for streaming reads.
func Open(path string) (*FileReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	comp, err := newCompressReader(bufio.NewReader(file), CompressionForPath(path))
	if err != nil {
		file.Close()
		return nil, err
	}
	return &FileReader{
		Reader: NewReader(comp),
		comp:   comp,
		file:   file,
	}, nil
}

// Close releases the decompressor and underlying file.
func (fr *FileReader) Close() error {
	err := fr.comp.Close()
	if cerr := fr.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadFile loads a whole trace into memory.
func ReadFile(path string) ([]Event, error) {
	fr, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	var events []Event
	for {
		ev, err := fr.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}
