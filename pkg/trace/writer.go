package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Writer streams events to w as a single {"events": [...]} document,
// one event object per line. Close finishes the document; the Writer
// must not be used afterwards.
type Writer struct {
	w       *bufio.Writer
	buf     bytes.Buffer
	enc     *json.Encoder
	started bool
	count   int
}

// NewWriter returns a Writer emitting to w. The caller remains the
// owner of w; Close only completes the JSON document.
func NewWriter(w io.Writer) *Writer {
	tw := &Writer{w: bufio.NewWriter(w)}
	tw.enc = json.NewEncoder(&tw.buf)
	// Traced programs carry C++ symbol names; keep < and > readable.
	tw.enc.SetEscapeHTML(false)
	return tw
}

func (w *Writer) start() error {
	if w.started {
		return nil
	}
	w.started = true
	_, err := w.w.WriteString("{\n  \"events\": [\n")
	return err
}

// Write appends one event to the document.
func (w *Writer) Write(ev Event) error {
	if err := w.start(); err != nil {
		return err
	}
	if w.count > 0 {
		if _, err := w.w.WriteString(",\n"); err != nil {
			return err
		}
	}
	w.buf.Reset()
	if err := w.enc.Encode(ev); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := w.w.WriteString("    "); err != nil {
		return err
	}
	// Encode appends a newline; the separator layout adds its own.
	if _, err := w.w.Write(bytes.TrimRight(w.buf.Bytes(), "\n")); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of events written so far.
func (w *Writer) Count() int { return w.count }

// Close completes the document and flushes buffered output.
func (w *Writer) Close() error {
	if err := w.start(); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n  ]\n}\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// FileWriter is a Writer bound to a file, compressing according to the
// file's extension.
type FileWriter struct {
	*Writer
	comp io.WriteCloser
	file *os.File
}

// Create opens path for writing and returns a FileWriter for it. The
// codec is chosen with CompressionForPath.
func Create(path string) (*FileWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	comp, err := newCompressWriter(file, CompressionForPath(path))
	if err != nil {
		file.Close()
		return nil, err
	}
	return &FileWriter{
		Writer: NewWriter(comp),
		comp:   comp,
		file:   file,
	}, nil
}

// Close completes the document and closes the compressor and file.
func (fw *FileWriter) Close() error {
	err := fw.Writer.Close()
	if cerr := fw.comp.Close(); err == nil {
		err = cerr
	}
	if cerr := fw.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteFile writes events to path in one call.
func WriteFile(path string, events []Event) error {
	fw, err := Create(path)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := fw.Write(ev); err != nil {
			fw.Close()
			return err
		}
	}
	return fw.Close()
}
