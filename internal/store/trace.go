package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/shadowcast/internal/shadow"
)

// TraceEntry is one light-estimation evaluation, stored as a JSON line in
// trace.jsonl.
type TraceEntry struct {
	// Evaluation is the 1-based objective evaluation count
	Evaluation int `json:"evaluation"`

	// Light is the candidate that was evaluated
	Light shadow.Light `json:"light"`

	// Cost is the MSE of the candidate; Best is the lowest cost seen so far
	Cost float64 `json:"cost"`
	Best float64 `json:"best"`

	Timestamp time.Time `json:"timestamp"`
}

// TraceWriter writes trace entries to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string

	// evaluations and best cover entries written through Record
	evaluations int
	best        float64
}

func tracePath(baseDir, id string) string {
	return filepath.Join(baseDir, "renders", id, ArtifactTrace)
}

// NewTraceWriter creates a trace writer at <baseDir>/renders/<id>/trace.jsonl.
// If append is true, new entries are appended to an existing file.
func NewTraceWriter(baseDir, id string, append bool) (*TraceWriter, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	path := tracePath(baseDir, id)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
		best:   math.Inf(1),
	}, nil
}

// Record appends the next evaluation of light. It numbers the entry and
// keeps the running best cost.
func (tw *TraceWriter) Record(light shadow.Light, cost float64) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.evaluations++
	tw.best = math.Min(tw.best, cost)
	return tw.write(TraceEntry{
		Evaluation: tw.evaluations,
		Light:      light,
		Cost:       cost,
		Best:       tw.best,
		Timestamp:  time.Now(),
	})
}

// Write appends a trace entry as given. The entry is buffered until Flush
// or Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.write(entry)
}

func (tw *TraceWriter) write(entry TraceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	data = append(data, '\n')

	if _, err := tw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	return nil
}

// Flush writes any buffered data to the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the trace file.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader reads trace entries back from trace.jsonl. Blank lines are
// skipped; a malformed line is reported with its line number.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// NewTraceReader opens the trace of the given record.
func NewTraceReader(baseDir, id string) (*TraceReader, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	file, err := os.Open(tracePath(baseDir, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace of %s: %w", id, err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &TraceReader{file: file, scanner: scanner}, nil
}

// Read returns the next entry, or io.EOF after the last one.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	for tr.scanner.Scan() {
		tr.line++
		raw := bytes.TrimSpace(tr.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry TraceEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", tr.line, err)
		}
		return &entry, nil
	}
	if err := tr.scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace line %d: %w", tr.line+1, err)
	}
	return nil, io.EOF
}

// ReadAll returns every remaining entry.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		switch {
		case errors.Is(err, io.EOF):
			return entries, nil
		case err != nil:
			return nil, err
		}
		entries = append(entries, *entry)
	}
}

// Close releases the trace file.
func (tr *TraceReader) Close() error {
	return tr.file.Close()
}
