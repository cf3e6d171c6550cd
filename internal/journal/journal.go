// Package journal appends economy events to hourly rotated, zstd-compressed
// JSONL files.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"lodyland/internal/game"
	"lodyland/pkg/logger"
)

// Writer appends JSON values, one per line, to <dir>/<prefix>-<hour>.jsonl.zst
type Writer struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter creates a writer. Files are opened lazily on first write.
func NewWriter(baseDir, prefix string) *Writer {
	return &Writer{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

// Write appends v as one JSON line
func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes and closes the current file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// PathForHour returns the file an hour's entries go to
func (w *Writer) PathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := os.OpenFile(w.PathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

// EventJournal is an EventSink that writes events to a Writer
type EventJournal struct {
	w      *Writer
	logger *logger.ColoredLogger
}

// NewEventJournal journals events under dir/events-*.jsonl.zst
func NewEventJournal(dir string) *EventJournal {
	return &EventJournal{
		w:      NewWriter(dir, "events"),
		logger: logger.NewComponentLogger("JOURNAL", logger.ColorGreen),
	}
}

// Publish implements game.EventSink. Write failures are logged, never
// propagated to the player action that produced the event.
func (j *EventJournal) Publish(e game.Event) {
	if err := j.w.Write(e); err != nil {
		j.logger.Error("Failed to journal %s event %s: %v", e.Kind, e.ID, err)
	}
}

// Close closes the underlying writer
func (j *EventJournal) Close() error {
	return j.w.Close()
}
