package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/prepdeck/go-prepdeck/pkg/protocol"
)

// Recorder appends inbound session messages to a JSONL stream, one
// message per line, for later replay against a live server.
type Recorder struct {
	mu sync.Mutex
	w  *bufio.Writer
	c  io.Closer
}

// NewRecorder wraps a writer. If the writer is also an io.Closer,
// Close will close it.
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		r.c = c
	}
	return r
}

// Record appends one message as a JSON line.
func (r *Recorder) Record(msg *protocol.Message) error {
	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode recorded message: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(line); err != nil {
		return err
	}
	return r.w.WriteByte('\n')
}

// Close flushes buffered lines and closes the underlying writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		return err
	}
	if r.c != nil {
		return r.c.Close()
	}
	return nil
}
