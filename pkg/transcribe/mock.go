package transcribe

import (
	"context"
	"sync"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/audio"
)

// Mock is a canned Transcriber for tests and offline demos. Each call
// returns the next queued text; once exhausted it returns empty
// transcripts.
type Mock struct {
	mu    sync.Mutex
	texts []string
	calls int
}

// NewMock creates a mock that replays the given texts in order.
func NewMock(texts ...string) *Mock {
	return &Mock{texts: texts}
}

// Transcribe implements Transcriber.
func (m *Mock) Transcribe(_ context.Context, c audio.Chunk) (Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(m.texts) == 0 {
		return Transcript{}, nil
	}
	text := m.texts[0]
	m.texts = m.texts[1:]

	duration := time.Duration(c.Duration() * float64(time.Second))
	if duration == 0 {
		duration = time.Second
	}
	return Transcript{
		Text:     text,
		Words:    splitWords(text, duration),
		Duration: duration,
	}, nil
}

// Calls returns how many times Transcribe has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
