// Package transcribe turns buffered interview audio into timed words for
// the speech analyzer.
package transcribe

import (
	"context"
	"strings"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/audio"
)

// Word is one transcribed word with its offset from the start of the
// submitted utterance.
type Word struct {
	Text   string        `json:"text"`
	Offset time.Duration `json:"offset"`
}

// Transcript is the result of transcribing one utterance.
type Transcript struct {
	Text     string        `json:"text"`
	Words    []Word        `json:"words"`
	Duration time.Duration `json:"duration"`
}

// Transcriber converts one utterance of PCM16 audio into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, c audio.Chunk) (Transcript, error)
}

// splitWords derives per-word offsets from plain text by spreading the
// words evenly across the utterance. Backends without word timings use
// this as an approximation.
func splitWords(text string, duration time.Duration) []Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	step := duration / time.Duration(len(fields))
	words := make([]Word, len(fields))
	for i, f := range fields {
		words[i] = Word{Text: f, Offset: step * time.Duration(i)}
	}
	return words
}
