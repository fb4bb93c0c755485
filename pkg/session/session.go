// Package session orchestrates one interview analysis session: it drives
// the detection engine on a fixed tick, routes audio and transcript
// samples into the extractors, and assembles the final scored report.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/prepdeck/go-prepdeck/internal/log"
	"github.com/prepdeck/go-prepdeck/pkg/audio"
	"github.com/prepdeck/go-prepdeck/pkg/bodylang"
	"github.com/prepdeck/go-prepdeck/pkg/detect"
	"github.com/prepdeck/go-prepdeck/pkg/protocol"
	"github.com/prepdeck/go-prepdeck/pkg/scoring"
	"github.com/prepdeck/go-prepdeck/pkg/speech"
	"github.com/prepdeck/go-prepdeck/pkg/transcribe"
	"github.com/prepdeck/go-prepdeck/pkg/validate"
	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// sttBufferLimit bounds the PCM retained for fallback transcription
// (about 5 minutes of 16kHz mono).
const sttBufferLimit = 16000 * 2 * 300

// Config holds the per-session parameters.
type Config struct {
	// Tick is the video analysis interval.
	Tick time.Duration

	// Scoring carries difficulty, experience and session shape.
	Scoring scoring.Session

	// Transcriber, when set, transcribes buffered audio at session end
	// if no live transcript words arrived.
	Transcriber transcribe.Transcriber

	// Recorder, when set, receives every inbound message for replay.
	Recorder *Recorder
}

// Final is the complete session outcome handed to the transport layer.
type Final struct {
	SessionID    string          `json:"session_id"`
	Report       scoring.Report  `json:"report"`
	Validation   validate.Result `json:"validation"`
	CappedScore  int             `json:"capped_score"`
	BodyLanguage bodylang.Result `json:"body_language"`
	Speech       speech.Result   `json:"speech"`
}

// Session is one live interview analysis. Inputs may arrive from
// multiple goroutines; the detection engine itself is driven only by the
// internal tick loop.
type Session struct {
	ID string

	cfg    Config
	engine *detect.Engine
	body   *bodylang.Analyzer
	speech *speech.Analyzer

	status chan protocol.StatusData

	mu         sync.Mutex
	latest     *vision.Frame
	decoder    *audio.OpusDecoder
	sttBuf     []int16
	sttRate    int
	prevCX     float64
	prevCY     float64
	tick       uint64
	started    time.Time
	lastActive time.Time
	running    bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session around a detection engine. Call Start before
// submitting input.
func New(id string, cfg Config, engine *detect.Engine) *Session {
	if cfg.Tick <= 0 {
		cfg.Tick = 500 * time.Millisecond
	}
	return &Session{
		ID:     id,
		cfg:    cfg,
		engine: engine,
		body:   bodylang.NewAnalyzer(),
		speech: speech.NewAnalyzer(),
		status: make(chan protocol.StatusData, 16),
		prevCX: math.NaN(),
		prevCY: math.NaN(),
	}
}

// Status emits one detection status per analysis tick. Slow consumers
// lose ticks rather than stalling the loop.
func (s *Session) Status() <-chan protocol.StatusData { return s.status }

// Start begins the analysis tick loop.
func (s *Session) Start(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("session already started")
	}
	if err := s.cfg.Scoring.Validate(); err != nil {
		return err
	}

	s.started = now
	s.lastActive = now
	s.running = true
	s.body.Start(now)
	s.speech.Start(now)

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)

	log.Info("session started", "id", s.ID,
		"difficulty", s.cfg.Scoring.Difficulty, "tick", s.cfg.Tick)
	return nil
}

// SubmitFrame hands the session a decoded video frame. Only the most
// recent frame is analyzed on the next tick; older ones are dropped.
func (s *Session) SubmitFrame(f *vision.Frame) {
	s.mu.Lock()
	s.latest = f
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// HandleAudio decodes one audio payload, feeds the volume meter and
// retains the PCM for fallback transcription.
func (s *Session) HandleAudio(format string, data []byte, sampleRate, channels int, now time.Time) error {
	var chunk audio.Chunk
	switch format {
	case "pcm16":
		chunk = audio.ChunkFromBytes(data, sampleRate, channels)
	case "opus":
		s.mu.Lock()
		if s.decoder == nil {
			dec, err := audio.NewOpusDecoder(sampleRate, channels)
			if err != nil {
				s.mu.Unlock()
				return err
			}
			s.decoder = dec
		}
		dec := s.decoder
		s.mu.Unlock()

		var err error
		chunk, err = dec.Decode(data)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported audio format %q", format)
	}

	mono := chunk.Mono()
	s.speech.AddVolume(audio.Level(mono), now)

	s.mu.Lock()
	s.lastActive = now
	if len(s.sttBuf) < sttBufferLimit {
		s.sttBuf = append(s.sttBuf, mono.Samples...)
		s.sttRate = mono.SampleRate
	}
	s.mu.Unlock()
	return nil
}

// AddWord records one live transcript word.
func (s *Session) AddWord(word string, offsetMs int64) {
	s.speech.AddWord(word, time.Duration(offsetMs)*time.Millisecond)
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// AttachRecorder sets the session recorder. Must be called before Start.
func (s *Session) AttachRecorder(r *Recorder) {
	s.cfg.Recorder = r
}

// Record forwards an inbound message to the session recorder, if any.
func (s *Session) Record(msg *protocol.Message) {
	if s.cfg.Recorder != nil {
		if err := s.cfg.Recorder.Record(msg); err != nil {
			log.Warn("session recording failed", "id", s.ID, "error", err)
		}
	}
}

// LastActive returns the time of the most recent input.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// run is the analysis tick loop. It owns the detection engine; no other
// goroutine touches it.
func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			frame := s.latest
			s.latest = nil
			s.mu.Unlock()
			if frame == nil {
				continue
			}
			s.processTick(ctx, frame, now)
		}
	}
}

func (s *Session) processTick(ctx context.Context, frame *vision.Frame, now time.Time) {
	tr := s.engine.ProcessFrame(ctx, frame)

	s.mu.Lock()
	prevCX, prevCY := s.prevCX, s.prevCY
	s.tick++
	tick := s.tick
	s.mu.Unlock()

	posture, expression, eye, gesture := deriveSamples(tr, frame.Width, frame.Height, prevCX, prevCY, now)
	s.body.AddPosture(posture)
	s.body.AddEyeContact(eye)
	if expression != nil {
		s.body.AddExpression(*expression)
	}
	if gesture != nil {
		s.body.AddGesture(*gesture)
	}

	status := protocol.StatusData{
		OutOfFrame: tr.OutOfFrame,
		Fallback:   tr.Fallback,
		EyeContact: tr.EyeContact,
		Tick:       tick,
	}
	s.mu.Lock()
	if tr.Region != nil {
		status.FaceFound = !tr.Fallback
		status.X = tr.Region.X
		status.Y = tr.Region.Y
		status.Width = tr.Region.Width
		status.Height = tr.Region.Height
		status.Confidence = tr.Region.Confidence
		s.prevCX, s.prevCY = tr.Region.Center()
	} else {
		s.prevCX, s.prevCY = math.NaN(), math.NaN()
	}
	s.mu.Unlock()

	select {
	case s.status <- status:
	default:
	}
}

// Stop ends the session and produces the final report. In-flight
// detector work is discarded, never applied after stop.
func (s *Session) Stop(ctx context.Context, end time.Time) (Final, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return Final{}, errors.New("session not running")
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.engine.Stop()
	cancel()
	s.wg.Wait()
	close(s.status)

	if s.cfg.Recorder != nil {
		if err := s.cfg.Recorder.Close(); err != nil {
			log.Warn("session recording close failed", "id", s.ID, "error", err)
		}
	}

	s.transcribeFallback(ctx)

	bodyRes := s.body.Result(end)
	speechRes := s.speech.Result(end)

	cfg := s.cfg.Scoring
	if cfg.ActualDuration == 0 {
		cfg.ActualDuration = end.Sub(s.started)
	}

	report, err := scoring.Compute(speechRes, bodyRes, cfg, end)
	if err != nil {
		return Final{}, fmt.Errorf("score session %s: %w", s.ID, err)
	}
	validation := validate.Check(report, speechRes, bodyRes)
	for _, w := range validation.Warnings {
		log.Warn("report validation", "id", s.ID, "warning", w)
	}
	for _, e := range validation.Errors {
		log.Error("report validation", "id", s.ID, "error", e)
	}

	return Final{
		SessionID:    s.ID,
		Report:       report,
		Validation:   validation,
		CappedScore:  validate.CapScore(report, validation),
		BodyLanguage: bodyRes,
		Speech:       speechRes,
	}, nil
}

// transcribeFallback runs batch STT over the buffered audio when no live
// transcript arrived during the session.
func (s *Session) transcribeFallback(ctx context.Context) {
	if s.cfg.Transcriber == nil || s.speech.WordCount() > 0 {
		return
	}
	s.mu.Lock()
	pcm := s.sttBuf
	rate := s.sttRate
	s.sttBuf = nil
	s.mu.Unlock()
	if len(pcm) == 0 {
		return
	}

	chunk := audio.Chunk{Samples: pcm, SampleRate: rate, Channels: 1}
	tr, err := s.cfg.Transcriber.Transcribe(ctx, chunk)
	if err != nil {
		log.Warn("fallback transcription failed", "id", s.ID, "error", err)
		return
	}
	for _, w := range tr.Words {
		s.speech.AddWord(w.Text, w.Offset)
	}
	log.Info("fallback transcription applied", "id", s.ID, "words", len(tr.Words))
}
