package session

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/detect"
	"github.com/prepdeck/go-prepdeck/pkg/protocol"
	"github.com/prepdeck/go-prepdeck/pkg/scoring"
	"github.com/prepdeck/go-prepdeck/pkg/transcribe"
	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

type stubDetector struct {
	region detect.FaceRegion
	found  bool
}

func (d stubDetector) Name() string         { return "stub" }
func (d stubDetector) Reliability() float64 { return 0.9 }

func (d stubDetector) Detect(_ context.Context, _ *vision.Frame) detect.Result {
	if !d.found {
		return detect.NotFound(d.Name(), time.Millisecond)
	}
	return detect.Found(d.Name(), d.region, time.Millisecond)
}

func testEngine(t *testing.T, found bool) *detect.Engine {
	t.Helper()
	e, err := detect.NewEngine(detect.DefaultConfig(), stubDetector{
		region: detect.FaceRegion{X: 240, Y: 120, Width: 160, Height: 200, Confidence: 85},
		found:  found,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func testFrame(t *testing.T) *vision.Frame {
	t.Helper()
	f, err := vision.NewFrame(640, 480, make([]uint8, 640*480*4))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func testScoring() scoring.Session {
	return scoring.Session{
		Difficulty:      scoring.DifficultyMedium,
		Experience:      scoring.ExperienceMid,
		QuestionCount:   3,
		PlannedDuration: 10 * time.Minute,
	}
}

func TestDeriveSamples_CenteredFace(t *testing.T) {
	region := detect.FaceRegion{X: 240, Y: 120, Width: 160, Height: 200, Confidence: 85}
	tr := detect.TickResult{Region: &region, EyeContact: 80}

	posture, expr, eye, _ := deriveSamples(tr, 640, 480, math.NaN(), math.NaN(), time.Now())
	if posture.Score != 100 || len(posture.Issues) != 0 {
		t.Errorf("posture = %+v, want clean 100", posture)
	}
	if expr == nil || expr.Emotion != "confident" {
		t.Errorf("expression = %+v, want confident", expr)
	}
	if !eye.Looking || eye.Percentage != 80 {
		t.Errorf("eye = %+v", eye)
	}
}

func TestDeriveSamples_Issues(t *testing.T) {
	cases := []struct {
		name   string
		region detect.FaceRegion
		want   string
	}{
		{"too close", detect.FaceRegion{X: 20, Y: 20, Width: 420, Height: 420, Confidence: 80}, "too_close"},
		{"too far", detect.FaceRegion{X: 300, Y: 100, Width: 60, Height: 80, Confidence: 80}, "too_far"},
		{"leaning", detect.FaceRegion{X: 20, Y: 120, Width: 160, Height: 200, Confidence: 80}, "leaning"},
		{"slouching", detect.FaceRegion{X: 240, Y: 270, Width: 140, Height: 180, Confidence: 80}, "slouching"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			region := tc.region
			tr := detect.TickResult{Region: &region, EyeContact: 50}
			posture, _, _, _ := deriveSamples(tr, 640, 480, math.NaN(), math.NaN(), time.Now())
			found := false
			for _, iss := range posture.Issues {
				if iss == tc.want {
					found = true
				}
			}
			if !found {
				t.Errorf("issues = %v, want %q", posture.Issues, tc.want)
			}
			if posture.Score >= 100 {
				t.Errorf("score = %.0f, want penalized", posture.Score)
			}
		})
	}
}

func TestDeriveSamples_OutOfFrame(t *testing.T) {
	tr := detect.TickResult{OutOfFrame: true}
	posture, expr, eye, gesture := deriveSamples(tr, 640, 480, 320, 240, time.Now())
	if posture.Issues[0] != "out_of_frame" {
		t.Errorf("issues = %v", posture.Issues)
	}
	if expr != nil || gesture != nil {
		t.Error("out-of-frame tick must not fabricate expression or gesture samples")
	}
	if eye.Looking || eye.Percentage != 0 {
		t.Errorf("eye = %+v, want zero", eye)
	}
}

func TestDeriveSamples_FallbackIsSimulated(t *testing.T) {
	region := detect.FaceRegion{X: 192, Y: 48, Width: 256, Height: 341, Confidence: 30}
	tr := detect.TickResult{Region: &region, Fallback: true, EyeContact: 40}

	posture, expr, eye, _ := deriveSamples(tr, 640, 480, math.NaN(), math.NaN(), time.Now())
	if !posture.Simulated || !eye.Simulated || expr == nil || !expr.Simulated {
		t.Error("fallback tick samples must be flagged simulated")
	}
}

func TestDeriveSamples_GestureFromMovement(t *testing.T) {
	region := detect.FaceRegion{X: 240, Y: 120, Width: 160, Height: 200, Confidence: 85}
	cx, cy := region.Center()
	tr := detect.TickResult{Region: &region, EyeContact: 70}

	_, _, _, none := deriveSamples(tr, 640, 480, cx, cy, time.Now())
	if none != nil {
		t.Errorf("stationary face produced gesture %+v", none)
	}

	_, _, _, moved := deriveSamples(tr, 640, 480, cx-30, cy, time.Now())
	if moved == nil || !moved.Appropriate {
		t.Errorf("moderate movement gesture = %+v", moved)
	}

	_, _, _, fidget := deriveSamples(tr, 640, 480, cx-100, cy, time.Now())
	if fidget == nil || fidget.Appropriate {
		t.Errorf("large movement gesture = %+v", fidget)
	}
}

func TestSession_EndToEnd(t *testing.T) {
	s := New("test", Config{Tick: 10 * time.Millisecond, Scoring: testScoring()}, testEngine(t, true))
	start := time.Now()
	if err := s.Start(context.Background(), start); err != nil {
		t.Fatal(err)
	}

	frame := testFrame(t)
	deadline := time.After(2 * time.Second)
	var status protocol.StatusData
	got := false
	for !got {
		s.SubmitFrame(frame)
		select {
		case status = <-s.Status():
			got = true
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("no status emitted")
		}
	}
	if !status.FaceFound || status.OutOfFrame {
		t.Errorf("status = %+v", status)
	}

	for i := 0; i < 120; i++ {
		s.AddWord("word", int64(i)*400)
	}

	final, err := s.Stop(context.Background(), start.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if final.SessionID != "test" {
		t.Errorf("session id = %q", final.SessionID)
	}
	if final.Report.Overall.Score < 0 || final.Report.Overall.Score > 100 {
		t.Errorf("overall = %d", final.Report.Overall.Score)
	}
	if final.Speech.TotalWords != 120 {
		t.Errorf("words = %d, want 120", final.Speech.TotalWords)
	}

	if _, err := s.Stop(context.Background(), time.Now()); err == nil {
		t.Error("second Stop must fail")
	}
}

func TestSession_InvalidScoringConfig(t *testing.T) {
	s := New("bad", Config{Scoring: scoring.Session{Difficulty: "nope", Experience: "mid"}}, testEngine(t, true))
	if err := s.Start(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error for invalid scoring config")
	}
}

func TestSession_HandleAudioPCM(t *testing.T) {
	s := New("audio", Config{Tick: time.Hour, Scoring: testScoring()}, testEngine(t, true))
	if err := s.Start(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}

	pcm := make([]byte, 3200)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = 0x00
		pcm[i+1] = 0x20 // steady mid-level tone
	}
	if err := s.HandleAudio("pcm16", pcm, 16000, 1, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.HandleAudio("vorbis", pcm, 16000, 1, time.Now()); err == nil {
		t.Error("unsupported format must error")
	}

	final, err := s.Stop(context.Background(), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	// Volume arrived but no words: result exists, not all-zero simulated.
	if final.Speech.IsSimulated {
		t.Error("volume-only session flagged simulated")
	}
}

func TestSession_FallbackTranscription(t *testing.T) {
	mock := transcribe.NewMock("um I designed the system")
	s := New("stt", Config{Tick: time.Hour, Scoring: testScoring(), Transcriber: mock}, testEngine(t, true))
	if err := s.Start(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}

	pcm := make([]byte, 32000)
	for i := 1; i < len(pcm); i += 2 {
		pcm[i] = 0x10
	}
	if err := s.HandleAudio("pcm16", pcm, 16000, 1, time.Now()); err != nil {
		t.Fatal(err)
	}

	final, err := s.Stop(context.Background(), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 1 {
		t.Errorf("transcriber calls = %d, want 1", mock.Calls())
	}
	if final.Speech.TotalWords != 5 {
		t.Errorf("words = %d, want 5 from fallback transcription", final.Speech.TotalWords)
	}
	if final.Speech.Fillers.Count == 0 {
		t.Error("fallback transcript fillers not counted")
	}
}

func TestManager_LimitAndSweep(t *testing.T) {
	m := NewManager(2, 50*time.Millisecond)

	a, err := m.Create(Config{Scoring: testScoring()}, testEngine(t, true))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(Config{Scoring: testScoring()}, testEngine(t, true)); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(Config{Scoring: testScoring()}, testEngine(t, true)); err == nil {
		t.Fatal("expected session limit error")
	}

	if got, ok := m.Get(a.ID); !ok || got != a {
		t.Error("Get lost a session")
	}

	expired := m.Sweep(time.Now().Add(time.Minute))
	if len(expired) != 2 || m.Len() != 0 {
		t.Errorf("sweep removed %d sessions, manager holds %d", len(expired), m.Len())
	}
}

func TestRecorder_WritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&buf)

	m1, _ := protocol.NewWordMessage("hello", 10)
	m2, _ := protocol.NewStopMessage()
	if err := r.Record(m1); err != nil {
		t.Fatal(err)
	}
	if err := r.Record(m2); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var decoded protocol.Message
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line 1 not valid JSON: %v", err)
	}
	if decoded.Type != protocol.TypeWord {
		t.Errorf("line 1 type = %s", decoded.Type)
	}
}
