package transcribe

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/audio"
)

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotWAV []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if lang := r.FormValue("language"); lang != "de" {
			t.Errorf("language = %q, want de", lang)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		gotWAV, _ = io.ReadAll(f)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"I designed the caching layer"}`)
	}))
	defer srv.Close()

	c, err := NewWhisperClient(srv.URL, WithLanguage("de"))
	if err != nil {
		t.Fatal(err)
	}

	chunk := audio.Chunk{Samples: make([]int16, 16000), SampleRate: 16000, Channels: 1}
	tr, err := c.Transcribe(context.Background(), chunk)
	if err != nil {
		t.Fatal(err)
	}

	if tr.Text != "I designed the caching layer" {
		t.Errorf("text = %q", tr.Text)
	}
	if len(tr.Words) != 5 {
		t.Fatalf("words = %d, want 5", len(tr.Words))
	}
	if tr.Words[0].Offset != 0 {
		t.Errorf("first word offset = %v, want 0", tr.Words[0].Offset)
	}
	if tr.Words[4].Offset <= tr.Words[0].Offset {
		t.Error("word offsets must increase")
	}
	if tr.Duration != time.Second {
		t.Errorf("duration = %v, want 1s", tr.Duration)
	}

	// WAV header sanity.
	if len(gotWAV) != 44+len(chunk.Samples)*2 {
		t.Fatalf("wav size = %d", len(gotWAV))
	}
	if string(gotWAV[0:4]) != "RIFF" || string(gotWAV[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if rate := binary.LittleEndian.Uint32(gotWAV[24:28]); rate != 16000 {
		t.Errorf("wav sample rate = %d, want 16000", rate)
	}
}

func TestWhisperClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewWhisperClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	chunk := audio.Chunk{Samples: make([]int16, 160), SampleRate: 16000, Channels: 1}
	if _, err := c.Transcribe(context.Background(), chunk); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestWhisperClient_EmptyChunkSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c, err := NewWhisperClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := c.Transcribe(context.Background(), audio.Chunk{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Text != "" || called {
		t.Error("empty chunk must not hit the server")
	}
}

func TestNewWhisperClient_RequiresURL(t *testing.T) {
	if _, err := NewWhisperClient(""); err == nil {
		t.Fatal("expected error for empty server URL")
	}
}

func TestMock_ReplaysTexts(t *testing.T) {
	m := NewMock("hello world", "second answer")
	chunk := audio.Chunk{Samples: make([]int16, 16000), SampleRate: 16000, Channels: 1}

	tr, err := m.Transcribe(context.Background(), chunk)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Text != "hello world" || len(tr.Words) != 2 {
		t.Errorf("first transcript = %+v", tr)
	}

	tr, _ = m.Transcribe(context.Background(), chunk)
	if tr.Text != "second answer" {
		t.Errorf("second transcript = %q", tr.Text)
	}

	tr, _ = m.Transcribe(context.Background(), chunk)
	if tr.Text != "" {
		t.Errorf("exhausted mock returned %q", tr.Text)
	}
	if m.Calls() != 3 {
		t.Errorf("calls = %d, want 3", m.Calls())
	}
}
