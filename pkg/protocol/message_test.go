package protocol

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "frame message",
			msgType: TypeFrame,
			data:    FrameData{Width: 640, Height: 480, Format: "jpeg"},
			wantErr: false,
		},
		{
			name:    "status message",
			msgType: TypeStatus,
			data:    StatusData{FaceFound: true, EyeContact: 72.5, Tick: 9},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if msg == nil && !tt.wantErr {
				t.Error("NewMessage() returned nil message")
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	originalFrame := FrameData{
		Width:   1920,
		Height:  1080,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString([]byte("test image data")),
		FrameID: 42,
	}

	msg, err := NewMessage(TypeFrame, originalFrame)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	if parsed.Type != TypeFrame {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeFrame)
	}

	frameData, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}

	if frameData.Width != originalFrame.Width {
		t.Errorf("Width = %v, want %v", frameData.Width, originalFrame.Width)
	}
	if frameData.Height != originalFrame.Height {
		t.Errorf("Height = %v, want %v", frameData.Height, originalFrame.Height)
	}
	if frameData.FrameID != originalFrame.FrameID {
		t.Errorf("FrameID = %v, want %v", frameData.FrameID, originalFrame.FrameID)
	}
}

func TestStartMessage(t *testing.T) {
	msg, err := NewStartMessage("hard", "senior", 6, 1800)
	if err != nil {
		t.Fatalf("NewStartMessage() error = %v", err)
	}
	if msg.Type != TypeStart {
		t.Errorf("Type = %v, want %v", msg.Type, TypeStart)
	}

	data, err := msg.GetStartData()
	if err != nil {
		t.Fatalf("GetStartData() error = %v", err)
	}
	if data.Difficulty != "hard" || data.Experience != "senior" {
		t.Errorf("start data = %+v", data)
	}
	if data.QuestionCount != 6 || data.PlannedDuration != 1800 {
		t.Errorf("start data = %+v", data)
	}
}

func TestAudioMessage(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}

	msg, err := NewAudioMessage(pcm, "pcm16", 48000, 1)
	if err != nil {
		t.Fatalf("NewAudioMessage() error = %v", err)
	}

	data, err := msg.GetAudioData()
	if err != nil {
		t.Fatalf("GetAudioData() error = %v", err)
	}
	if data.Format != "pcm16" || data.SampleRate != 48000 || data.Channels != 1 {
		t.Errorf("audio data = %+v", data)
	}

	decoded, err := data.DecodeAudioData()
	if err != nil {
		t.Fatalf("DecodeAudioData() error = %v", err)
	}
	if len(decoded) != len(pcm) {
		t.Errorf("decoded %d bytes, want %d", len(decoded), len(pcm))
	}
	for i := range pcm {
		if decoded[i] != pcm[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, decoded[i], pcm[i])
		}
	}
}

func TestWordMessage(t *testing.T) {
	msg, err := NewWordMessage("caching", 1250)
	if err != nil {
		t.Fatalf("NewWordMessage() error = %v", err)
	}

	data, err := msg.GetWordData()
	if err != nil {
		t.Fatalf("GetWordData() error = %v", err)
	}
	if data.Word != "caching" || data.OffsetMs != 1250 {
		t.Errorf("word data = %+v", data)
	}
}

func TestStatusMessage(t *testing.T) {
	status := StatusData{
		FaceFound:  true,
		X:          120,
		Y:          80,
		Width:      160,
		Height:     200,
		Confidence: 84.5,
		EyeContact: 68,
		Tick:       17,
	}

	msg, err := NewStatusMessage(status)
	if err != nil {
		t.Fatalf("NewStatusMessage() error = %v", err)
	}

	got, err := msg.GetStatusData()
	if err != nil {
		t.Fatalf("GetStatusData() error = %v", err)
	}
	if *got != status {
		t.Errorf("status = %+v, want %+v", got, status)
	}
}

func TestReportMessage(t *testing.T) {
	payload := map[string]interface{}{"overall": 82}

	msg, err := NewReportMessage("sess-1", payload, true, []string{"short session"}, nil, 82)
	if err != nil {
		t.Fatalf("NewReportMessage() error = %v", err)
	}

	data, err := msg.GetReportData()
	if err != nil {
		t.Fatalf("GetReportData() error = %v", err)
	}
	if data.SessionID != "sess-1" || !data.Valid || data.CappedScore != 82 {
		t.Errorf("report data = %+v", data)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data.Report, &decoded); err != nil {
		t.Fatalf("report payload: %v", err)
	}
	if decoded["overall"] != float64(82) {
		t.Errorf("report payload = %v", decoded)
	}
}

func TestPingPong(t *testing.T) {
	ping, err := NewPingMessage("abc")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}
	pingData, err := ping.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "abc" {
		t.Errorf("ping ID = %q", pingData.ID)
	}

	now := time.Now().UnixMilli()
	pong, err := NewPongMessage("abc", now-30, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	pongData, err := pong.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.LatencyMs != 30 {
		t.Errorf("latency = %d, want 30", pongData.LatencyMs)
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
