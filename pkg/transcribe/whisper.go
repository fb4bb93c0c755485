package transcribe

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/prepdeck/go-prepdeck/pkg/audio"
)

const bitsPerSample = 16

// WhisperOption configures a WhisperClient.
type WhisperOption func(*WhisperClient)

// WithLanguage sets the BCP-47 language hint sent to the server.
func WithLanguage(lang string) WhisperOption {
	return func(c *WhisperClient) { c.language = lang }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) WhisperOption {
	return func(c *WhisperClient) { c.httpClient = hc }
}

// WhisperClient transcribes utterances against a running whisper-server
// binary, which exposes batch inference at POST /inference.
type WhisperClient struct {
	serverURL  string
	language   string
	httpClient *http.Client
}

// NewWhisperClient creates a client for the whisper server at serverURL
// (e.g. "http://localhost:8080").
func NewWhisperClient(serverURL string, opts ...WhisperOption) (*WhisperClient, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	c := &WhisperClient{
		serverURL:  serverURL,
		language:   "en",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Transcribe implements Transcriber. The chunk is wrapped in a WAV
// container and uploaded as multipart form data.
func (c *WhisperClient) Transcribe(ctx context.Context, chunk audio.Chunk) (Transcript, error) {
	if len(chunk.Samples) == 0 {
		return Transcript{}, nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(encodeWAV(chunk)); err != nil {
		return Transcript{}, fmt.Errorf("whisper: write wav data: %w", err)
	}
	if c.language != "" {
		if err := mw.WriteField("language", c.language); err != nil {
			return Transcript{}, fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return Transcript{}, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/inference", &body)
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Transcript{}, fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return Transcript{}, fmt.Errorf("whisper: parse response: %w", err)
	}

	duration := time.Duration(chunk.Duration() * float64(time.Second))
	return Transcript{
		Text:     result.Text,
		Words:    splitWords(result.Text, duration),
		Duration: duration,
	}, nil
}

// encodeWAV wraps PCM16 samples in a RIFF/WAV container.
func encodeWAV(c audio.Chunk) []byte {
	pcm := c.Bytes()
	byteRate := c.SampleRate * c.Channels * bitsPerSample / 8
	blockAlign := c.Channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(c.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(c.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}
