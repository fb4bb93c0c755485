package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/prepdeck/go-prepdeck/internal/log"
	"github.com/prepdeck/go-prepdeck/pkg/protocol"
	"github.com/prepdeck/go-prepdeck/pkg/scoring"
	"github.com/prepdeck/go-prepdeck/pkg/session"
	"github.com/prepdeck/go-prepdeck/pkg/vision"
)

// clientConn serializes writes to one interview socket. The status
// forwarder and the read loop both send messages.
type clientConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *clientConn) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *clientConn) SendError(code, text string) {
	if msg, err := protocol.NewErrorMessage(code, text); err == nil {
		_ = c.Send(msg)
	}
}

// handleInterview runs one candidate connection: session setup on the
// start message, then streaming input until stop or disconnect.
func (s *Server) handleInterview(c *websocket.Conn) {
	client := &clientConn{conn: c}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		sess      *session.Session
		forwardWG sync.WaitGroup
	)
	defer func() {
		// Disconnect without a stop message still finalizes the report.
		if sess != nil {
			s.sessions.Remove(sess.ID)
			if final, err := sess.Stop(ctx, time.Now()); err == nil {
				s.storeReport(final)
				log.Info("session finalized on disconnect", "id", sess.ID)
			}
			forwardWG.Wait()
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			client.SendError("bad_message", err.Error())
			continue
		}
		if sess != nil {
			sess.Record(msg)
		}

		switch msg.Type {
		case protocol.TypeStart:
			if sess != nil {
				client.SendError("already_started", "session already running")
				continue
			}
			started, err := s.startSession(ctx, msg, client, &forwardWG)
			if err != nil {
				client.SendError("start_failed", err.Error())
				continue
			}
			sess = started
			sess.Record(msg)

		case protocol.TypeFrame:
			if sess == nil {
				continue
			}
			frame, err := decodeFrame(msg)
			if err != nil {
				client.SendError("bad_frame", err.Error())
				continue
			}
			framesReceived.Inc()
			sess.SubmitFrame(frame)

		case protocol.TypeAudio:
			if sess == nil {
				continue
			}
			audioData, err := msg.GetAudioData()
			if err != nil {
				client.SendError("bad_audio", err.Error())
				continue
			}
			payload, err := audioData.DecodeAudioData()
			if err != nil {
				client.SendError("bad_audio", err.Error())
				continue
			}
			if err := sess.HandleAudio(audioData.Format, payload,
				audioData.SampleRate, audioData.Channels, time.Now()); err != nil {
				client.SendError("bad_audio", err.Error())
			}

		case protocol.TypeWord:
			if sess == nil {
				continue
			}
			word, err := msg.GetWordData()
			if err != nil {
				continue
			}
			sess.AddWord(word.Word, word.OffsetMs)

		case protocol.TypeStop:
			if sess == nil {
				continue
			}
			s.sessions.Remove(sess.ID)
			final, err := sess.Stop(ctx, time.Now())
			forwardWG.Wait()
			id := sess.ID
			sess = nil
			if err != nil {
				client.SendError("stop_failed", err.Error())
				continue
			}
			s.storeReport(final)
			report, err := protocol.NewReportMessage(id, final,
				final.Validation.Valid, final.Validation.Warnings,
				final.Validation.Errors, final.CappedScore)
			if err == nil {
				_ = client.Send(report)
			}
			return

		case protocol.TypePing:
			if pong, err := protocol.NewPongMessage("", msg.Timestamp, time.Now().UnixMilli()); err == nil {
				_ = client.Send(pong)
			}
		}
	}
}

// startSession creates and starts a session from a start message and
// spawns the status forwarder.
func (s *Server) startSession(ctx context.Context, msg *protocol.Message, client *clientConn, wg *sync.WaitGroup) (*session.Session, error) {
	start, err := msg.GetStartData()
	if err != nil {
		return nil, err
	}

	engine, err := s.buildEngine()
	if err != nil {
		return nil, err
	}

	cfg := session.Config{
		Tick:        s.cfg.Tick,
		Transcriber: s.transcriber,
		Scoring: scoring.Session{
			Difficulty:      scoring.Difficulty(start.Difficulty),
			Experience:      scoring.Experience(start.Experience),
			QuestionCount:   start.QuestionCount,
			PlannedDuration: time.Duration(start.PlannedDuration) * time.Second,
		},
	}

	sess, err := s.sessions.Create(cfg, engine)
	if err != nil {
		return nil, err
	}
	if s.cfg.RecordDir != "" {
		f, err := os.Create(filepath.Join(s.cfg.RecordDir, sess.ID+".jsonl"))
		if err != nil {
			log.Warn("session recording unavailable", "id", sess.ID, "error", err)
		} else {
			sess.AttachRecorder(session.NewRecorder(f))
		}
	}
	if err := sess.Start(ctx, time.Now()); err != nil {
		s.sessions.Remove(sess.ID)
		return nil, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for status := range sess.Status() {
			if m, err := protocol.NewStatusMessage(status); err == nil {
				_ = client.Send(m)
			}
			_ = s.dashboard.BroadcastJSON(status)
		}
	}()

	return sess, nil
}

// decodeFrame turns a frame message into an analyzable frame.
func decodeFrame(msg *protocol.Message) (*vision.Frame, error) {
	data, err := msg.GetFrameData()
	if err != nil {
		return nil, err
	}
	raw, err := data.DecodeFrameData()
	if err != nil {
		return nil, err
	}
	if data.Format == "rgba" {
		return vision.NewFrame(data.Width, data.Height, raw)
	}
	return vision.DecodeJPEG(raw)
}
