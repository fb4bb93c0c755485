// replay: feeds a recorded interview session back into a running server.
// Reads the JSONL file produced by the session recorder, replays each
// message over the interview WebSocket, and prints the final report.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prepdeck/go-prepdeck/internal/log"
	"github.com/prepdeck/go-prepdeck/pkg/protocol"
)

var (
	serverURL = flag.String("server", "ws://localhost:8085/ws/interview", "Interview WebSocket URL")
	realtime  = flag.Bool("realtime", false, "Pace messages by their recorded timestamps")
	debug     = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()
	if *debug {
		log.Init("debug")
	} else {
		log.Init("info")
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <session.jsonl>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		log.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ws, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *serverURL, err)
	}
	defer ws.Close()

	// Reader goroutine: surface status ticks at debug level, deliver the
	// final report when it arrives.
	reportCh := make(chan *protocol.ReportData, 1)
	go func() {
		defer close(reportCh)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				log.Warn("unparseable server message", "error", err)
				continue
			}
			switch msg.Type {
			case protocol.TypeStatus:
				if status, err := msg.GetStatusData(); err == nil {
					log.Debug("status", "tick", status.Tick,
						"face", status.FaceFound, "eye_contact", status.EyeContact)
				}
			case protocol.TypeError:
				if e, err := msg.GetErrorData(); err == nil {
					log.Warn("server error", "code", e.Code, "message", e.Message)
				}
			case protocol.TypeReport:
				if report, err := msg.GetReportData(); err == nil {
					reportCh <- report
					return
				}
			}
		}
	}()

	var (
		sent   int
		prevTS int64
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := protocol.ParseMessage(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", sent+1, err)
		}

		if *realtime && prevTS > 0 && msg.Timestamp > prevTS {
			time.Sleep(time.Duration(msg.Timestamp-prevTS) * time.Millisecond)
		}
		prevTS = msg.Timestamp

		if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	log.Info("replay complete", "messages", sent)

	select {
	case report, ok := <-reportCh:
		if !ok {
			return fmt.Errorf("connection closed before report arrived")
		}
		printReport(report)
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timed out waiting for report")
	}
}

func printReport(report *protocol.ReportData) {
	fmt.Printf("Session:      %s\n", report.SessionID)
	fmt.Printf("Capped score: %d\n", report.CappedScore)
	fmt.Printf("Valid:        %v\n", report.Valid)
	for _, w := range report.Warnings {
		fmt.Printf("Warning:      %s\n", w)
	}
	for _, e := range report.Errors {
		fmt.Printf("Error:        %s\n", e)
	}
	fmt.Println(string(report.Report))
}
