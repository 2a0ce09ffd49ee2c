package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/logger"
)

const maxEventSize = 1 << 20

// Decoder reads a text/event-stream body. Each dispatched event's data is
// decoded as a JSON progress payload. Lines that are bare JSON objects are
// accepted too, for backends that emit newline-delimited JSON.
type Decoder struct {
	scanner *bufio.Scanner
	log     *slog.Logger
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxEventSize)
	return &Decoder{scanner: sc, log: logger.Log}
}

// Next returns the next progress event. It returns io.EOF at the end of the
// body. Payloads that are not valid JSON are skipped.
func (d *Decoder) Next() (domain.ProgressEvent, error) {
	var (
		name string
		data []string
	)
	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		switch {
		case line == "":
			if len(data) == 0 {
				name = ""
				continue
			}
			ev, ok := d.decode(name, strings.Join(data, "\n"))
			name, data = "", nil
			if ok {
				return ev, nil
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "{") && len(data) == 0:
			if ev, ok := d.decode("", line); ok {
				return ev, nil
			}
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				data = append(data, value)
			}
		}
	}
	if err := d.scanner.Err(); err != nil {
		return domain.ProgressEvent{}, err
	}
	if len(data) > 0 {
		if ev, ok := d.decode(name, strings.Join(data, "\n")); ok {
			return ev, nil
		}
	}
	return domain.ProgressEvent{}, io.EOF
}

func (d *Decoder) decode(name, data string) (domain.ProgressEvent, bool) {
	data = strings.TrimSpace(data)
	if data == "" || data == "[DONE]" {
		return domain.ProgressEvent{}, false
	}

	var w wireEvent
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		if name == "error" {
			return domain.ProgressEvent{Step: domain.StepError, Error: data}, true
		}
		d.log.Debug("Skipping malformed progress payload", slog.String("error", err.Error()))
		return domain.ProgressEvent{}, false
	}

	ev := w.toProgress()
	if name == "error" || w.Type == "error" {
		ev.Step = domain.StepError
		ev.Error = firstNonEmpty(ev.Error, ev.Message, "Analysis failed")
	}
	return ev, true
}

// StreamOpener is the backend side of the SSE feed.
type StreamOpener interface {
	OpenAnalysisStream(ctx context.Context, sess *domain.Session, req *domain.AnalysisRequest) (io.ReadCloser, error)
	CancelAnalysisStream(ctx context.Context, sess *domain.Session, streamID string) error
}

// SSESource reads progress from the backend's streaming analysis endpoint.
type SSESource struct {
	opener StreamOpener
}

func NewSSESource(opener StreamOpener) *SSESource {
	return &SSESource{opener: opener}
}

func (s *SSESource) Open(ctx context.Context, sess *domain.Session, req *domain.AnalysisRequest) (<-chan Event, error) {
	body, err := s.opener.OpenAnalysisStream(ctx, sess, req)
	if err != nil {
		return nil, err
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer body.Close()

		// unblocks the scanner when the consumer cancels
		stop := context.AfterFunc(ctx, func() { body.Close() })
		defer stop()

		dec := NewDecoder(body)
		for {
			ev, err := dec.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					send(ctx, events, Event{Err: fmt.Errorf("reading progress stream: %w", err)})
				}
				return
			}
			if !send(ctx, events, Event{Progress: ev}) {
				return
			}
		}
	}()
	return events, nil
}

func (s *SSESource) CancelRemote(ctx context.Context, sess *domain.Session, streamID string) error {
	return s.opener.CancelAnalysisStream(ctx, sess, streamID)
}

func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
