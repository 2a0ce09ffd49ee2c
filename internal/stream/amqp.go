package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/logger"

	"github.com/streadway/amqp"
)

const (
	UpdatesExchange = "session_updates"

	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
	statusCancelled  = "cancelled"
)

// JobSubmitter queues an analysis on the backend and returns the job id its
// workers publish updates under.
type JobSubmitter interface {
	SubmitAnalysisJob(ctx context.Context, sess *domain.Session, req *domain.AnalysisRequest) (string, error)
	CancelAnalysisStream(ctx context.Context, sess *domain.Session, streamID string) error
}

// AMQPSource follows an analysis through the worker status updates published
// on the session_updates topic exchange with routing key "session.<job id>".
type AMQPSource struct {
	conn      *amqp.Connection
	submitter JobSubmitter
	exchange  string
	log       *slog.Logger
}

func NewAMQPSource(conn *amqp.Connection, submitter JobSubmitter) *AMQPSource {
	return &AMQPSource{conn: conn, submitter: submitter, exchange: UpdatesExchange, log: logger.Log}
}

// DialAMQP connects to the broker used by the analysis workers.
func DialAMQP(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial failed: %w", err)
	}
	return conn, nil
}

func (s *AMQPSource) Open(ctx context.Context, sess *domain.Session, req *domain.AnalysisRequest) (<-chan Event, error) {
	ch, err := s.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("amqp: declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("amqp: declare queue: %w", err)
	}

	jobID, err := s.submitter.SubmitAnalysisJob(ctx, sess, req)
	if err != nil {
		ch.Close()
		return nil, err
	}

	routingKey := "session." + jobID
	if err := ch.QueueBind(q.Name, routingKey, s.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("amqp: bind queue: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("amqp: consume: %w", err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer ch.Close()

		// announce the job id so a cancel can reach the backend
		if !send(ctx, events, Event{Progress: domain.ProgressEvent{StreamID: jobID}}) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					if ctx.Err() == nil {
						send(ctx, events, Event{Err: fmt.Errorf("amqp: delivery channel closed")})
					}
					return
				}
				ev, terminal, err := decodeUpdate(d.Body)
				if err != nil {
					s.log.Warn("Skipping malformed status update",
						slog.String("routing_key", routingKey),
						slog.String("error", err.Error()))
					continue
				}
				if !send(ctx, events, Event{Progress: ev}) || terminal {
					return
				}
			}
		}
	}()
	return events, nil
}

func (s *AMQPSource) CancelRemote(ctx context.Context, sess *domain.Session, streamID string) error {
	return s.submitter.CancelAnalysisStream(ctx, sess, streamID)
}

// decodeUpdate maps a worker status update onto a progress event and reports
// whether it ends the job.
func decodeUpdate(body []byte) (domain.ProgressEvent, bool, error) {
	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return domain.ProgressEvent{}, false, err
	}
	ev := w.toProgress()

	switch strings.ToLower(w.Status) {
	case statusCompleted:
		full := 100
		ev.Step = domain.StepComplete
		ev.Percentage = &full
		return ev, true, nil
	case statusFailed:
		ev.Step = domain.StepError
		ev.Error = firstNonEmpty(ev.Error, ev.Message, "Analysis failed")
		return ev, true, nil
	case statusCancelled:
		ev.Step = domain.StepCancelled
		return ev, true, nil
	case statusQueued:
		if ev.Step == "" {
			ev.Step = domain.StepParsing
		}
	case statusProcessing:
		if ev.Step == "" {
			ev.Step = domain.StepAnalyzing
		}
	}
	terminal := ev.Step == domain.StepComplete || ev.Step == domain.StepError || ev.Step == domain.StepCancelled
	return ev, terminal, nil
}
