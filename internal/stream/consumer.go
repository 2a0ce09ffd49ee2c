// Package stream consumes the progress feed of one dream job analysis and
// folds it into a ProgressState that the UI can poll or subscribe to.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrAlreadyStarted   = errors.New("stream: consumer already started")
	ErrClosedEarly      = errors.New("connection closed before the analysis finished")
	errEmptyDescription = apperror.BadRequest("Job description is required")
)

const (
	subscriberBuffer    = 16
	remoteCancelTimeout = 10 * time.Second
)

// CompleteFunc runs once when a request reaches the complete phase.
type CompleteFunc func(state domain.ProgressState)

type Option func(*Consumer)

func WithOnComplete(fn CompleteFunc) Option {
	return func(c *Consumer) { c.onComplete = fn }
}

func WithCanceler(canceler Canceler) Option {
	return func(c *Consumer) { c.canceler = canceler }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Consumer) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Consumer) { c.now = now }
}

// Consumer tracks a single analysis request from submission to a terminal
// phase. Once terminal, the state never changes again.
type Consumer struct {
	source     Source
	canceler   Canceler
	sess       *domain.Session
	onComplete CompleteFunc
	log        *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	state     domain.ProgressState
	streamID  string
	started   bool
	cancelled bool
	cancel    context.CancelFunc
	subs      map[int]chan domain.ProgressState
	nextSub   int

	completeOnce sync.Once
	done         chan struct{}
}

func NewConsumer(source Source, sess *domain.Session, opts ...Option) *Consumer {
	c := &Consumer{
		source: source,
		sess:   sess,
		log:    logger.Log,
		now:    time.Now,
		state:  domain.ProgressState{Phase: domain.PhaseIdle},
		subs:   make(map[int]chan domain.ProgressState),
		done:   make(chan struct{}),
	}
	if cc, ok := source.(Canceler); ok {
		c.canceler = cc
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start validates the request, opens the feed and begins processing it in the
// background. An empty job description fails without any network call. A
// failure to open the feed moves the state to the error phase and is also
// returned. A consumer cancelled before Start never opens the feed and goes
// straight to the cancelled phase.
func (c *Consumer) Start(ctx context.Context, req domain.AnalysisRequest) error {
	if strings.TrimSpace(req.JobDescription) == "" {
		return errEmptyDescription
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	if c.cancelled {
		c.state = domain.ProgressState{
			RequestID: uuid.NewString(),
			Phase:     domain.PhaseCancelled,
			Message:   "Analysis cancelled",
			UpdatedAt: c.now(),
		}
		c.mu.Unlock()
		close(c.done)
		c.broadcast()
		return nil
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = domain.ProgressState{
		RequestID: uuid.NewString(),
		Phase:     domain.PhaseStreaming,
		Step:      domain.StepParsing,
		Message:   "Starting analysis...",
		Streaming: true,
		UpdatedAt: c.now(),
	}
	requestID := c.state.RequestID
	c.mu.Unlock()
	c.broadcast()

	c.log.Info("Analysis stream starting",
		slog.String("request_id", requestID),
		slog.String("session_id", c.sess.ID),
		slog.Bool("persist", req.Persist))

	events, err := c.source.Open(streamCtx, c.sess, &req)
	if err != nil {
		cancel()
		c.fail(err)
		close(c.done)
		return err
	}

	go c.run(streamCtx, events)
	return nil
}

func (c *Consumer) run(ctx context.Context, events <-chan Event) {
	defer close(c.done)
	defer c.cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.fail(ErrClosedEarly)
				return
			}
			if ev.Err != nil {
				c.fail(ev.Err)
				return
			}
			if c.Apply(ev.Progress) {
				return
			}
		}
	}
}

// Apply folds one progress event into the state and reports whether the
// state is now terminal. Steps never move backwards, unknown step names only
// update message and metrics, and percentage never decreases.
func (c *Consumer) Apply(ev domain.ProgressEvent) bool {
	c.mu.Lock()
	if c.state.Phase.Terminal() {
		c.mu.Unlock()
		return true
	}
	if c.state.Phase != domain.PhaseStreaming {
		// not started
		c.mu.Unlock()
		return false
	}

	s := &c.state
	if ev.StreamID != "" {
		c.streamID = ev.StreamID
	}
	if ev.AnalysisID > 0 {
		s.AnalysisID = ev.AnalysisID
	}
	if ev.Message != "" {
		s.Message = ev.Message
	}
	for name, v := range ev.Metrics {
		if s.Metrics == nil {
			s.Metrics = make(map[string]int)
		}
		s.Metrics[name] = clampPercent(v)
	}
	s.UpdatedAt = c.now()

	completed := false
	switch {
	case ev.Error != "" || ev.Step == domain.StepError:
		s.Phase = domain.PhaseError
		s.Streaming = false
		s.Error = firstNonEmpty(ev.Error, ev.Message, "Analysis failed")
	case ev.Step == domain.StepCancelled:
		s.Phase = domain.PhaseCancelled
		s.Streaming = false
	default:
		if ev.Step.Index() > s.Step.Index() {
			s.Step = ev.Step
		}
		if ev.Percentage != nil {
			if p := clampPercent(float64(*ev.Percentage)); p > s.Percentage {
				s.Percentage = p
			}
		}
		if s.Step == domain.StepComplete || s.Percentage >= 100 {
			s.Step = domain.StepComplete
			s.Percentage = 100
			s.Phase = domain.PhaseComplete
			s.Streaming = false
			completed = true
		}
	}
	terminal := s.Phase.Terminal()
	snapshot := s.Clone()
	c.mu.Unlock()

	c.broadcast()
	if completed {
		c.log.Info("Analysis stream complete",
			slog.String("request_id", snapshot.RequestID),
			slog.Int64("analysis_id", snapshot.AnalysisID))
		c.completeOnce.Do(func() {
			if c.onComplete != nil {
				c.onComplete(snapshot)
			}
		})
	}
	return terminal
}

// Cancel stops processing, keeps the partial state and signals the backend
// without waiting for it. Repeated calls and calls after a terminal phase
// change nothing. Cancelling before Start is sticky: the later Start opens
// nothing.
func (c *Consumer) Cancel() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	if !c.started {
		c.mu.Unlock()
		return
	}
	wasActive := c.state.Phase == domain.PhaseStreaming
	if wasActive {
		c.state.Phase = domain.PhaseCancelled
		c.state.Streaming = false
		c.state.Message = "Analysis cancelled"
		c.state.UpdatedAt = c.now()
	}
	streamID := c.streamID
	requestID := c.state.RequestID
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	if !wasActive {
		return
	}
	c.broadcast()

	c.log.Info("Analysis stream cancelled",
		slog.String("request_id", requestID),
		slog.String("stream_id", streamID))

	if c.canceler != nil && streamID != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), remoteCancelTimeout)
			defer cancel()
			if err := c.canceler.CancelRemote(ctx, c.sess, streamID); err != nil {
				c.log.Warn("Remote cancel failed",
					slog.String("stream_id", streamID),
					slog.String("error", err.Error()))
			}
		}()
	}
}

// State returns a snapshot of the current state.
func (c *Consumer) State() domain.ProgressState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Done is closed once the background reader has exited.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Subscribe returns a channel that receives the current snapshot followed by
// every change. The channel is closed after the terminal snapshot. Slow
// readers lose intermediate snapshots, never the latest one.
func (c *Consumer) Subscribe() (<-chan domain.ProgressState, func()) {
	ch := make(chan domain.ProgressState, subscriberBuffer)

	c.mu.Lock()
	ch <- c.state.Clone()
	if c.state.Phase.Terminal() {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Consumer) broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.state.Clone()
	for id, ch := range c.subs {
		select {
		case ch <- snapshot:
		default:
			// drop the oldest so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
		if snapshot.Phase.Terminal() {
			delete(c.subs, id)
			close(ch)
		}
	}
}

func (c *Consumer) fail(err error) {
	c.mu.Lock()
	if c.state.Phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.state.Phase = domain.PhaseError
	c.state.Streaming = false
	c.state.Error = errorMessage(err)
	c.state.UpdatedAt = c.now()
	requestID := c.state.RequestID
	c.mu.Unlock()

	c.log.Error("Analysis stream failed",
		slog.String("request_id", requestID),
		slog.String("error", err.Error()))
	c.broadcast()
}

func errorMessage(err error) string {
	if appErr, ok := apperror.As(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Analysis failed"
}

func clampPercent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	p := int(math.Round(v))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
