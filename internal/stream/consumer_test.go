package stream_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"career-gap-web/internal/domain"
	"career-gap-web/internal/stream"
	"career-gap-web/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	opens   int
	lastReq *domain.AnalysisRequest
	events  chan stream.Event
	err     error
	cancels chan string
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan stream.Event, 32), cancels: make(chan string, 4)}
}

func (f *fakeSource) Open(_ context.Context, _ *domain.Session, req *domain.AnalysisRequest) (<-chan stream.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeSource) CancelRemote(_ context.Context, _ *domain.Session, streamID string) error {
	f.cancels <- streamID
	return nil
}

func (f *fakeSource) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func pct(v int) *int { return &v }

func progress(step domain.ProgressStep, p int) stream.Event {
	return stream.Event{Progress: domain.ProgressEvent{Step: step, Percentage: pct(p)}}
}

func waitDone(t *testing.T, c *stream.Consumer) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not finish")
	}
}

var testSession = &domain.Session{ID: "sess-1", AccessToken: "token"}

func TestConsumerStartValidation(t *testing.T) {
	t.Run("Should reject an empty job description without opening the stream", func(t *testing.T) {
		src := newFakeSource()
		c := stream.NewConsumer(src, testSession)

		for _, desc := range []string{"", "   ", "\n\t"} {
			err := c.Start(context.Background(), domain.AnalysisRequest{JobDescription: desc})
			require.Error(t, err)
			assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		}
		assert.Equal(t, 0, src.openCount())
		assert.Equal(t, domain.PhaseIdle, c.State().Phase)
		assert.False(t, c.State().Streaming)
	})

	t.Run("Should refuse a second start", func(t *testing.T) {
		src := newFakeSource()
		c := stream.NewConsumer(src, testSession)
		req := domain.AnalysisRequest{JobDescription: "Senior PM role"}
		require.NoError(t, c.Start(context.Background(), req))
		assert.ErrorIs(t, c.Start(context.Background(), req), stream.ErrAlreadyStarted)
		c.Cancel()
	})
}

func TestConsumerHappyPath(t *testing.T) {
	src := newFakeSource()
	var completions atomic.Int32
	var completedID atomic.Int64
	c := stream.NewConsumer(src, testSession, stream.WithOnComplete(func(s domain.ProgressState) {
		completions.Add(1)
		completedID.Store(s.AnalysisID)
	}))

	req := domain.AnalysisRequest{JobDescription: "Senior PM role", Context: "Industry: Tech", Persist: true}
	require.NoError(t, c.Start(context.Background(), req))

	st := c.State()
	assert.Equal(t, domain.StepParsing, st.Step)
	assert.Equal(t, 0, st.Percentage)
	assert.True(t, st.Streaming)
	assert.NotEmpty(t, st.RequestID)
	assert.Equal(t, "Industry: Tech", src.lastReq.Context)
	assert.True(t, src.lastReq.Persist)

	src.events <- progress(domain.StepParsing, 5)
	src.events <- progress(domain.StepParsed, 15)
	src.events <- progress(domain.StepGatheringContext, 25)
	src.events <- progress(domain.StepContextGathered, 35)
	src.events <- stream.Event{Progress: domain.ProgressEvent{
		Step:       domain.StepAnalyzing,
		Percentage: pct(60),
		Message:    "Scoring skills",
		Metrics:    map[string]float64{domain.MetricMatchScore: 72.4, domain.MetricSkillsMatchScore: 140, domain.MetricSalaryMatchScore: -3},
	}}
	src.events <- progress(domain.StepProcessing, 90)
	src.events <- stream.Event{Progress: domain.ProgressEvent{Step: domain.StepComplete, Percentage: pct(100), AnalysisID: 17}}

	waitDone(t, c)

	st = c.State()
	assert.Equal(t, domain.PhaseComplete, st.Phase)
	assert.Equal(t, domain.StepComplete, st.Step)
	assert.Equal(t, 100, st.Percentage)
	assert.False(t, st.Streaming)
	assert.Empty(t, st.Error)
	assert.Equal(t, int64(17), st.AnalysisID)
	assert.Equal(t, 72, st.Metrics[domain.MetricMatchScore])
	assert.Equal(t, 100, st.Metrics[domain.MetricSkillsMatchScore])
	assert.Equal(t, 0, st.Metrics[domain.MetricSalaryMatchScore])

	assert.Equal(t, int32(1), completions.Load())
	assert.Equal(t, int64(17), completedID.Load())

	// late events change nothing and never re-fire completion
	assert.True(t, c.Apply(domain.ProgressEvent{Step: domain.StepError, Error: "late"}))
	assert.Equal(t, domain.PhaseComplete, c.State().Phase)
	assert.Equal(t, int32(1), completions.Load())
}

func TestConsumerApplyRules(t *testing.T) {
	src := newFakeSource()
	c := stream.NewConsumer(src, testSession)
	require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "Data engineer"}))
	defer c.Cancel()

	t.Run("Should ignore step regressions", func(t *testing.T) {
		c.Apply(domain.ProgressEvent{Step: domain.StepAnalyzing, Percentage: pct(60)})
		c.Apply(domain.ProgressEvent{Step: domain.StepParsed, Percentage: pct(30)})
		st := c.State()
		assert.Equal(t, domain.StepAnalyzing, st.Step)
		assert.Equal(t, 60, st.Percentage)
	})

	t.Run("Should update message and metrics for unknown steps", func(t *testing.T) {
		c.Apply(domain.ProgressEvent{
			Step:    "thinking_hard",
			Message: "Still thinking",
			Metrics: map[string]float64{domain.MetricEducationMatchScore: 55},
		})
		st := c.State()
		assert.Equal(t, domain.StepAnalyzing, st.Step)
		assert.Equal(t, "Still thinking", st.Message)
		assert.Equal(t, 55, st.Metrics[domain.MetricEducationMatchScore])
	})

	t.Run("Should clamp percentage", func(t *testing.T) {
		c.Apply(domain.ProgressEvent{Percentage: pct(-20)})
		assert.Equal(t, 60, c.State().Percentage)
	})
}

func TestConsumerCompletesOnFullPercentage(t *testing.T) {
	src := newFakeSource()
	var completions atomic.Int32
	c := stream.NewConsumer(src, testSession, stream.WithOnComplete(func(domain.ProgressState) { completions.Add(1) }))
	require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "SRE"}))

	src.events <- stream.Event{Progress: domain.ProgressEvent{Step: domain.StepProcessing, Percentage: pct(100), AnalysisID: 3}}
	waitDone(t, c)

	st := c.State()
	assert.Equal(t, domain.PhaseComplete, st.Phase)
	assert.Equal(t, domain.StepComplete, st.Step)
	assert.Equal(t, int32(1), completions.Load())
}

func TestConsumerSubmissionFailure(t *testing.T) {
	src := newFakeSource()
	src.err = apperror.Transport(errors.New("dial tcp: connection refused"))
	var completions atomic.Int32
	c := stream.NewConsumer(src, testSession, stream.WithOnComplete(func(domain.ProgressState) { completions.Add(1) }))

	err := c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "Senior PM role"})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindTransport))

	st := c.State()
	assert.Equal(t, domain.PhaseError, st.Phase)
	assert.NotEmpty(t, st.Error)
	assert.False(t, st.Streaming)
	assert.Equal(t, 0, st.Percentage)
	assert.Equal(t, int32(0), completions.Load())
	waitDone(t, c)
}

func TestConsumerCancel(t *testing.T) {
	src := newFakeSource()
	var completions atomic.Int32
	c := stream.NewConsumer(src, testSession, stream.WithOnComplete(func(domain.ProgressState) { completions.Add(1) }))
	require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "Senior PM role"}))

	c.Apply(domain.ProgressEvent{StreamID: "stream-9"})
	c.Apply(domain.ProgressEvent{Step: domain.StepAnalyzing, Percentage: pct(40), Metrics: map[string]float64{domain.MetricMatchScore: 51}})

	c.Cancel()
	waitDone(t, c)

	st := c.State()
	assert.Equal(t, domain.PhaseCancelled, st.Phase)
	assert.False(t, st.Streaming)
	assert.Equal(t, domain.StepAnalyzing, st.Step)
	assert.Equal(t, 40, st.Percentage)
	assert.Equal(t, 51, st.Metrics[domain.MetricMatchScore])
	assert.Equal(t, domain.StepStatusStopped, st.StepStatus(domain.StepAnalyzing))

	select {
	case id := <-src.cancels:
		assert.Equal(t, "stream-9", id)
	case <-time.After(time.Second):
		t.Fatal("remote cancel not sent")
	}

	// late events after cancel are ignored
	c.Apply(domain.ProgressEvent{Step: domain.StepProcessing, Percentage: pct(80)})
	c.Apply(domain.ProgressEvent{Step: domain.StepComplete, Percentage: pct(100), AnalysisID: 5})
	assert.Equal(t, st, c.State())
	assert.Equal(t, int32(0), completions.Load())

	// idempotent
	c.Cancel()
	assert.Equal(t, st, c.State())
	select {
	case <-src.cancels:
		t.Fatal("remote cancel sent twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsumerCancelBeforeStart(t *testing.T) {
	src := newFakeSource()
	c := stream.NewConsumer(src, testSession)
	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.Cancel()
	require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "Senior PM role"}))
	waitDone(t, c)

	st := c.State()
	assert.Equal(t, 0, src.openCount())
	assert.Equal(t, domain.PhaseCancelled, st.Phase)
	assert.False(t, st.Streaming)

	var last domain.ProgressState
	for s := range updates {
		last = s
	}
	assert.Equal(t, domain.PhaseCancelled, last.Phase)

	assert.ErrorIs(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "Senior PM role"}), stream.ErrAlreadyStarted)
	select {
	case <-src.cancels:
		t.Fatal("remote cancel sent for a stream that never opened")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsumerCancelAfterCompletion(t *testing.T) {
	src := newFakeSource()
	c := stream.NewConsumer(src, testSession)
	require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "PM"}))
	src.events <- stream.Event{Progress: domain.ProgressEvent{Step: domain.StepComplete, StreamID: "s", AnalysisID: 1}}
	waitDone(t, c)

	c.Cancel()
	assert.Equal(t, domain.PhaseComplete, c.State().Phase)
	select {
	case <-src.cancels:
		t.Fatal("remote cancel sent for a finished stream")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsumerBackendError(t *testing.T) {
	src := newFakeSource()
	c := stream.NewConsumer(src, testSession)
	require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "PM"}))

	src.events <- progress(domain.StepGatheringContext, 30)
	src.events <- stream.Event{Progress: domain.ProgressEvent{Step: domain.StepError, Message: "Profile not found"}}
	waitDone(t, c)

	st := c.State()
	assert.Equal(t, domain.PhaseError, st.Phase)
	assert.Equal(t, "Profile not found", st.Error)
	assert.Equal(t, 30, st.Percentage)
	assert.False(t, st.Streaming)
}

func TestConsumerTransportErrors(t *testing.T) {
	t.Run("Should fail on a read error", func(t *testing.T) {
		src := newFakeSource()
		c := stream.NewConsumer(src, testSession)
		require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "PM"}))
		src.events <- progress(domain.StepParsed, 20)
		src.events <- stream.Event{Err: errors.New("unexpected EOF")}
		waitDone(t, c)

		st := c.State()
		assert.Equal(t, domain.PhaseError, st.Phase)
		assert.Equal(t, "unexpected EOF", st.Error)
		assert.Equal(t, 20, st.Percentage)
	})

	t.Run("Should fail when the stream ends early", func(t *testing.T) {
		src := newFakeSource()
		c := stream.NewConsumer(src, testSession)
		require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "PM"}))
		close(src.events)
		waitDone(t, c)

		st := c.State()
		assert.Equal(t, domain.PhaseError, st.Phase)
		assert.Equal(t, stream.ErrClosedEarly.Error(), st.Error)
	})
}

func TestConsumerSubscribe(t *testing.T) {
	src := newFakeSource()
	c := stream.NewConsumer(src, testSession)
	require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "PM"}))

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	first := <-updates
	assert.Equal(t, domain.StepParsing, first.Step)

	src.events <- progress(domain.StepParsed, 20)
	src.events <- stream.Event{Progress: domain.ProgressEvent{Step: domain.StepComplete, Percentage: pct(100), AnalysisID: 8}}

	var last domain.ProgressState
	for s := range updates {
		last = s
	}
	assert.Equal(t, domain.PhaseComplete, last.Phase)

	// late subscribers get the final snapshot and a closed channel
	late, _ := c.Subscribe()
	s, ok := <-late
	require.True(t, ok)
	assert.Equal(t, domain.PhaseComplete, s.Phase)
	_, ok = <-late
	assert.False(t, ok)
}

func TestConsumerStepStatusProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		c := stream.NewConsumer(newFakeSource(), testSession)
		require.NoError(t, c.Start(context.Background(), domain.AnalysisRequest{JobDescription: "PM"}))

		furthest := 0
		p := 0
		for i := 0; i < 10; i++ {
			// non-decreasing, stopping short of completion
			idx := furthest + rng.Intn(2)
			if idx > len(domain.ProgressSteps)-2 {
				idx = len(domain.ProgressSteps) - 2
			}
			furthest = idx
			p += rng.Intn(10)
			if p > 99 {
				p = 99
			}
			c.Apply(domain.ProgressEvent{Step: domain.ProgressSteps[idx], Percentage: pct(p)})
		}

		st := c.State()
		require.Equal(t, domain.ProgressSteps[furthest], st.Step)
		for i, step := range domain.ProgressSteps {
			want := domain.StepStatusPending
			switch {
			case i < furthest:
				want = domain.StepStatusComplete
			case i == furthest:
				want = domain.StepStatusActive
			}
			assert.Equal(t, want, st.StepStatus(step), "run %d step %s", run, step)
		}
		c.Cancel()
	}
}
