package stream

import (
	"testing"

	"career-gap-web/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUpdate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		step     domain.ProgressStep
		terminal bool
		check    func(t *testing.T, ev domain.ProgressEvent)
	}{
		{
			name: "queued maps to the first step",
			body: `{"session_id":"j1","status":"queued","message":"Waiting for a worker","timestamp":"2026-01-01T00:00:00Z"}`,
			step: domain.StepParsing,
		},
		{
			name: "processing without step maps to analyzing",
			body: `{"session_id":"j1","status":"processing","message":"Analyzing","progress":40}`,
			step: domain.StepAnalyzing,
			check: func(t *testing.T, ev domain.ProgressEvent) {
				require.NotNil(t, ev.Percentage)
				assert.Equal(t, 40, *ev.Percentage)
			},
		},
		{
			name: "processing keeps an explicit step",
			body: `{"status":"processing","step":"gathering_context"}`,
			step: domain.StepGatheringContext,
		},
		{
			name:     "completed is terminal at 100",
			body:     `{"status":"completed","analysis_id":12}`,
			step:     domain.StepComplete,
			terminal: true,
			check: func(t *testing.T, ev domain.ProgressEvent) {
				assert.Equal(t, 100, *ev.Percentage)
				assert.Equal(t, int64(12), ev.AnalysisID)
			},
		},
		{
			name:     "failed carries the message as error",
			body:     `{"status":"failed","message":"resume parsing failed"}`,
			step:     domain.StepError,
			terminal: true,
			check: func(t *testing.T, ev domain.ProgressEvent) {
				assert.Equal(t, "resume parsing failed", ev.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, terminal, err := decodeUpdate([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.step, ev.Step)
			assert.Equal(t, tt.terminal, terminal)
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}

	_, _, err := decodeUpdate([]byte("{"))
	assert.Error(t, err)
}
