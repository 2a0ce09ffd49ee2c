package stream

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"career-gap-web/internal/domain"
)

// wireEvent is the JSON payload shared by the SSE and AMQP feeds. The
// backend has used both "progress" and "percentage" for the same value.
type wireEvent struct {
	Type       string         `json:"type"`
	Status     string         `json:"status"`
	Step       string         `json:"step"`
	Progress   *float64       `json:"progress"`
	Percentage *float64       `json:"percentage"`
	Message    string         `json:"message"`
	Metrics    map[string]any `json:"metrics"`
	AnalysisID flexID         `json:"analysis_id"`
	StreamID   flexString     `json:"stream_id"`
	JobID      flexString     `json:"job_id"`
	Error      string         `json:"error"`
	Analysis   *struct {
		ID flexID `json:"id"`
	} `json:"analysis"`
}

// flexID accepts 42, 42.0 and "42".
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexID(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	*f = flexID(int64(v))
	return nil
}

// flexString accepts strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*f = flexString(str)
		return nil
	}
	*f = flexString(s)
	return nil
}

func (w *wireEvent) toProgress() domain.ProgressEvent {
	ev := domain.ProgressEvent{
		Step:       domain.ProgressStep(strings.ToLower(strings.TrimSpace(w.Step))),
		Message:    w.Message,
		AnalysisID: int64(w.AnalysisID),
		StreamID:   string(w.StreamID),
		Error:      w.Error,
	}
	if ev.AnalysisID == 0 && w.Analysis != nil {
		ev.AnalysisID = int64(w.Analysis.ID)
	}
	if ev.StreamID == "" {
		ev.StreamID = string(w.JobID)
	}

	pct := w.Progress
	if pct == nil {
		pct = w.Percentage
	}
	if pct != nil && !math.IsNaN(*pct) {
		p := int(math.Round(*pct))
		ev.Percentage = &p
	}

	if len(w.Metrics) > 0 {
		ev.Metrics = make(map[string]float64, len(w.Metrics))
		for name, raw := range w.Metrics {
			if v, ok := number(raw); ok {
				ev.Metrics[name] = v
			}
		}
	}
	return ev
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
