package stream

import (
	"context"

	"career-gap-web/internal/domain"
)

// Event is one item delivered by a Source: either a decoded progress update
// or a transport failure. A Source closes its channel when the feed ends or
// its context is cancelled.
type Event struct {
	Progress domain.ProgressEvent
	Err      error
}

// Source opens the progress feed for one analysis request.
type Source interface {
	Open(ctx context.Context, sess *domain.Session, req *domain.AnalysisRequest) (<-chan Event, error)
}

// Canceler asks the backend to stop work on a stream. Best effort only.
type Canceler interface {
	CancelRemote(ctx context.Context, sess *domain.Session, streamID string) error
}
