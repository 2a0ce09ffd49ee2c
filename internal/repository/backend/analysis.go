package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
)

const (
	pathAnalyses       = "/jobs/analyses/"
	pathAnalysisStats  = "/jobs/analyses/stats/"
	pathDreamJob       = "/jobs/analyses/analyze_dream_job/"
	pathDreamJobStream = "/jobs/analyses/analyze_dream_job_stream/"
	pathDreamJobAsync  = "/jobs/analyses/analyze_dream_job_async/"
)

type AnalysisRepository struct {
	c *Client
}

func NewAnalysisRepository(c *Client) *AnalysisRepository {
	return &AnalysisRepository{c: c}
}

func (r *AnalysisRepository) GetAnalysis(ctx context.Context, sess *domain.Session, id int64) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	path := fmt.Sprintf("%s%d/", pathAnalyses, id)
	if err := r.c.do(ctx, r.c.http, sess, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *AnalysisRepository) ListAnalyses(ctx context.Context, sess *domain.Session, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, error) {
	path := pathAnalyses
	if filter.EligibilityLevel != "" {
		path += "?" + url.Values{"eligibility_level": {filter.EligibilityLevel}}.Encode()
	}
	return getList[domain.AnalysisSummary](ctx, r.c, sess, path)
}

func (r *AnalysisRepository) Stats(ctx context.Context, sess *domain.Session) (*domain.AnalysisStats, error) {
	var stats domain.AnalysisStats
	if err := r.c.do(ctx, r.c.http, sess, http.MethodGet, pathAnalysisStats, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AnalyzeDreamJob runs the blocking analysis, bounded by the upload timeout.
func (r *AnalysisRepository) AnalyzeDreamJob(ctx context.Context, sess *domain.Session, req *domain.AnalysisRequest) (*domain.DreamJobAnalysis, error) {
	var out domain.DreamJobAnalysis
	if err := r.c.do(ctx, r.c.longHTTP, sess, http.MethodPost, pathDreamJob, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AnalysisRepository) Chat(ctx context.Context, sess *domain.Session, id int64, message string) (*domain.ChatReply, error) {
	var reply domain.ChatReply
	path := fmt.Sprintf("%s%d/chat/", pathAnalyses, id)
	if err := r.c.do(ctx, r.c.longHTTP, sess, http.MethodPost, path, map[string]string{"message": message}, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// OpenAnalysisStream submits the request to the streaming endpoint and returns
// the open text/event-stream body.
func (r *AnalysisRepository) OpenAnalysisStream(ctx context.Context, sess *domain.Session, req *domain.AnalysisRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	httpReq, err := r.c.newRequest(ctx, sess, http.MethodPost, pathDreamJobStream, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := r.c.send(r.c.streamHTTP, httpReq)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// CancelAnalysisStream tells the backend to stop a running stream or job.
func (r *AnalysisRepository) CancelAnalysisStream(ctx context.Context, sess *domain.Session, streamID string) error {
	path := fmt.Sprintf("%sstream/%s/cancel/", pathAnalyses, url.PathEscape(streamID))
	return r.c.do(ctx, r.c.http, sess, http.MethodPost, path, nil, nil)
}

// SubmitAnalysisJob queues the analysis for the worker pool and returns the
// job id its status updates are published under.
func (r *AnalysisRepository) SubmitAnalysisJob(ctx context.Context, sess *domain.Session, req *domain.AnalysisRequest) (string, error) {
	var out struct {
		JobID     json.RawMessage `json:"job_id"`
		SessionID string          `json:"session_id"`
	}
	if err := r.c.do(ctx, r.c.http, sess, http.MethodPost, pathDreamJobAsync, req, &out); err != nil {
		return "", err
	}
	id := strings.Trim(string(out.JobID), `"`)
	if id == "" || id == "null" {
		id = out.SessionID
	}
	if id == "" {
		return "", apperror.New(http.StatusBadGateway, "Analysis job was not accepted", nil)
	}
	return id, nil
}
