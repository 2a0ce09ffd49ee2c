package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"career-gap-web/internal/domain"
	"career-gap-web/internal/stream"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/htmltext"
	"career-gap-web/pkg/logger"

	"github.com/go-playground/validator/v10"
)

const (
	resultFetchTimeout = 30 * time.Second
	// finished runs stay readable this long after their last update
	runRetention = time.Hour
)

// analysisRun is the consumer owned by one session plus the result fetched
// when it completed.
type analysisRun struct {
	consumer *stream.Consumer
	sess     *domain.Session

	// held for the whole fetch so a result is loaded at most once
	mu     sync.Mutex
	result *domain.AnalysisResult
}

type analysisUsecase struct {
	source   stream.Source
	repo     domain.AnalysisRepository
	cache    domain.ResultCache
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	runs map[string]*analysisRun
}

func NewAnalysisUsecase(source stream.Source, repo domain.AnalysisRepository, cache domain.ResultCache, validate *validator.Validate) domain.AnalysisUsecase {
	return &analysisUsecase{
		source:   source,
		repo:     repo,
		cache:    cache,
		validate: validate,
		log:      logger.Log,
		now:      time.Now,
		runs:     make(map[string]*analysisRun),
	}
}

// BuildAnalysisRequest turns the dream job form into the request sent to the
// backend. Pasted postings are reduced from HTML to text; described roles get
// their structured fields folded into the additional context. Saving the job
// defaults to true.
func BuildAnalysisRequest(form *domain.DreamJobForm) domain.AnalysisRequest {
	req := domain.AnalysisRequest{Persist: true}
	if form.SaveJob != nil {
		req.Persist = *form.SaveJob
	}

	if form.Method == domain.InputMethodPaste || (form.Method == "" && form.JobPostingHTML != "") {
		src := form.JobPostingHTML
		if strings.TrimSpace(src) == "" {
			src = form.JobDescription
		}
		req.JobDescription = htmltext.ToText(src)
		req.Context = strings.TrimSpace(form.AdditionalContext)
		return req
	}

	req.JobDescription = strings.TrimSpace(form.JobDescription)
	req.Context = describeContext(form)
	return req
}

func describeContext(form *domain.DreamJobForm) string {
	var lines []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Industry", form.Industry)
	add("Level", form.Level)
	add("Target Companies", form.TargetCompanies)

	var products []string
	for _, p := range form.ProductTypes {
		if p = strings.TrimSpace(p); p != "" {
			products = append(products, p)
		}
	}
	add("Product Types", strings.Join(products, ", "))

	ctx := strings.Join(lines, "\n")
	if extra := strings.TrimSpace(form.AdditionalContext); extra != "" {
		if ctx != "" {
			ctx += "\n\n"
		}
		ctx += extra
	}
	return ctx
}

func (u *analysisUsecase) buildRequest(form *domain.DreamJobForm) (domain.AnalysisRequest, error) {
	if form == nil {
		return domain.AnalysisRequest{}, apperror.BadRequest("Job description is required")
	}
	if err := validateStruct(u.validate, form); err != nil {
		return domain.AnalysisRequest{}, err
	}
	req := BuildAnalysisRequest(form)
	if err := validateStruct(u.validate, &req); err != nil {
		return domain.AnalysisRequest{}, err
	}
	return req, nil
}

// Start begins a streaming analysis for the session. A running analysis of the
// same session is cancelled first. Validation failures return before any
// backend call.
func (u *analysisUsecase) Start(ctx context.Context, sess *domain.Session, form *domain.DreamJobForm) (domain.ProgressState, error) {
	if err := requireSession(sess); err != nil {
		return domain.ProgressState{}, err
	}
	req, err := u.buildRequest(form)
	if err != nil {
		return domain.ProgressState{}, err
	}

	run := &analysisRun{sess: sess}
	run.consumer = stream.NewConsumer(u.source, sess,
		stream.WithLogger(u.log),
		stream.WithOnComplete(func(state domain.ProgressState) {
			u.onComplete(run, state)
		}))

	u.mu.Lock()
	prior := u.runs[sess.ID]
	u.runs[sess.ID] = run
	u.pruneLocked()
	u.mu.Unlock()

	if prior != nil {
		prior.consumer.Cancel()
	}

	// the stream outlives the HTTP request that started it
	if err := run.consumer.Start(context.WithoutCancel(ctx), req); err != nil {
		return run.consumer.State(), err
	}
	return run.consumer.State(), nil
}

// pruneLocked drops finished runs nobody has looked at for a while.
func (u *analysisUsecase) pruneLocked() {
	cutoff := u.now().Add(-runRetention)
	for id, run := range u.runs {
		state := run.consumer.State()
		if state.Phase.Terminal() && state.UpdatedAt.Before(cutoff) {
			delete(u.runs, id)
		}
	}
}

func (u *analysisUsecase) run(sess *domain.Session) *analysisRun {
	if sess == nil {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.runs[sess.ID]
}

func (u *analysisUsecase) State(sess *domain.Session) (domain.ProgressState, bool) {
	run := u.run(sess)
	if run == nil {
		return domain.ProgressState{Phase: domain.PhaseIdle}, false
	}
	return run.consumer.State(), true
}

func (u *analysisUsecase) Subscribe(sess *domain.Session) (<-chan domain.ProgressState, func(), error) {
	run := u.run(sess)
	if run == nil {
		return nil, nil, apperror.NotFound("No analysis has been started")
	}
	ch, unsubscribe := run.consumer.Subscribe()
	return ch, unsubscribe, nil
}

// Cancel is idempotent; with nothing running it reports the current state.
func (u *analysisUsecase) Cancel(sess *domain.Session) (domain.ProgressState, error) {
	if err := requireSession(sess); err != nil {
		return domain.ProgressState{}, err
	}
	run := u.run(sess)
	if run == nil {
		return domain.ProgressState{Phase: domain.PhaseIdle}, nil
	}
	run.consumer.Cancel()
	return run.consumer.State(), nil
}

func (u *analysisUsecase) CancelAll(sess *domain.Session) {
	if sess == nil {
		return
	}
	u.mu.Lock()
	run := u.runs[sess.ID]
	delete(u.runs, sess.ID)
	u.mu.Unlock()

	if run != nil {
		run.consumer.Cancel()
	}
}

// onComplete fetches the result exactly once per completed request. It runs
// on the consumer's reader goroutine.
func (u *analysisUsecase) onComplete(run *analysisRun, state domain.ProgressState) {
	if state.AnalysisID <= 0 {
		u.log.Warn("Analysis completed without an analysis id",
			slog.String("request_id", state.RequestID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), resultFetchTimeout)
	defer cancel()

	if _, err := u.fetch(ctx, run, run.sess, state.AnalysisID, false); err != nil {
		u.log.Error("Failed to fetch analysis result",
			slog.String("request_id", state.RequestID),
			slog.Int64("analysis_id", state.AnalysisID),
			slog.String("error", err.Error()))
	}
}

// Result returns the result of the session's completed analysis.
func (u *analysisUsecase) Result(ctx context.Context, sess *domain.Session) (*domain.AnalysisResult, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	run := u.run(sess)
	if run == nil {
		return nil, apperror.NotFound("No analysis has been started")
	}

	state := run.consumer.State()
	switch {
	case state.Phase == domain.PhaseError:
		return nil, apperror.Conflict(firstNonEmpty(state.Error, "The analysis failed"))
	case state.Phase != domain.PhaseComplete:
		return nil, apperror.Conflict("The analysis is not complete yet")
	case state.AnalysisID <= 0:
		return nil, apperror.Backend(http.StatusBadGateway, "The analysis finished without a result id")
	}

	// waits for a completion fetch still in flight; retries one that failed
	return u.fetch(ctx, run, sess, state.AnalysisID, true)
}

// fetch returns the run's result, loading it from the backend only if no
// earlier call succeeded.
func (u *analysisUsecase) fetch(ctx context.Context, run *analysisRun, sess *domain.Session, id int64, useCache bool) (*domain.AnalysisResult, error) {
	run.mu.Lock()
	defer run.mu.Unlock()

	if run.result != nil {
		return run.result, nil
	}
	key := resultKey(sess, id)
	if useCache {
		if cached, ok := u.cache.Get(ctx, key); ok {
			run.result = cached
			return cached, nil
		}
	}

	result, err := u.repo.GetAnalysis(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	run.result = result
	u.cache.Set(ctx, key, result)
	return result, nil
}

// AnalyzeSync runs the blocking analysis used by the non-streaming page.
func (u *analysisUsecase) AnalyzeSync(ctx context.Context, sess *domain.Session, form *domain.DreamJobForm) (*domain.DreamJobAnalysis, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	req, err := u.buildRequest(form)
	if err != nil {
		return nil, err
	}

	out, err := u.repo.AnalyzeDreamJob(ctx, sess, &req)
	if err != nil {
		return nil, err
	}
	if out.Analysis != nil && out.Analysis.ID > 0 {
		u.cache.Set(ctx, resultKey(sess, out.Analysis.ID), out.Analysis)
	}
	return out, nil
}

// resultKey scopes cached results to the caller so one account never reads
// another's analysis.
func resultKey(sess *domain.Session, id int64) string {
	return fmt.Sprintf("%s:%d", sess.Owner(), id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
