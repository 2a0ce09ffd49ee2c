package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"career-gap-web/config"
	"career-gap-web/internal/delivery/http/middleware"
	v1 "career-gap-web/internal/delivery/http/v1"
	"career-gap-web/internal/domain"
	"career-gap-web/internal/usecase"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/session"
	"career-gap-web/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockAnalysisUC struct {
	mock.Mock
}

func (m *MockAnalysisUC) Start(ctx context.Context, sess *domain.Session, form *domain.DreamJobForm) (domain.ProgressState, error) {
	args := m.Called(ctx, sess, form)
	return args.Get(0).(domain.ProgressState), args.Error(1)
}

func (m *MockAnalysisUC) State(sess *domain.Session) (domain.ProgressState, bool) {
	args := m.Called(sess)
	return args.Get(0).(domain.ProgressState), args.Bool(1)
}

func (m *MockAnalysisUC) Subscribe(sess *domain.Session) (<-chan domain.ProgressState, func(), error) {
	args := m.Called(sess)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(<-chan domain.ProgressState), args.Get(1).(func()), args.Error(2)
}

func (m *MockAnalysisUC) Cancel(sess *domain.Session) (domain.ProgressState, error) {
	args := m.Called(sess)
	return args.Get(0).(domain.ProgressState), args.Error(1)
}

func (m *MockAnalysisUC) Result(ctx context.Context, sess *domain.Session) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisResult), args.Error(1)
}

func (m *MockAnalysisUC) AnalyzeSync(ctx context.Context, sess *domain.Session, form *domain.DreamJobForm) (*domain.DreamJobAnalysis, error) {
	args := m.Called(ctx, sess, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DreamJobAnalysis), args.Error(1)
}

func (m *MockAnalysisUC) CancelAll(sess *domain.Session) {
	m.Called(sess)
}

// stubs for the usecases these tests do not exercise
type stubAuthUC struct{ domain.AuthUsecase }
type stubProfileUC struct{ domain.ProfileUsecase }
type stubHistoryUC struct{ domain.HistoryUsecase }

type memSection[T any] struct {
	mu    sync.Mutex
	items []T
}

func (s *memSection[T]) List(context.Context, *domain.Session) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...), nil
}

func (s *memSection[T]) Create(_ context.Context, _ *domain.Session, item *T) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *item)
	return item, nil
}

func (s *memSection[T]) Update(_ context.Context, _ *domain.Session, _ int64, item *T) (*T, error) {
	return item, nil
}

func (s *memSection[T]) Delete(context.Context, *domain.Session, int64) error {
	return nil
}

// memCatalog returns no skills and completes any roadmap week it is asked for.
type memCatalog struct {
	mu        sync.Mutex
	completed []int64
}

func (m *memCatalog) ListSkills(context.Context, *domain.Session) ([]domain.Skill, error) {
	return nil, nil
}

func (m *memCatalog) ListWeeks(context.Context, *domain.Session) ([]domain.RoadmapWeek, error) {
	return []domain.RoadmapWeek{{ID: 3, Week: 1, Title: "SQL basics"}}, nil
}

func (m *memCatalog) CompleteWeek(_ context.Context, _ *domain.Session, weekID int64) (*domain.RoadmapWeek, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, weekID)
	return &domain.RoadmapWeek{ID: weekID, Week: 1, Title: "SQL basics", Completed: true}, nil
}

// sseRecorder adds the CloseNotifier gin's Stream needs.
type sseRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *sseRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func newRouter(analysisUC domain.AnalysisUsecase) (*gin.Engine, *memSection[domain.Education]) {
	v := validation.New()
	education := &memSection[domain.Education]{}
	catalog := &memCatalog{}
	cfg := &config.Config{
		FrontendURL:                "http://localhost:3000",
		MaxResumeBytes:             10 << 20,
		RateLimitWindowSeconds:     60,
		RateLimitLoginThreshold:    100,
		RateLimitAnalysisThreshold: 100,
	}

	r := v1.NewRouter(v1.RouterDeps{
		AuthUC:    stubAuthUC{},
		ProfileUC: stubProfileUC{},
		Sections: v1.Sections{
			Education:      usecase.NewSectionUsecase(usecase.EducationSection, education, v),
			WorkExperience: usecase.NewSectionUsecase(usecase.WorkExperienceSection, &memSection[domain.WorkExperience]{}, v),
			Projects:       usecase.NewSectionUsecase(usecase.ProjectSection, &memSection[domain.Project]{}, v),
			Certifications: usecase.NewSectionUsecase(usecase.CertificationSection, &memSection[domain.Certification]{}, v),
			Skills:         usecase.NewSectionUsecase(usecase.SkillSection, &memSection[domain.UserSkill]{}, v),
		},
		CatalogUC:  usecase.NewCatalogUsecase(catalog, catalog),
		AnalysisUC: analysisUC,
		HistoryUC:  stubHistoryUC{},
		HealthUC:   usecase.NewHealthUsecase(),
		Session:    middleware.SessionConfig{Codec: session.NewCodec("secret", time.Hour)},
		Config:     cfg,
	})
	return r, education
}

func bearer(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer opaque-token")
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAnalysisRoutes(t *testing.T) {
	t.Run("Should require a session", func(t *testing.T) {
		r, _ := newRouter(new(MockAnalysisUC))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/analysis", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should start and answer 202 with step statuses", func(t *testing.T) {
		uc := new(MockAnalysisUC)
		uc.On("Start", mock.Anything, mock.Anything, &domain.DreamJobForm{JobDescription: "Senior PM role", Industry: "Tech"}).
			Return(domain.ProgressState{RequestID: "req-1", Phase: domain.PhaseStreaming, Step: domain.StepParsing, Streaming: true}, nil).Once()
		r, _ := newRouter(uc)

		body := `{"job_description":"Senior PM role","industry":"Tech"}`
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodPost, "/v1/analysis", strings.NewReader(body))))
		require.Equal(t, http.StatusAccepted, w.Code)

		var view struct {
			Phase     domain.Phase `json:"phase"`
			Streaming bool         `json:"is_streaming"`
			Steps     []domain.StepView
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
		assert.Equal(t, domain.PhaseStreaming, view.Phase)
		assert.True(t, view.Streaming)
		require.Len(t, view.Steps, len(domain.ProgressSteps))
		assert.Equal(t, domain.StepStatusActive, view.Steps[0].Status)
		assert.Equal(t, domain.StepStatusPending, view.Steps[1].Status)
	})

	t.Run("Should surface validation errors as 400", func(t *testing.T) {
		uc := new(MockAnalysisUC)
		uc.On("Start", mock.Anything, mock.Anything, mock.Anything).
			Return(domain.ProgressState{}, apperror.Validation("Job description: This field is required", nil)).Once()
		r, _ := newRouter(uc)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodPost, "/v1/analysis", strings.NewReader(`{"job_description":" "}`))))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Job description: This field is required", decode(t, w).Message)
	})

	t.Run("Should relay progress as server-sent events until terminal", func(t *testing.T) {
		updates := make(chan domain.ProgressState, 3)
		updates <- domain.ProgressState{Phase: domain.PhaseStreaming, Step: domain.StepAnalyzing, Percentage: 60}
		updates <- domain.ProgressState{Phase: domain.PhaseComplete, Step: domain.StepComplete, Percentage: 100, AnalysisID: 42}
		close(updates)

		uc := new(MockAnalysisUC)
		uc.On("Subscribe", mock.Anything).Return((<-chan domain.ProgressState)(updates), func() {}, nil).Once()
		r, _ := newRouter(uc)

		w := &sseRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodGet, "/v1/analysis/events", nil)))

		out := w.Body.String()
		assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
		assert.Equal(t, 2, strings.Count(out, "event:progress"))
		assert.Contains(t, out, `"percentage":60`)
		assert.Contains(t, out, `"phase":"complete"`)
		assert.Contains(t, out, `"analysis_id":42`)
	})

	t.Run("Should cancel idempotently", func(t *testing.T) {
		uc := new(MockAnalysisUC)
		uc.On("Cancel", mock.Anything).Return(domain.ProgressState{Phase: domain.PhaseCancelled, Step: domain.StepAnalyzing, Percentage: 40}, nil).Twice()
		r, _ := newRouter(uc)

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodDelete, "/v1/analysis", nil)))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"phase":"cancelled"`)
		}
	})

	t.Run("Should answer 409 while the result is not ready", func(t *testing.T) {
		uc := new(MockAnalysisUC)
		uc.On("Result", mock.Anything, mock.Anything).Return(nil, apperror.Conflict("The analysis is not complete yet")).Once()
		r, _ := newRouter(uc)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodGet, "/v1/analysis/result", nil)))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSectionRoutes(t *testing.T) {
	r, education := newRouter(new(MockAnalysisUC))

	t.Run("Should create through the generic section handler", func(t *testing.T) {
		body, _ := json.Marshal(domain.Education{
			Institution: "MIT",
			Degree:      "BSc Computer Science",
			DegreeLevel: domain.DegreeBachelor,
			StartDate:   "2016-09-01",
			EndDate:     "2020-06-01",
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodPost, "/v1/education", bytes.NewReader(body))))
		require.Equal(t, http.StatusCreated, w.Code)

		items, _ := education.List(context.Background(), nil)
		require.Len(t, items, 1)
		assert.Equal(t, "MIT", items[0].Institution)
	})

	t.Run("Should reject invalid entries with field messages", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodPost, "/v1/work-experience", strings.NewReader(`{"job_title":"Engineer"}`))))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var details []string
		require.NoError(t, json.Unmarshal(decode(t, w).Error, &details))
		assert.NotEmpty(t, details)
	})

	t.Run("Should reject a malformed id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodDelete, "/v1/projects/abc", nil)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should list skills as an empty array", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodGet, "/v1/skills", nil)))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, string(decode(t, w).Data))
	})
}

func TestCatalogRoutes(t *testing.T) {
	r, _ := newRouter(new(MockAnalysisUC))

	t.Run("Should list the skill catalog as an empty array", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodGet, "/v1/skill-catalog", nil)))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, string(decode(t, w).Data))
	})

	t.Run("Should list roadmap weeks", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodGet, "/v1/roadmap", nil)))
		require.Equal(t, http.StatusOK, w.Code)

		var weeks []domain.RoadmapWeek
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &weeks))
		require.Len(t, weeks, 1)
		assert.Equal(t, "SQL basics", weeks[0].Title)
	})

	t.Run("Should complete a roadmap week", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodPost, "/v1/roadmap/3/complete", nil)))
		require.Equal(t, http.StatusOK, w.Code)

		var week domain.RoadmapWeek
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &week))
		assert.Equal(t, int64(3), week.ID)
		assert.True(t, week.Completed)
	})

	t.Run("Should reject a non-positive week id", func(t *testing.T) {
		for _, path := range []string{"/v1/roadmap/0/complete", "/v1/roadmap/-2/complete", "/v1/roadmap/abc/complete"} {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, bearer(httptest.NewRequest(http.MethodPost, path, nil)))
			assert.Equal(t, http.StatusBadRequest, w.Code, path)
		}
	})
}

func TestHealthRoute(t *testing.T) {
	r, _ := newRouter(new(MockAnalysisUC))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
