package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sess = &domain.Session{ID: "s1", AccessToken: "access-123"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second, UploadTimeout: 2 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBearerToken(t *testing.T) {
	t.Run("Should attach the session token", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/users/profile/", r.URL.Path)
			assert.Equal(t, "Bearer access-123", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{"id": 3, "email": "ada@example.com"})
		})
		user, err := NewAuthRepository(c).CurrentUser(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
	})

	t.Run("Should never send a token to the registration endpoint", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/users/auth/register/", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusCreated, map[string]any{"id": 4, "email": "new@example.com"})
		})
		// even when a session is at hand
		var user domain.User
		err := c.do(context.Background(), c.http, sess, http.MethodPost, pathRegister, map[string]string{"email": "new@example.com"}, &user)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
	})

	t.Run("Should send no token without a session", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, []any{})
		})
		_, err := NewCatalogRepository(c).ListSkills(context.Background(), nil)
		require.NoError(t, err)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    int
		message string
	}{
		{"detail", http.StatusUnauthorized, `{"detail":"Given token not valid for any token type"}`, 401, "Given token not valid for any token type"},
		{"error key", http.StatusBadRequest, `{"error":"job_description is required"}`, 400, "job_description is required"},
		{"field errors", http.StatusBadRequest, `{"password":["Too short."],"email":["Already registered."]}`, 400, "email: Already registered.; password: Too short."},
		{"non field errors", http.StatusBadRequest, `{"non_field_errors":["Invalid credentials"]}`, 400, "Invalid credentials"},
		{"html 500", http.StatusInternalServerError, `<html>oops</html>`, 500, "The analysis service is unavailable. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := NewAnalysisRepository(c).Stats(context.Background(), sess)
			require.Error(t, err)

			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, apperror.KindBackend, appErr.Kind)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url, Timeout: time.Second})
	_, err := NewAnalysisRepository(c).GetAnalysis(context.Background(), sess, 1)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindTransport))
}

func TestDecodeList(t *testing.T) {
	for _, body := range []string{
		`[{"id":1,"name":"Go"},{"id":2,"name":"SQL"}]`,
		`{"count":2,"next":null,"results":[{"id":1,"name":"Go"},{"id":2,"name":"SQL"}]}`,
		`{"data":[{"id":1,"name":"Go"},{"id":2,"name":"SQL"}]}`,
	} {
		items, err := decodeList[domain.Skill](json.RawMessage(body))
		require.NoError(t, err, body)
		require.Len(t, items, 2)
		assert.Equal(t, "SQL", items[1].Name)
	}

	items, err := decodeList[domain.Skill](json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = decodeList[domain.Skill](json.RawMessage(`{"skills":[]}`))
	assert.Error(t, err)
}

func TestSectionRepository(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"results": []map[string]any{{"id": 5, "institution": "MIT"}}})
		case http.MethodPost, http.MethodPatch:
			var in domain.Education
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			in.ID = 5
			writeJSON(w, http.StatusOK, in)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	repo := NewSectionRepository[domain.Education](c, PathEducation)
	ctx := context.Background()

	list, err := repo.List(ctx, sess)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "MIT", list[0].Institution)

	created, err := repo.Create(ctx, sess, &domain.Education{Institution: "CMU"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)

	_, err = repo.Update(ctx, sess, 5, &domain.Education{Institution: "CMU"})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, sess, 5))

	assert.Equal(t, []string{
		"GET /api/profiles/education/",
		"POST /api/profiles/education/",
		"PATCH /api/profiles/education/5/",
		"DELETE /api/profiles/education/5/",
	}, calls)
}

func TestCatalogRepository(t *testing.T) {
	var calls []string
	var patchBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patchBody))
			writeJSON(w, http.StatusOK, map[string]any{"id": 3, "week": 1, "title": "SQL basics", "completed": true})
		case r.URL.Path == "/api/skills/":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "SQL"}})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"results": []map[string]any{{"id": 3, "week": 1, "title": "SQL basics"}}})
		}
	})
	repo := NewCatalogRepository(c)
	ctx := context.Background()

	skills, err := repo.ListSkills(ctx, sess)
	require.NoError(t, err)
	assert.Len(t, skills, 1)

	weeks, err := repo.ListWeeks(ctx, sess)
	require.NoError(t, err)
	require.Len(t, weeks, 1)
	assert.False(t, weeks[0].Completed)

	week, err := repo.CompleteWeek(ctx, sess, 3)
	require.NoError(t, err)
	assert.True(t, week.Completed)
	assert.Equal(t, map[string]any{"completed": true}, patchBody)

	assert.Equal(t, []string{
		"GET /api/skills/",
		"GET /api/roadmap/",
		"PATCH /api/roadmap/3/",
	}, calls)
}

func TestListAnalysesFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GOOD", r.URL.Query().Get("eligibility_level"))
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "eligibility_level": "GOOD", "match_score": 77.5}})
	})
	list, err := NewAnalysisRepository(c).ListAnalyses(context.Background(), sess, domain.AnalysisFilter{EligibilityLevel: "GOOD"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 77.5, list[0].MatchScore)
}

func TestOpenAnalysisStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/analyses/analyze_dream_job_stream/", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer access-123", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Senior PM role", body["job_description"])
		assert.Equal(t, "Industry: Tech", body["additional_context"])
		assert.Equal(t, true, body["save_job"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"step\":\"parsing\",\"progress\":5}\n\n")
	})

	body, err := NewAnalysisRepository(c).OpenAnalysisStream(context.Background(), sess,
		&domain.AnalysisRequest{JobDescription: "Senior PM role", Context: "Industry: Tech", Persist: true})
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"step":"parsing"`)
}

func TestOpenAnalysisStreamRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job_description is required"})
	})
	_, err := NewAnalysisRepository(c).OpenAnalysisStream(context.Background(), sess, &domain.AnalysisRequest{JobDescription: "x"})
	require.Error(t, err)
	assert.Equal(t, "job_description is required", err.Error())
}

func TestCancelAnalysisStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/jobs/analyses/stream/abc-1/cancel/", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	})
	require.NoError(t, NewAnalysisRepository(c).CancelAnalysisStream(context.Background(), sess, "abc-1"))
}

func TestSubmitAnalysisJob(t *testing.T) {
	for body, want := range map[string]string{
		`{"job_id": 812}`:          "812",
		`{"job_id": "a1b2"}`:       "a1b2",
		`{"session_id": "sess-9"}`: "sess-9",
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, body)
		})
		id, err := NewAnalysisRepository(c).SubmitAnalysisJob(context.Background(), sess, &domain.AnalysisRequest{JobDescription: "PM"})
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestOnboardUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/profiles/profile/onboard/", r.URL.Path)
		file, header, err := r.FormFile("resume")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "cv.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.7", string(data))

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "Onboarding completed successfully",
			"onboarding_summary": map[string]any{
				"records_created":    map[string]int{"education": 2, "total": 2},
				"profile_completion": 66,
			},
			"profile": map[string]any{"current_title": "Engineer"},
		})
	})

	res, err := NewProfileRepository(c).Onboard(context.Background(), sess, &domain.ResumeUpload{
		Filename: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7"),
	})
	require.NoError(t, err)
	assert.Equal(t, 66, res.Summary.ProfileCompletion)
	assert.Equal(t, 2, res.Summary.RecordsCreated["education"])
	assert.Equal(t, "Engineer", res.Profile.CurrentTitle)
}

func TestRefreshKeepsRefreshToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]string{"access": "new-access"})
	})
	pair, err := NewAuthRepository(c).Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", pair.Access)
	assert.Equal(t, "old-refresh", pair.Refresh)
}
