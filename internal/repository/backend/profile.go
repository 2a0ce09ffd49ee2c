package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
)

const (
	pathProfileComplete = "/profiles/profile/complete/"
	pathProfileMe       = "/profiles/profile/me/"
	pathProfileStats    = "/profiles/profile/stats/"
	pathProfileOnboard  = "/profiles/profile/onboard/"
)

type ProfileRepository struct {
	c *Client
}

func NewProfileRepository(c *Client) *ProfileRepository {
	return &ProfileRepository{c: c}
}

func (r *ProfileRepository) GetComplete(ctx context.Context, sess *domain.Session) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := r.c.do(ctx, r.c.http, sess, http.MethodGet, pathProfileComplete, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Update(ctx context.Context, sess *domain.Session, profile *domain.UserProfile) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := r.c.do(ctx, r.c.http, sess, http.MethodPatch, pathProfileMe, profile, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) Stats(ctx context.Context, sess *domain.Session) (*domain.ProfileStats, error) {
	var s domain.ProfileStats
	if err := r.c.do(ctx, r.c.http, sess, http.MethodGet, pathProfileStats, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Onboard uploads the resume as multipart field "resume". Parsing and profile
// building happen on the backend and can take minutes.
func (r *ProfileRepository) Onboard(ctx context.Context, sess *domain.Session, resume *domain.ResumeUpload) (*domain.OnboardingResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="resume"; filename=%q`, resume.Filename))
	h.Set("Content-Type", resume.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if _, err := part.Write(resume.Data); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := w.Close(); err != nil {
		return nil, apperror.Internal(err)
	}

	req, err := r.c.newRequest(ctx, sess, http.MethodPost, pathProfileOnboard, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := r.c.send(r.c.longHTTP, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result domain.OnboardingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperror.New(http.StatusBadGateway, "Unexpected response from the analysis service", err)
	}
	return &result, nil
}
