package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/document"
	"career-gap-web/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type profileUsecase struct {
	repo           domain.ProfileRepository
	validate       *validator.Validate
	maxResumeBytes int64
}

func NewProfileUsecase(repo domain.ProfileRepository, validate *validator.Validate, maxResumeBytes int64) domain.ProfileUsecase {
	return &profileUsecase{repo: repo, validate: validate, maxResumeBytes: maxResumeBytes}
}

func (u *profileUsecase) GetProfile(ctx context.Context, sess *domain.Session) (*domain.UserProfile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return u.repo.GetComplete(ctx, sess)
}

func (u *profileUsecase) UpdateProfile(ctx context.Context, sess *domain.Session, profile *domain.UserProfile) (*domain.UserProfile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := validateStruct(u.validate, profile); err != nil {
		return nil, err
	}

	// nested lists are edited through their own sections
	patch := *profile
	patch.Education, patch.WorkExperience, patch.Projects, patch.Certifications = nil, nil, nil, nil
	return u.repo.Update(ctx, sess, &patch)
}

func (u *profileUsecase) GetStats(ctx context.Context, sess *domain.Session) (*domain.ProfileStats, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return u.repo.Stats(ctx, sess)
}

// Onboard checks the resume locally and forwards it for parsing. The backend
// call can take minutes, so nothing is sent unless the file is a readable PDF
// or DOCX within the size limit.
func (u *profileUsecase) Onboard(ctx context.Context, sess *domain.Session, filename string, data []byte) (*domain.OnboardingResult, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	resume, err := document.Inspect(filename, data, u.maxResumeBytes)
	if err != nil {
		return nil, resumeError(err, u.maxResumeBytes)
	}

	start := time.Now()
	result, err := u.repo.Onboard(ctx, sess, &domain.ResumeUpload{
		Filename:    resume.Filename,
		ContentType: resume.ContentType(),
		Data:        resume.Data,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Resume onboarding finished",
		slog.String("session_id", sess.ID),
		slog.String("file", resume.Filename),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

func resumeError(err error, maxBytes int64) error {
	switch {
	case errors.Is(err, document.ErrTooLarge):
		e := apperror.New(http.StatusRequestEntityTooLarge, fmt.Sprintf("Resume must be at most %d MB", maxBytes>>20), err)
		e.Kind = apperror.KindValidation
		return e
	case errors.Is(err, document.ErrEmpty):
		return apperror.BadRequest("The uploaded file is empty")
	case errors.Is(err, document.ErrUnsupported):
		return apperror.BadRequest("Only PDF and DOCX resumes are supported")
	case errors.Is(err, document.ErrSpoofed):
		return apperror.BadRequest("The file content does not match its extension")
	case errors.Is(err, document.ErrUnreadable):
		return apperror.BadRequest("Could not read any text from the resume. Please upload a text based PDF or DOCX.")
	default:
		return apperror.Internal(err)
	}
}
