package usecase

import (
	"context"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
)

type historyUsecase struct {
	repo     domain.AnalysisRepository
	cache    domain.ResultCache
	validate *validator.Validate
	group    singleflight.Group
}

func NewHistoryUsecase(repo domain.AnalysisRepository, cache domain.ResultCache, validate *validator.Validate) domain.HistoryUsecase {
	return &historyUsecase{repo: repo, cache: cache, validate: validate}
}

func (u *historyUsecase) List(ctx context.Context, sess *domain.Session, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := validateStruct(u.validate, &filter); err != nil {
		return nil, err
	}
	items, err := u.repo.ListAnalyses(ctx, sess, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.AnalysisSummary{}
	}
	return items, nil
}

// Get serves past analyses from the result cache when possible.
func (u *historyUsecase) Get(ctx context.Context, sess *domain.Session, id int64) (*domain.AnalysisResult, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperror.BadRequest("Invalid analysis id")
	}

	key := resultKey(sess, id)
	if cached, ok := u.cache.Get(ctx, key); ok {
		return cached, nil
	}
	v, err, _ := u.group.Do(key, func() (interface{}, error) {
		result, err := u.repo.GetAnalysis(ctx, sess, id)
		if err != nil {
			return nil, err
		}
		u.cache.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.AnalysisResult), nil
}

func (u *historyUsecase) Stats(ctx context.Context, sess *domain.Session) (*domain.AnalysisStats, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return u.repo.Stats(ctx, sess)
}

func (u *historyUsecase) Chat(ctx context.Context, sess *domain.Session, id int64, req *domain.ChatRequest) (*domain.ChatReply, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperror.BadRequest("Invalid analysis id")
	}
	if err := validateStruct(u.validate, req); err != nil {
		return nil, err
	}
	return u.repo.Chat(ctx, sess, id, req.Message)
}
