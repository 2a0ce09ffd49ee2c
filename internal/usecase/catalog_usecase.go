package usecase

import (
	"context"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
)

type catalogUsecase struct {
	skills  domain.SkillCatalogRepository
	roadmap domain.RoadmapRepository
}

func NewCatalogUsecase(skills domain.SkillCatalogRepository, roadmap domain.RoadmapRepository) domain.CatalogUsecase {
	return &catalogUsecase{skills: skills, roadmap: roadmap}
}

func (u *catalogUsecase) ListSkills(ctx context.Context, sess *domain.Session) ([]domain.Skill, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	skills, err := u.skills.ListSkills(ctx, sess)
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = []domain.Skill{}
	}
	return skills, nil
}

func (u *catalogUsecase) Roadmap(ctx context.Context, sess *domain.Session) ([]domain.RoadmapWeek, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	weeks, err := u.roadmap.ListWeeks(ctx, sess)
	if err != nil {
		return nil, err
	}
	if weeks == nil {
		weeks = []domain.RoadmapWeek{}
	}
	return weeks, nil
}

func (u *catalogUsecase) CompleteRoadmapWeek(ctx context.Context, sess *domain.Session, weekID int64) (*domain.RoadmapWeek, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if weekID <= 0 {
		return nil, apperror.BadRequest("Invalid roadmap week id")
	}
	return u.roadmap.CompleteWeek(ctx, sess, weekID)
}
