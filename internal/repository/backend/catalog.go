package backend

import (
	"context"
	"fmt"
	"net/http"

	"career-gap-web/internal/domain"
)

const (
	pathSkills  = "/skills/"
	pathRoadmap = "/roadmap/"
)

type CatalogRepository struct {
	c *Client
}

func NewCatalogRepository(c *Client) *CatalogRepository {
	return &CatalogRepository{c: c}
}

func (r *CatalogRepository) ListSkills(ctx context.Context, sess *domain.Session) ([]domain.Skill, error) {
	return getList[domain.Skill](ctx, r.c, sess, pathSkills)
}

func (r *CatalogRepository) ListWeeks(ctx context.Context, sess *domain.Session) ([]domain.RoadmapWeek, error) {
	return getList[domain.RoadmapWeek](ctx, r.c, sess, pathRoadmap)
}

func (r *CatalogRepository) CompleteWeek(ctx context.Context, sess *domain.Session, weekID int64) (*domain.RoadmapWeek, error) {
	var week domain.RoadmapWeek
	path := fmt.Sprintf("%s%d/", pathRoadmap, weekID)
	if err := r.c.do(ctx, r.c.http, sess, http.MethodPatch, path, map[string]bool{"completed": true}, &week); err != nil {
		return nil, err
	}
	return &week, nil
}
