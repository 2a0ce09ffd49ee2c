package backend

import (
	"context"
	"fmt"
	"net/http"

	"career-gap-web/internal/domain"
)

// Backend collection paths for the profile list sections
const (
	PathEducation      = "/profiles/education/"
	PathWorkExperience = "/profiles/work-experience/"
	PathProjects       = "/profiles/projects/"
	PathCertifications = "/profiles/certifications/"
	PathUserSkills     = "/skills/user/"
)

// SectionRepository is the CRUD client for one collection path.
type SectionRepository[T any] struct {
	c    *Client
	path string
}

func NewSectionRepository[T any](c *Client, path string) *SectionRepository[T] {
	return &SectionRepository[T]{c: c, path: path}
}

func (r *SectionRepository[T]) List(ctx context.Context, sess *domain.Session) ([]T, error) {
	return getList[T](ctx, r.c, sess, r.path)
}

func (r *SectionRepository[T]) Create(ctx context.Context, sess *domain.Session, item *T) (*T, error) {
	var out T
	if err := r.c.do(ctx, r.c.http, sess, http.MethodPost, r.path, item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SectionRepository[T]) Update(ctx context.Context, sess *domain.Session, id int64, item *T) (*T, error) {
	var out T
	if err := r.c.do(ctx, r.c.http, sess, http.MethodPatch, r.itemPath(id), item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SectionRepository[T]) Delete(ctx context.Context, sess *domain.Session, id int64) error {
	return r.c.do(ctx, r.c.http, sess, http.MethodDelete, r.itemPath(id), nil, nil)
}

func (r *SectionRepository[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s%d/", r.path, id)
}
