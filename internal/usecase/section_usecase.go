package usecase

import (
	"context"
	"fmt"
	"strings"

	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

// SectionConfig describes one profile list section. Every section shares the
// same CRUD flow; only the name, the label used in messages and the
// normalisation applied before validation differ.
type SectionConfig[T any] struct {
	Name      string
	Label     string
	Normalize func(item *T)
}

var (
	EducationSection = SectionConfig[domain.Education]{
		Name:  "education",
		Label: "Education",
		Normalize: func(e *domain.Education) {
			e.Institution = strings.TrimSpace(e.Institution)
			e.Degree = strings.TrimSpace(e.Degree)
			if e.IsCurrent {
				e.EndDate = ""
			}
		},
	}
	WorkExperienceSection = SectionConfig[domain.WorkExperience]{
		Name:  "work-experience",
		Label: "Work experience",
		Normalize: func(w *domain.WorkExperience) {
			w.JobTitle = strings.TrimSpace(w.JobTitle)
			w.Company = strings.TrimSpace(w.Company)
			if w.IsCurrent {
				w.EndDate = ""
			}
		},
	}
	ProjectSection = SectionConfig[domain.Project]{
		Name:  "projects",
		Label: "Project",
		Normalize: func(p *domain.Project) {
			p.Title = strings.TrimSpace(p.Title)
			if p.IsOngoing {
				p.EndDate = ""
			}
		},
	}
	CertificationSection = SectionConfig[domain.Certification]{
		Name:  "certifications",
		Label: "Certification",
		Normalize: func(c *domain.Certification) {
			c.Name = strings.TrimSpace(c.Name)
			if c.DoesNotExpire {
				c.ExpiryDate = ""
			}
		},
	}
	SkillSection = SectionConfig[domain.UserSkill]{
		Name:  "skills",
		Label: "Skill",
	}
)

type sectionUsecase[T any] struct {
	cfg      SectionConfig[T]
	repo     domain.SectionRepository[T]
	validate *validator.Validate
}

func NewSectionUsecase[T any](cfg SectionConfig[T], repo domain.SectionRepository[T], validate *validator.Validate) domain.SectionUsecase[T] {
	return &sectionUsecase[T]{cfg: cfg, repo: repo, validate: validate}
}

func (u *sectionUsecase[T]) Name() string {
	return u.cfg.Name
}

func (u *sectionUsecase[T]) List(ctx context.Context, sess *domain.Session) ([]T, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	items, err := u.repo.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (u *sectionUsecase[T]) Create(ctx context.Context, sess *domain.Session, item *T) (*T, error) {
	if err := u.prepare(sess, item); err != nil {
		return nil, err
	}
	return u.repo.Create(ctx, sess, item)
}

func (u *sectionUsecase[T]) Update(ctx context.Context, sess *domain.Session, id int64, item *T) (*T, error) {
	if err := u.prepare(sess, item); err != nil {
		return nil, err
	}
	if err := u.checkID(id); err != nil {
		return nil, err
	}
	return u.repo.Update(ctx, sess, id, item)
}

func (u *sectionUsecase[T]) Delete(ctx context.Context, sess *domain.Session, id int64) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if err := u.checkID(id); err != nil {
		return err
	}
	return u.repo.Delete(ctx, sess, id)
}

func (u *sectionUsecase[T]) prepare(sess *domain.Session, item *T) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if item == nil {
		return apperror.BadRequest(fmt.Sprintf("%s data is required", u.cfg.Label))
	}
	if u.cfg.Normalize != nil {
		u.cfg.Normalize(item)
	}
	return validateStruct(u.validate, item)
}

func (u *sectionUsecase[T]) checkID(id int64) error {
	if id <= 0 {
		return apperror.BadRequest(fmt.Sprintf("Invalid %s id", strings.ToLower(u.cfg.Label)))
	}
	return nil
}
