package domain

import "context"

// Proficiency levels
const (
	ProficiencyBeginner     = "BEGINNER"
	ProficiencyIntermediate = "INTERMEDIATE"
	ProficiencyAdvanced     = "ADVANCED"
	ProficiencyExpert       = "EXPERT"
)

type Skill struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

type UserSkill struct {
	ID                int64   `json:"id,omitempty"`
	SkillID           int64   `json:"skill_id" validate:"required,gt=0"`
	SkillName         string  `json:"skill_name,omitempty"`
	ProficiencyLevel  string  `json:"proficiency_level" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	YearsOfExperience float64 `json:"years_of_experience" validate:"gte=0,lte=60"`
}

type SkillCatalogRepository interface {
	ListSkills(ctx context.Context, sess *Session) ([]Skill, error)
}

type RoadmapWeek struct {
	ID          int64    `json:"id"`
	Week        int      `json:"week"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tasks       []string `json:"tasks,omitempty"`
	Resources   []string `json:"resources,omitempty"`
	Completed   bool     `json:"completed"`
}

type RoadmapRepository interface {
	ListWeeks(ctx context.Context, sess *Session) ([]RoadmapWeek, error)
	CompleteWeek(ctx context.Context, sess *Session, weekID int64) (*RoadmapWeek, error)
}

type CatalogUsecase interface {
	ListSkills(ctx context.Context, sess *Session) ([]Skill, error)
	Roadmap(ctx context.Context, sess *Session) ([]RoadmapWeek, error)
	CompleteRoadmapWeek(ctx context.Context, sess *Session, weekID int64) (*RoadmapWeek, error)
}
