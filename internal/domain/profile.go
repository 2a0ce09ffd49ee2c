package domain

import (
	"context"
	"time"
)

type UserProfile struct {
	ID                int64      `json:"id,omitempty"`
	Bio               string     `json:"bio" validate:"max=2000"`
	CurrentTitle      string     `json:"current_title" validate:"max=255"`
	CurrentCompany    string     `json:"current_company" validate:"max=255"`
	YearsOfExperience float64    `json:"years_of_experience" validate:"gte=0,lte=80"`
	LinkedInURL       string     `json:"linkedin_url" validate:"omitempty,url"`
	GithubURL         string     `json:"github_url" validate:"omitempty,url"`
	PortfolioURL      string     `json:"portfolio_url" validate:"omitempty,url"`
	TwitterURL        string     `json:"twitter_url" validate:"omitempty,url"`
	CareerGoal        string     `json:"career_goal" validate:"max=2000"`
	TargetRoles       []string   `json:"target_roles" validate:"max=20,dive,max=100"`
	Industry          string     `json:"industry" validate:"max=100"`
	DomainExpertise   []string   `json:"domain_expertise" validate:"max=30,dive,max=100"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`

	// Present on the "complete" view only.
	Education      []Education      `json:"education_records,omitempty"`
	WorkExperience []WorkExperience `json:"work_experiences,omitempty"`
	Projects       []Project        `json:"projects,omitempty"`
	Certifications []Certification  `json:"certifications,omitempty"`
}

type ProfileStats struct {
	ProfileCompletion   int     `json:"profile_completion"`
	HasResume           bool    `json:"has_resume"`
	EducationCount      int     `json:"education_count"`
	WorkExperienceCount int     `json:"work_experience_count"`
	ProjectsCount       int     `json:"projects_count"`
	CertificationsCount int     `json:"certifications_count"`
	YearsOfExperience   float64 `json:"years_of_experience"`
	HasCareerGoal       bool    `json:"has_career_goal"`
	TargetRolesCount    int     `json:"target_roles_count"`
}

// Education degree levels
const (
	DegreeHighSchool  = "HIGH_SCHOOL"
	DegreeAssociate   = "ASSOCIATE"
	DegreeBachelor    = "BACHELOR"
	DegreeMaster      = "MASTER"
	DegreePhD         = "PHD"
	DegreeCertificate = "CERTIFICATE"
	DegreeBootcamp    = "BOOTCAMP"
)

type Education struct {
	ID           int64  `json:"id,omitempty"`
	Institution  string `json:"institution" validate:"required,max=255"`
	Degree       string `json:"degree" validate:"required,max=255"`
	DegreeLevel  string `json:"degree_level" validate:"required,oneof=HIGH_SCHOOL ASSOCIATE BACHELOR MASTER PHD CERTIFICATE BOOTCAMP"`
	FieldOfStudy string `json:"field_of_study" validate:"max=255"`
	StartDate    string `json:"start_date" validate:"required,iso_date"`
	EndDate      string `json:"end_date,omitempty" validate:"omitempty,iso_date,date_after=StartDate"`
	IsCurrent    bool   `json:"is_current"`
	Grade        string `json:"grade" validate:"max=50"`
	Description  string `json:"description"`
}

// Employment types
const (
	EmploymentFullTime   = "FULL_TIME"
	EmploymentPartTime   = "PART_TIME"
	EmploymentContract   = "CONTRACT"
	EmploymentFreelance  = "FREELANCE"
	EmploymentInternship = "INTERNSHIP"
)

type WorkExperience struct {
	ID               int64    `json:"id,omitempty"`
	JobTitle         string   `json:"job_title" validate:"required,max=255"`
	Company          string   `json:"company" validate:"required,max=255"`
	EmploymentType   string   `json:"employment_type" validate:"required,oneof=FULL_TIME PART_TIME CONTRACT FREELANCE INTERNSHIP"`
	Location         string   `json:"location" validate:"max=255"`
	IsRemote         bool     `json:"is_remote"`
	StartDate        string   `json:"start_date" validate:"required,iso_date"`
	EndDate          string   `json:"end_date,omitempty" validate:"omitempty,iso_date,date_after=StartDate"`
	IsCurrent        bool     `json:"is_current"`
	Description      string   `json:"description"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Achievements     []string `json:"achievements,omitempty"`
}

// Project types
const (
	ProjectPersonal   = "PERSONAL"
	ProjectWork       = "WORK"
	ProjectAcademic   = "ACADEMIC"
	ProjectOpenSource = "OPEN_SOURCE"
)

type Project struct {
	ID               int64    `json:"id,omitempty"`
	Title            string   `json:"title" validate:"required,max=255"`
	ProjectType      string   `json:"project_type" validate:"required,oneof=PERSONAL WORK ACADEMIC OPEN_SOURCE"`
	Description      string   `json:"description"`
	TechnologiesUsed []string `json:"technologies_used" validate:"max=50,dive,max=100"`
	ProjectURL       string   `json:"project_url" validate:"omitempty,url"`
	GithubURL        string   `json:"github_url" validate:"omitempty,url"`
	DemoURL          string   `json:"demo_url" validate:"omitempty,url"`
	StartDate        string   `json:"start_date" validate:"required,iso_date"`
	EndDate          string   `json:"end_date,omitempty" validate:"omitempty,iso_date,date_after=StartDate"`
	IsOngoing        bool     `json:"is_ongoing"`
}

type Certification struct {
	ID                  int64  `json:"id,omitempty"`
	Name                string `json:"name" validate:"required,max=255"`
	IssuingOrganization string `json:"issuing_organization" validate:"required,max=255"`
	CredentialID        string `json:"credential_id" validate:"max=255"`
	CredentialURL       string `json:"credential_url" validate:"omitempty,url"`
	IssueDate           string `json:"issue_date" validate:"required,iso_date"`
	ExpiryDate          string `json:"expiry_date,omitempty" validate:"omitempty,iso_date,date_after=IssueDate"`
	DoesNotExpire       bool   `json:"does_not_expire"`
}

// SectionRepository is the backend CRUD surface shared by every profile
// list section (education, work experience, projects, certifications, skills).
type SectionRepository[T any] interface {
	List(ctx context.Context, sess *Session) ([]T, error)
	Create(ctx context.Context, sess *Session, item *T) (*T, error)
	Update(ctx context.Context, sess *Session, id int64, item *T) (*T, error)
	Delete(ctx context.Context, sess *Session, id int64) error
}

type SectionUsecase[T any] interface {
	Name() string
	List(ctx context.Context, sess *Session) ([]T, error)
	Create(ctx context.Context, sess *Session, item *T) (*T, error)
	Update(ctx context.Context, sess *Session, id int64, item *T) (*T, error)
	Delete(ctx context.Context, sess *Session, id int64) error
}

// ResumeUpload is a resume file that already passed local preflight checks.
type ResumeUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type OnboardingSummary struct {
	TimeToComplete    string         `json:"time_to_complete"`
	RecordsCreated    map[string]int `json:"records_created"`
	ProfileCompletion int            `json:"profile_completion"`
}

type OnboardingResult struct {
	Message string            `json:"message"`
	Summary OnboardingSummary `json:"onboarding_summary"`
	Profile *UserProfile      `json:"profile"`
}

type ProfileRepository interface {
	GetComplete(ctx context.Context, sess *Session) (*UserProfile, error)
	Update(ctx context.Context, sess *Session, profile *UserProfile) (*UserProfile, error)
	Stats(ctx context.Context, sess *Session) (*ProfileStats, error)
	Onboard(ctx context.Context, sess *Session, resume *ResumeUpload) (*OnboardingResult, error)
}

type ProfileUsecase interface {
	GetProfile(ctx context.Context, sess *Session) (*UserProfile, error)
	UpdateProfile(ctx context.Context, sess *Session, profile *UserProfile) (*UserProfile, error)
	GetStats(ctx context.Context, sess *Session) (*ProfileStats, error)
	Onboard(ctx context.Context, sess *Session, filename string, data []byte) (*OnboardingResult, error)
}
