package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ProgressStep names a stage reported by the analysis stream.
type ProgressStep string

const (
	StepParsing          ProgressStep = "parsing"
	StepParsed           ProgressStep = "parsed"
	StepGatheringContext ProgressStep = "gathering_context"
	StepContextGathered  ProgressStep = "context_gathered"
	StepAnalyzing        ProgressStep = "analyzing"
	StepProcessing       ProgressStep = "processing"
	StepComplete         ProgressStep = "complete"

	// Absorbing states, outside the ordered sequence.
	StepError     ProgressStep = "error"
	StepCancelled ProgressStep = "cancelled"
)

// ProgressSteps is the ordered sequence a successful analysis walks through.
var ProgressSteps = []ProgressStep{
	StepParsing,
	StepParsed,
	StepGatheringContext,
	StepContextGathered,
	StepAnalyzing,
	StepProcessing,
	StepComplete,
}

var stepLabels = map[ProgressStep]string{
	StepParsing:          "Parsing job description",
	StepParsed:           "Job requirements extracted",
	StepGatheringContext: "Gathering your profile",
	StepContextGathered:  "Profile loaded",
	StepAnalyzing:        "Analyzing fit",
	StepProcessing:       "Processing results",
	StepComplete:         "Analysis complete",
}

// Index returns the position of s in ProgressSteps, or -1 when s is not part
// of the sequence (including the empty step).
func (s ProgressStep) Index() int {
	for i, step := range ProgressSteps {
		if step == s {
			return i
		}
	}
	return -1
}

func (s ProgressStep) Label() string {
	if label, ok := stepLabels[s]; ok {
		return label
	}
	return string(s)
}

type StepStatus string

const (
	StepStatusPending  StepStatus = "pending"
	StepStatusActive   StepStatus = "active"
	StepStatusComplete StepStatus = "complete"
	// the step a run was on when it failed or was cancelled
	StepStatusFailed  StepStatus = "failed"
	StepStatusStopped StepStatus = "stopped"
)

// Phase is the lifecycle position of one analysis request.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStreaming Phase = "streaming"
	PhaseComplete  Phase = "complete"
	PhaseError     Phase = "error"
	PhaseCancelled Phase = "cancelled"
)

func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError || p == PhaseCancelled
}

// Metric names the backend reports while streaming.
const (
	MetricMatchScore           = "match_score"
	MetricSkillsMatchScore     = "skills_match_score"
	MetricExperienceMatchScore = "experience_match_score"
	MetricTechnicalSkillsScore = "technical_skills_score"
	MetricSoftSkillsScore      = "soft_skills_score"
	MetricDomainKnowledgeScore = "domain_knowledge_score"
	MetricEducationMatchScore  = "education_match_score"
	MetricLocationMatchScore   = "location_match_score"
	MetricSalaryMatchScore     = "salary_match_score"
)

// AnalysisRequest is one submission of a target job for analysis.
type AnalysisRequest struct {
	JobDescription string `json:"job_description" validate:"notblank,max=50000"`
	Context        string `json:"additional_context" validate:"max=5000"`
	Persist        bool   `json:"save_job"`
}

// ProgressEvent is a single update decoded from the progress stream.
// Nil Percentage means the event carried no percentage.
type ProgressEvent struct {
	Step       ProgressStep
	Percentage *int
	Message    string
	Metrics    map[string]float64
	AnalysisID int64
	StreamID   string
	Error      string
}

// ProgressState is a snapshot of one analysis request as seen by the UI.
type ProgressState struct {
	RequestID  string         `json:"request_id"`
	Phase      Phase          `json:"phase"`
	Step       ProgressStep   `json:"step"`
	Percentage int            `json:"percentage"`
	Message    string         `json:"message"`
	Metrics    map[string]int `json:"metrics,omitempty"`
	Error      string         `json:"error,omitempty"`
	Streaming  bool           `json:"is_streaming"`
	AnalysisID int64          `json:"analysis_id,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// StepStatus places step relative to the furthest step reached.
func (s ProgressState) StepStatus(step ProgressStep) StepStatus {
	current := s.Step.Index()
	idx := step.Index()
	switch {
	case current < 0 || idx < 0:
		return StepStatusPending
	case idx < current:
		return StepStatusComplete
	case idx == current:
		switch s.Phase {
		case PhaseComplete:
			return StepStatusComplete
		case PhaseError:
			return StepStatusFailed
		case PhaseCancelled:
			return StepStatusStopped
		}
		return StepStatusActive
	default:
		return StepStatusPending
	}
}

type StepView struct {
	Step   ProgressStep `json:"step"`
	Label  string       `json:"label"`
	Status StepStatus   `json:"status"`
}

func (s ProgressState) Steps() []StepView {
	views := make([]StepView, 0, len(ProgressSteps))
	for _, step := range ProgressSteps {
		views = append(views, StepView{Step: step, Label: step.Label(), Status: s.StepStatus(step)})
	}
	return views
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s ProgressState) Clone() ProgressState {
	if s.Metrics != nil {
		metrics := make(map[string]int, len(s.Metrics))
		for k, v := range s.Metrics {
			metrics[k] = v
		}
		s.Metrics = metrics
	}
	return s
}

// Eligibility levels
const (
	EligibilityExcellent = "EXCELLENT"
	EligibilityGood      = "GOOD"
	EligibilityFair      = "FAIR"
	EligibilityPoor      = "POOR"
)

// AnalysisResult is the backend's assessment for one analysis id. Raw keeps
// the full payload so fields the client does not model survive a round trip.
type AnalysisResult struct {
	ID                       int64           `json:"id"`
	JobTitle                 string          `json:"job_title,omitempty"`
	JobCompany               string          `json:"job_company,omitempty"`
	AdditionalContext        string          `json:"additional_context,omitempty"`
	EligibilityLevel         string          `json:"eligibility_level"`
	MatchScore               float64         `json:"match_score"`
	AnalysisSummary          string          `json:"analysis_summary"`
	Strengths                json.RawMessage `json:"strengths,omitempty"`
	Gaps                     json.RawMessage `json:"gaps,omitempty"`
	Recommendations          json.RawMessage `json:"recommendations,omitempty"`
	MatchingSkills           json.RawMessage `json:"matching_skills,omitempty"`
	MissingSkills            json.RawMessage `json:"missing_skills,omitempty"`
	SkillGaps                json.RawMessage `json:"skill_gaps,omitempty"`
	SkillsMatchScore         float64         `json:"skills_match_score"`
	ExperienceMatchScore     float64         `json:"experience_match_score"`
	EducationMatchScore      float64         `json:"education_match_score"`
	CultureFitScore          float64         `json:"culture_fit_score"`
	LocationMatchScore       float64         `json:"location_match_score"`
	SalaryMatchScore         float64         `json:"salary_match_score"`
	TechnicalSkillsScore     float64         `json:"technical_skills_score"`
	SoftSkillsScore          float64         `json:"soft_skills_score"`
	DomainKnowledgeScore     float64         `json:"domain_knowledge_score"`
	ReadinessPercentage      float64         `json:"readiness_percentage"`
	EstimatedPreparationTime string          `json:"estimated_preparation_time,omitempty"`
	ConfidenceLevel          string          `json:"confidence_level,omitempty"`
	NextSteps                json.RawMessage `json:"next_steps,omitempty"`
	PriorityImprovements     json.RawMessage `json:"priority_improvements,omitempty"`
	LearningResources        json.RawMessage `json:"learning_resources,omitempty"`
	AnalyzedAt               *time.Time      `json:"analyzed_at,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type analysisResultAlias AnalysisResult

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var alias analysisResultAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = AnalysisResult(alias)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(analysisResultAlias(r))
}

// AnalysisSummary is one row of the analysis history list.
type AnalysisSummary struct {
	ID               int64      `json:"id"`
	JobTitle         string     `json:"job_title"`
	JobCompany       string     `json:"job_company"`
	EligibilityLevel string     `json:"eligibility_level"`
	MatchScore       float64    `json:"match_score"`
	AnalysisSummary  string     `json:"analysis_summary,omitempty"`
	AnalyzedAt       *time.Time `json:"analyzed_at,omitempty"`
}

type AnalysisFilter struct {
	EligibilityLevel string `form:"eligibility_level" validate:"omitempty,oneof=EXCELLENT GOOD FAIR POOR"`
}

type AnalysisStats struct {
	TotalAnalyses      int               `json:"total_analyses"`
	ByEligibilityLevel map[string]int    `json:"by_eligibility_level"`
	AverageMatchScore  float64           `json:"average_match_score"`
	RecentAnalyses     []AnalysisSummary `json:"recent_analyses"`
}

// DreamJobAnalysis is the blocking analyze_dream_job response.
type DreamJobAnalysis struct {
	Message   string          `json:"message"`
	ParsedJob json.RawMessage `json:"parsed_job,omitempty"`
	JobSaved  bool            `json:"job_saved"`
	JobID     int64           `json:"job_id,omitempty"`
	JobURL    string          `json:"job_url,omitempty"`
	Analysis  *AnalysisResult `json:"analysis"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"notblank,max=4000"`
}

type ChatReply struct {
	Response string `json:"response"`
}

// Input methods on the dream job screen
const (
	InputMethodDescribe = "describe"
	InputMethodPaste    = "paste"
)

// DreamJobForm is the raw input of the dream job screen. Paste submits a
// posting (possibly HTML); describe submits a free text role plus optional
// structured context.
type DreamJobForm struct {
	Method            string   `json:"method" validate:"omitempty,oneof=describe paste"`
	JobDescription    string   `json:"job_description" validate:"max=50000"`
	JobPostingHTML    string   `json:"job_posting_html" validate:"max=200000"`
	Industry          string   `json:"industry" validate:"max=100"`
	Level             string   `json:"level" validate:"max=100"`
	TargetCompanies   string   `json:"target_companies" validate:"max=500"`
	ProductTypes      []string `json:"product_types" validate:"max=20,dive,max=100"`
	AdditionalContext string   `json:"additional_context" validate:"max=5000"`
	SaveJob           *bool    `json:"save_job"`
}

type AnalysisRepository interface {
	GetAnalysis(ctx context.Context, sess *Session, id int64) (*AnalysisResult, error)
	ListAnalyses(ctx context.Context, sess *Session, filter AnalysisFilter) ([]AnalysisSummary, error)
	Stats(ctx context.Context, sess *Session) (*AnalysisStats, error)
	AnalyzeDreamJob(ctx context.Context, sess *Session, req *AnalysisRequest) (*DreamJobAnalysis, error)
	Chat(ctx context.Context, sess *Session, id int64, message string) (*ChatReply, error)
}

// ResultCache holds fetched analysis results per session.
type ResultCache interface {
	Get(ctx context.Context, key string) (*AnalysisResult, bool)
	Set(ctx context.Context, key string, result *AnalysisResult)
}

type AnalysisUsecase interface {
	Start(ctx context.Context, sess *Session, form *DreamJobForm) (ProgressState, error)
	State(sess *Session) (ProgressState, bool)
	Subscribe(sess *Session) (<-chan ProgressState, func(), error)
	Cancel(sess *Session) (ProgressState, error)
	Result(ctx context.Context, sess *Session) (*AnalysisResult, error)
	AnalyzeSync(ctx context.Context, sess *Session, form *DreamJobForm) (*DreamJobAnalysis, error)
	CancelAll(sess *Session)
}

type HistoryUsecase interface {
	List(ctx context.Context, sess *Session, filter AnalysisFilter) ([]AnalysisSummary, error)
	Get(ctx context.Context, sess *Session, id int64) (*AnalysisResult, error)
	Stats(ctx context.Context, sess *Session) (*AnalysisStats, error)
	Chat(ctx context.Context, sess *Session, id int64, req *ChatRequest) (*ChatReply, error)
}
