package v1

import (
	"net/http"
	"strings"
	"time"

	"career-gap-web/config"
	"career-gap-web/internal/delivery/http/middleware"
	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"
	"career-gap-web/internal/usecase"
	"career-gap-web/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	AuthUC     domain.AuthUsecase
	ProfileUC  domain.ProfileUsecase
	Sections   Sections
	CatalogUC  domain.CatalogUsecase
	AnalysisUC domain.AnalysisUsecase
	HistoryUC  domain.HistoryUsecase
	HealthUC   usecase.HealthUsecase
	Session    middleware.SessionConfig
	Config     *config.Config
}

// Sections are the profile list sections, each served by the generic handler.
type Sections struct {
	Education      domain.SectionUsecase[domain.Education]
	WorkExperience domain.SectionUsecase[domain.WorkExperience]
	Projects       domain.SectionUsecase[domain.Project]
	Certifications domain.SectionUsecase[domain.Certification]
	Skills         domain.SectionUsecase[domain.UserSkill]
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	cfg := deps.Config

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(strings.Split(cfg.FrontendURL, ","))) // CORS must be first
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware(cfg.CookieSecure))
	r.Use(middleware.ErrorHandler())

	v1 := r.Group("/v1")

	v1.GET("/health", func(c *gin.Context) {
		status := deps.HealthUC.Check(c.Request.Context())
		if status["status"] != "ok" {
			response.Error(c, http.StatusServiceUnavailable, "Service degraded", status)
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	loginLimit := middleware.RateLimitMiddleware(middleware.LoginRateLimitConfig(cfg.RateLimitLoginThreshold, window))
	analysisLimit := middleware.RateLimitMiddleware(middleware.AnalysisRateLimitConfig(cfg.RateLimitAnalysisThreshold, window))

	public := v1.Group("")
	public.Use(middleware.SessionMiddleware(deps.Session, deps.AuthUC))
	public.Use(middleware.CSRFMiddleware(cfg.CookieSecure, "/v1/auth/login", "/v1/auth/register"))

	protected := public.Group("")
	protected.Use(middleware.RequireSession())
	{
		NewAuthHandler(public, protected, deps.AuthUC, deps.Session, security.NewLoginTracker(security.DefaultLoginTrackerConfig()), loginLimit)
		NewProfileHandler(protected, deps.ProfileUC, cfg.MaxResumeBytes)
		RegisterSection(protected, deps.Sections.Education)
		RegisterSection(protected, deps.Sections.WorkExperience)
		RegisterSection(protected, deps.Sections.Projects)
		RegisterSection(protected, deps.Sections.Certifications)
		RegisterSection(protected, deps.Sections.Skills)
		NewCatalogHandler(protected, deps.CatalogUC)
		NewAnalysisHandler(protected, deps.AnalysisUC, analysisLimit)
		NewHistoryHandler(protected, deps.HistoryUC)
	}

	return r
}
