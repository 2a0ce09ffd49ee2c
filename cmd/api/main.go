package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"career-gap-web/config"
	_ "career-gap-web/docs" // Important for Swagger
	"career-gap-web/internal/delivery/http/middleware"
	v1 "career-gap-web/internal/delivery/http/v1"
	"career-gap-web/internal/domain"
	"career-gap-web/internal/repository/backend"
	"career-gap-web/internal/repository/cache"
	"career-gap-web/internal/stream"
	"career-gap-web/internal/usecase"
	"career-gap-web/pkg/logger"
	"career-gap-web/pkg/redis"
	"career-gap-web/pkg/session"
	"career-gap-web/pkg/validation"
)

// @title           Career Gap Web API
// @version         1.0
// @description     Session-aware gateway for the career gap analysis backend.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting career gap web", "port", cfg.Port, "backend", cfg.BackendURL, "transport", cfg.StreamTransport)

	// 3. Optional Redis
	if cfg.RedisURL != "" {
		if err := redis.Initialize(redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword}); err != nil {
			logger.Log.Warn("Redis unavailable, using in-memory fallback", "error", err)
		} else {
			defer redis.Close()
		}
	}

	// 4. Setup Repositories
	client := backend.NewClient(backend.Config{
		BaseURL:       cfg.BackendURL,
		Timeout:       cfg.BackendTimeout,
		UploadTimeout: cfg.BackendUploadTimeout,
	})
	authRepo := backend.NewAuthRepository(client)
	profileRepo := backend.NewProfileRepository(client)
	catalogRepo := backend.NewCatalogRepository(client)
	analysisRepo := backend.NewAnalysisRepository(client)
	resultCache := cache.NewResultCache(redis.Client(), cfg.ResultCacheTTL)

	// 5. Progress transport
	var source stream.Source = stream.NewSSESource(analysisRepo)
	if cfg.StreamTransport == "amqp" {
		conn, err := stream.DialAMQP(cfg.AMQPURL)
		if err != nil {
			logger.Log.Error("Failed to connect to broker, using SSE", "error", err)
		} else {
			defer conn.Close()
			source = stream.NewAMQPSource(conn, analysisRepo)
		}
	}

	// 6. Setup UseCases
	validate := validation.New()
	codec := session.NewCodec(cfg.SessionSecret, cfg.SessionTTL)

	analysisUC := usecase.NewAnalysisUsecase(source, analysisRepo, resultCache, validate)
	authUC := usecase.NewAuthUsecase(authRepo, codec, analysisUC, validate)
	profileUC := usecase.NewProfileUsecase(profileRepo, validate, cfg.MaxResumeBytes)
	historyUC := usecase.NewHistoryUsecase(analysisRepo, resultCache, validate)
	catalogUC := usecase.NewCatalogUsecase(catalogRepo, catalogRepo)

	sections := v1.Sections{
		Education: usecase.NewSectionUsecase(usecase.EducationSection,
			backend.NewSectionRepository[domain.Education](client, backend.PathEducation), validate),
		WorkExperience: usecase.NewSectionUsecase(usecase.WorkExperienceSection,
			backend.NewSectionRepository[domain.WorkExperience](client, backend.PathWorkExperience), validate),
		Projects: usecase.NewSectionUsecase(usecase.ProjectSection,
			backend.NewSectionRepository[domain.Project](client, backend.PathProjects), validate),
		Certifications: usecase.NewSectionUsecase(usecase.CertificationSection,
			backend.NewSectionRepository[domain.Certification](client, backend.PathCertifications), validate),
		Skills: usecase.NewSectionUsecase(usecase.SkillSection,
			backend.NewSectionRepository[domain.UserSkill](client, backend.PathUserSkills), validate),
	}

	deps := []usecase.Dependency{{Name: "backend", Check: client.Ping}}
	if redis.Client() != nil {
		deps = append(deps, usecase.Dependency{Name: "redis", Check: redis.HealthCheck})
	}
	healthUC := usecase.NewHealthUsecase(deps...)

	// 7. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:     authUC,
		ProfileUC:  profileUC,
		Sections:   sections,
		CatalogUC:  catalogUC,
		AnalysisUC: analysisUC,
		HistoryUC:  historyUC,
		HealthUC:   healthUC,
		Session: middleware.SessionConfig{
			Codec:  codec,
			Secure: cfg.CookieSecure,
		},
		Config: cfg,
	})

	// 8. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
