package usecase

import (
	"context"
	"log/slog"
	"time"

	"career-gap-web/pkg/logger"
)

const healthCheckTimeout = 3 * time.Second

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

// Dependency is one downstream the health endpoint checks.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthUsecase struct {
	deps []Dependency
}

func NewHealthUsecase(deps ...Dependency) HealthUsecase {
	return &healthUsecase{deps: deps}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	out := map[string]string{"status": "ok"}
	for _, dep := range u.deps {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := dep.Check(checkCtx)
		cancel()

		if err != nil {
			logger.Log.Warn("Health check failed", slog.String("dependency", dep.Name), slog.String("error", err.Error()))
			out[dep.Name] = "unavailable"
			out["status"] = "degraded"
			continue
		}
		out[dep.Name] = "ok"
	}
	return out
}
