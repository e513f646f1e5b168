package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/siteforge/siteforge/internal/domain/entities"
	"github.com/siteforge/siteforge/internal/domain/ports"
)

// BuildOrchestrator drives the external build tool for one site at a time
// per id. Expected build failures are returned as data in the BuildResult;
// the error return is reserved for unknown sites and rejected transitions.
type BuildOrchestrator struct {
	registry ports.SiteRegistry
	runner   ports.ToolRunner
	bus      ports.EventBus
	locks    *SiteLocks
	tool     entities.ToolConfig
	logger   *slog.Logger
}

// NewBuildOrchestrator creates a new build orchestrator
func NewBuildOrchestrator(
	registry ports.SiteRegistry,
	runner ports.ToolRunner,
	bus ports.EventBus,
	locks *SiteLocks,
	tool entities.ToolConfig,
	logger *slog.Logger,
) *BuildOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildOrchestrator{
		registry: registry,
		runner:   runner,
		bus:      bus,
		locks:    locks,
		tool:     tool,
		logger:   logger.With("service", "builder"),
	}
}

// Build runs the external build tool against the site's storage path under
// the configured deadline. The site never remains in Building: the status is
// resolved to Ready or Error before Build returns.
func (b *BuildOrchestrator) Build(ctx context.Context, id string) (*entities.BuildResult, error) {
	release := b.locks.Acquire(id)
	defer release()

	site, err := b.registry.Get(id)
	if err != nil {
		return nil, err
	}

	if _, err := b.registry.UpdateStatus(id, entities.StatusBuilding); err != nil {
		return nil, err
	}

	args := append(append([]string{}, b.tool.BuildArgs...), site.Path)
	buildCtx, cancel := context.WithTimeout(ctx, b.tool.BuildTimeout())
	defer cancel()

	start := time.Now()
	run, runErr := b.runner.Run(buildCtx, site.Path, args...)
	elapsed := time.Since(start)

	result := &entities.BuildResult{
		SiteID:   id,
		Duration: elapsed,
	}
	if run != nil {
		result.Stdout = run.Stdout
		result.Stderr = run.Stderr
		result.Duration = run.Duration
	}

	switch {
	case runErr != nil:
		if errors.Is(runErr, context.DeadlineExceeded) {
			result.Error = fmt.Sprintf("build timed out after %s", b.tool.BuildTimeout())
		} else {
			result.Error = runErr.Error()
		}
	case run.ExitCode != 0:
		result.Error = fmt.Sprintf("build tool exited with code %d", run.ExitCode)
	default:
		result.Success = true
	}

	if !result.Success {
		b.logger.Warn("build failed",
			slog.String("site_id", id),
			slog.String("error", result.Error),
			slog.Duration("duration", result.Duration),
		)
		if _, err := b.registry.UpdateStatus(id, entities.StatusError); err != nil {
			b.logger.Error("marking build error", slog.String("site_id", id), slog.String("error", err.Error()))
		}
		return result, nil
	}

	if _, err := b.registry.StampBuilt(id); err != nil {
		return nil, err
	}
	built, err := b.registry.UpdateStatus(id, entities.StatusReady)
	if err != nil {
		return nil, err
	}

	b.logger.Info("build succeeded",
		slog.String("site_id", id),
		slog.Duration("duration", result.Duration),
	)
	b.bus.Publish(entities.NewSiteEvent(entities.EventSiteBuilt, built))
	return result, nil
}
