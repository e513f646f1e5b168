package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/siteforge/siteforge/internal/domain/entities"
	"github.com/siteforge/siteforge/internal/domain/ports"
)

// SiteService orchestrates site creation and deletion: it drives the
// generative collaborator, hands its output to materialization and resolves
// the Creating status to Ready or Error before returning.
type SiteService struct {
	registry  ports.SiteRegistry
	generator ports.Generator
	scaffold  ports.Scaffolder
	preview   *ServeOrchestrator
	locks     *SiteLocks
	logger    *slog.Logger
}

// NewSiteService creates a new site service
func NewSiteService(
	registry ports.SiteRegistry,
	generator ports.Generator,
	scaffold ports.Scaffolder,
	preview *ServeOrchestrator,
	locks *SiteLocks,
	logger *slog.Logger,
) *SiteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteService{
		registry:  registry,
		generator: generator,
		scaffold:  scaffold,
		preview:   preview,
		locks:     locks,
		logger:    logger.With("service", "sites"),
	}
}

// CreateSite inserts a Creating record, generates the structure document
// from the prompt and materializes it. The returned site is Ready on
// success; generation or materialization failures leave it in Error and are
// returned to the caller.
func (s *SiteService) CreateSite(ctx context.Context, name, prompt string) (*entities.Site, error) {
	if strings.TrimSpace(name) == "" {
		name = deriveName(prompt)
	}

	site, err := s.registry.Create(name, s.scaffold.PathFor(name))
	if err != nil {
		return nil, err
	}

	release := s.locks.Acquire(site.ID)
	defer release()

	doc, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return s.failCreate(site.ID, fmt.Errorf("generating site content: %w", err))
	}
	doc.Name = site.Name
	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return s.failCreate(site.ID, fmt.Errorf("invalid structure document: %w", err))
	}

	if err := s.scaffold.Materialize(ctx, site.Path, doc); err != nil {
		return s.failCreate(site.ID, fmt.Errorf("materializing site: %w", err))
	}

	ready, err := s.registry.UpdateStatus(site.ID, entities.StatusReady)
	if err != nil {
		return nil, err
	}
	s.logger.Info("site materialized",
		slog.String("site_id", site.ID),
		slog.String("path", site.Path),
	)
	return ready, nil
}

// GetSite returns the record for id
func (s *SiteService) GetSite(id string) (*entities.Site, error) {
	return s.registry.Get(id)
}

// ListSites returns an unordered snapshot of all sites
func (s *SiteService) ListSites() []*entities.Site {
	return s.registry.List()
}

// DeleteSite removes a site, running the Stop path first when it is
// serving. Storage removal is best effort; the record is gone either way.
func (s *SiteService) DeleteSite(ctx context.Context, id string) error {
	release := s.locks.Acquire(id)
	defer release()

	site, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	if site.IsServing() {
		if _, err := s.preview.stopLocked(ctx, id); err != nil {
			return fmt.Errorf("stopping site before delete: %w", err)
		}
	}

	if _, err := s.registry.Delete(id); err != nil {
		return err
	}

	if err := s.scaffold.Remove(site.Path); err != nil {
		s.logger.Warn("removing site storage",
			slog.String("site_id", id),
			slog.String("path", site.Path),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// failCreate marks a site's creation as failed and surfaces the cause
func (s *SiteService) failCreate(id string, cause error) (*entities.Site, error) {
	site, err := s.registry.UpdateStatus(id, entities.StatusError)
	if err != nil {
		s.logger.Error("marking create error", slog.String("site_id", id), slog.String("error", err.Error()))
		return nil, cause
	}
	return site, cause
}

// deriveName builds a site name from the prompt when none is given
func deriveName(prompt string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(prompt)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
		if b.Len() >= 32 {
			break
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "site-" + uuid.New().String()[:8]
	}
	return name
}
