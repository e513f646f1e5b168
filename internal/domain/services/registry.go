package services

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siteforge/siteforge/internal/domain/entities"
	"github.com/siteforge/siteforge/internal/domain/ports"
)

// SiteRegistry is the canonical in-memory store of site records. It owns
// status transitions and publishes SiteCreated, StatusChanged and
// SiteDeleted; orchestrators layer the operation-specific events on top.
type SiteRegistry struct {
	mu     sync.RWMutex
	sites  map[string]*entities.Site
	byName map[string]string
	bus    ports.EventBus
	logger *slog.Logger
}

// NewSiteRegistry creates a new site registry
func NewSiteRegistry(bus ports.EventBus, logger *slog.Logger) *SiteRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteRegistry{
		sites:  make(map[string]*entities.Site),
		byName: make(map[string]string),
		bus:    bus,
		logger: logger.With("service", "registry"),
	}
}

// Create inserts a new record in Creating status
func (r *SiteRegistry) Create(name, path string) (*entities.Site, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("site name is required")
	}

	r.mu.Lock()
	if _, exists := r.byName[name]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("creating site %q: %w", name, entities.ErrNameConflict)
	}

	site := &entities.Site{
		ID:        uuid.New().String(),
		Name:      name,
		Path:      path,
		Status:    entities.StatusCreating,
		CreatedAt: time.Now(),
	}
	r.sites[site.ID] = site
	r.byName[name] = site.ID
	snapshot := site.Clone()
	r.mu.Unlock()

	r.logger.Info("site created",
		slog.String("site_id", site.ID),
		slog.String("name", name),
	)
	r.bus.Publish(entities.NewSiteEvent(entities.EventSiteCreated, snapshot))
	return snapshot, nil
}

// Get returns a copy of the record for id
func (r *SiteRegistry) Get(id string) (*entities.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	site, ok := r.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %s: %w", id, entities.ErrSiteNotFound)
	}
	return site.Clone(), nil
}

// List returns an unordered snapshot of all live records. Ordering and
// pagination are caller concerns.
func (r *SiteRegistry) List() []*entities.Site {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Site, 0, len(r.sites))
	for _, site := range r.sites {
		out = append(out, site.Clone())
	}
	return out
}

// UpdateStatus validates and applies a lifecycle transition, emitting
// StatusChanged on success
func (r *SiteRegistry) UpdateStatus(id string, next entities.SiteStatus) (*entities.Site, error) {
	r.mu.Lock()
	site, ok := r.sites[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("site %s: %w", id, entities.ErrSiteNotFound)
	}
	if !site.Status.CanTransition(next) {
		err := &entities.TransitionError{SiteID: id, From: site.Status, To: next}
		r.mu.Unlock()
		return nil, err
	}
	prev := site.Status
	site.Status = next
	snapshot := site.Clone()
	r.mu.Unlock()

	r.logger.Debug("status changed",
		slog.String("site_id", id),
		slog.String("from", prev.String()),
		slog.String("to", next.String()),
	)
	r.bus.Publish(entities.NewSiteEvent(entities.EventStatusChanged, snapshot))
	return snapshot, nil
}

// SetPort records the preview port for a serving site; zero clears it
func (r *SiteRegistry) SetPort(id string, port int) (*entities.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	site, ok := r.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %s: %w", id, entities.ErrSiteNotFound)
	}
	site.Port = port
	return site.Clone(), nil
}

// StampBuilt records the completion time of a successful build
func (r *SiteRegistry) StampBuilt(id string) (*entities.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	site, ok := r.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %s: %w", id, entities.ErrSiteNotFound)
	}
	now := time.Now()
	site.LastBuilt = &now
	return site.Clone(), nil
}

// Delete removes the record and emits SiteDeleted. Callers must run the
// Stop path first for a serving site; Delete itself only removes the entry.
func (r *SiteRegistry) Delete(id string) (*entities.Site, error) {
	r.mu.Lock()
	site, ok := r.sites[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("site %s: %w", id, entities.ErrSiteNotFound)
	}
	delete(r.sites, id)
	delete(r.byName, site.Name)
	snapshot := site.Clone()
	r.mu.Unlock()

	r.logger.Info("site deleted",
		slog.String("site_id", id),
		slog.String("name", snapshot.Name),
	)
	r.bus.Publish(entities.NewSiteEvent(entities.EventSiteDeleted, snapshot))
	return snapshot, nil
}

// PortsInUse returns the ports held by currently serving sites
func (r *SiteRegistry) PortsInUse() map[int]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ports := make(map[int]bool)
	for _, site := range r.sites {
		if site.IsServing() && site.Port > 0 {
			ports[site.Port] = true
		}
	}
	return ports
}
