package ports

import (
	"context"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// SiteRegistry is the canonical in-memory store of site records
type SiteRegistry interface {
	// Create inserts a new record in Creating status. Fails with
	// entities.ErrNameConflict when the name collides with a live site.
	Create(name, path string) (*entities.Site, error)

	// Get returns a copy of the record or entities.ErrSiteNotFound
	Get(id string) (*entities.Site, error)

	// List returns an unordered snapshot of all live records
	List() []*entities.Site

	// UpdateStatus validates the transition against the lifecycle table and
	// applies it, emitting StatusChanged on success
	UpdateStatus(id string, next entities.SiteStatus) (*entities.Site, error)

	// SetPort records the preview port while a site is serving; zero clears it
	SetPort(id string, port int) (*entities.Site, error)

	// StampBuilt records the completion time of a successful build
	StampBuilt(id string) (*entities.Site, error)

	// Delete removes the record and emits SiteDeleted
	Delete(id string) (*entities.Site, error)

	// PortsInUse returns the ports held by currently serving sites
	PortsInUse() map[int]bool
}

// SiteService orchestrates site creation and deletion
type SiteService interface {
	CreateSite(ctx context.Context, name, prompt string) (*entities.Site, error)
	GetSite(id string) (*entities.Site, error)
	ListSites() []*entities.Site
	DeleteSite(ctx context.Context, id string) error
}

// BuildService drives the external build tool for one site
type BuildService interface {
	Build(ctx context.Context, id string) (*entities.BuildResult, error)
}

// PreviewService controls the external preview process and file watching
type PreviewService interface {
	Serve(ctx context.Context, id string, requestedPort int) (*entities.Site, error)
	Stop(ctx context.Context, id string) (*entities.Site, error)
	StopAll(ctx context.Context)
}

// EventBus is the in-process publish/subscribe fan-out for lifecycle and
// file-change events. Delivery is synchronous and at-most-once to handlers
// registered at publish time; there is no replay buffer.
type EventBus interface {
	Publish(event entities.Event)
	Subscribe(handler func(entities.Event)) (unsubscribe func())
}
