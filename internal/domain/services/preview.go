package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/siteforge/siteforge/internal/domain/entities"
	"github.com/siteforge/siteforge/internal/domain/ports"
)

// previewEntry tracks one serving site: its external process, its port and
// the cancel function for the watcher it owns.
type previewEntry struct {
	process     ports.PreviewProcess
	port        int
	watchCancel context.CancelFunc
}

// ServeOrchestrator allocates preview ports, starts and stops the external
// preview process and owns one file watcher per serving site. Port
// bookkeeping is registry state only; OS-level socket availability is not
// probed, so a port held by an unrelated process still fails at start time.
type ServeOrchestrator struct {
	registry ports.SiteRegistry
	runner   ports.ToolRunner
	watcher  ports.TreeWatcher
	bus      ports.EventBus
	locks    *SiteLocks
	tool     entities.ToolConfig
	preview  entities.PreviewConfig
	logger   *slog.Logger

	mu       sync.Mutex
	serving  map[string]*previewEntry
	reserved map[int]string
}

// NewServeOrchestrator creates a new serve orchestrator
func NewServeOrchestrator(
	registry ports.SiteRegistry,
	runner ports.ToolRunner,
	watcher ports.TreeWatcher,
	bus ports.EventBus,
	locks *SiteLocks,
	tool entities.ToolConfig,
	preview entities.PreviewConfig,
	logger *slog.Logger,
) *ServeOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServeOrchestrator{
		registry: registry,
		runner:   runner,
		watcher:  watcher,
		bus:      bus,
		locks:    locks,
		tool:     tool,
		preview:  preview,
		logger:   logger.With("service", "preview"),
		serving:  make(map[string]*previewEntry),
		reserved: make(map[int]string),
	}
}

// Serve starts the preview process for a site and begins watching its
// storage subtree. A second Serve without an intervening Stop fails with
// AlreadyServing, reporting the existing port.
func (o *ServeOrchestrator) Serve(ctx context.Context, id string, requestedPort int) (*entities.Site, error) {
	release := o.locks.Acquire(id)
	defer release()

	site, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if site.IsServing() {
		return nil, &entities.AlreadyServingError{SiteID: id, Port: site.Port}
	}
	if site.Status != entities.StatusReady {
		return nil, &entities.TransitionError{SiteID: id, From: site.Status, To: entities.StatusServing}
	}

	port, err := o.allocatePort(id, requestedPort)
	if err != nil {
		return nil, err
	}
	defer o.releaseReservation(port)

	args := append(append([]string{}, o.tool.ServeArgs...), site.Path, "--port", strconv.Itoa(port))
	process, err := o.runner.Start(ctx, site.Path, args...)
	if err != nil {
		o.logger.Warn("preview start failed",
			slog.String("site_id", id),
			slog.Int("port", port),
			slog.String("error", err.Error()),
		)
		if _, uerr := o.registry.UpdateStatus(id, entities.StatusError); uerr != nil {
			o.logger.Error("marking serve error", slog.String("site_id", id), slog.String("error", uerr.Error()))
		}
		return nil, &entities.ServeError{SiteID: id, Port: port, Cause: err}
	}

	if _, err := o.registry.SetPort(id, port); err != nil {
		_ = process.Stop(ctx)
		return nil, err
	}
	updated, err := o.registry.UpdateStatus(id, entities.StatusServing)
	if err != nil {
		_ = process.Stop(ctx)
		if _, perr := o.registry.SetPort(id, 0); perr != nil {
			o.logger.Error("clearing port", slog.String("site_id", id), slog.String("error", perr.Error()))
		}
		return nil, err
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	entry := &previewEntry{process: process, port: port, watchCancel: watchCancel}
	o.mu.Lock()
	o.serving[id] = entry
	o.mu.Unlock()

	o.startWatcher(watchCtx, id, site.Path)

	o.logger.Info("site serving",
		slog.String("site_id", id),
		slog.Int("port", port),
	)
	o.bus.Publish(entities.NewSiteEvent(entities.EventSiteServing, updated))
	return updated, nil
}

// Stop terminates the preview process and tears down the site's watcher.
// It is the only cancellation path for a running preview.
func (o *ServeOrchestrator) Stop(ctx context.Context, id string) (*entities.Site, error) {
	release := o.locks.Acquire(id)
	defer release()

	return o.stopLocked(ctx, id)
}

// StopAll stops every serving site; used on shutdown
func (o *ServeOrchestrator) StopAll(ctx context.Context) {
	o.mu.Lock()
	ids := make([]string, 0, len(o.serving))
	for id := range o.serving {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		if _, err := o.Stop(ctx, id); err != nil && !errors.Is(err, entities.ErrNotServing) {
			o.logger.Warn("stopping site on shutdown",
				slog.String("site_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// stopLocked assumes the caller holds the site lock
func (o *ServeOrchestrator) stopLocked(ctx context.Context, id string) (*entities.Site, error) {
	site, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if !site.IsServing() {
		return nil, fmt.Errorf("site %s: %w", id, entities.ErrNotServing)
	}

	o.mu.Lock()
	entry := o.serving[id]
	delete(o.serving, id)
	o.mu.Unlock()

	if entry != nil {
		entry.watchCancel()
		if err := entry.process.Stop(ctx); err != nil {
			o.logger.Warn("stopping preview process",
				slog.String("site_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if _, err := o.registry.SetPort(id, 0); err != nil {
		return nil, err
	}
	updated, err := o.registry.UpdateStatus(id, entities.StatusReady)
	if err != nil {
		return nil, err
	}

	o.logger.Info("site stopped", slog.String("site_id", id))
	o.bus.Publish(entities.NewSiteEvent(entities.EventSiteStopped, updated))
	return updated, nil
}

// allocatePort validates a requested port or picks the lowest free port at
// or above the base. Reservations bridge the window between allocation and
// the registry recording the serving port.
func (o *ServeOrchestrator) allocatePort(id string, requested int) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	inUse := o.registry.PortsInUse()
	for port, holder := range o.reserved {
		if holder != id {
			inUse[port] = true
		}
	}

	if requested > 0 {
		if !o.preview.InRange(requested) {
			return 0, fmt.Errorf("port %d outside range %d-%d: %w",
				requested, o.preview.MinPort, o.preview.MaxPort, entities.ErrPortOutOfRange)
		}
		if inUse[requested] {
			return 0, fmt.Errorf("port %d is held by another serving site: %w",
				requested, entities.ErrPortOutOfRange)
		}
		o.reserved[requested] = id
		return requested, nil
	}

	for port := o.preview.BasePort; port <= o.preview.MaxPort; port++ {
		if !inUse[port] {
			o.reserved[port] = id
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free preview ports at or above %d: %w",
		o.preview.BasePort, entities.ErrPortOutOfRange)
}

func (o *ServeOrchestrator) releaseReservation(port int) {
	o.mu.Lock()
	delete(o.reserved, port)
	o.mu.Unlock()
}

// startWatcher begins watching the site's storage subtree and republishes
// changes on the bus. The watcher lives until the entry's cancel runs; Stop
// cancels it deterministically rather than the watcher observing its own
// teardown through the event stream.
func (o *ServeOrchestrator) startWatcher(ctx context.Context, id, path string) {
	events, err := o.watcher.Watch(ctx, path)
	if err != nil {
		o.logger.Warn("starting file watcher",
			slog.String("site_id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				o.logger.Debug("file changed",
					slog.String("site_id", id),
					slog.String("path", event.Path),
					slog.String("type", event.Type.String()),
				)
				o.bus.Publish(entities.NewFileChangedEvent(id, event.Path))
			}
		}
	}()
}
