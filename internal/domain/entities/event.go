package entities

import "time"

// EventType identifies a lifecycle or file-change event on the bus
type EventType string

const (
	EventStatusChanged EventType = "statusChanged"
	EventSiteCreated   EventType = "siteCreated"
	EventSiteBuilt     EventType = "siteBuilt"
	EventSiteServing   EventType = "siteServing"
	EventSiteStopped   EventType = "siteStopped"
	EventSiteDeleted   EventType = "siteDeleted"
	EventFileChanged   EventType = "fileChanged"
)

// Event is published on the bus for every lifecycle change. Site carries a
// snapshot of the record for lifecycle events; FileChanged carries the site
// id and the changed path instead.
type Event struct {
	Type      EventType `json:"type"`
	Site      *Site     `json:"site,omitempty"`
	SiteID    string    `json:"siteId,omitempty"`
	Path      string    `json:"path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSiteEvent creates a lifecycle event carrying a site snapshot
func NewSiteEvent(typ EventType, site *Site) Event {
	return Event{
		Type:      typ,
		Site:      site.Clone(),
		SiteID:    site.ID,
		Timestamp: time.Now(),
	}
}

// NewFileChangedEvent creates a file-change event for a serving site
func NewFileChangedEvent(siteID, path string) Event {
	return Event{
		Type:      EventFileChanged,
		SiteID:    siteID,
		Path:      path,
		Timestamp: time.Now(),
	}
}
