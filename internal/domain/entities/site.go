package entities

import (
	"errors"
	"strings"
	"time"
)

// SiteStatus represents the lifecycle state of a site
type SiteStatus string

const (
	StatusCreating SiteStatus = "creating"
	StatusReady    SiteStatus = "ready"
	StatusBuilding SiteStatus = "building"
	StatusServing  SiteStatus = "serving"
	StatusError    SiteStatus = "error"
)

// statusTransitions defines the allowed lifecycle transitions.
// Creating resolves to Ready or Error once storage is materialized;
// Ready → Error covers a failed preview start.
var statusTransitions = map[SiteStatus][]SiteStatus{
	StatusCreating: {StatusReady, StatusError},
	StatusReady:    {StatusBuilding, StatusServing, StatusError},
	StatusBuilding: {StatusReady, StatusError},
	StatusServing:  {StatusReady},
	StatusError:    {StatusBuilding},
}

// CanTransition reports whether a status change to next is allowed
func (s SiteStatus) CanTransition(next SiteStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether the status is a known lifecycle state
func (s SiteStatus) IsValid() bool {
	switch s {
	case StatusCreating, StatusReady, StatusBuilding, StatusServing, StatusError:
		return true
	}
	return false
}

func (s SiteStatus) String() string {
	return string(s)
}

// Site represents one tracked static-site project
type Site struct {
	// ID is a unique opaque identifier for the site
	ID string `json:"id" yaml:"id"`

	// Name is the unique human-readable name
	Name string `json:"name" yaml:"name"`

	// Path is the site's storage directory on disk
	Path string `json:"path" yaml:"path"`

	// Status is the current lifecycle state
	Status SiteStatus `json:"status" yaml:"status"`

	// Port is the preview port; zero unless the site is serving
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// CreatedAt is when the site record was inserted
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`

	// LastBuilt is the completion time of the last successful build
	LastBuilt *time.Time `json:"lastBuilt,omitempty" yaml:"last_built,omitempty"`
}

// Validate ensures the site record has valid required fields
func (s *Site) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("site id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("site name is required")
	}
	if !s.Status.IsValid() {
		return errors.New("site status is invalid")
	}
	return nil
}

// IsServing reports whether the site currently holds a preview port
func (s *Site) IsServing() bool {
	return s.Status == StatusServing
}

// Clone returns an independent copy of the site record
func (s *Site) Clone() *Site {
	dup := *s
	if s.LastBuilt != nil {
		t := *s.LastBuilt
		dup.LastBuilt = &t
	}
	return &dup
}
