package entities

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for expected orchestration failures. Callers match these
// with errors.Is; orchestrators capture them into the site's Error status
// rather than letting them escape as faults.
var (
	ErrSiteNotFound      = errors.New("site not found")
	ErrNameConflict      = errors.New("site name already in use")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyServing    = errors.New("site is already serving")
	ErrNotServing        = errors.New("site is not serving")
	ErrPortOutOfRange    = errors.New("requested port is out of range")
	ErrBuildTimeout      = errors.New("build timed out")
)

// TransitionError reports a rejected status transition
type TransitionError struct {
	SiteID string
	From   SiteStatus
	To     SiteStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s for site %s", e.From, e.To, e.SiteID)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// AlreadyServingError carries the port a serving site already holds
type AlreadyServingError struct {
	SiteID string
	Port   int
}

func (e *AlreadyServingError) Error() string {
	return fmt.Sprintf("site %s is already serving on port %d", e.SiteID, e.Port)
}

func (e *AlreadyServingError) Unwrap() error {
	return ErrAlreadyServing
}

// BuildError carries diagnostics from a failed build invocation
type BuildError struct {
	SiteID   string
	Stdout   string
	Stderr   string
	Duration time.Duration
	Cause    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed for site %s: %v", e.SiteID, e.Cause)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// ServeError carries diagnostics from a failed preview start
type ServeError struct {
	SiteID string
	Port   int
	Cause  error
}

func (e *ServeError) Error() string {
	return fmt.Sprintf("preview start failed for site %s on port %d: %v", e.SiteID, e.Port, e.Cause)
}

func (e *ServeError) Unwrap() error {
	return e.Cause
}
