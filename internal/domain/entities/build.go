package entities

import "time"

// BuildResult is the outcome of one external build invocation. Failures are
// returned as data with captured diagnostics, never raised past the builder.
type BuildResult struct {
	SiteID   string        `json:"siteId"`
	Success  bool          `json:"success"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
