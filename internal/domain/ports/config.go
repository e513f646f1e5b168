package ports

import (
	"context"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// ConfigLoader loads application configuration
type ConfigLoader interface {
	// Load returns the merged configuration: defaults, then the config file
	// when present, then environment overrides
	Load(ctx context.Context) (*entities.Config, error)
}
