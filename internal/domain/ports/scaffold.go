package ports

import (
	"context"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// Scaffolder materializes a structure document into a site directory
type Scaffolder interface {
	// PathFor returns the storage directory for a site name
	PathFor(name string) string

	// Materialize writes the document's files under dir, creating it first
	Materialize(ctx context.Context, dir string, doc *entities.StructureDocument) error

	// Remove deletes a site directory and everything under it
	Remove(dir string) error
}
