package ports

import (
	"context"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// Generator turns a free-text prompt into a structure document. The
// collaborator either returns a valid document or a terminal error; its
// internal repair logic is opaque to the core.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*entities.StructureDocument, error)
}
