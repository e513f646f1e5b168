package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// StaticGenerator produces a deterministic minimal structure document from
// the prompt alone. It is used when no collaborator endpoint is configured,
// which keeps local development and tests independent of the external
// service.
type StaticGenerator struct{}

// NewStaticGenerator creates an offline fallback generator
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// Generate builds a one-page site describing the prompt
func (g *StaticGenerator) Generate(_ context.Context, prompt string) (*entities.StructureDocument, error) {
	title := strings.TrimSpace(prompt)
	if title == "" {
		title = "New Site"
	}
	if len(title) > 60 {
		title = title[:60]
	}

	doc := &entities.StructureDocument{
		Name:        "generated",
		Title:       title,
		Description: strings.TrimSpace(prompt),
		Pages: []entities.StructureFile{{
			Filename: "index.md",
			Content:  fmt.Sprintf("# %s\n\nThis site was scaffolded from the prompt:\n\n> %s\n", title, strings.TrimSpace(prompt)),
		}},
	}
	doc.ApplyDefaults()
	return doc, nil
}
