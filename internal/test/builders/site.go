package builders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// SiteBuilder helps build Site entities for testing
type SiteBuilder struct {
	site *entities.Site
}

// NewSiteBuilder creates a new site builder with sensible defaults
func NewSiteBuilder() *SiteBuilder {
	return &SiteBuilder{
		site: &entities.Site{
			ID:        uuid.New().String(),
			Name:      "test-site",
			Path:      "/tmp/sites/test-site",
			Status:    entities.StatusReady,
			CreatedAt: time.Now(),
		},
	}
}

// WithID sets the site id
func (b *SiteBuilder) WithID(id string) *SiteBuilder {
	b.site.ID = id
	return b
}

// WithName sets the site name and derives the storage path from it
func (b *SiteBuilder) WithName(name string) *SiteBuilder {
	b.site.Name = name
	b.site.Path = "/tmp/sites/" + name
	return b
}

// WithPath sets the storage path
func (b *SiteBuilder) WithPath(path string) *SiteBuilder {
	b.site.Path = path
	return b
}

// WithStatus sets the lifecycle status
func (b *SiteBuilder) WithStatus(status entities.SiteStatus) *SiteBuilder {
	b.site.Status = status
	return b
}

// WithPort sets the preview port
func (b *SiteBuilder) WithPort(port int) *SiteBuilder {
	b.site.Port = port
	return b
}

// WithLastBuilt sets the last successful build time
func (b *SiteBuilder) WithLastBuilt(t time.Time) *SiteBuilder {
	b.site.LastBuilt = &t
	return b
}

// Build creates the final Site entity
func (b *SiteBuilder) Build() *entities.Site {
	return b.site.Clone()
}

// ServingSite returns a site that holds a preview port
func ServingSite(port int) *entities.Site {
	return NewSiteBuilder().
		WithStatus(entities.StatusServing).
		WithPort(port).
		Build()
}

// ErroredSite returns a site stuck in the error state
func ErroredSite() *entities.Site {
	return NewSiteBuilder().WithStatus(entities.StatusError).Build()
}

// StructureDocumentBuilder helps build structure documents for testing
type StructureDocumentBuilder struct {
	doc *entities.StructureDocument
}

// NewStructureDocumentBuilder creates a document builder with sensible defaults
func NewStructureDocumentBuilder() *StructureDocumentBuilder {
	return &StructureDocumentBuilder{
		doc: &entities.StructureDocument{
			Name:        "test-site",
			Title:       "Test Site",
			Description: "A site for testing.",
		},
	}
}

// WithName sets the document name
func (b *StructureDocumentBuilder) WithName(name string) *StructureDocumentBuilder {
	b.doc.Name = name
	return b
}

// WithTitle sets the document title
func (b *StructureDocumentBuilder) WithTitle(title string) *StructureDocumentBuilder {
	b.doc.Title = title
	return b
}

// WithLayout adds a layout file
func (b *StructureDocumentBuilder) WithLayout(filename, content string) *StructureDocumentBuilder {
	b.doc.Layouts = append(b.doc.Layouts, entities.StructureFile{Filename: filename, Content: content})
	return b
}

// WithPage adds a page file
func (b *StructureDocumentBuilder) WithPage(filename, content string) *StructureDocumentBuilder {
	b.doc.Pages = append(b.doc.Pages, entities.StructureFile{Filename: filename, Content: content})
	return b
}

// WithPostCount adds the specified number of default posts
func (b *StructureDocumentBuilder) WithPostCount(count int) *StructureDocumentBuilder {
	for i := 1; i <= count; i++ {
		b.doc.Posts = append(b.doc.Posts, entities.StructureFile{
			Filename: fmt.Sprintf("2026-01-%02d-post-%d.md", i, i),
			Content:  fmt.Sprintf("# Post %d\n\nBody %d.\n", i, i),
		})
	}
	return b
}

// WithAsset adds an asset file
func (b *StructureDocumentBuilder) WithAsset(path, content string) *StructureDocumentBuilder {
	if b.doc.Assets == nil {
		b.doc.Assets = make(map[string]string)
	}
	b.doc.Assets[path] = content
	return b
}

// Build creates the final document with defaults applied
func (b *StructureDocumentBuilder) Build() *entities.StructureDocument {
	doc := *b.doc
	doc.ApplyDefaults()
	return &doc
}
