package builders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

func TestSiteBuilder(t *testing.T) {
	t.Run("builds site with defaults", func(t *testing.T) {
		site := NewSiteBuilder().Build()

		assert.NotEmpty(t, site.ID)
		assert.Equal(t, "test-site", site.Name)
		assert.Equal(t, entities.StatusReady, site.Status)
		assert.NoError(t, site.Validate())
	})

	t.Run("builds site with custom values", func(t *testing.T) {
		site := NewSiteBuilder().
			WithID("fixed-id").
			WithName("blog").
			WithStatus(entities.StatusServing).
			WithPort(4000).
			Build()

		assert.Equal(t, "fixed-id", site.ID)
		assert.Equal(t, "blog", site.Name)
		assert.Equal(t, "/tmp/sites/blog", site.Path)
		assert.True(t, site.IsServing())
		assert.Equal(t, 4000, site.Port)
	})

	t.Run("build returns independent copies", func(t *testing.T) {
		b := NewSiteBuilder()
		first := b.Build()
		second := b.Build()

		first.Name = "mutated"
		assert.Equal(t, "test-site", second.Name)
	})

	t.Run("serving site helper", func(t *testing.T) {
		site := ServingSite(5000)
		assert.True(t, site.IsServing())
		assert.Equal(t, 5000, site.Port)
	})
}

func TestStructureDocumentBuilder(t *testing.T) {
	t.Run("builds document with defaults applied", func(t *testing.T) {
		doc := NewStructureDocumentBuilder().Build()

		require.NoError(t, doc.Validate())
		assert.NotEmpty(t, doc.Layouts)
		assert.NotEmpty(t, doc.Pages)
	})

	t.Run("builds document with posts and assets", func(t *testing.T) {
		doc := NewStructureDocumentBuilder().
			WithTitle("Blog").
			WithPostCount(3).
			WithAsset("css/main.css", "body {}").
			Build()

		require.NoError(t, doc.Validate())
		assert.Equal(t, "Blog", doc.Title)
		assert.Len(t, doc.Posts, 3)
		assert.Contains(t, doc.Assets, "css/main.css")
	})
}
