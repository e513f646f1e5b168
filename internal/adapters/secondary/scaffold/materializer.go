package scaffold

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// Materializer writes structure documents to disk. Besides the source tree
// the external tool consumes, it seeds a rendered index.html so the preview
// process has something to serve before the first build.
type Materializer struct {
	rootDir   string
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// siteDescriptor is the per-site site.yaml written at materialization
type siteDescriptor struct {
	Name        string    `yaml:"name"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// NewMaterializer creates a materializer rooted at rootDir
func NewMaterializer(rootDir string, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Materializer{
		rootDir:   rootDir,
		md:        md,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With("adapter", "scaffold"),
	}
}

// PathFor returns the storage directory for a site name
func (m *Materializer) PathFor(name string) string {
	return filepath.Join(m.rootDir, Slugify(name))
}

// Materialize writes the document's files under dir
func (m *Materializer) Materialize(ctx context.Context, dir string, doc *entities.StructureDocument) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validating structure document: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating site directory: %w", err)
	}

	if err := m.writeDescriptor(dir, doc); err != nil {
		return err
	}

	sections := []struct {
		subdir string
		files  []entities.StructureFile
	}{
		{"layouts", doc.Layouts},
		{"includes", doc.Includes},
		{"posts", doc.Posts},
		{"pages", doc.Pages},
	}
	for _, section := range sections {
		for _, file := range section.files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := m.writeFile(dir, section.subdir, file); err != nil {
				return err
			}
		}
	}

	for path, content := range doc.Assets {
		if err := m.writeFile(dir, "assets", entities.StructureFile{Filename: path, Content: content}); err != nil {
			return err
		}
	}

	return m.seedPreview(dir, doc)
}

// Remove deletes a site directory. Paths outside the configured root are
// refused rather than removed.
func (m *Materializer) Remove(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving site directory: %w", err)
	}
	root, err := filepath.Abs(m.rootDir)
	if err != nil {
		return fmt.Errorf("resolving sites root: %w", err)
	}
	if abs == root || !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s: outside sites root", dir)
	}
	return os.RemoveAll(abs)
}

// writeDescriptor writes the site.yaml metadata file
func (m *Materializer) writeDescriptor(dir string, doc *entities.StructureDocument) error {
	desc := siteDescriptor{
		Name:        doc.Name,
		Title:       doc.Title,
		Description: doc.Description,
		CreatedAt:   time.Now(),
	}
	data, err := yaml.Marshal(&desc)
	if err != nil {
		return fmt.Errorf("encoding site descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "site.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("writing site descriptor: %w", err)
	}
	return nil
}

// writeFile writes one structure file under dir/subdir, rejecting paths
// that resolve outside the site directory
func (m *Materializer) writeFile(dir, subdir string, file entities.StructureFile) error {
	target := filepath.Join(dir, subdir, filepath.Clean(file.Filename))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(filepath.Separator)) {
		return fmt.Errorf("structure file %q escapes the site directory", file.Filename)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, []byte(file.Content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

// seedPreview renders the first page to index.html so the site is servable
// before its first build. Generated markup is sanitized before writing.
func (m *Materializer) seedPreview(dir string, doc *entities.StructureDocument) error {
	if len(doc.Pages) == 0 {
		return nil
	}
	page := doc.Pages[0]

	var body string
	if strings.HasSuffix(page.Filename, ".md") {
		var buf bytes.Buffer
		if err := m.md.Convert([]byte(page.Content), &buf); err != nil {
			return fmt.Errorf("rendering %s: %w", page.Filename, err)
		}
		body = m.sanitizer.Sanitize(buf.String())
	} else {
		body = m.sanitizer.Sanitize(page.Content)
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>%s</title>
</head>
<body>
%s
</body>
</html>
`, doc.Title, body)

	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing preview index: %w", err)
	}
	m.logger.Debug("seeded preview index", slog.String("dir", dir))
	return nil
}
