package entities

import (
	"errors"
	"fmt"
	"strings"
)

// StructureDocument is the generative collaborator's output describing the
// files to materialize for a new site.
type StructureDocument struct {
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Layouts     []StructureFile   `json:"layouts"`
	Includes    []StructureFile   `json:"includes"`
	Posts       []StructureFile   `json:"posts"`
	Pages       []StructureFile   `json:"pages"`
	Assets      map[string]string `json:"assets"`
}

// StructureFile is one file entry inside a structure document. Content is
// markdown for posts and pages, raw text for layouts and includes.
type StructureFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Validate checks the fields materialization depends on
func (d *StructureDocument) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("structure document name is required")
	}
	for i, f := range append(append(append(append([]StructureFile{}, d.Layouts...), d.Includes...), d.Posts...), d.Pages...) {
		if strings.TrimSpace(f.Filename) == "" {
			return fmt.Errorf("structure file %d has no filename", i)
		}
		if strings.Contains(f.Filename, "..") {
			return fmt.Errorf("structure file %q escapes the site directory", f.Filename)
		}
	}
	return nil
}

const defaultLayout = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{ page.title }}</title>
</head>
<body>
  {{ content }}
</body>
</html>
`

// ApplyDefaults fills empty or missing sections so materialization always
// has a default layout and a home page to write.
func (d *StructureDocument) ApplyDefaults() {
	if d.Title == "" {
		d.Title = d.Name
	}
	if len(d.Layouts) == 0 {
		d.Layouts = []StructureFile{{Filename: "default.html", Content: defaultLayout}}
	}
	if len(d.Pages) == 0 {
		body := d.Description
		if body == "" {
			body = "Welcome to " + d.Title + "."
		}
		d.Pages = []StructureFile{{
			Filename: "index.md",
			Content:  fmt.Sprintf("# %s\n\n%s\n", d.Title, body),
		}}
	}
	if d.Includes == nil {
		d.Includes = []StructureFile{}
	}
	if d.Posts == nil {
		d.Posts = []StructureFile{}
	}
	if d.Assets == nil {
		d.Assets = map[string]string{}
	}
}
