// Package mdadapter renders changelog notes. Publishers author notes in
// markdown, optionally prefixed with a YAML frontmatter block carrying
// structured metadata about the revision.
package mdadapter

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

// NoteMeta is the frontmatter a publisher may attach to a revision note.
type NoteMeta struct {
	Title    string `yaml:"title"`
	Summary  string `yaml:"summary"`
	Breaking bool   `yaml:"breaking"`
}

type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			&frontmatter.Extender{},
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &Renderer{md: md}
}

// Render converts a note to HTML and extracts its frontmatter, if any.
func (r *Renderer) Render(notes string) (string, *NoteMeta, error) {
	ctx := parser.NewContext()

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(notes), &buf, parser.WithContext(ctx)); err != nil {
		return "", nil, fmt.Errorf("cannot convert notes: %w", err)
	}

	var meta *NoteMeta
	if fm := frontmatter.Get(ctx); fm != nil {
		meta = &NoteMeta{}
		if err := fm.Decode(meta); err != nil {
			// Malformed frontmatter is the publisher's problem, not a
			// reason to hide the note.
			meta = nil
		}
	}

	return buf.String(), meta, nil
}
