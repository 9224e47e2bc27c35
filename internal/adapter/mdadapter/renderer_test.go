package mdadapter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderPlainMarkdown(t *testing.T) {
	r := NewRenderer()

	html, meta, err := r.Render("# What changed\n\nNew **cards** added.")
	require.NoError(t, err)
	require.Nil(t, meta)
	require.Contains(t, html, "<h1>What changed</h1>")
	require.Contains(t, html, "<strong>cards</strong>")
}

func TestRenderWithFrontmatter(t *testing.T) {
	r := NewRenderer()

	notes := `---
title: Big revision
summary: Lots of fixes
breaking: true
---
Body text.
`

	html, meta, err := r.Render(notes)
	require.NoError(t, err)
	require.NotNil(t, meta)
	require.Equal(t, "Big revision", meta.Title)
	require.Equal(t, "Lots of fixes", meta.Summary)
	require.True(t, meta.Breaking)
	require.Contains(t, html, "Body text.")
	require.NotContains(t, html, "Big revision")
}

func TestRenderMalformedFrontmatterKeepsBody(t *testing.T) {
	r := NewRenderer()

	notes := `---
title: [unclosed
---
Still readable.
`

	html, meta, err := r.Render(notes)
	require.NoError(t, err)
	require.Nil(t, meta)
	require.Contains(t, html, "Still readable.")
}

func TestRenderEmptyNote(t *testing.T) {
	r := NewRenderer()

	html, meta, err := r.Render("")
	require.NoError(t, err)
	require.Nil(t, meta)
	require.Empty(t, html)
}
