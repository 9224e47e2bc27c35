package changelog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/adapter/mdadapter"
	"github.com/elmoadorjr/AnkiPH/internal/common"
	"github.com/elmoadorjr/AnkiPH/internal/entity"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	entries []entity.ChangelogEntry
	err     error
}

func (f *fakeCatalog) FetchChangelog(ctx context.Context, deckID string) ([]entity.ChangelogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.entries, nil
}

type failingRenderer struct {
	failOn string
}

func (r *failingRenderer) Render(notes string) (string, *mdadapter.NoteMeta, error) {
	if notes == r.failOn {
		return "", nil, fmt.Errorf("render blew up")
	}

	return "<p>" + notes + "</p>", nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetRendersEntries(t *testing.T) {
	catalog := &fakeCatalog{entries: []entity.ChangelogEntry{
		{Version: "3", Notes: "## Fixed typos", PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Version: "2", Notes: "Initial release"},
	}}

	svc := NewChangelogService(catalog, mdadapter.NewRenderer(), testLogger())

	entries, err := svc.Get(context.Background(), "core-2000")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "3", entries[0].Version)
	require.Contains(t, entries[0].HTML, "<h2>Fixed typos</h2>")
	require.Contains(t, entries[1].HTML, "Initial release")
}

func TestGetKeepsEntryOnRenderFailure(t *testing.T) {
	catalog := &fakeCatalog{entries: []entity.ChangelogEntry{
		{Version: "2", Notes: "bad note"},
		{Version: "1", Notes: "fine"},
	}}

	svc := NewChangelogService(catalog, &failingRenderer{failOn: "bad note"}, testLogger())

	entries, err := svc.Get(context.Background(), "core-2000")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// The failed entry keeps its raw markdown and no HTML.
	require.Empty(t, entries[0].HTML)
	require.Equal(t, "bad note", entries[0].Notes)
	require.Equal(t, "<p>fine</p>", entries[1].HTML)
}

func TestGetPropagatesFetchError(t *testing.T) {
	catalog := &fakeCatalog{err: fmt.Errorf("call: %w", common.ErrNotFound)}

	svc := NewChangelogService(catalog, mdadapter.NewRenderer(), testLogger())

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}
