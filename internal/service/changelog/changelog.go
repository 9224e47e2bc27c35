package changelog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elmoadorjr/AnkiPH/internal/adapter/mdadapter"
	"github.com/elmoadorjr/AnkiPH/internal/entity"
)

const serviceName = "changelog"

type CatalogClient interface {
	FetchChangelog(ctx context.Context, deckID string) ([]entity.ChangelogEntry, error)
}

type NotesRenderer interface {
	Render(notes string) (string, *mdadapter.NoteMeta, error)
}

// Entry is a changelog entry with its notes rendered for display.
type Entry struct {
	entity.ChangelogEntry
	HTML string
	Meta *mdadapter.NoteMeta
}

type changelogService struct {
	client   CatalogClient
	renderer NotesRenderer
	log      *slog.Logger
}

func NewChangelogService(client CatalogClient, renderer NotesRenderer, log *slog.Logger) *changelogService {
	return &changelogService{
		client:   client,
		renderer: renderer,
		log:      log.With(slog.String("service", serviceName)),
	}
}

// Get fetches and renders the changelog of one deck. An entry whose notes
// fail to render is kept with its raw markdown only.
func (c *changelogService) Get(ctx context.Context, deckID string) ([]Entry, error) {
	raw, err := c.client.FetchChangelog(ctx, deckID)
	if err != nil {
		c.log.Error("Cannot fetch changelog", slog.String("deck_id", deckID), slog.Any("error", err))

		return nil, fmt.Errorf("cannot fetch changelog for %s: %w", deckID, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		entry := Entry{ChangelogEntry: e}

		html, meta, err := c.renderer.Render(e.Notes)
		if err != nil {
			c.log.Warn("Cannot render notes", slog.String("deck_id", deckID),
				slog.String("version", e.Version), slog.Any("error", err))
		} else {
			entry.HTML = html
			entry.Meta = meta
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
