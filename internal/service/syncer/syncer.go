// Package syncer orchestrates batched deck downloads: chunked fetches,
// import into the local collection and state updates. Partial failure is the
// expected case; every requested id gets an explicit per-item result.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/common"
	"github.com/elmoadorjr/AnkiPH/internal/entity"
	"github.com/elmoadorjr/AnkiPH/internal/util"
	"github.com/google/uuid"
)

type CatalogClient interface {
	FetchPayload(ctx context.Context, deckID, version string) ([]byte, string, error)
}

// Importer applies a fetched payload to the local collection. The syncer
// does not know the collection's internal format.
type Importer interface {
	Import(ctx context.Context, deckID, version string, payload []byte) error
}

type StateRepository interface {
	Snapshot() *entity.SyncState
	UpsertInstalled(deckID, version string, at time.Time) error
	RecomputeAvailableUpdates(latest map[string]string) (map[string]string, error)
}

type Syncer struct {
	client   CatalogClient
	importer Importer
	repo     StateRepository
	batch    int
	log      *slog.Logger
	now      func() time.Time
}

func NewSyncer(client CatalogClient, importer Importer, repo StateRepository, maxBatchSize int, log *slog.Logger) *Syncer {
	if maxBatchSize <= 0 {
		maxBatchSize = 10
	}

	return &Syncer{
		client:   client,
		importer: importer,
		repo:     repo,
		batch:    maxBatchSize,
		log:      log.With(slog.String("service", "syncer")),
		now:      time.Now,
	}
}

// DownloadMany fetches and installs the requested decks. Ids are deduped
// keeping first-occurrence order, partitioned into chunks of the configured
// batch size, fetched concurrently within a chunk with chunks in sequence.
// The returned slice has exactly one entry per deduped requested id, in
// order. Cancelling ctx keeps already completed items applied; everything
// not yet fetched is reported as cancelled.
func (s *Syncer) DownloadMany(ctx context.Context, requested []string) []entity.DownloadResult {
	ids := dedupe(requested)
	log := s.log.With(slog.String("op_id", uuid.NewString()))
	log.Info("Batch download started", slog.Int("requested", len(requested)), slog.Int("unique", len(ids)))

	snapshot := s.repo.Snapshot()
	wanted := make(map[string]string, len(ids))
	for _, id := range ids {
		// Pin the version the check discovered; unknown ids fetch latest.
		wanted[id] = snapshot.AvailableUpdates[id]
	}

	results := make(map[string]entity.DownloadResult, len(ids))
	fetched := make(map[string]string)

	for _, chunk := range chunks(ids, s.batch) {
		if ctx.Err() != nil {
			for _, id := range chunk {
				results[id] = cancelledResult(id)
			}

			continue
		}

		for _, res := range s.downloadChunk(ctx, chunk, wanted, log) {
			results[res.DeckID] = res
			if res.OK() {
				fetched[res.DeckID] = res.Version
			}
		}
	}

	s.settle(snapshot, fetched, log)

	ordered := make([]entity.DownloadResult, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, results[id])
	}

	return ordered
}

// downloadChunk fans the chunk out to one worker per deck.
func (s *Syncer) downloadChunk(ctx context.Context, chunk []string, wanted map[string]string, log *slog.Logger) []entity.DownloadResult {
	in := make(chan string, len(chunk))
	out := make(chan entity.DownloadResult, len(chunk))

	for _, id := range chunk {
		in <- id
	}
	close(in)

	var wg sync.WaitGroup
	wg.Add(len(chunk))
	for n := 0; n < len(chunk); n++ {
		go func() {
			defer wg.Done()

			for id := range in {
				out <- s.downloadOne(ctx, id, wanted[id], log)
			}
		}()
	}

	wg.Wait()
	close(out)

	results := make([]entity.DownloadResult, 0, len(chunk))
	for res := range out {
		results = append(results, res)
	}

	return results
}

func (s *Syncer) downloadOne(ctx context.Context, deckID, version string, log *slog.Logger) entity.DownloadResult {
	if ctx.Err() != nil {
		return cancelledResult(deckID)
	}

	payload, served, err := s.client.FetchPayload(ctx, deckID, version)
	if err != nil {
		log.Error("Cannot fetch deck", slog.String("deck_id", deckID), slog.Any("error", err))

		return failedResult(deckID, err)
	}

	if err := s.importer.Import(ctx, deckID, served, payload); err != nil {
		log.Error("Cannot import deck", slog.String("deck_id", deckID), slog.Any("error", err))

		return failedResult(deckID, err)
	}

	// A save failure here is logged, not reported against the item: the
	// deck is imported and the in-memory record will reach disk with the
	// next successful save.
	if err := s.repo.UpsertInstalled(deckID, served, s.now()); err != nil {
		log.Error("Cannot persist installed record", slog.String("deck_id", deckID), slog.Any("error", err))
	}

	log.Info("Deck installed", slog.String("deck_id", deckID), slog.String("version", served),
		slog.String("checksum", util.Checksum(payload)))

	return entity.DownloadResult{DeckID: deckID, Version: served}
}

// settle rebuilds the available-updates view exactly once after all chunks.
// The latest known remote versions are the ones the previous check cached,
// overlaid with what this run actually served; no extra network call.
func (s *Syncer) settle(snapshot *entity.SyncState, fetched map[string]string, log *slog.Logger) {
	latest := make(map[string]string, len(snapshot.AvailableUpdates)+len(fetched))
	for id, ver := range snapshot.AvailableUpdates {
		latest[id] = ver
	}
	for id, ver := range fetched {
		if cur, ok := latest[id]; !ok || util.CompareVersions(ver, cur) > 0 {
			latest[id] = ver
		}
	}

	if _, err := s.repo.RecomputeAvailableUpdates(latest); err != nil {
		log.Error("Cannot persist state after batch", slog.Any("error", err))
	}
}

func cancelledResult(deckID string) entity.DownloadResult {
	return entity.DownloadResult{
		DeckID:  deckID,
		Err:     common.ErrCancelled,
		ErrKind: common.KindCancelled,
	}
}

func failedResult(deckID string, err error) entity.DownloadResult {
	return entity.DownloadResult{
		DeckID:  deckID,
		Err:     err,
		ErrKind: common.Kind(err),
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	return unique
}

func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}

	return out
}
