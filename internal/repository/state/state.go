// Package state persists the per-profile sync record. All mutations are
// serialized behind one mutex and flushed with write-to-temp-then-rename so
// a crash mid-write never corrupts the last valid state.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/common"
	"github.com/elmoadorjr/AnkiPH/internal/entity"
	"github.com/spf13/afero"
)

const (
	stateFileMode = 0o600
	stateDirMode  = 0o755
)

type stateRepository struct {
	fs   afero.Fs
	path string
	log  *slog.Logger

	mu    sync.Mutex
	state *entity.SyncState
}

func NewStateRepository(fs afero.Fs, path string, log *slog.Logger) *stateRepository {
	repo := &stateRepository{
		fs:   fs,
		path: path,
		log:  log.With(slog.String("item", "StateRepository")),
	}
	repo.state = repo.load()

	return repo
}

// load deserializes the state file. A missing or corrupt file yields fresh
// defaults; the caller never fails on load.
func (r *stateRepository) load() *entity.SyncState {
	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		r.log.Info("No state file, starting with defaults", slog.String("path", r.path))

		return entity.NewSyncState()
	}

	st := &entity.SyncState{}
	if err := json.Unmarshal(data, st); err != nil {
		r.log.Error("State file is corrupt, starting with defaults",
			slog.String("path", r.path), slog.Any("error", err))

		return entity.NewSyncState()
	}

	st.Normalize()

	return st
}

// Snapshot returns a deep copy of the current state.
func (r *stateRepository) Snapshot() *entity.SyncState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state.Clone()
}

// InstalledIDs returns the ids of every installed deck.
func (r *stateRepository) InstalledIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.state.Installed))
	for id := range r.state.Installed {
		ids = append(ids, id)
	}

	return ids
}

// UpsertInstalled records a successful fetch. Repeating the same arguments
// leaves both memory and disk untouched.
func (r *stateRepository) UpsertInstalled(deckID, version string, at time.Time) error {
	if deckID == "" {
		return fmt.Errorf("deck id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.state.Installed[deckID]; ok && cur.Version == version && cur.InstalledAt.Equal(at) {
		return nil
	}

	r.state.Installed[deckID] = entity.InstalledDeck{
		DeckID:      deckID,
		Version:     version,
		InstalledAt: at,
	}

	return r.save()
}

// RecomputeAvailableUpdates rebuilds the available-updates view wholesale
// from the installed set and the supplied latest versions, then persists.
// The new view is returned for the caller's result reporting.
func (r *stateRepository) RecomputeAvailableUpdates(latest map[string]string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.AvailableUpdates = entity.ComputeAvailableUpdates(r.state.Installed, latest)

	updates := make(map[string]string, len(r.state.AvailableUpdates))
	for id, ver := range r.state.AvailableUpdates {
		updates[id] = ver
	}

	return updates, r.save()
}

// SetLastCheck records the completion time of a successful poll.
func (r *stateRepository) SetLastCheck(t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.LastCheckAt = t

	return r.save()
}

// SetNotificationStatus records the last notification poll and the unread
// count reported by the server.
func (r *stateRepository) SetNotificationStatus(checkedAt time.Time, unread int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.LastNotificationCheck = checkedAt
	if unread < 0 {
		unread = 0
	}
	r.state.UnreadNotifications = unread

	return r.save()
}

// ShouldCheckNotifications reports whether the notification poll interval
// has elapsed since the last check.
func (r *stateRepository) ShouldCheckNotifications(interval time.Duration, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.LastNotificationCheck.IsZero() {
		return true
	}

	return now.Sub(r.state.LastNotificationCheck) >= interval
}

// save flushes the in-memory state. On failure the memory copy keeps the
// mutation so a later successful save catches up; the error is surfaced as
// an IO kind. Callers must hold the mutex.
func (r *stateRepository) save() error {
	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: cannot encode state: %v", common.ErrIO, err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := r.fs.MkdirAll(dir, stateDirMode); err != nil {
			return fmt.Errorf("%w: cannot create state dir: %v", common.ErrIO, err)
		}
	}

	tmp := r.path + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, stateFileMode); err != nil {
		return fmt.Errorf("%w: cannot write state file: %v", common.ErrIO, err)
	}

	if err := r.fs.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("%w: cannot replace state file: %v", common.ErrIO, err)
	}

	return nil
}
