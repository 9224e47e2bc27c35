package entity

import (
	"sort"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/util"
)

// InstalledDeck records which version of a deck the user has fetched. There
// is at most one record per deck id; it is updated in place on re-download
// and only removed by an explicit user action outside this core.
type InstalledDeck struct {
	DeckID      string    `json:"deck_id"`
	Version     string    `json:"version"`
	InstalledAt time.Time `json:"installed_at"`
}

// SyncState is the persisted per-profile sync record. AvailableUpdates is a
// materialized view over Installed and the last known remote versions; it is
// always rebuilt wholesale through ComputeAvailableUpdates, never patched.
type SyncState struct {
	Installed          map[string]InstalledDeck `json:"installed"`
	AvailableUpdates   map[string]string        `json:"available_updates"`
	LastCheckAt        time.Time                `json:"last_check_at"`
	CheckIntervalHours int                      `json:"check_interval_hours"`

	LastNotificationCheck time.Time `json:"last_notification_check"`
	UnreadNotifications   int       `json:"unread_notification_count"`

	// Presentation-layer fields stored in the same file. The sync core
	// round-trips them untouched.
	UIMode   string          `json:"ui_mode"`
	Features map[string]bool `json:"features"`
}

const (
	DefaultCheckIntervalHours = 24
	DefaultUIMode             = "minimal"
)

// NewSyncState returns an empty state with defaults applied.
func NewSyncState() *SyncState {
	return &SyncState{
		Installed:          make(map[string]InstalledDeck),
		AvailableUpdates:   make(map[string]string),
		CheckIntervalHours: DefaultCheckIntervalHours,
		UIMode:             DefaultUIMode,
		Features:           make(map[string]bool),
	}
}

// Normalize fills nil maps and zero intervals after deserialization.
func (s *SyncState) Normalize() {
	if s.Installed == nil {
		s.Installed = make(map[string]InstalledDeck)
	}
	if s.AvailableUpdates == nil {
		s.AvailableUpdates = make(map[string]string)
	}
	if s.Features == nil {
		s.Features = make(map[string]bool)
	}
	if s.CheckIntervalHours <= 0 {
		s.CheckIntervalHours = DefaultCheckIntervalHours
	}
	if s.UIMode == "" {
		s.UIMode = DefaultUIMode
	}
}

// CheckInterval returns the poll interval as a duration.
func (s *SyncState) CheckInterval() time.Duration {
	return time.Duration(s.CheckIntervalHours) * time.Hour
}

// Clone returns a deep copy, safe to hand to readers while the store keeps
// mutating the original.
func (s *SyncState) Clone() *SyncState {
	c := *s
	c.Installed = make(map[string]InstalledDeck, len(s.Installed))
	for id, rec := range s.Installed {
		c.Installed[id] = rec
	}
	c.AvailableUpdates = make(map[string]string, len(s.AvailableUpdates))
	for id, ver := range s.AvailableUpdates {
		c.AvailableUpdates[id] = ver
	}
	c.Features = make(map[string]bool, len(s.Features))
	for name, on := range s.Features {
		c.Features[name] = on
	}

	return &c
}

// ComputeAvailableUpdates is the only constructor of the available-updates
// view: every installed deck whose remote version is strictly newer than the
// installed one. Remote ids without an installed record are ignored.
func ComputeAvailableUpdates(installed map[string]InstalledDeck, latest map[string]string) map[string]string {
	updates := make(map[string]string)
	for id, rec := range installed {
		remote, ok := latest[id]
		if !ok {
			continue
		}

		if util.CompareVersions(remote, rec.Version) > 0 {
			updates[id] = remote
		}
	}

	return updates
}

// UpdateCheckResult is the ephemeral outcome of one poll, shared by every
// caller that coalesced into it.
type UpdateCheckResult struct {
	CheckedAt      time.Time
	NewlyAvailable []string          // Deck ids, sorted
	Errors         map[string]string // Deck id -> error kind
}

// NewUpdateCheckResult builds a result from the recomputed view.
func NewUpdateCheckResult(checkedAt time.Time, available map[string]string) *UpdateCheckResult {
	ids := make([]string, 0, len(available))
	for id := range available {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &UpdateCheckResult{
		CheckedAt:      checkedAt,
		NewlyAvailable: ids,
		Errors:         make(map[string]string),
	}
}

// DownloadResult is the tagged per-deck outcome of a batch download. Err is
// nil for a success; ErrKind carries the classification for reporting.
type DownloadResult struct {
	DeckID  string
	Version string
	Err     error
	ErrKind string
}

// OK reports whether the item succeeded.
func (r DownloadResult) OK() bool {
	return r.Err == nil
}
