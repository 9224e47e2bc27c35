package entity

import "time"

// Deck is one remotely published content bundle. From the client's point of
// view only LatestVersion ever changes.
type Deck struct {
	ID            string    // Stable catalog identifier
	Title         string    // Display name from the catalog
	LatestVersion string    // Version token assigned by the publisher
	PayloadRef    string    // Opaque handle used to fetch the deck payload
	UpdatedAt     time.Time // Last publish time, if the catalog reports it
}

// ChangelogEntry is one published revision of a deck.
type ChangelogEntry struct {
	Version     string
	Notes       string // Markdown, possibly with a YAML frontmatter block
	PublishedAt time.Time
}

// Notification is a publisher message delivered through the catalog service.
type Notification struct {
	ID        string
	Type      string // "deck_update" or "announcement"
	Title     string
	Message   string
	CreatedAt time.Time
	Read      bool
}
