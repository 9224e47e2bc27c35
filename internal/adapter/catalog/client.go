// Package catalog implements the typed client for the AnkiPH catalog
// service. It holds no state besides the transport credential.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/common"
	"github.com/elmoadorjr/AnkiPH/internal/config"
	"github.com/elmoadorjr/AnkiPH/internal/entity"
)

const (
	endpointPurchases     = "/addon-get-purchases"
	endpointCheckUpdates  = "/addon-check-updates"
	endpointDownloadDeck  = "/addon-download-deck"
	endpointChangelog     = "/addon-get-changelog"
	endpointNotifications = "/addon-check-notifications"
)

// The version lookup endpoint caps how many ids one request may carry.
const maxLookupIDs = 10

type Client struct {
	baseURL  string
	client   *http.Client
	dlClient *http.Client
	log      *slog.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(cfg *config.CatalogConfig, log *slog.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		baseURL:  cfg.APIURL,
		client:   &http.Client{Timeout: cfg.RequestTimeout, Transport: transport},
		dlClient: &http.Client{Timeout: cfg.DownloadTimeout, Transport: transport},
		token:    cfg.Token,
		log:      log.With(slog.String("item", "CatalogClient")),
	}
}

// SetToken replaces the bearer credential for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", common.ErrNotLoggedIn
	}

	return "Bearer " + c.token, nil
}

type deckPayload struct {
	DeckID         string `json:"deck_id"`
	ID             string `json:"id"`
	Title          string `json:"title"`
	CurrentVersion string `json:"current_version"`
	UpdatedAt      string `json:"updated_at"`
	DownloadURL    string `json:"download_url"`
}

func (d *deckPayload) deckID() string {
	if d.DeckID != "" {
		return d.DeckID
	}

	return d.ID
}

// FetchCatalog lists the decks owned by the current user.
func (c *Client) FetchCatalog(ctx context.Context) ([]entity.Deck, error) {
	var body struct {
		Success bool          `json:"success"`
		Error   string        `json:"error"`
		Decks   []deckPayload `json:"decks"`
	}

	if err := c.call(ctx, http.MethodGet, endpointPurchases, nil, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, fmt.Errorf("%w: %s", common.ErrProtocol, body.Error)
	}

	decks := make([]entity.Deck, 0, len(body.Decks))
	for _, d := range body.Decks {
		if d.deckID() == "" {
			c.log.Warn("Catalog entry without id, skipping", slog.String("title", d.Title))

			continue
		}

		decks = append(decks, entity.Deck{
			ID:            d.deckID(),
			Title:         d.Title,
			LatestVersion: d.CurrentVersion,
			PayloadRef:    d.DownloadURL,
			UpdatedAt:     parseTime(d.UpdatedAt),
		})
	}

	return decks, nil
}

// FetchUpdates looks up the latest published version for the given deck ids,
// splitting the lookup into as many requests as the endpoint cap demands. An
// empty set returns an empty map without a network round-trip; unknown ids
// are omitted from the result.
func (c *Client) FetchUpdates(ctx context.Context, deckIDs []string) (map[string]string, error) {
	latest := make(map[string]string, len(deckIDs))

	for len(deckIDs) > 0 {
		n := len(deckIDs)
		if n > maxLookupIDs {
			n = maxLookupIDs
		}

		if err := c.fetchUpdatesChunk(ctx, deckIDs[:n], latest); err != nil {
			return nil, err
		}
		deckIDs = deckIDs[n:]
	}

	return latest, nil
}

func (c *Client) fetchUpdatesChunk(ctx context.Context, deckIDs []string, latest map[string]string) error {
	req := struct {
		DeckIDs []string `json:"deck_ids"`
	}{DeckIDs: deckIDs}

	var body struct {
		Success bool          `json:"success"`
		Error   string        `json:"error"`
		Decks   []deckPayload `json:"decks"`
	}

	if err := c.call(ctx, http.MethodPost, endpointCheckUpdates, req, &body); err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("%w: %s", common.ErrProtocol, body.Error)
	}

	for _, d := range body.Decks {
		if d.deckID() == "" || d.CurrentVersion == "" {
			continue
		}
		latest[d.deckID()] = d.CurrentVersion
	}

	return nil
}

// FetchPayload downloads the deck payload for one id at one version. The
// catalog hands back a short-lived signed URL which is fetched in turn.
// Passing an empty version requests the latest one; the version actually
// served is returned alongside the bytes.
func (c *Client) FetchPayload(ctx context.Context, deckID, version string) ([]byte, string, error) {
	req := struct {
		DeckID  string `json:"deck_id"`
		Version string `json:"version,omitempty"`
	}{DeckID: deckID, Version: version}

	var body struct {
		Success     bool   `json:"success"`
		Error       string `json:"error"`
		DownloadURL string `json:"download_url"`
		Version     string `json:"version"`
	}

	if err := c.call(ctx, http.MethodPost, endpointDownloadDeck, req, &body); err != nil {
		return nil, "", err
	}
	if !body.Success || body.DownloadURL == "" {
		return nil, "", fmt.Errorf("%w: no download url for deck %s: %s", common.ErrNotFound, deckID, body.Error)
	}

	data, err := c.fetchURL(ctx, body.DownloadURL)
	if err != nil {
		return nil, "", err
	}

	served := body.Version
	if served == "" {
		served = version
	}

	return data, served, nil
}

// FetchChangelog returns the published revisions of a deck, newest first.
func (c *Client) FetchChangelog(ctx context.Context, deckID string) ([]entity.ChangelogEntry, error) {
	req := struct {
		DeckID string `json:"deck_id"`
	}{DeckID: deckID}

	var body struct {
		Success   bool   `json:"success"`
		Error     string `json:"error"`
		Changelog []struct {
			Version     string `json:"version"`
			Notes       string `json:"notes"`
			PublishedAt string `json:"published_at"`
		} `json:"changelog"`
	}

	if err := c.call(ctx, http.MethodPost, endpointChangelog, req, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, fmt.Errorf("%w: %s", common.ErrProtocol, body.Error)
	}

	entries := make([]entity.ChangelogEntry, 0, len(body.Changelog))
	for _, e := range body.Changelog {
		entries = append(entries, entity.ChangelogEntry{
			Version:     e.Version,
			Notes:       e.Notes,
			PublishedAt: parseTime(e.PublishedAt),
		})
	}

	return entries, nil
}

// FetchNotifications returns unread publisher notifications together with
// the server-side unread count.
func (c *Client) FetchNotifications(ctx context.Context, limit int, markRead bool) ([]entity.Notification, int, error) {
	req := struct {
		MarkAsRead bool `json:"mark_as_read"`
		Limit      int  `json:"limit"`
	}{MarkAsRead: markRead, Limit: limit}

	var body struct {
		Success       bool   `json:"success"`
		Error         string `json:"error"`
		UnreadCount   int    `json:"unread_count"`
		Notifications []struct {
			ID        string `json:"id"`
			Type      string `json:"type"`
			Title     string `json:"title"`
			Message   string `json:"message"`
			CreatedAt string `json:"created_at"`
			Read      bool   `json:"read"`
		} `json:"notifications"`
	}

	if err := c.call(ctx, http.MethodPost, endpointNotifications, req, &body); err != nil {
		return nil, 0, err
	}
	if !body.Success {
		return nil, 0, fmt.Errorf("%w: %s", common.ErrProtocol, body.Error)
	}

	notifications := make([]entity.Notification, 0, len(body.Notifications))
	for _, n := range body.Notifications {
		notifications = append(notifications, entity.Notification{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			CreatedAt: parseTime(n.CreatedAt),
			Read:      n.Read,
		})
	}

	return notifications, body.UnreadCount, nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	auth, err := c.bearer()
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("cannot encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("cannot build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s %s", common.ErrCancelled, method, endpoint)
		}

		return fmt.Errorf("%w: %s %s: %v", common.ErrNetwork, method, endpoint, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp, endpoint); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrProtocol, endpoint, err)
	}

	return nil
}

func (c *Client) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build request: %w", err)
	}

	resp, err := c.dlClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: payload fetch", common.ErrCancelled)
		}

		return nil, fmt.Errorf("%w: payload fetch: %v", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp, "payload"); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: payload read: %v", common.ErrNetwork, err)
	}

	return data, nil
}

func classifyStatus(resp *http.Response, endpoint string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d", common.ErrAuth, endpoint, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s returned %d", common.ErrNotFound, endpoint, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned %d", common.ErrNetwork, endpoint, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: %s returned %d", common.ErrProtocol, endpoint, resp.StatusCode)
	}

	return nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}

	return time.Time{}
}
