package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/common"
	"github.com/elmoadorjr/AnkiPH/internal/config"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.CatalogConfig{
		APIURL:          baseURL,
		Token:           "test-token",
		RequestTimeout:  5 * time.Second,
		DownloadTimeout: 5 * time.Second,
	}

	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchUpdates(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, endpointCheckUpdates, r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req struct {
			DeckIDs []string `json:"deck_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.ElementsMatch(t, []string{"a", "b", "ghost"}, req.DeckIDs)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"decks": []map[string]string{
				{"deck_id": "a", "current_version": "2"},
				{"deck_id": "b", "current_version": "1"},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	latest, err := c.FetchUpdates(context.Background(), []string{"a", "b", "ghost"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "2", "b": "1"}, latest)
	require.EqualValues(t, 1, calls.Load())
}

func TestFetchUpdatesEmptySetSkipsNetwork(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	latest, err := c.FetchUpdates(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, latest)
	require.EqualValues(t, 0, calls.Load())
}

func TestFetchUpdatesChunksLargeLookups(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req struct {
			DeckIDs []string `json:"deck_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.LessOrEqual(t, len(req.DeckIDs), maxLookupIDs)

		decks := make([]map[string]string, 0, len(req.DeckIDs))
		for _, id := range req.DeckIDs {
			decks = append(decks, map[string]string{"deck_id": id, "current_version": "2"})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "decks": decks})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	ids := make([]string, 25)
	for i := range ids {
		ids[i] = fmt.Sprintf("deck-%02d", i)
	}

	latest, err := c.FetchUpdates(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, latest, 25)
	require.EqualValues(t, 3, calls.Load())
}

func TestCallErrorKinds(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
		kind    error
	}{
		{
			name:    "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			kind:    common.ErrAuth,
		},
		{
			name:    "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			kind:    common.ErrAuth,
		},
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			kind:    common.ErrNotFound,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			kind:    common.ErrNetwork,
		},
		{
			name:    "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnprocessableEntity) },
			kind:    common.ErrProtocol,
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "not json") },
			kind:    common.ErrProtocol,
		},
		{
			name: "success false",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "nope"})
			},
			kind: common.ErrProtocol,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := newTestClient(srv.URL)

			_, err := c.FetchUpdates(context.Background(), []string{"a"})
			require.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestCallWithoutToken(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetToken("")

	_, err := c.FetchUpdates(context.Background(), []string{"a"})
	require.ErrorIs(t, err, common.ErrNotLoggedIn)
	require.EqualValues(t, 0, calls.Load())
}

func TestCallUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(srv.URL)

	_, err := c.FetchUpdates(context.Background(), []string{"a"})
	require.ErrorIs(t, err, common.ErrNetwork)
}

func TestCallCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can notice the client disconnect;
		// with an unread HTTP/1.1 body the request context never fires.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.FetchUpdates(ctx, []string{"a"})
	require.ErrorIs(t, err, common.ErrCancelled)
}

func TestFetchPayloadTwoStep(t *testing.T) {
	payload := []byte("deck bytes")

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc(endpointDownloadDeck, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DeckID  string `json:"deck_id"`
			Version string `json:"version"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "core-2000", req.DeckID)
		require.Equal(t, "3", req.Version)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":      true,
			"download_url": srv.URL + "/signed/core-2000",
			"version":      "3",
		})
	})
	mux.HandleFunc("/signed/core-2000", func(w http.ResponseWriter, r *http.Request) {
		// The signed URL is fetched without the bearer credential.
		require.Empty(t, r.Header.Get("Authorization"))
		w.Write(payload)
	})

	c := newTestClient(srv.URL)

	data, served, err := c.FetchPayload(context.Background(), "core-2000", "3")
	require.NoError(t, err)
	require.Equal(t, payload, data)
	require.Equal(t, "3", served)
}

func TestFetchPayloadMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, _, err := c.FetchPayload(context.Background(), "core-2000", "")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFetchCatalogSkipsEntriesWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, endpointPurchases, r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"decks": []map[string]string{
				{"deck_id": "a", "title": "Alpha", "current_version": "2", "updated_at": "2024-03-01T10:00:00Z"},
				{"id": "b", "title": "Beta", "current_version": "1"},
				{"title": "orphan"},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	decks, err := c.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, decks, 2)
	require.Equal(t, "a", decks[0].ID)
	require.Equal(t, "2", decks[0].LatestVersion)
	require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), decks[0].UpdatedAt)
	require.Equal(t, "b", decks[1].ID)
}

func TestFetchNotifications(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, endpointNotifications, r.URL.Path)

		var req struct {
			MarkAsRead bool `json:"mark_as_read"`
			Limit      int  `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.MarkAsRead)
		require.Equal(t, 10, req.Limit)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":      true,
			"unread_count": 2,
			"notifications": []map[string]interface{}{
				{"id": "n1", "type": "deck_update", "title": "New version", "message": "v3 is out"},
				{"id": "n2", "type": "announcement", "title": "Hello", "message": "hi", "read": true},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	notifications, unread, err := c.FetchNotifications(context.Background(), 10, true)
	require.NoError(t, err)
	require.Equal(t, 2, unread)
	require.Len(t, notifications, 2)
	require.Equal(t, "n1", notifications[0].ID)
	require.False(t, notifications[0].Read)
	require.True(t, notifications[1].Read)
}
