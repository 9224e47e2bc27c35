package notice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/common"
	"github.com/elmoadorjr/AnkiPH/internal/entity"
	"github.com/elmoadorjr/AnkiPH/internal/repository/state"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	notifications []entity.Notification
	unread        int
	err           error
	calls         int
	lastMarkRead  bool
}

func (f *fakeCatalog) FetchNotifications(ctx context.Context, limit int, markRead bool) ([]entity.Notification, int, error) {
	f.calls++
	f.lastMarkRead = markRead
	if f.err != nil {
		return nil, 0, f.err
	}

	return f.notifications, f.unread, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, catalog *fakeCatalog) (*noticeService, StateRepository) {
	t.Helper()
	repo := state.NewStateRepository(afero.NewMemMapFs(), "/profile/state.json", testLogger())

	svc := NewNoticeService(catalog, repo, 15*time.Minute, testLogger())

	return svc, repo
}

func TestCheckFreshStateFetches(t *testing.T) {
	catalog := &fakeCatalog{
		notifications: []entity.Notification{{ID: "n1", Title: "Hello"}},
		unread:        1,
	}
	svc, repo := newTestService(t, catalog)

	got, err := svc.Check(context.Background(), false, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, catalog.calls)
	require.False(t, catalog.lastMarkRead)

	require.False(t, repo.ShouldCheckNotifications(15*time.Minute, time.Now()))
}

func TestCheckGateSuppressesRepeat(t *testing.T) {
	catalog := &fakeCatalog{unread: 0}
	svc, _ := newTestService(t, catalog)

	_, err := svc.Check(context.Background(), false, false)
	require.NoError(t, err)

	got, err := svc.Check(context.Background(), false, false)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, 1, catalog.calls)
}

func TestCheckForceBypassesGate(t *testing.T) {
	catalog := &fakeCatalog{unread: 3}
	svc, _ := newTestService(t, catalog)

	_, err := svc.Check(context.Background(), false, false)
	require.NoError(t, err)

	_, err = svc.Check(context.Background(), true, true)
	require.NoError(t, err)
	require.Equal(t, 2, catalog.calls)
	require.True(t, catalog.lastMarkRead)
}

func TestCheckGateReopensAfterInterval(t *testing.T) {
	catalog := &fakeCatalog{}
	svc, _ := newTestService(t, catalog)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.Check(context.Background(), false, false)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(16 * time.Minute) }

	_, err = svc.Check(context.Background(), false, false)
	require.NoError(t, err)
	require.Equal(t, 2, catalog.calls)
}

func TestCheckFetchError(t *testing.T) {
	catalog := &fakeCatalog{err: fmt.Errorf("call: %w", common.ErrNetwork)}
	svc, repo := newTestService(t, catalog)

	_, err := svc.Check(context.Background(), false, false)
	require.ErrorIs(t, err, common.ErrNetwork)

	// A failed fetch does not close the gate.
	require.True(t, repo.ShouldCheckNotifications(15*time.Minute, time.Now()))
}
