package notice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/entity"
)

const (
	serviceName  = "notice"
	defaultLimit = 10
)

type CatalogClient interface {
	FetchNotifications(ctx context.Context, limit int, markRead bool) ([]entity.Notification, int, error)
}

type StateRepository interface {
	ShouldCheckNotifications(interval time.Duration, now time.Time) bool
	SetNotificationStatus(checkedAt time.Time, unread int) error
}

// noticeService polls publisher notifications on an interval gate persisted
// in the sync state, mirroring the deck update checker on a smaller scale.
type noticeService struct {
	client   CatalogClient
	repo     StateRepository
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewNoticeService(client CatalogClient, repo StateRepository, interval time.Duration, log *slog.Logger) *noticeService {
	return &noticeService{
		client:   client,
		repo:     repo,
		interval: interval,
		log:      log.With(slog.String("service", serviceName)),
		now:      time.Now,
	}
}

// Check fetches unread notifications if the poll interval has elapsed, or
// unconditionally when force is set. A nil slice with no error means the
// gate suppressed the call.
func (n *noticeService) Check(ctx context.Context, force, markRead bool) ([]entity.Notification, error) {
	now := n.now()
	if !force && !n.repo.ShouldCheckNotifications(n.interval, now) {
		return nil, nil
	}

	notifications, unread, err := n.client.FetchNotifications(ctx, defaultLimit, markRead)
	if err != nil {
		n.log.Error("Cannot fetch notifications", slog.Any("error", err))

		return nil, fmt.Errorf("cannot fetch notifications: %w", err)
	}

	if err := n.repo.SetNotificationStatus(now, unread); err != nil {
		n.log.Error("Cannot persist notification status", slog.Any("error", err))
	}

	n.log.Info("Notifications checked", slog.Int("count", len(notifications)), slog.Int("unread", unread))

	return notifications, nil
}
