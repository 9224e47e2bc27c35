// Package checker polls the catalog for newer deck versions and maintains
// the available-updates view. Timer and manual triggers share one coalesced
// in-flight check.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/elmoadorjr/AnkiPH/internal/common"
	"github.com/elmoadorjr/AnkiPH/internal/entity"
	"github.com/google/uuid"
)

type State = string

const (
	StateIdle     State = "idle"
	StateChecking State = "checking"
	StateFailed   State = "failed"
)

const subscriberBuffer = 4

type CatalogClient interface {
	FetchUpdates(ctx context.Context, deckIDs []string) (map[string]string, error)
}

type StateRepository interface {
	Snapshot() *entity.SyncState
	InstalledIDs() []string
	RecomputeAvailableUpdates(latest map[string]string) (map[string]string, error)
	SetLastCheck(t time.Time) error
}

// Event is what subscribers receive after every completed check attempt,
// whether it was started by the timer or by a manual trigger. Exactly one of
// Result and Err is set.
type Event struct {
	Result *entity.UpdateCheckResult
	Err    error
}

// Subscriber receives check events until cancelled.
type Subscriber struct {
	ID string
	C  chan Event

	checker *UpdateChecker
}

func (s *Subscriber) Cancel() {
	s.checker.unsubscribe(s.ID)
}

type outcome struct {
	result *entity.UpdateCheckResult
	err    error
}

type UpdateChecker struct {
	client CatalogClient
	repo   StateRepository
	log    *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	state   State
	waiters []chan outcome
	subs    map[string]*Subscriber
}

func NewUpdateChecker(client CatalogClient, repo StateRepository, log *slog.Logger) *UpdateChecker {
	return &UpdateChecker{
		client: client,
		repo:   repo,
		log:    log.With(slog.String("service", "checker")),
		now:    time.Now,
		state:  StateIdle,
		subs:   make(map[string]*Subscriber),
	}
}

// State returns the current checker state.
func (c *UpdateChecker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Subscribe registers a listener for check events.
func (c *UpdateChecker) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:      uuid.NewString(),
		C:       make(chan Event, subscriberBuffer),
		checker: c,
	}

	c.mu.Lock()
	c.subs[sub.ID] = sub
	c.mu.Unlock()

	return sub
}

func (c *UpdateChecker) unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(sub.C)
	}
}

// Check performs one update check. A call that arrives while another check
// is in flight does not start a second network round-trip; it waits for the
// in-flight one and shares its outcome.
func (c *UpdateChecker) Check(ctx context.Context) (*entity.UpdateCheckResult, error) {
	c.mu.Lock()
	if c.state == StateChecking {
		waiter := make(chan outcome, 1)
		c.waiters = append(c.waiters, waiter)
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", common.ErrCancelled, ctx.Err())
		case out := <-waiter:
			return out.result, out.err
		}
	}
	c.state = StateChecking
	c.mu.Unlock()

	out := c.doCheck(ctx)
	c.finish(out)

	return out.result, out.err
}

func (c *UpdateChecker) doCheck(ctx context.Context) outcome {
	ids := c.repo.InstalledIDs()
	if len(ids) == 0 {
		c.log.Info("No installed decks, skipping check")

		return outcome{result: entity.NewUpdateCheckResult(c.now(), nil)}
	}

	latest, err := c.client.FetchUpdates(ctx, ids)
	if err != nil {
		// Stale-but-valid beats cleared-but-wrong: the cached view and
		// the last-check timestamp stay exactly as they were.
		c.log.Error("Update check failed", slog.Any("error", err))

		return outcome{err: fmt.Errorf("cannot check updates: %w", err)}
	}

	checkedAt := c.now()
	updates, err := c.repo.RecomputeAvailableUpdates(latest)
	if err == nil {
		err = c.repo.SetLastCheck(checkedAt)
	}

	result := entity.NewUpdateCheckResult(checkedAt, updates)
	if err != nil {
		// The check itself succeeded; only persistence failed. The result
		// is still valid and in memory, so report both.
		c.log.Error("Cannot persist check result", slog.Any("error", err))

		return outcome{result: result, err: err}
	}

	c.log.Info("Update check done", slog.Int("available", len(result.NewlyAvailable)))

	return outcome{result: result}
}

// finish transitions out of Checking, drains coalesced waiters exactly once
// and publishes the event to subscribers.
func (c *UpdateChecker) finish(out outcome) {
	c.mu.Lock()
	if out.err != nil && out.result == nil {
		c.state = StateFailed
	} else {
		c.state = StateIdle
	}

	waiters := c.waiters
	c.waiters = nil

	subs := make([]*Subscriber, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- out
	}

	event := Event{Result: out.result, Err: out.err}
	for _, sub := range subs {
		select {
		case sub.C <- event:
		default:
			c.log.Warn("Subscriber is not keeping up, dropping event", slog.String("subscriber_id", sub.ID))
		}
	}
}

// Run drives the periodic schedule until ctx is cancelled. A check runs when
// the configured interval has elapsed since the last successful one. Failed
// attempts leave the timestamp alone and simply wait out a full interval
// before trying again; there is no extra backoff.
func (c *UpdateChecker) Run(ctx context.Context) {
	c.log.Info("Scheduler started")

	for {
		st := c.repo.Snapshot()
		interval := st.CheckInterval()

		wait := time.Until(st.LastCheckAt.Add(interval))
		if wait <= 0 {
			if _, err := c.Check(ctx); err != nil {
				c.log.Warn("Scheduled check failed", slog.Any("error", err))
			}

			wait = interval
			if cur := c.repo.Snapshot(); cur.LastCheckAt.After(st.LastCheckAt) {
				wait = time.Until(cur.LastCheckAt.Add(interval))
			}
		}

		select {
		case <-ctx.Done():
			c.log.Info("Scheduler stopped")

			return
		case <-time.After(wait):
		}
	}
}
