package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/elmoadorjr/AnkiPH/internal/adapter/catalog"
	"github.com/elmoadorjr/AnkiPH/internal/adapter/mdadapter"
	"github.com/elmoadorjr/AnkiPH/internal/collection"
	"github.com/elmoadorjr/AnkiPH/internal/config"
	"github.com/elmoadorjr/AnkiPH/internal/entity"
	"github.com/elmoadorjr/AnkiPH/internal/repository/state"
	"github.com/elmoadorjr/AnkiPH/internal/service/changelog"
	"github.com/elmoadorjr/AnkiPH/internal/service/checker"
	"github.com/elmoadorjr/AnkiPH/internal/service/notice"
	"github.com/elmoadorjr/AnkiPH/internal/service/syncer"
	"github.com/spf13/afero"
)

type stateStore interface {
	Snapshot() *entity.SyncState
	InstalledIDs() []string
}

type changelogService interface {
	Get(ctx context.Context, deckID string) ([]changelog.Entry, error)
}

type noticeService interface {
	Check(ctx context.Context, force, markRead bool) ([]entity.Notification, error)
}

// App wires the sync core together for the CLI commands.
type App struct {
	cfg       *config.Config
	log       *slog.Logger
	client    *catalog.Client
	store     stateStore
	coll      *collection.Collection
	checker   *checker.UpdateChecker
	syncer    *syncer.Syncer
	changelog changelogService
	notice    noticeService
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.SyncConfig.CollectionFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create profile dir: %w", err)
		}
	}

	client := catalog.NewClient(&cfg.CatalogConfig, log)
	repo := state.NewStateRepository(afero.NewOsFs(), cfg.SyncConfig.StateFile, log)

	coll, err := collection.Open(cfg.SyncConfig.CollectionFile)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		client:    client,
		store:     repo,
		coll:      coll,
		checker:   checker.NewUpdateChecker(client, repo, log),
		syncer:    syncer.NewSyncer(client, coll, repo, cfg.SyncConfig.MaxBatchSize, log),
		changelog: changelog.NewChangelogService(client, mdadapter.NewRenderer(), log),
		notice:    notice.NewNoticeService(client, repo, cfg.SyncConfig.NotifyInterval, log),
	}, nil
}

func (a *App) Close() error {
	return a.coll.Close()
}

func newLogger(level string) *slog.Logger {
	lo := &slog.HandlerOptions{}
	switch level {
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	default:
		lo.Level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, lo))
}
