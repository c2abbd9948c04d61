package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/and161185/feedlog/internal/config"
	"github.com/and161185/feedlog/internal/metrics"
	"github.com/and161185/feedlog/internal/migrate"
	"github.com/and161185/feedlog/internal/persist"
	"github.com/and161185/feedlog/internal/service"
	"github.com/and161185/feedlog/internal/storage"
	"github.com/and161185/feedlog/internal/storage/postgres"
	"github.com/and161185/feedlog/internal/storage/redisstore"
	"github.com/and161185/feedlog/internal/storage/sqlite"
	"github.com/and161185/feedlog/internal/store"
)

// app is one hydrated session over the configured backend.
type app struct {
	cfg       config.Config
	log       *zap.Logger
	metrics   *metrics.Metrics
	store     *store.Store
	tracker   *service.TrackerImpl
	persister *persist.Persister
	stop      context.CancelFunc
	closers   []func() error
}

func openApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	m := metrics.New()
	backend, closers, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}

	st := store.New(
		store.WithValidation(cfg.Strict),
		store.WithLogger(log),
		store.WithRecorder(m),
	)
	res := persist.Hydrate(ctx, backend, cfg.Key, st, log)
	m.ObserveHydrate(res.String())
	log.Info("hydrated", zap.String("backend", cfg.Backend), zap.Stringer("result", res))

	p := persist.NewPersister(backend, cfg.Key, log, persist.Options{Recorder: m})
	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	go p.Run(runCtx)
	if res == persist.ReadFailed {
		log.Warn("storage unreadable, changes will not be saved", zap.String("backend", cfg.Backend))
	} else {
		st.Subscribe(p.Observe)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		store:     st,
		tracker:   service.NewTracker(st),
		persister: p,
		stop:      stop,
		closers:   closers,
	}, nil
}

// openStorage builds the backend chain: store, then breaker for remote
// backends, then encryption when a passphrase is set.
func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.Storage, []func() error, error) {
	var (
		st      storage.Storage
		closers []func() error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		st = storage.NewMemory()
	case config.BackendFile:
		st = storage.NewFile(cfg.Dir)
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o700); err != nil {
			return nil, nil, err
		}
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		st, closers = s, append(closers, s.Close)
	case config.BackendPostgres:
		if err := migrate.UpDSN(ctx, cfg.DSN); err != nil {
			return nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		st = postgres.NewStore(db)
		closers = append(closers, func() error { db.Close(); return nil })
	case config.BackendRedis:
		s, client, err := redisstore.Dial(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "feedlog:",
		})
		if err != nil {
			return nil, nil, err
		}
		st, closers = s, append(closers, client.Close)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if cfg.Remote() {
		st = storage.NewBreaker(cfg.Backend, st, storage.BreakerSettings{}, log)
	}
	if cfg.Passphrase != "" {
		st = storage.NewEncrypted(st, cfg.Passphrase)
	}
	return st, closers, nil
}

// close waits for the last snapshot to be written, then releases resources.
func (a *app) close(ctx context.Context) error {
	var errList []error
	if err := a.persister.Flush(ctx); err != nil {
		errList = append(errList, fmt.Errorf("flush: %w", err))
	}
	a.stop()
	<-a.persister.Done()
	for _, c := range a.closers {
		if err := c(); err != nil {
			errList = append(errList, err)
		}
	}
	if a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.Warn("write metrics textfile", zap.String("path", a.cfg.MetricsFile), zap.Error(err))
		}
	}
	return errors.Join(errList...)
}
