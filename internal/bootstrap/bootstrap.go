// Package bootstrap performs the initial load of the entity store.
package bootstrap

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"opsdeck/internal/cache"
	"opsdeck/internal/domain"
	"opsdeck/internal/mapper"
	"opsdeck/internal/mock"
	"opsdeck/internal/remote"
)

type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceMock   Source = "mock"
)

// SnapshotCache is the subset of *cache.Cache used here.
type SnapshotCache interface {
	Load(ctx context.Context) (cache.Entry, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

type Options struct {
	Cache  SnapshotCache
	Logger *zap.Logger
	Now    func() time.Time
	// ForceOffline skips the remote fetch entirely.
	ForceOffline bool
}

type Result struct {
	Snapshot domain.Snapshot
	// Offline is fixed for the rest of the session.
	Offline bool
	Source  Source
	// SavedAt is when a cached snapshot was written; zero otherwise.
	SavedAt time.Time
}

// Load fetches the dashboard snapshot and the feature requests in parallel.
// A failed snapshot fetch puts the session offline and falls back to the
// cache, then to the mock dataset. A failed idea fetch alone only leaves
// the idea list empty.
func Load(ctx context.Context, gw remote.Reader, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}

	if opts.ForceOffline || gw == nil {
		return fallback(ctx, opts.Cache, log), nil
	}

	var (
		dash             remote.DashboardSnapshot
		ideas            []remote.FeatureRequestRecord
		dashErr, ideaErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		dash, dashErr = gw.FetchDashboard(ctx)
		return nil
	})
	g.Go(func() error {
		ideas, ideaErr = gw.FetchFeatureRequests(ctx, "")
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if dashErr != nil {
		log.Warn("dashboard fetch failed; running offline", zap.Error(dashErr))
		return fallback(ctx, opts.Cache, log), nil
	}
	if ideaErr != nil {
		log.Warn("feature request fetch failed", zap.Error(ideaErr))
		ideas = nil
	}

	snap := mapper.MapSnapshot(dash, ideas, now)
	if opts.Cache != nil {
		if err := opts.Cache.Save(ctx, snap); err != nil {
			log.Warn("snapshot cache write failed", zap.Error(err))
		}
	}
	log.Debug("bootstrap loaded",
		zap.Int("agents", len(snap.Agents)),
		zap.Int("tasks", len(snap.Tasks)),
		zap.Int("ideas", len(snap.Ideas)))
	return Result{Snapshot: snap, Source: SourceRemote}, nil
}

func fallback(ctx context.Context, c SnapshotCache, log *zap.Logger) Result {
	if c != nil {
		entry, err := c.Load(ctx)
		switch {
		case err == nil:
			return Result{Snapshot: entry.Snapshot, Offline: true, Source: SourceCache, SavedAt: entry.SavedAt}
		case !errors.Is(err, cache.ErrMiss):
			log.Warn("snapshot cache read failed", zap.Error(err))
		}
	}
	return Result{Snapshot: mock.Snapshot(), Offline: true, Source: SourceMock}
}
