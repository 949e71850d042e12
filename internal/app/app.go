// Package app wires configuration, session, gateway, store and engine into
// one running dashboard session.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"opsdeck/internal/bootstrap"
	"opsdeck/internal/cache"
	"opsdeck/internal/config"
	"opsdeck/internal/engine"
	"opsdeck/internal/events"
	"opsdeck/internal/identity"
	"opsdeck/internal/remote"
	"opsdeck/internal/store"
	"opsdeck/internal/view"
)

type Options struct {
	Workspace string
	Config    *config.Config
	Logger    *zap.Logger
	// Token is a previously persisted access token, if any.
	Token        string
	ForceOffline bool
	// NoCache disables the on-disk snapshot cache.
	NoCache bool
}

// App is one operator session. The Store and Router outlive Reload; the
// Engine is rebuilt on every Reload because offline mode is fixed per load.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Session  *identity.Manager
	Identity *identity.Client
	Store    *store.Store
	Router   *view.Router
	Cache    *cache.Cache

	client       *remote.Client
	forceOffline bool

	mu     sync.RWMutex
	engine *engine.Engine
	boot   bootstrap.Result
}

// Open builds the session and performs the initial load.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOptional(opts.Workspace); err != nil {
			return nil, err
		}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		Config:       cfg,
		Log:          log,
		Session:      identity.NewManager(),
		Store:        store.New(),
		Router:       view.New(),
		forceOffline: opts.ForceOffline,
	}
	if !opts.NoCache {
		c, err := cache.Open(ctx, opts.Workspace)
		if err != nil {
			log.Warn("snapshot cache unavailable", zap.Error(err))
		} else {
			a.Cache = c
		}
	}
	if cfg.Identity.URL != "" {
		a.Identity = identity.NewClient(cfg.Identity.URL, cfg.Remote.AnonKey)
	}
	if opts.Token != "" {
		s, err := identity.SessionFromToken(opts.Token)
		if err != nil {
			log.Warn("ignoring stored token", zap.Error(err))
		} else {
			a.Session.Set(s)
		}
	}
	if cfg.Online() {
		a.client = remote.New(cfg.Remote.BaseURL, cfg.Remote.AnonKey, a.Session.Token)
	}
	if err := a.Reload(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

// Reload bootstraps the store again and replaces the engine. In-flight calls
// of the old engine are waited for first.
func (a *App) Reload(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine != nil {
		if err := a.shutdownEngineLocked(ctx); err != nil {
			return err
		}
	}

	var reader remote.Reader
	if a.client != nil {
		reader = a.client
	}
	res, err := bootstrap.Load(ctx, reader, bootstrap.Options{
		Cache:        a.snapshotCache(),
		Logger:       a.Log,
		ForceOffline: a.forceOffline,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	a.Store.Replace(res.Snapshot)

	var gw remote.Gateway
	if !res.Offline && a.client != nil {
		gw = a.client
	}
	a.engine = engine.New(a.Store, gw, engine.Options{
		Logger:      a.Log.Named("engine"),
		Offline:     res.Offline,
		SettleDelay: a.Config.Engine.SettleDelay,
		ThreadID:    a.storedThreadID(ctx),
		Activity: events.Writer{
			ActorName:  a.Config.Operator.Name,
			ActorEmoji: a.Config.Operator.Emoji,
		},
	})
	a.boot = res
	a.Log.Info("session loaded", zap.String("source", string(res.Source)), zap.Bool("offline", res.Offline))
	return nil
}

// Engine returns the engine for the current load.
func (a *App) Engine() *engine.Engine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine
}

// Boot returns the result of the last load.
func (a *App) Boot() bootstrap.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.boot
}

func (a *App) Offline() bool {
	return a.Boot().Offline
}

// Close waits for in-flight remote calls, persists the chat thread and
// releases the cache.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	var err error
	if a.engine != nil {
		err = a.shutdownEngineLocked(ctx)
		a.engine = nil
	}
	a.mu.Unlock()
	return errors.Join(err, a.closeResources())
}

func (a *App) shutdownEngineLocked(ctx context.Context) error {
	if err := a.engine.Close(ctx); err != nil {
		return err
	}
	if id := a.engine.ThreadID(); id != "" && a.Cache != nil {
		if err := a.Cache.SetSetting(ctx, cache.SettingThreadID, id); err != nil {
			a.Log.Warn("persist chat thread failed", zap.Error(err))
		}
	}
	return nil
}

func (a *App) closeResources() error {
	a.Session.Close()
	if a.Cache != nil {
		return a.Cache.Close()
	}
	return nil
}

func (a *App) storedThreadID(ctx context.Context) string {
	if a.Cache == nil {
		return ""
	}
	v, _, err := a.Cache.Setting(ctx, cache.SettingThreadID)
	if err != nil {
		a.Log.Warn("read chat thread failed", zap.Error(err))
	}
	return v
}

func (a *App) snapshotCache() bootstrap.SnapshotCache {
	if a.Cache == nil {
		return nil
	}
	return a.Cache
}
