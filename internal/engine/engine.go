// Package engine applies operator mutations to the entity store.
//
// Every mutation runs in two phases. The local phase validates input, commits
// the optimistic result to the store and prepends an activity entry, all
// inside one store update. The remote phase mirrors the write to the remote
// gateway on a background goroutine. A successful create renames the
// temporary id to the remote one; a failure is logged and the optimistic
// state stands.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opsdeck/internal/domain"
	"opsdeck/internal/events"
	"opsdeck/internal/remote"
	"opsdeck/internal/store"
)

// TempPrefix marks locally generated ids. Remote ids never carry it.
const TempPrefix = "tmp-"

// DefaultSettleDelay is how long a locally spawned agent stays in spawning.
const DefaultSettleDelay = 2 * time.Second

var (
	// ErrRejected reports a precondition failure. Nothing was changed.
	ErrRejected = errors.New("rejected")
	// ErrNotFound reports a mutation against an id that is not in the store.
	ErrNotFound = errors.New("not found")
	// ErrClosed reports a mutation against an engine that has been closed.
	ErrClosed = errors.New("engine closed")
)

// IsTemp reports whether id is a locally generated temporary id.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
	NewID  func() string
	// Offline skips the remote phase for the whole session.
	Offline     bool
	SettleDelay time.Duration
	// ThreadID resumes a chat thread from an earlier session.
	ThreadID string
	// Activity labels the entries this engine writes.
	Activity events.Writer
}

type Engine struct {
	Store    *store.Store
	Remote   remote.Gateway
	Activity events.Writer
	Log      *zap.Logger
	Now      func() time.Time
	Offline  bool

	settleDelay time.Duration
	newID       func() string

	done    chan struct{}
	mu      sync.Mutex
	pending map[string]chan struct{}

	// bgMu guards the count of admitted mutations and background calls.
	// idle is closed whenever inflight is zero.
	bgMu     sync.Mutex
	inflight int
	idle     chan struct{}
	closed   bool

	// sendMu serializes chat turns; threadMu only guards threadID.
	sendMu   sync.Mutex
	threadMu sync.Mutex
	threadID string
}

func New(st *store.Store, gw remote.Gateway, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Activity.NewID == nil {
		opts.Activity.NewID = opts.NewID
	}
	if gw == nil {
		gw = remote.Offline{}
		opts.Offline = true
	}
	idle := make(chan struct{})
	close(idle)
	return &Engine{
		Store:       st,
		Remote:      gw,
		Activity:    opts.Activity,
		Log:         opts.Logger,
		Now:         opts.Now,
		Offline:     opts.Offline,
		settleDelay: opts.SettleDelay,
		newID:       opts.NewID,
		done:        make(chan struct{}),
		idle:        idle,
		pending:     map[string]chan struct{}{},
		threadID:    opts.ThreadID,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e *Engine) tempID() string {
	return TempPrefix + e.newID()
}

// ThreadID returns the chat thread established by the first remote reply.
// It never waits for a chat call in flight.
func (e *Engine) ThreadID() string {
	e.threadMu.Lock()
	defer e.threadMu.Unlock()
	return e.threadID
}

func (e *Engine) setThreadID(id string) {
	e.threadMu.Lock()
	defer e.threadMu.Unlock()
	if e.threadID == "" {
		e.threadID = id
	}
}

// Wait blocks until no mutation or background call is in flight.
func (e *Engine) Wait(ctx context.Context) error {
	e.bgMu.Lock()
	idle := e.idle
	e.bgMu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close refuses new mutations, stops pending settle timers and waits for
// in-flight calls.
func (e *Engine) Close(ctx context.Context) error {
	e.bgMu.Lock()
	if !e.closed {
		e.closed = true
		close(e.done)
	}
	e.bgMu.Unlock()
	return e.Wait(ctx)
}

// admit registers one public mutation. Every admit must be paired with
// leave; Close waits for admitted mutations and the calls they start.
func (e *Engine) admit() error {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.addLocked()
	return nil
}

func (e *Engine) addLocked() {
	if e.inflight == 0 {
		e.idle = make(chan struct{})
	}
	e.inflight++
}

func (e *Engine) leave() {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	e.inflight--
	if e.inflight == 0 {
		close(e.idle)
	}
}

// background runs fn on its own goroutine. Callers hold an admission, so
// the engine cannot finish closing before fn is counted.
func (e *Engine) background(fn func()) {
	e.bgMu.Lock()
	e.addLocked()
	e.bgMu.Unlock()
	go func() {
		defer e.leave()
		fn()
	}()
}

func rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

func notFound(kind store.Kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// track registers a create whose temporary id is awaiting reconciliation.
// Must be called before the background call is started so later mutations
// see it.
func (e *Engine) track(tempID string) chan struct{} {
	ch := make(chan struct{})
	e.mu.Lock()
	e.pending[tempID] = ch
	e.mu.Unlock()
	return ch
}

func (e *Engine) untrack(tempID string, ch chan struct{}) {
	e.mu.Lock()
	delete(e.pending, tempID)
	e.mu.Unlock()
	close(ch)
}

// awaitID waits for a pending create behind id and returns the remote id.
// ok is false when the entity never received a remote id.
func (e *Engine) awaitID(ctx context.Context, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	for {
		e.mu.Lock()
		ch := e.pending[id]
		e.mu.Unlock()
		if ch == nil {
			break
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return "", false
		}
		id = e.Store.Resolve(id)
	}
	id = e.Store.Resolve(id)
	return id, !IsTemp(id)
}

// awaitRef resolves an id carried inside a payload. Unresolvable temporary
// references are dropped from the payload.
func (e *Engine) awaitRef(ctx context.Context, id string) *string {
	if id == "" {
		return nil
	}
	rid, ok := e.awaitID(ctx, id)
	if !ok {
		return nil
	}
	return &rid
}

func (e *Engine) awaitClearable(ctx context.Context, c domain.Clearable[string]) domain.Clearable[string] {
	if !c.Set || c.Null {
		return c
	}
	rid, ok := e.awaitID(ctx, c.Value)
	if !ok {
		return domain.Clearable[string]{}
	}
	return domain.SetTo(rid)
}

// create runs the remote phase of a create and renames tempID on success.
func (e *Engine) create(ctx context.Context, kind store.Kind, tempID string, call func(ctx context.Context) (remote.Created, error)) {
	if e.Offline {
		return
	}
	ch := e.track(tempID)
	bctx := context.WithoutCancel(ctx)
	e.background(func() {
		defer e.untrack(tempID, ch)
		res, err := call(bctx)
		if err != nil {
			e.Log.Warn("remote create failed", zap.String("entity", string(kind)), zap.String("id", tempID), zap.Error(err))
			return
		}
		if res.ID == "" {
			e.Log.Warn("remote create returned no id", zap.String("entity", string(kind)), zap.String("id", tempID))
			return
		}
		e.Store.RenameID(kind, tempID, res.ID)
		e.Log.Debug("reconciled", zap.String("entity", string(kind)), zap.String("temp_id", tempID), zap.String("id", res.ID))
	})
}

// write runs the remote phase of an update or delete against id. Writes to
// an entity whose create is still in flight wait for it and use the remote
// id.
func (e *Engine) write(ctx context.Context, op string, kind store.Kind, id string, call func(ctx context.Context, id string) error) {
	if e.Offline {
		return
	}
	bctx := context.WithoutCancel(ctx)
	e.background(func() {
		rid, ok := e.awaitID(bctx, id)
		if !ok {
			e.Log.Debug("remote write skipped, entity has no remote id", zap.String("op", op), zap.String("entity", string(kind)), zap.String("id", id))
			return
		}
		if err := call(bctx, rid); err != nil {
			e.Log.Warn("remote write failed", zap.String("op", op), zap.String("entity", string(kind)), zap.String("id", rid), zap.Error(err))
		}
	})
}
