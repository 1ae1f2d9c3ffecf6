package resettable

import (
	"sync"
	"sync/atomic"
)

// RWMutex is the read/write variant of the self-resetting workspace.
// Any number of readers may view the value concurrently, or one writer
// may hold it exclusively. Only write guards reset on release; read
// guards observe the value without side effects.
//
// As with [sync.RWMutex], poisoning applies to the write side only: a
// panic inside a read closure cannot have mutated the value, so it
// does not poison the workspace.
type RWMutex[T any] struct {
	mu    sync.RWMutex
	value T
	reset func(*T)

	onReset func()

	poison atomic.Pointer[PoisonError]
}

// NewRWMutex creates an RWMutex workspace holding value, with reset as
// its baseline restorer. NewRWMutex panics if reset is nil.
func NewRWMutex[T any](value T, reset func(*T), opts ...Option) *RWMutex[T] {
	if reset == nil {
		panic("resettable: NewRWMutex requires a reset function")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	rw := &RWMutex[T]{
		value:   value,
		reset:   reset,
		onReset: cfg.onReset,
	}
	if cfg.resetOnInit {
		rw.runResetLocked()
	}
	return rw
}

// runResetLocked invokes the reset function. The write lock must be
// held. A panic escaping the reset function poisons the workspace
// before propagating.
func (rw *RWMutex[T]) runResetLocked() {
	defer func() {
		if r := recover(); r != nil {
			rw.poison.CompareAndSwap(nil, newPoisonError(r))
			panic(r)
		}
	}()
	rw.reset(&rw.value)
	if rw.onReset != nil {
		rw.onReset()
	}
}

func (rw *RWMutex[T]) poisonErr() error {
	if pe := rw.poison.Load(); pe != nil {
		return pe
	}
	return nil
}

// Read blocks until shared read access is available (only a writer
// blocks it, never other readers) and returns a plain read guard.
// Releasing a read guard never invokes the reset function. Under
// poison the guard is still returned, with the [*PoisonError].
func (rw *RWMutex[T]) Read() (*ReadGuard[T], error) {
	rw.mu.RLock()
	return &ReadGuard[T]{rw: rw}, rw.poisonErr()
}

// TryRead is the non-blocking form of [RWMutex.Read]. It returns
// [ErrWouldBlock] if a writer holds or is acquiring the lock.
func (rw *RWMutex[T]) TryRead() (*ReadGuard[T], error) {
	if !rw.mu.TryRLock() {
		return nil, ErrWouldBlock
	}
	return &ReadGuard[T]{rw: rw}, rw.poisonErr()
}

// Write blocks until exclusive access is obtained and returns a
// reset-on-release guard. Under poison the guard is still returned,
// with the [*PoisonError].
func (rw *RWMutex[T]) Write() (*WriteGuard[T], error) {
	rw.mu.Lock()
	return &WriteGuard[T]{rw: rw}, rw.poisonErr()
}

// TryWrite is the non-blocking form of [RWMutex.Write]. It returns
// [ErrWouldBlock] if any reader or writer holds the lock.
func (rw *RWMutex[T]) TryWrite() (*WriteGuard[T], error) {
	if !rw.mu.TryLock() {
		return nil, ErrWouldBlock
	}
	return &WriteGuard[T]{rw: rw}, rw.poisonErr()
}

// With acquires the write lock, calls fn with exclusive access to the
// value, then resets and releases. Panic handling and poison semantics
// match [Mutex.With].
func (rw *RWMutex[T]) With(fn func(*T)) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			rw.poison.CompareAndSwap(nil, newPoisonError(r))
			panic(r)
		}
	}()
	defer rw.runResetLocked()
	err := rw.poisonErr()
	fn(&rw.value)
	return err
}

// View acquires the read lock, calls fn with shared access to the
// value, and releases. The reset function never runs; fn must not
// mutate the value. A panic in fn does not poison the workspace.
func (rw *RWMutex[T]) View(fn func(*T)) error {
	rw.mu.RLock()
	defer rw.mu.RUnlock()
	err := rw.poisonErr()
	fn(&rw.value)
	return err
}

// Reset acquires the write lock, invokes the reset function, and
// releases. If the workspace is poisoned, Reset returns the
// [*PoisonError] without invoking the reset function.
func (rw *RWMutex[T]) Reset() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if err := rw.poisonErr(); err != nil {
		return err
	}
	rw.runResetLocked()
	return nil
}

// TryReset is the non-blocking form of [RWMutex.Reset]. It returns
// [ErrWouldBlock] if any reader or writer holds the lock.
func (rw *RWMutex[T]) TryReset() error {
	if !rw.mu.TryLock() {
		return ErrWouldBlock
	}
	defer rw.mu.Unlock()
	if err := rw.poisonErr(); err != nil {
		return err
	}
	rw.runResetLocked()
	return nil
}

// IsPoisoned reports whether the workspace is poisoned.
func (rw *RWMutex[T]) IsPoisoned() bool {
	return rw.poison.Load() != nil
}

// ClearPoison asserts the value is consistent and suppresses future
// poison indicators.
func (rw *RWMutex[T]) ClearPoison() {
	rw.poison.Store(nil)
}

// IntoInner returns the wrapped value without invoking the reset
// function. The workspace must not be used afterwards. If poisoned,
// the value is still returned, together with the [*PoisonError].
func (rw *RWMutex[T]) IntoInner() (T, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.value, rw.poisonErr()
}

// ReadGuard is a shared, read-only view of an [RWMutex] workspace's
// value. Any number may be outstanding at once. Releasing one has no
// side effect beyond unlocking the read slot.
type ReadGuard[T any] struct {
	rw       *RWMutex[T]
	released bool
}

// Value returns a pointer to the shared value. The pointee must not be
// written through a ReadGuard. The pointer is valid only until
// Release.
func (g *ReadGuard[T]) Value() *T {
	if g.released {
		panic("resettable: use of ReadGuard after Release")
	}
	return &g.rw.value
}

// Release ends the read access. Release is idempotent.
func (g *ReadGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.rw.mu.RUnlock()
}

// WriteGuard is the exclusive, reset-on-release handle to an [RWMutex]
// workspace's value. Releasing it runs the reset function and then
// unlocks, in that order, so every subsequent reader or writer
// observes the baseline state.
type WriteGuard[T any] struct {
	rw       *RWMutex[T]
	released bool
}

// Value returns a pointer to the exclusively held value. The pointer
// is valid only until Release.
func (g *WriteGuard[T]) Value() *T {
	if g.released {
		panic("resettable: use of WriteGuard after Release")
	}
	return &g.rw.value
}

// Reset invokes the reset function now; the guard remains held.
func (g *WriteGuard[T]) Reset() {
	if g.released {
		panic("resettable: use of WriteGuard after Release")
	}
	g.rw.runResetLocked()
}

// Release runs the reset function exactly once, then unlocks. Release
// is idempotent; callers defer it immediately after acquiring. If the
// reset function panics, the workspace is poisoned and the lock is
// released before the panic propagates.
func (g *WriteGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	defer g.rw.mu.Unlock()
	g.rw.runResetLocked()
}
