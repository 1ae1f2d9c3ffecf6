package resettable

import (
	"sync"
	"sync/atomic"
)

// Mutex is the mutual-exclusion variant of the self-resetting
// workspace. The value is shared across goroutines and every access is
// exclusive; there is no read mode. Releasing the guard returned by
// [Mutex.Lock] or [Mutex.TryLock] runs the reset function before the
// lock is handed to the next acquirer.
//
// A goroutine that already holds a guard and acquires again on the
// same workspace deadlocks; that is a caller responsibility, as with
// [sync.Mutex].
type Mutex[T any] struct {
	mu    sync.Mutex
	value T
	reset func(*T)

	onReset func()

	// poison holds the first PoisonError, or nil while healthy.
	// Kept outside mu so IsPoisoned never contends with holders.
	poison atomic.Pointer[PoisonError]
}

// NewMutex creates a Mutex workspace holding value, with reset as its
// baseline restorer. NewMutex panics if reset is nil.
func NewMutex[T any](value T, reset func(*T), opts ...Option) *Mutex[T] {
	if reset == nil {
		panic("resettable: NewMutex requires a reset function")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	m := &Mutex[T]{
		value:   value,
		reset:   reset,
		onReset: cfg.onReset,
	}
	if cfg.resetOnInit {
		// No sharing yet; exclusive by construction.
		m.runResetLocked()
	}
	return m
}

// runResetLocked invokes the reset function. The value lock must be
// held. A panic escaping the reset function poisons the workspace
// before propagating; the caller is responsible for unlocking on that
// path (guards defer their unlock for exactly this reason).
func (m *Mutex[T]) runResetLocked() {
	defer func() {
		if r := recover(); r != nil {
			m.poison.CompareAndSwap(nil, newPoisonError(r))
			panic(r)
		}
	}()
	m.reset(&m.value)
	if m.onReset != nil {
		m.onReset()
	}
}

// poisonErr returns the current poison indicator as an error, or nil.
func (m *Mutex[T]) poisonErr() error {
	if pe := m.poison.Load(); pe != nil {
		return pe
	}
	return nil
}

// Lock blocks until exclusive access is obtained and returns a
// reset-on-release guard. If the workspace is poisoned, the guard is
// still returned (the value is presumed suspect, not destroyed)
// together with the [*PoisonError]; a caller that does not care about
// poisoning may ignore the error.
func (m *Mutex[T]) Lock() (*MutexGuard[T], error) {
	m.mu.Lock()
	return &MutexGuard[T]{m: m}, m.poisonErr()
}

// TryLock is the non-blocking form of [Mutex.Lock]. It returns
// [ErrWouldBlock] if the lock is held elsewhere. On success under
// poison it behaves like Lock: guard plus [*PoisonError].
func (m *Mutex[T]) TryLock() (*MutexGuard[T], error) {
	if !m.mu.TryLock() {
		return nil, ErrWouldBlock
	}
	return &MutexGuard[T]{m: m}, m.poisonErr()
}

// With acquires the lock, calls fn with exclusive access to the value,
// then resets and releases. It returns the [*PoisonError] if the
// workspace was already poisoned on entry; fn still runs.
//
// If fn panics, the workspace is poisoned, the reset function still
// runs on the unwind path, and the panic resumes after the lock is
// released. Unlike a deferred guard Release, With can tell a panic
// from a normal return, so it is the form to use when poison tracking
// matters.
func (m *Mutex[T]) With(fn func(*T)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			m.poison.CompareAndSwap(nil, newPoisonError(r))
			panic(r)
		}
	}()
	defer m.runResetLocked()
	err := m.poisonErr()
	fn(&m.value)
	return err
}

// Reset acquires the lock, invokes the reset function, and releases.
// If the workspace is poisoned, Reset returns the [*PoisonError]
// without invoking the reset function; call [Mutex.ClearPoison] first
// to assert the value is safe to touch.
func (m *Mutex[T]) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.poisonErr(); err != nil {
		return err
	}
	m.runResetLocked()
	return nil
}

// TryReset is the non-blocking form of [Mutex.Reset]. It returns
// [ErrWouldBlock] if the lock is held elsewhere.
func (m *Mutex[T]) TryReset() error {
	if !m.mu.TryLock() {
		return ErrWouldBlock
	}
	defer m.mu.Unlock()
	if err := m.poisonErr(); err != nil {
		return err
	}
	m.runResetLocked()
	return nil
}

// IsPoisoned reports whether the workspace is poisoned.
func (m *Mutex[T]) IsPoisoned() bool {
	return m.poison.Load() != nil
}

// ClearPoison asserts the value is consistent and suppresses future
// poison indicators.
func (m *Mutex[T]) ClearPoison() {
	m.poison.Store(nil)
}

// IntoInner returns the wrapped value without invoking the reset
// function. The workspace must not be used afterwards. If poisoned,
// the value is still returned, together with the [*PoisonError].
func (m *Mutex[T]) IntoInner() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.poisonErr()
}

// MutexGuard is the exclusive, reset-on-release handle to a [Mutex]
// workspace's value. Exactly one guard exists at a time; releasing it
// runs the reset function and then unlocks, in that order, so the next
// acquirer always observes the baseline state.
type MutexGuard[T any] struct {
	m        *Mutex[T]
	released bool
}

// Value returns a pointer to the exclusively held value. The pointer
// is valid only until Release.
func (g *MutexGuard[T]) Value() *T {
	if g.released {
		panic("resettable: use of MutexGuard after Release")
	}
	return &g.m.value
}

// Reset invokes the reset function now; the guard remains held.
func (g *MutexGuard[T]) Reset() {
	if g.released {
		panic("resettable: use of MutexGuard after Release")
	}
	g.m.runResetLocked()
}

// Release runs the reset function exactly once, then unlocks. Release
// is idempotent and must be called on every path; callers defer it
// immediately after acquiring:
//
//	g, _ := ws.Lock()
//	defer g.Release()
//
// If the reset function panics, the workspace is poisoned and the lock
// is released before the panic propagates.
func (g *MutexGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	defer g.m.mu.Unlock()
	g.m.runResetLocked()
}
