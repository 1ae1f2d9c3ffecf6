// Package resettable provides self-resetting scoped values.
//
// A workspace pairs a value of type T with a caller-supplied reset
// function. Exclusive access to the value is handed out as a guard;
// releasing the guard runs the reset function on the value before any
// other party can acquire or observe it. Code can freely mutate the
// value as scratch space inside the guard's scope, and by construction
// no mutation ever escapes: the next borrower always sees the baseline
// state the reset function restores.
//
// Three variants implement the same contract over three concurrency
// disciplines. They are independent; pick exactly one per protected
// value:
//
//   - [Cell]: single-goroutine use. No locking; illegal aliasing
//     (a write borrow overlapping any other borrow) is caught at
//     runtime. Supports ownership-transfer operations ([Cell.Replace],
//     [Cell.ReplaceWith], [Cell.Swap], [Cell.IntoInner]) that bypass
//     the reset contract deliberately.
//   - [Mutex]: goroutine-safe, every access exclusive. [Mutex.Lock]
//     blocks; [Mutex.TryLock] fails fast with [ErrWouldBlock].
//   - [RWMutex]: goroutine-safe with shared readers. Read guards never
//     reset; write guards do.
//
// # Releasing guards
//
// Go has no destructors, so every guard exposes an explicit, idempotent
// Release method that callers defer:
//
//	g, _ := ws.Lock()
//	defer g.Release()
//	copy(*g.Value(), scratch)
//
// A deferred Release still runs if the surrounding function panics, so
// the reset function still executes on the unwind path.
//
// # Poisoning
//
// The shared variants track a poison flag: if the reset function
// panics while the library invokes it, or if the body passed to
// [Mutex.With] or [RWMutex.With] panics, the workspace is marked
// poisoned. Later acquisitions still succeed but additionally return a
// [*PoisonError] describing the original panic, letting the caller
// decide whether to trust the value. [Mutex.ClearPoison] asserts the
// value is consistent again.
//
// A deferred guard Release cannot distinguish a panic from a normal
// return, so the guard path does not poison on caller panics; use the
// closure forms ([Mutex.With], [RWMutex.With]) where that distinction
// matters.
package resettable
