package resettable

import "fmt"

// Cell is the single-owner variant of the self-resetting workspace.
// It is not safe for concurrent use; instead of locking, it counts
// outstanding borrows at runtime and treats conflicting access as a
// programming defect. Any number of read borrows may coexist, or
// exactly one write borrow, never both.
//
// The blocking-style entry points ([Cell.Borrow], [Cell.BorrowMut],
// [Cell.Reset]) panic on an aliasing violation; the Try forms return
// [ErrBorrowed] instead.
type Cell[T any] struct {
	value T
	reset func(*T)

	// borrow is 0 when free, n>0 with n read borrows outstanding,
	// and -1 while a write borrow is outstanding.
	borrow  int
	dead    bool
	onReset func()
}

// NewCell creates a Cell holding value, with reset as its baseline
// restorer. NewCell panics if reset is nil.
func NewCell[T any](value T, reset func(*T), opts ...Option) *Cell[T] {
	if reset == nil {
		panic("resettable: NewCell requires a reset function")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Cell[T]{
		value:   value,
		reset:   reset,
		onReset: cfg.onReset,
	}
	if cfg.resetOnInit {
		c.runReset()
	}
	return c
}

// runReset invokes the reset function. Callers must hold momentary
// exclusive access (no outstanding borrows, or the one write borrow).
func (c *Cell[T]) runReset() {
	c.reset(&c.value)
	if c.onReset != nil {
		c.onReset()
	}
}

func (c *Cell[T]) checkAlive() {
	if c.dead {
		panic("resettable: use of Cell after IntoInner")
	}
}

// exclusive panics unless the cell is alive and completely unborrowed.
func (c *Cell[T]) exclusive(op string) {
	c.checkAlive()
	if c.borrow != 0 {
		panic(fmt.Sprintf("resettable: Cell.%s while borrowed", op))
	}
}

// Borrow returns a read-only view of the value. Any number of read
// views may be outstanding at once. Borrow panics if a write borrow is
// outstanding; use [Cell.TryBorrow] to get an error instead.
func (c *Cell[T]) Borrow() *Ref[T] {
	r, err := c.TryBorrow()
	if err != nil {
		panic("resettable: Cell is mutably borrowed")
	}
	return r
}

// TryBorrow is the fallible form of [Cell.Borrow]. It returns
// [ErrBorrowed] if a write borrow is outstanding.
func (c *Cell[T]) TryBorrow() (*Ref[T], error) {
	c.checkAlive()
	if c.borrow < 0 {
		return nil, ErrBorrowed
	}
	c.borrow++
	return &Ref[T]{cell: c}, nil
}

// BorrowMut returns an exclusive, reset-on-release handle to the
// value. Releasing the handle runs the reset function before the
// borrow is freed. BorrowMut panics if any borrow is outstanding; use
// [Cell.TryBorrowMut] to get an error instead.
func (c *Cell[T]) BorrowMut() *MutRef[T] {
	m, err := c.TryBorrowMut()
	if err != nil {
		panic("resettable: Cell is already borrowed")
	}
	return m
}

// TryBorrowMut is the fallible form of [Cell.BorrowMut]. It returns
// [ErrBorrowed] if any borrow, read or write, is outstanding.
func (c *Cell[T]) TryBorrowMut() (*MutRef[T], error) {
	c.checkAlive()
	if c.borrow != 0 {
		return nil, ErrBorrowed
	}
	c.borrow = -1
	return &MutRef[T]{cell: c}, nil
}

// Replace swaps in a new value and returns the previous one. The reset
// function is not invoked: Replace is a deliberate ownership transfer,
// not a scoped mutation. Panics if any borrow is outstanding.
func (c *Cell[T]) Replace(value T) T {
	c.exclusive("Replace")
	old := c.value
	c.value = value
	return old
}

// ReplaceWith is like [Cell.Replace], but the new value is computed
// from the old by f. f receives the current value and may mutate it in
// place before producing the replacement; the returned old value
// includes any such mutations.
func (c *Cell[T]) ReplaceWith(f func(*T) T) T {
	c.exclusive("ReplaceWith")
	next := f(&c.value)
	old := c.value
	c.value = next
	return old
}

// Swap exchanges the values held by c and other without invoking
// either cell's reset function. Panics if either cell has an
// outstanding borrow. Swapping a cell with itself is a no-op.
func (c *Cell[T]) Swap(other *Cell[T]) {
	c.exclusive("Swap")
	if c == other {
		return
	}
	other.exclusive("Swap")
	c.value, other.value = other.value, c.value
}

// Reset invokes the reset function against the current value without
// creating a lasting handle. Panics if any borrow is outstanding; use
// [Cell.TryReset] to get an error instead.
func (c *Cell[T]) Reset() {
	if err := c.TryReset(); err != nil {
		panic("resettable: Cell.Reset while borrowed")
	}
}

// TryReset is the fallible form of [Cell.Reset]. It returns
// [ErrBorrowed] if any borrow is outstanding.
func (c *Cell[T]) TryReset() error {
	c.checkAlive()
	if c.borrow != 0 {
		return ErrBorrowed
	}
	c.runReset()
	return nil
}

// IntoInner returns the wrapped value without invoking the reset
// function and marks the cell dead; any later use of the cell panics.
// Panics if any borrow is outstanding.
func (c *Cell[T]) IntoInner() T {
	c.exclusive("IntoInner")
	c.dead = true
	v := c.value
	var zero T
	c.value = zero
	return v
}

// Ref is a read-only view of a [Cell]'s value. Releasing it has no
// side effect beyond freeing the borrow; the reset function never runs
// for read views.
type Ref[T any] struct {
	cell     *Cell[T]
	released bool
}

// Value returns a pointer to the viewed value. The pointee must not be
// written through a Ref. The pointer is valid only until Release.
func (r *Ref[T]) Value() *T {
	if r.released {
		panic("resettable: use of Ref after Release")
	}
	return &r.cell.value
}

// Release ends the read borrow. Release is idempotent.
func (r *Ref[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.cell.borrow--
}

// MutRef is the exclusive, reset-on-release handle to a [Cell]'s
// value. While a MutRef is outstanding no other borrow can be created.
// Releasing it runs the reset function exactly once, then frees the
// borrow, so the mutations made through the handle never escape it.
type MutRef[T any] struct {
	cell     *Cell[T]
	released bool
}

// Value returns a pointer to the exclusively borrowed value. The
// pointer is valid only until Release.
func (m *MutRef[T]) Value() *T {
	if m.released {
		panic("resettable: use of MutRef after Release")
	}
	return &m.cell.value
}

// Reset invokes the reset function now; the borrow remains active.
func (m *MutRef[T]) Reset() {
	if m.released {
		panic("resettable: use of MutRef after Release")
	}
	m.cell.runReset()
}

// Release runs the reset function exactly once and frees the exclusive
// borrow. Release is idempotent and is typically deferred:
//
//	h := cell.BorrowMut()
//	defer h.Release()
//
// The borrow is freed even if the reset function panics.
func (m *MutRef[T]) Release() {
	if m.released {
		return
	}
	m.released = true
	defer func() { m.cell.borrow = 0 }()
	m.cell.runReset()
}
