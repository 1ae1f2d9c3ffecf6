package resettable

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexResetOnRelease(t *testing.T) {
	ws := NewMutex(repeat(1, 128), fillZero)

	g, err := ws.Lock()
	require.NoError(t, err)
	assert.Equal(t, repeat(1, 128), *g.Value())
	for i := range *g.Value() {
		(*g.Value())[i] = 2
	}
	g.Release()

	g, err = ws.Lock()
	require.NoError(t, err)
	assert.Equal(t, repeat(0, 128), *g.Value(), "mutations must not escape the guard")
	g.Release()
}

func TestMutexGuardReset(t *testing.T) {
	ws := NewMutex(repeat(0, 128), fillZero)

	g, err := ws.Lock()
	require.NoError(t, err)
	for i := range *g.Value() {
		(*g.Value())[i] = 2
	}
	g.Reset()
	assert.Equal(t, repeat(0, 128), *g.Value())
	g.Release()
}

func TestMutexTryLockContention(t *testing.T) {
	ws := NewMutex(0, func(n *int) { *n = 0 })

	g, err := ws.Lock()
	require.NoError(t, err)

	_, err = ws.TryLock()
	assert.ErrorIs(t, err, ErrWouldBlock)

	err = ws.TryReset()
	assert.ErrorIs(t, err, ErrWouldBlock)

	g.Release()

	g2, err := ws.TryLock()
	require.NoError(t, err)
	g2.Release()
}

func TestMutexLockBlocksUntilRelease(t *testing.T) {
	ws := NewMutex(0, func(n *int) { *n = 0 })

	g, err := ws.Lock()
	require.NoError(t, err)
	*g.Value() = 1

	acquired := make(chan int)
	go func() {
		g2, _ := ws.Lock()
		v := *g2.Value()
		g2.Release()
		acquired <- v
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired while guard outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()
	assert.Equal(t, 0, <-acquired, "blocked acquirer observes the reset value")
}

func TestMutexReleaseResetsExactlyOnce(t *testing.T) {
	var resets atomic.Int64
	ws := NewMutex(0, func(n *int) { resets.Add(1) })

	g, err := ws.Lock()
	require.NoError(t, err)
	g.Release()
	g.Release()
	assert.Equal(t, int64(1), resets.Load(), "Release is idempotent")

	mustPanicContains(t, "after Release", func() { g.Value() })
}

func TestMutexWith(t *testing.T) {
	ws := NewMutex(repeat(1, 8), fillZero)

	err := ws.With(func(s *[]int) {
		for i := range *s {
			(*s)[i] = 9
		}
	})
	require.NoError(t, err)

	g, err := ws.Lock()
	require.NoError(t, err)
	assert.Equal(t, repeat(0, 8), *g.Value())
	g.Release()
}

func TestMutexWithPanicPoisons(t *testing.T) {
	ws := NewMutex(repeat(1, 8), fillZero)

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "panic must propagate out of With")
			assert.Equal(t, "boom", r)
		}()
		_ = ws.With(func(s *[]int) {
			(*s)[0] = 99
			panic("boom")
		})
	}()

	assert.True(t, ws.IsPoisoned())

	// Access is still granted; the poison indicator rides alongside.
	g, err := ws.Lock()
	require.Error(t, err)
	assert.True(t, IsPoisoned(err))
	var pe *PoisonError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, repeat(0, 8), *g.Value(), "reset still ran on the unwind path")
	g.Release()

	ws.ClearPoison()
	assert.False(t, ws.IsPoisoned())
	g, err = ws.Lock()
	require.NoError(t, err)
	g.Release()
}

func TestMutexResetPanicPoisons(t *testing.T) {
	armed := false
	ws := NewMutex(0, func(n *int) {
		if armed {
			panic("reset failed")
		}
	})
	armed = true

	g, err := ws.Lock()
	require.NoError(t, err)
	mustPanicContains(t, "reset failed", func() { g.Release() })

	assert.True(t, ws.IsPoisoned())

	// The lock was released on the panic path.
	g2, err := ws.TryLock()
	require.Error(t, err)
	assert.True(t, IsPoisoned(err))
	require.NotNil(t, g2)
	armed = false
	g2.Release()
}

func TestMutexResetRefusedWhenPoisoned(t *testing.T) {
	var resets atomic.Int64
	ws := NewMutex(0, func(n *int) { resets.Add(1) })

	func() {
		defer func() { _ = recover() }()
		_ = ws.With(func(n *int) { panic("boom") })
	}()
	before := resets.Load()

	err := ws.Reset()
	assert.True(t, IsPoisoned(err))
	assert.Equal(t, before, resets.Load(), "Reset must not run against a poisoned value")

	ws.ClearPoison()
	require.NoError(t, ws.Reset())
	assert.Equal(t, before+1, resets.Load())
}

func TestMutexResetTwice(t *testing.T) {
	ws := NewMutex(repeat(7, 16), fillZero)

	require.NoError(t, ws.Reset())
	g, err := ws.Lock()
	require.NoError(t, err)
	first := append([]int(nil), *g.Value()...)
	g.Release()

	require.NoError(t, ws.Reset())
	g, err = ws.Lock()
	require.NoError(t, err)
	assert.Equal(t, first, *g.Value())
	g.Release()
}

func TestMutexIntoInner(t *testing.T) {
	ws := NewMutex(repeat(3, 4), fillZero)
	v, err := ws.IntoInner()
	require.NoError(t, err)
	assert.Equal(t, repeat(3, 4), v, "IntoInner must not reset")
}

func TestMutexIntoInnerPoisoned(t *testing.T) {
	ws := NewMutex(42, func(n *int) {})

	func() {
		defer func() { _ = recover() }()
		_ = ws.With(func(n *int) { panic("boom") })
	}()

	v, err := ws.IntoInner()
	assert.True(t, IsPoisoned(err), "poison surfaces")
	assert.Equal(t, 42, v, "value is still yielded")
}

func TestMutexConcurrentBaseline(t *testing.T) {
	const goroutines = 16
	const rounds = 50

	ws := NewMutex(repeat(0, 32), fillZero)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		i := i
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				g, err := ws.Lock()
				if err != nil {
					t.Error("unexpected poison:", err)
					return
				}
				s := *g.Value()
				for _, v := range s {
					if v != 0 {
						t.Error("observed unreset value", v)
					}
				}
				for j := range s {
					s[j] = i + 1
				}
				g.Release()
			}
		}()
	}
	wg.Wait()

	g, err := ws.Lock()
	require.NoError(t, err)
	assert.Equal(t, repeat(0, 32), *g.Value())
	g.Release()
}

func TestMutexResetOnInit(t *testing.T) {
	ws := NewMutex(repeat(5, 8), fillZero, WithResetOnInit())
	g, err := ws.Lock()
	require.NoError(t, err)
	assert.Equal(t, repeat(0, 8), *g.Value())
	g.Release()
}

func TestMutexOnResetHook(t *testing.T) {
	var calls atomic.Int64
	ws := NewMutex(0, func(n *int) { *n = 0 }, WithOnReset(func() { calls.Add(1) }))

	g, err := ws.Lock()
	require.NoError(t, err)
	g.Release()
	require.NoError(t, ws.Reset())
	assert.Equal(t, int64(2), calls.Load())
}

func TestMutexNilResetPanics(t *testing.T) {
	mustPanicContains(t, "requires a reset function", func() { NewMutex(0, nil) })
}
