package resettable_test

import (
	"fmt"
	"sync"

	"github.com/baxromumarov/resettable"
)

func ExampleCell() {
	scratch := resettable.NewCell(make([]byte, 4), func(b *[]byte) {
		for i := range *b {
			(*b)[i] = 0
		}
	})

	h := scratch.BorrowMut()
	copy(*h.Value(), "abcd")
	fmt.Println(string(*h.Value()))
	h.Release() // reset runs here

	r := scratch.Borrow()
	fmt.Println(*r.Value())
	r.Release()
	// Output:
	// abcd
	// [0 0 0 0]
}

func ExampleCell_replace() {
	ws := resettable.NewCell(128, func(n *int) { *n = 0 })

	// Replace transfers ownership; the reset function does not run.
	old := ws.Replace(7)
	fmt.Println(old)

	r := ws.Borrow()
	fmt.Println(*r.Value())
	r.Release()
	// Output:
	// 128
	// 7
}

func ExampleMutex() {
	ws := resettable.NewMutex(make([]int, 3), func(s *[]int) {
		for i := range *s {
			(*s)[i] = 0
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, _ := ws.Lock()
			defer g.Release()
			// Scratch mutations stay inside the guard's scope.
			(*g.Value())[0] = 42
		}()
	}
	wg.Wait()

	g, _ := ws.Lock()
	defer g.Release()
	fmt.Println(*g.Value())
	// Output: [0 0 0]
}

func ExampleMutex_With() {
	ws := resettable.NewMutex([]string{"baseline"}, func(s *[]string) {
		*s = (*s)[:1]
	})

	_ = ws.With(func(s *[]string) {
		*s = append(*s, "temporary", "entries")
		fmt.Println(len(*s))
	})

	g, _ := ws.Lock()
	defer g.Release()
	fmt.Println(*g.Value())
	// Output:
	// 3
	// [baseline]
}

func ExampleRWMutex() {
	ws := resettable.NewRWMutex(100, func(n *int) { *n = 100 })

	// Readers coexist and never trigger a reset.
	r1, _ := ws.Read()
	r2, _ := ws.Read()
	fmt.Println(*r1.Value(), *r2.Value())
	r1.Release()
	r2.Release()

	w, _ := ws.Write()
	*w.Value() = -5
	w.Release()

	r, _ := ws.Read()
	fmt.Println(*r.Value())
	r.Release()
	// Output:
	// 100 100
	// 100
}
