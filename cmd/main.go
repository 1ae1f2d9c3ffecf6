package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/baxromumarov/resettable"
)

// A shared scratch table: workers borrow it exclusively, fill it with
// intermediate state, and release; the next worker always starts from
// an all-zero table.
func main() {
	table := resettable.NewMutex(make([]int, 10), func(s *[]int) {
		for i := range *s {
			(*s)[i] = 0
		}
	})

	now := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < 5; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := table.Lock()
			if err != nil {
				fmt.Println("worker", w, "poisoned table:", err)
				return
			}
			defer g.Release()

			sum := 0
			for i := range *g.Value() {
				(*g.Value())[i] = w * i
				sum += (*g.Value())[i]
			}
			fmt.Printf("worker %d scratch sum: %d\n", w, sum)
		}()
	}
	wg.Wait()

	g, _ := table.Lock()
	fmt.Println("final table:", *g.Value())
	g.Release()

	fmt.Println("elapsed:", time.Since(now).Round(time.Millisecond))
}
