// Package parallel splits index ranges across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Range calls fn on contiguous sub-ranges [start, end) of [0, items) using at
// most workers goroutines and waits for all of them. workers <= 0 means one
// per CPU core. With a single worker fn runs on the calling goroutine.
func Range(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, items)
	if workers == 1 {
		fn(0, items)
		return
	}

	chunk := (items + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := min(start+chunk, items)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}
