package exchange

import (
	"sync"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// job is one unit of per-symbol serialized work: run fn to completion, then
// close done so the caller blocked on Run can return.
type job struct {
	fn   func()
	done chan struct{}
}

// symbolDispatcher routes every message for a given symbol to the same
// dedicated goroutine, so the whole recv-to-settle pipeline for one
// symbol runs to completion before the next message for that symbol is
// admitted, while different symbols still match in parallel.
type symbolDispatcher struct {
	t *tomb.Tomb

	mu      sync.Mutex
	workers map[string]chan job
}

func newSymbolDispatcher(t *tomb.Tomb) *symbolDispatcher {
	return &symbolDispatcher{t: t, workers: make(map[string]chan job)}
}

// Run executes fn on symbol's dedicated worker and blocks until it
// completes.
func (d *symbolDispatcher) Run(symbol string, fn func()) {
	ch := d.worker(symbol)
	j := job{fn: fn, done: make(chan struct{})}
	ch <- j
	<-j.done
}

func (d *symbolDispatcher) worker(symbol string) chan job {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch, ok := d.workers[symbol]; ok {
		return ch
	}

	ch := make(chan job, 64)
	d.workers[symbol] = ch
	d.t.Go(func() error {
		log.Info().Str("symbol", symbol).Msg("symbol worker starting")
		for {
			select {
			case <-d.t.Dying():
				return nil
			case j := <-ch:
				j.fn()
				close(j.done)
			}
		}
	})
	return ch
}
