// Package progress renders a terminal progress bar for long verification
// runs. Updates are funnelled through a channel so callers never block on
// terminal writes.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// SnapshotFn reports the outcome counters shown in the bar description.
type SnapshotFn func() (matched, mismatched, errored, missing int64)

// Bar wraps a progressbar that advances one unit per verified resource.
type Bar struct {
	bar  *progressbar.ProgressBar
	ch   chan int64
	stop chan struct{}
	wg   sync.WaitGroup
}

// New starts a bar expecting total resources. snap, when non-nil, is polled
// once a second to refresh the outcome counters in the description.
func New(w io.Writer, total int64, snap SnapshotFn) *Bar {
	b := &Bar{
		ch:   make(chan int64, 1024),
		stop: make(chan struct{}),
	}

	b.bar = progressbar.NewOptions64(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetDescription("verifying"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(120*time.Millisecond),
	)
	_ = b.bar.RenderBlank()

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		for n := range b.ch {
			_ = b.bar.Add64(n)
		}
		_ = b.bar.Finish()
	}()
	go func() {
		defer b.wg.Done()
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				b.refresh(snap)
			case <-b.stop:
				return
			}
		}
	}()
	return b
}

// Step advances the bar by one resource. Must not be called after Close.
func (b *Bar) Step() { b.ch <- 1 }

// Close finishes the bar and waits for the render goroutines to exit.
func (b *Bar) Close() {
	close(b.stop)
	close(b.ch)
	b.wg.Wait()
}

func (b *Bar) refresh(snap SnapshotFn) {
	if snap == nil {
		return
	}
	matched, mismatched, errored, missing := snap()
	b.bar.Describe(fmt.Sprintf("verifying | ok=%d mismatch=%d err=%d missing=%d",
		matched, mismatched, errored, missing))
}
