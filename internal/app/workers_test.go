package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestWorkersWaitForStart(t *testing.T) {
	var ran atomic.Int32
	var jobs workers
	jobs.add(func(context.Context) error {
		ran.Add(1)
		return nil
	})
	closed := 0
	jobs.onAbort(func() { closed++ })

	// Setup failed before start: nothing runs and cleanups fire.
	jobs.abort()
	if got := ran.Load(); got != 0 {
		t.Fatalf("jobs ran before start: %d", got)
	}
	if closed != 1 {
		t.Fatalf("cleanups = %d, want 1", closed)
	}
}

func TestWorkersStartJoinsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var stopped atomic.Int32
	var jobs workers
	for i := 0; i < 3; i++ {
		jobs.add(func(ctx context.Context) error {
			<-ctx.Done()
			stopped.Add(1)
			return nil
		})
	}
	jobs.add(func(context.Context) error { return errors.New("listener closed") })
	closed := 0
	jobs.onAbort(func() { closed++ })

	jobs.start(gctx, g)
	jobs.abort()

	if err := g.Wait(); err == nil || err.Error() != "listener closed" {
		t.Fatalf("Wait = %v, want listener closed", err)
	}
	if got := stopped.Load(); got != 3 {
		t.Fatalf("stopped = %d, want 3", got)
	}
	if closed != 0 {
		t.Fatalf("cleanups ran after start: %d", closed)
	}
}
