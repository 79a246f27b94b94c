package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// generationJob is one lesson generation call scheduled by a dispatcher. The
// run function writes its result through the captured pointer.
type generationJob struct {
	name string
	run  func(ctx context.Context) error
}

// dispatcher runs a batch of generation jobs concurrently and returns the
// first error, if any. Implementations differ in how they bound concurrency.
type dispatcher interface {
	Dispatch(ctx context.Context, jobs []generationJob) error
}

// errgroupDispatcher runs every job on its own goroutine and cancels the rest
// as soon as one fails.
type errgroupDispatcher struct{}

func (errgroupDispatcher) Dispatch(ctx context.Context, jobs []generationJob) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			return job.run(ctx)
		})
	}
	return g.Wait()
}

// poolDispatcher bounds in-flight jobs, useful when the upstream API enforces
// a small concurrency limit.
type poolDispatcher struct {
	workers int
}

func (d poolDispatcher) Dispatch(ctx context.Context, jobs []generationJob) error {
	workers := d.workers
	if workers <= 0 {
		workers = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return job.run(ctx)
		})
	}
	return g.Wait()
}

// newDispatcher builds the dispatcher named in config, defaulting to the
// errgroup one.
func newDispatcher(kind string, workers int) dispatcher {
	if kind == "pool" {
		return poolDispatcher{workers: workers}
	}
	return errgroupDispatcher{}
}
