package archive

import (
	"context"
	"sync"
)

// transferGroup runs leaf transfers concurrently and keeps the first error.
// The first failure cancels the group context so in-flight siblings stop.
type transferGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}

	wg   sync.WaitGroup
	once sync.Once
	err  error
}

func newTransferGroup(ctx context.Context, limit int) *transferGroup {
	ctx, cancel := context.WithCancel(ctx)
	g := &transferGroup{ctx: ctx, cancel: cancel}
	if limit > 0 {
		g.sem = make(chan struct{}, limit)
	}
	return g
}

func (g *transferGroup) Go(fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if g.sem != nil {
			select {
			case g.sem <- struct{}{}:
				defer func() { <-g.sem }()
			case <-g.ctx.Done():
				g.fail(g.ctx.Err())
				return
			}
		}
		if err := fn(g.ctx); err != nil {
			g.fail(err)
		}
	}()
}

func (g *transferGroup) fail(err error) {
	g.once.Do(func() {
		g.err = err
		g.cancel()
	})
}

// Abort cancels outstanding transfers, waits for them to exit, and returns
// the first transfer error recorded before the abort, if any.
func (g *transferGroup) Abort() error {
	g.once.Do(func() {})
	g.cancel()
	g.wg.Wait()
	return g.err
}

// Wait blocks until every transfer finishes and returns the first error.
func (g *transferGroup) Wait() error {
	g.wg.Wait()
	g.cancel()
	return g.err
}
