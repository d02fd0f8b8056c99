package crawl

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Supervisor runs background crawls outside any caller's request scope.
// Tasks share a base context that is canceled only by Close, and a task
// that panics or fails is logged without affecting the others.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	logger *slog.Logger
}

// NewSupervisor creates a Supervisor. A nil logger discards output.
func NewSupervisor(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{ctx: ctx, cancel: cancel, logger: logger}
}

// Go runs fn in its own goroutine. name identifies the task in logs.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.group.Go(func() error {
		if err := s.run(fn); err != nil {
			s.logger.Error("background task failed", "task", name, "error", err)
		}
		return nil
	})
}

func (s *Supervisor) run(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(s.ctx)
}

// Wait blocks until every task started so far has returned.
func (s *Supervisor) Wait() {
	_ = s.group.Wait()
}

// Close cancels running tasks and waits for them to return.
func (s *Supervisor) Close() error {
	s.cancel()
	s.Wait()
	return nil
}
