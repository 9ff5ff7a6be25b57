package queue

import (
	"context"
	"sync"

	"storesync/internal/logger"
)

// Local runs jobs in-process on their own goroutine. It serves
// single-binary deployments and tests.
type Local struct {
	handler Handler
	logger  *logger.Logger
	wg      sync.WaitGroup
}

func NewLocal(handler Handler, logger *logger.Logger) *Local {
	return &Local{handler: handler, logger: logger}
}

// Enqueue returns immediately. The job does not inherit ctx, which usually
// ends with the request that queued it.
func (l *Local) Enqueue(ctx context.Context, job Job) error {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := Run(context.Background(), l.handler, job); err != nil {
			l.logger.Error("Job %s (%s) failed: %v", job.ID, job.Method, err)
		}
	}()
	return nil
}

// Wait blocks until every enqueued job has finished.
func (l *Local) Wait() {
	l.wg.Wait()
}
