package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"linkrag/types"
)

// Service feeds links to a pool of ingestion workers through a buffered
// channel, so link submission returns immediately while processing runs in
// the background.
type Service struct {
	logger   *slog.Logger
	pipeline *Pipeline
	jobs     chan types.Link
	wg       sync.WaitGroup
	workers  int

	mu     sync.Mutex
	closed bool
}

func NewService(p *Pipeline, workers, queueSize int) *Service {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Service{
		logger:   slog.Default(),
		pipeline: p,
		jobs:     make(chan types.Link, queueSize),
		workers:  workers,
	}
}

func (s *Service) Run(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	s.logger.Info("ingest workers started", "workers", s.workers)
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case link, ok := <-s.jobs:
			if !ok {
				return
			}
			if err := s.pipeline.Ingest(ctx, link); err != nil {
				s.logger.Error("ingestion failed", "link_id", link.ID, "url", link.URL, "error", err)
			}
		}
	}
}

// Enqueue hands a link to the worker pool. It reports false when the queue
// is full or the service has been stopped; the link then stays pending and
// can be re-submitted.
func (s *Service) Enqueue(link types.Link) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.jobs <- link:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight ingestions to reach a
// terminal state, up to the given timeout. Stop is idempotent; Enqueue
// after Stop rejects the link.
func (s *Service) Stop(timeout time.Duration) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("ingest workers stopped")
	case <-time.After(timeout):
		s.logger.Warn("timeout waiting for ingest workers to stop")
	}
}
