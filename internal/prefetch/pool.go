// Package prefetch warms the response cache by fetching a set of
// endpoints concurrently, so content is available before the device
// goes offline.
package prefetch

import (
	"context"
	"sync"
	"time"

	"streamnet/pkg/api"
	"streamnet/pkg/cache"
	"streamnet/pkg/logger"
)

// Job is one endpoint to prefetch
type Job struct {
	Endpoint api.EndpointDescriptor
	Params   map[string]string
}

// Result is the outcome of one prefetch job
type Result struct {
	Job      Job
	Key      string
	Size     int
	Duration time.Duration
	Err      error
}

// Fetcher retrieves one endpoint's payload over the network
type Fetcher interface {
	FetchRaw(ctx context.Context, ep api.EndpointDescriptor, params map[string]string) ([]byte, error)
}

// CacheWriter stores fetched payloads
type CacheWriter interface {
	Put(key string, payload []byte) error
}

// Pool manages concurrent prefetch workers
type Pool struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
	fetcher    Fetcher
	cache      CacheWriter
	logger     logger.Logger
}

// NewPool creates a prefetch worker pool
func NewPool(numWorkers int, fetcher Fetcher, cacheWriter CacheWriter, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numWorkers*2),
		results:    make(chan Result, numWorkers*2),
		fetcher:    fetcher,
		cache:      cacheWriter,
		logger:     log,
	}
}

// Start launches the workers. They run until Stop is called or ctx is
// cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.logger.DebugWithFields("starting prefetch pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Submit queues a job, blocking while the queue is full. It fails when
// ctx is cancelled first.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the stream of job outcomes. It is closed by Stop
// after all workers have drained.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Stop closes the job queue, waits for workers to drain, then closes
// the results channel.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		if err := ctx.Err(); err != nil {
			p.results <- Result{Job: job, Err: err}
			continue
		}

		start := time.Now()
		key := cache.Key(job.Endpoint.Name, job.Params)

		payload, err := p.fetcher.FetchRaw(ctx, job.Endpoint, job.Params)
		if err != nil {
			p.logger.WarnWithFields("prefetch failed", map[string]interface{}{
				"endpoint": job.Endpoint.Name,
				"error":    err.Error(),
			})
			p.results <- Result{Job: job, Key: key, Duration: time.Since(start), Err: err}
			continue
		}

		if err := p.cache.Put(key, payload); err != nil {
			p.results <- Result{Job: job, Key: key, Duration: time.Since(start), Err: err}
			continue
		}

		p.logger.DebugWithFields("prefetched endpoint", map[string]interface{}{
			"endpoint": job.Endpoint.Name,
			"size":     len(payload),
		})
		p.results <- Result{Job: job, Key: key, Size: len(payload), Duration: time.Since(start)}
	}
}
