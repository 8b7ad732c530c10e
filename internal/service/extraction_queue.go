package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

// QueueConfig holds settings for the extraction queue.
type QueueConfig struct {
	Concurrency int
	BufferSize  int
	JobTTL      time.Duration
	JobTimeout  time.Duration
}

type queuedJob struct {
	id  uuid.UUID
	req domain.ExtractionRequest
}

// ExtractionQueue runs submitted extractions in the background and keeps
// their status for polling.
type ExtractionQueue struct {
	svc     port.ExtractionService
	cfg     QueueConfig
	pending chan queuedJob
	mu      sync.RWMutex
	jobs    map[uuid.UUID]*domain.ExtractionJob
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewExtractionQueue creates a new ExtractionQueue.
func NewExtractionQueue(svc port.ExtractionService, cfg QueueConfig) *ExtractionQueue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &ExtractionQueue{
		svc:     svc,
		cfg:     cfg,
		pending: make(chan queuedJob, cfg.BufferSize),
		jobs:    make(map[uuid.UUID]*domain.ExtractionJob),
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (q *ExtractionQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// Submit queues req and returns the job in its initial state.
func (q *ExtractionQueue) Submit(req domain.ExtractionRequest) (*domain.ExtractionJob, error) {
	now := q.now().UTC()
	job := &domain.ExtractionJob{
		ID:        uuid.New(),
		DeviceID:  req.DeviceID,
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	select {
	case q.pending <- queuedJob{id: job.ID, req: req}:
	default:
		q.mu.Lock()
		delete(q.jobs, job.ID)
		q.mu.Unlock()
		return nil, fmt.Errorf("service.ExtractionQueue.Submit: %w", domain.ErrQueueFull)
	}

	log.Printf("service.ExtractionQueue.Submit: queued job %s for device %s", job.ID, req.DeviceID)
	return copyJob(job), nil
}

// Get returns a snapshot of job id.
func (q *ExtractionQueue) Get(id uuid.UUID) (*domain.ExtractionJob, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyJob(job), nil
}

// Start dispatches queued jobs until ctx is canceled. It blocks until all
// in-flight extractions have finished.
func (q *ExtractionQueue) Start(ctx context.Context) {
	sem := make(chan struct{}, q.cfg.Concurrency)

	pruneEvery := q.cfg.JobTTL
	if pruneEvery <= 0 {
		pruneEvery = time.Hour
	}
	ticker := time.NewTicker(pruneEvery)
	defer ticker.Stop()

	log.Printf("service.ExtractionQueue: started (concurrency=%d, buffer=%d, ttl=%s)",
		q.cfg.Concurrency, q.cfg.BufferSize, q.cfg.JobTTL)

	for {
		select {
		case <-ctx.Done():
			log.Printf("service.ExtractionQueue: shutting down, waiting for in-flight extractions...")
			q.wg.Wait()
			log.Printf("service.ExtractionQueue: shutdown complete (%d job(s) left queued)", len(q.pending))
			return
		case <-ticker.C:
			q.Prune()
		case job := <-q.pending:
			select {
			case sem <- struct{}{}: // acquire
			case <-ctx.Done():
				q.finish(job.id, nil, context.Canceled)
				continue
			}
			q.wg.Add(1)
			go func() {
				defer q.wg.Done()
				defer func() { <-sem }() // release

				// in-flight extractions complete even during shutdown
				runCtx, cancel := context.WithTimeout(context.Background(), q.cfg.JobTimeout)
				defer cancel()
				q.run(runCtx, job)
			}()
		}
	}
}

func (q *ExtractionQueue) run(ctx context.Context, job queuedJob) {
	q.update(job.id, func(j *domain.ExtractionJob) {
		j.Status = domain.JobStatusRunning
	})

	res, err := q.svc.Extract(ctx, job.req, func(stage domain.Stage, progress float64) {
		q.update(job.id, func(j *domain.ExtractionJob) {
			j.Stage = stage
			j.Progress = progress
		})
	})
	q.finish(job.id, res, err)
}

func (q *ExtractionQueue) finish(id uuid.UUID, res *domain.ExtractionResult, err error) {
	q.update(id, func(j *domain.ExtractionJob) {
		if err != nil {
			j.Status = domain.JobStatusFailed
			j.Stage = domain.StageFailed
			j.Progress = domain.StageFailed.Progress()
			j.Error = err.Error()
			return
		}
		j.Status = domain.JobStatusCompleted
		j.Stage = domain.StageCompleted
		j.Progress = domain.StageCompleted.Progress()
		j.Result = res
	})
	if err != nil {
		log.Printf("service.ExtractionQueue: job %s failed: %v", id, err)
	}
}

func (q *ExtractionQueue) update(id uuid.UUID, fn func(*domain.ExtractionJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if j, ok := q.jobs[id]; ok {
		fn(j)
		j.UpdatedAt = q.now().UTC()
	}
}

// Prune drops finished jobs not updated within JobTTL.
func (q *ExtractionQueue) Prune() int {
	if q.cfg.JobTTL <= 0 {
		return 0
	}
	cutoff := q.now().Add(-q.cfg.JobTTL)

	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, j := range q.jobs {
		if (j.Status == domain.JobStatusCompleted || j.Status == domain.JobStatusFailed) && j.UpdatedAt.Before(cutoff) {
			delete(q.jobs, id)
			n++
		}
	}
	if n > 0 {
		log.Printf("service.ExtractionQueue.Prune: removed %d finished job(s)", n)
	}
	return n
}

func copyJob(j *domain.ExtractionJob) *domain.ExtractionJob {
	cp := *j
	cp.Result = j.Result.Clone()
	return &cp
}
