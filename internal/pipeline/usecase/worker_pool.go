package usecase

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"mailsense-backend/internal/pipeline/domain"
	"mailsense-backend/internal/pipeline/queue"
)

// TaskProcessor runs one task to a terminal outcome. Processor satisfies it.
type TaskProcessor interface {
	Process(ctx context.Context, task domain.EnrichmentTask) (string, error)
}

// DeadLetterSink persists tasks whose retries were exhausted.
type DeadLetterSink interface {
	Save(task *domain.FailedTask) error
}

// Statuses reported for attempts that did not reach a processor outcome.
const (
	OutcomeRetry = "retry"
	OutcomeDead  = "dead"
)

// WorkerPool drains the queue with a fixed set of workers. Each task runs
// under a hard deadline; transient failures are retried with exponential
// backoff until the attempt budget runs out, then dead-lettered.
type WorkerPool struct {
	queue       *queue.Queue
	processor   TaskProcessor
	deadLetters DeadLetterSink

	workerCount int
	maxAttempts int
	hardLimit   time.Duration
	softLimit   time.Duration

	onProcessed func(status string, elapsed time.Duration)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorkerPool(q *queue.Queue, processor TaskProcessor, deadLetters DeadLetterSink, workerCount, maxAttempts int, hardLimit, softLimit time.Duration) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queue:       q,
		processor:   processor,
		deadLetters: deadLetters,
		workerCount: workerCount,
		maxAttempts: maxAttempts,
		hardLimit:   hardLimit,
		softLimit:   softLimit,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnProcessed registers a hook receiving (status, elapsed) for every
// attempt that reached a terminal state or was scheduled for retry.
func (p *WorkerPool) OnProcessed(hook func(status string, elapsed time.Duration)) {
	p.onProcessed = hook
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	log.Printf("[Worker] Starting %d enrichment workers", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels in-flight work and waits for the workers to drain.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	log.Println("[Worker] All workers stopped")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for {
		task, ok := p.queue.Dequeue(p.ctx)
		if !ok {
			return
		}
		p.handle(id, task)
	}
}

func (p *WorkerPool) handle(workerID int, task domain.EnrichmentTask) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(p.ctx, p.hardLimit)
	defer cancel()

	// The soft limit only warns. The hard deadline on ctx is what
	// actually cuts the task off.
	softTimer := time.AfterFunc(p.softLimit, func() {
		log.Printf("[Worker %d] Message %s passed the soft limit (%s), hard cutoff at %s",
			workerID, task.MessageID, p.softLimit, p.hardLimit)
	})
	outcome, err := p.processor.Process(ctx, task)
	softTimer.Stop()

	elapsed := time.Since(start)
	if err == nil {
		p.record(outcome, elapsed)
		return
	}

	attempt := task.AttemptCount + 1
	if attempt >= p.maxAttempts {
		p.deadLetter(task, attempt, err)
		p.record(OutcomeDead, elapsed)
		return
	}

	delay := backoff(attempt)
	log.Printf("[Worker %d] Attempt %d/%d for message %s failed: %v (retrying in %s)",
		workerID, attempt, p.maxAttempts, task.MessageID, err, delay.Round(time.Millisecond))

	retry := task
	retry.AttemptCount = attempt
	time.AfterFunc(delay, func() {
		if err := p.queue.Enqueue(retry); err != nil {
			log.Printf("[Worker] Could not requeue message %s: %v", retry.MessageID, err)
			p.deadLetter(retry, attempt, err)
		}
	})
	p.record(OutcomeRetry, elapsed)
}

func (p *WorkerPool) deadLetter(task domain.EnrichmentTask, attempts int, cause error) {
	log.Printf("[Worker] Message %s failed after %d attempts, dead-lettering: %v", task.MessageID, attempts, cause)
	if p.deadLetters == nil {
		return
	}
	failed := &domain.FailedTask{
		MessageID:      task.MessageID,
		SubscriptionID: task.SubscriptionID,
		UserID:         task.UserID,
		Attempts:       attempts,
		LastError:      cause.Error(),
		FailedAt:       time.Now(),
	}
	if err := p.deadLetters.Save(failed); err != nil {
		log.Printf("[Worker] Could not persist dead letter for %s: %v", task.MessageID, err)
	}
}

func (p *WorkerPool) record(status string, elapsed time.Duration) {
	if p.onProcessed != nil {
		p.onProcessed(status, elapsed)
	}
}

// backoff returns 2^attempt seconds plus up to a second of jitter.
// Variable so tests can collapse the delays.
var backoff = func(attempt int) time.Duration {
	return time.Duration(1<<attempt)*time.Second + time.Duration(rand.Int63n(int64(time.Second)))
}
