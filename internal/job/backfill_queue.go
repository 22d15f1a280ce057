package job

import (
	"context"
	"fmt"
	"log"
	"sync"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type TokenBackfiller interface {
	BackfillPartition(ctx context.Context, token string, ex domain.Exchange) (int, error)
}

// BackfillTask is one (token, exchange) partition to top up.
type BackfillTask struct {
	Token    string
	Exchange domain.Exchange
}

const defaultQueueDepth = 256

// BackfillQueue runs backfill tasks on a fixed worker pool. Each task's
// outcome is captured individually; a failed partition never takes the queue
// or its siblings down.
type BackfillQueue struct {
	tracer     trace.Tracer
	backfiller TokenBackfiller
	workers    int

	tasks chan BackfillTask
	wg    sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewBackfillQueue(tracer trace.Tracer, backfiller TokenBackfiller, workers int) *BackfillQueue {
	if workers <= 0 {
		workers = 4
	}
	return &BackfillQueue{
		tracer:     tracer,
		backfiller: backfiller,
		workers:    workers,
		tasks:      make(chan BackfillTask, defaultQueueDepth),
	}
}

// Start launches the workers. They drain until Stop closes the queue or ctx
// is cancelled.
func (q *BackfillQueue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(ctx)
		}
	})
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (q *BackfillQueue) Stop() {
	q.stopOnce.Do(func() { close(q.tasks) })
	q.wg.Wait()
}

// Enqueue adds one task, reporting instead of blocking when the queue is full.
func (q *BackfillQueue) Enqueue(task BackfillTask) error {
	select {
	case q.tasks <- task:
		return nil
	default:
		return fmt.Errorf("backfill queue full, dropping %s-%s", task.Token, task.Exchange)
	}
}

// EnqueueAll queues the token x history-venue cross product and returns how
// many tasks were accepted.
func (q *BackfillQueue) EnqueueAll(tokens []string) int {
	accepted := 0
	for _, token := range tokens {
		for _, ex := range domain.HistoryExchanges {
			if err := q.Enqueue(BackfillTask{Token: token, Exchange: ex}); err != nil {
				log.Printf("backfill queue: %v", err)
				continue
			}
			accepted++
		}
	}
	return accepted
}

func (q *BackfillQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.run(ctx, task)
		}
	}
}

func (q *BackfillQueue) run(ctx context.Context, task BackfillTask) {
	ctx, span := q.tracer.Start(ctx, "backfill-queue.task",
		trace.WithAttributes(
			attribute.String("token", task.Token),
			attribute.String("exchange", string(task.Exchange)),
		))
	defer span.End()

	n, err := q.backfiller.BackfillPartition(ctx, task.Token, task.Exchange)
	if err != nil {
		log.Printf("backfill task %s-%s failed: %v", task.Token, task.Exchange, err)
		return
	}
	if n > 0 {
		log.Printf("backfilled %s-%s: %d new points", task.Token, task.Exchange, n)
	}
}
