package job

import (
	"context"
	"log"
	"time"

	"funding-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type CycleRunner interface {
	RunCycle(ctx context.Context) (domain.CycleResult, error)
}

// CollectorJob runs one collection cycle immediately and then on a ticker.
type CollectorJob struct {
	tracer       trace.Tracer
	runner       CycleRunner
	pollInterval time.Duration
}

func NewCollectorJob(tracer trace.Tracer, runner CycleRunner, pollInterval time.Duration) *CollectorJob {
	if pollInterval <= 0 {
		pollInterval = time.Hour
	}
	return &CollectorJob{tracer: tracer, runner: runner, pollInterval: pollInterval}
}

func (j *CollectorJob) Start(ctx context.Context) {
	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *CollectorJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "collector-job.run-once")
	defer span.End()

	res, err := j.runner.RunCycle(ctx)
	if err != nil {
		log.Printf("Collection cycle error: %v", err)
		return
	}
	failed := 0
	for _, s := range res.Stats {
		if s.Error != "" {
			failed++
		}
	}
	log.Printf("Collection cycle complete observations=%d venues=%d failed=%d",
		len(res.Observations), len(res.Stats), failed)
}
