package handler

import (
	"context"
	"time"

	"funding-radar/internal/arbitrage"
	"funding-radar/internal/domain"
	"funding-radar/internal/job"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type FundingService interface {
	RunCycle(ctx context.Context) (domain.CycleResult, error)
	LatestRows(ctx context.Context) ([]domain.FundingRow, error)
	Opportunities(ctx context.Context, exchanges []domain.Exchange, required domain.Exchange, tf domain.Timeframe) ([]arbitrage.Opportunity, error)
	History(ctx context.Context, token string, ex domain.Exchange, days int) ([]domain.TimeSeriesPoint, error)
}

type SnapshotReader interface {
	GetRange(ctx context.Context, symbol string, exchange domain.Exchange, from, to time.Time) ([]domain.SnapshotPoint, error)
}

type PartitionBackfiller interface {
	BackfillPartition(ctx context.Context, token string, ex domain.Exchange) (int, error)
}

type BackfillEnqueuer interface {
	Enqueue(task job.BackfillTask) error
	EnqueueAll(tokens []string) int
}

type Handler struct {
	tracer     trace.Tracer
	funding    FundingService
	snapshots  SnapshotReader
	backfiller PartitionBackfiller
	queue      BackfillEnqueuer
	cronSecret string
	tokens     []string
}

func New(
	tracer trace.Tracer,
	funding FundingService,
	snapshots SnapshotReader,
	backfiller PartitionBackfiller,
	queue BackfillEnqueuer,
	cronSecret string,
	tokens []string,
) *Handler {
	return &Handler{
		tracer:     tracer,
		funding:    funding,
		snapshots:  snapshots,
		backfiller: backfiller,
		queue:      queue,
		cronSecret: cronSecret,
		tokens:     tokens,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/funding", h.GetFunding)
	r.GET("/api/funding-history", h.GetFundingHistory)
	r.GET("/api/opportunities", h.GetOpportunities)
	r.GET("/api/snapshots", h.GetSnapshots)

	secured := r.Group("/", BearerAuth(h.cronSecret))
	secured.POST("/api/collect", h.TriggerCollect)
	secured.POST("/api/backfill", h.TriggerBackfill)
	secured.POST("/api/backfill/all", h.TriggerBackfillAll)
}
