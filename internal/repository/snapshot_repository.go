package repository

import (
	"context"
	"time"

	"funding-radar/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS funding_snapshots (
    timestamp       TIMESTAMPTZ      NOT NULL,
    symbol          TEXT             NOT NULL,
    exchange        TEXT             NOT NULL,
    funding_rate_1h DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (timestamp, symbol, exchange)
);

CREATE INDEX IF NOT EXISTS idx_funding_snapshots_symbol_time
    ON funding_snapshots (symbol, exchange, timestamp DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SnapshotRepository is the audit sink: every collection cycle's normalized
// hourly rates land here, one row per (timestamp, symbol, exchange).
type SnapshotRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSnapshotRepository(pool PgxPool, tracer trace.Tracer) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, tracer: tracer}
}

func (r *SnapshotRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "snapshot-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createSnapshotsTable)
	return err
}

// InsertCycle writes one cycle's observations. Replays of an already-stored
// cycle are no-ops: the first write for a key wins.
func (r *SnapshotRepository) InsertCycle(ctx context.Context, obs []domain.FundingObservation) error {
	if len(obs) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "snapshot-repo.insert-cycle")
	defer span.End()

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(
			`INSERT INTO funding_snapshots (timestamp, symbol, exchange, funding_rate_1h)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (timestamp, symbol, exchange) DO NOTHING`,
			o.Timestamp, o.Token, string(o.Exchange), o.HourlyRate,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range obs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetRange reads stored snapshots for one symbol, ascending. Exchange narrows
// to a single venue when non-empty.
func (r *SnapshotRepository) GetRange(ctx context.Context, symbol string, exchange domain.Exchange, from, to time.Time) ([]domain.SnapshotPoint, error) {
	_, span := r.tracer.Start(ctx, "snapshot-repo.get-range")
	defer span.End()

	query := `SELECT timestamp, symbol, exchange, funding_rate_1h
	          FROM funding_snapshots
	          WHERE symbol = $1 AND timestamp >= $2 AND timestamp <= $3`
	args := []any{symbol, from, to}
	if exchange != "" {
		query += ` AND exchange = $4`
		args = append(args, string(exchange))
	}
	query += ` ORDER BY timestamp ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.SnapshotPoint
	for rows.Next() {
		var p domain.SnapshotPoint
		var ex string
		if err := rows.Scan(&p.Timestamp, &p.Symbol, &ex, &p.FundingRate1h); err != nil {
			return nil, err
		}
		p.Exchange = domain.Exchange(ex)
		points = append(points, p)
	}
	return points, rows.Err()
}
