package pgdb

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/food-rating/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// OutboxNotifyChannel — канал LISTEN/NOTIFY о новых событиях outbox.
const OutboxNotifyChannel = "outbox_pending"

const defaultProcessingTimeout = 5 * time.Minute

// claimEventsQuery забирает pending события и события, зависшие в processing дольше $4 секунд
// (воркер упал между захватом и отметкой).
const claimEventsQuery = `
		UPDATE outbox_events
		SET status = $1, processing_started_at = now()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = $2
				OR (status = $1 AND processing_started_at < now() - make_interval(secs => $4))
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_id, event_type, comparison_id, payload, status, created_at, processed_at
	`

type OutboxEventRepo struct {
	pool              *pgxpool.Pool
	conv              converter.OutboxEventConverter
	maxAttempts       int
	processingTimeout time.Duration
}

func NewOutboxEventRepo(
	pool *pgxpool.Pool,
	conv converter.OutboxEventConverter,
	maxAttempts int,
	processingTimeout time.Duration,
) *OutboxEventRepo {
	if processingTimeout <= 0 {
		processingTimeout = defaultProcessingTimeout
	}

	return &OutboxEventRepo{
		pool:              pool,
		conv:              conv,
		maxAttempts:       max(maxAttempts, 1),
		processingTimeout: processingTimeout,
	}
}

// Create добавляет событие в outbox в транзакции из контекста и уведомляет воркер.
func (o *OutboxEventRepo) Create(ctx context.Context, event *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := o.conv.ToModel(event)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO outbox_events (
			event_id,
			event_type,
			comparison_id,
			payload,
			status,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at;
	`

	if err := tx.QueryRow(ctx, query,
		model.EventID,
		model.EventType,
		model.ComparisonID,
		model.Payload,
		model.Status,
		model.CreatedAt,
	).Scan(&model.ID, &model.CreatedAt); err != nil {
		if postgresDuplicate(err) {
			return nil, fmt.Errorf("%s: event with id %s already exists", whereami.WhereAmI(), event.EventID)
		}

		return nil, fmt.Errorf("%s: failed to insert event: %w", whereami.WhereAmI(), err)
	}

	// NOTIFY доставляется только после коммита транзакции
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, '')", OutboxNotifyChannel); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(model), nil
}

// GetAndMarkAsProcessing забирает до limit ожидающих или зависших событий, пропуская заблокированные другими воркерами.
func (o *OutboxEventRepo) GetAndMarkAsProcessing(ctx context.Context, limit int) (_ []*usecase.OutboxEvent, err error) {
	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", whereami.WhereAmI(), err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, claimEventsQuery, o.claimArgs(limit)...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query pending events: %w", whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var models []*converter.OutboxEventModel
	for rows.Next() {
		var model converter.OutboxEventModel
		if err = rows.Scan(
			&model.ID,
			&model.EventID,
			&model.EventType,
			&model.ComparisonID,
			&model.Payload,
			&model.Status,
			&model.CreatedAt,
			&model.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: failed to scan event: %w", whereami.WhereAmI(), err)
		}

		models = append(models, &model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iterator error: %w", whereami.WhereAmI(), err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", whereami.WhereAmI(), err)
	}

	return o.conv.ToArrEntity(models), nil
}

func (o *OutboxEventRepo) claimArgs(limit int) []any {
	return []any{string(usecase.Processing), string(usecase.Pending), limit, o.processingTimeout.Seconds()}
}

func (o *OutboxEventRepo) MarkAsProcessed(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = now()
		WHERE id = $2 AND status = $3
	`

	// 0 затронутых строк: событие уже обработано другим воркером
	if _, err := o.pool.Exec(ctx, query, string(usecase.Processed), id, string(usecase.Processing)); err != nil {
		return fmt.Errorf("%s: failed to mark event %d as processed: %w", whereami.WhereAmI(), id, err)
	}

	return nil
}

// MarkAsFailed возвращает событие в очередь или помечает как failed после maxAttempts попыток.
func (o *OutboxEventRepo) MarkAsFailed(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_events
		SET attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= $1 THEN $2 ELSE $3 END
		WHERE id = $4 AND status = $5
	`

	if _, err := o.pool.Exec(ctx, query, o.maxAttempts, string(usecase.Failed), string(usecase.Pending), id, string(usecase.Processing)); err != nil {
		return fmt.Errorf("%s: failed to mark event %d as failed: %w", whereami.WhereAmI(), id, err)
	}

	return nil
}
