package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxEvent 是 media.outbox_events 表中的一行待发布事件。
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   string
	AggregateID uuid.UUID
	Payload     []byte
	Attributes  map[string]string
	CreatedAt   time.Time
}

// Message 还原为总线消息。
func (e OutboxEvent) Message() eventbus.Message {
	return eventbus.Message{Data: e.Payload, Attributes: e.Attributes}
}

// OutboxRepository 维护事务性发件箱：业务写与事件入箱在同一事务提交，
// 发布由 tasks/outbox 的调度器异步完成（at-least-once）。
type OutboxRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewOutboxRepository 构造 OutboxRepository。
func NewOutboxRepository(pool *pgxpool.Pool, logger log.Logger) *OutboxRepository {
	return &OutboxRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

// Enqueue 在调用方事务内写入一条待发布事件。
func (r *OutboxRepository) Enqueue(ctx context.Context, tx pgx.Tx, msg eventbus.Message) error {
	attrs, err := json.Marshal(msg.Attributes)
	if err != nil {
		return fmt.Errorf("marshal outbox attributes: %w", err)
	}

	eventID, err := uuid.Parse(msg.Attributes["event_id"])
	if err != nil {
		return fmt.Errorf("outbox requires event_id attribute: %w", err)
	}
	aggregateID, err := uuid.Parse(msg.Attributes["aggregate_id"])
	if err != nil {
		return fmt.Errorf("outbox requires aggregate_id attribute: %w", err)
	}

	query := `
		INSERT INTO media.outbox_events (id, event_type, aggregate_id, payload, attributes)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := querier(r.pool, tx).Exec(ctx, query,
		eventID,
		msg.Attributes["event_type"],
		aggregateID,
		msg.Data,
		attrs,
	); err != nil {
		r.log.WithContext(ctx).Errorf("enqueue outbox event failed: event_id=%s err=%v", eventID, err)
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// ListPending 按入箱顺序返回未发布的事件。
func (r *OutboxRepository) ListPending(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, event_type, aggregate_id, payload, attributes, created_at
		FROM media.outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox events: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var (
			evt      OutboxEvent
			rawAttrs []byte
		)
		if err := rows.Scan(&evt.ID, &evt.EventType, &evt.AggregateID, &evt.Payload, &rawAttrs, &evt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		if err := json.Unmarshal(rawAttrs, &evt.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal outbox attributes: %w", err)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// MarkPublished 标记事件已发布。重复标记无害。
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE media.outbox_events SET published_at = now() WHERE id = $1 AND published_at IS NULL`,
		eventID,
	); err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	return nil
}
