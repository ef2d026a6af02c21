package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrChannelNotFound 表示频道不存在。
var ErrChannelNotFound = errors.New("channel not found")

// ChannelRepository 只读访问 media.channels。频道的写入归 channels 服务。
type ChannelRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewChannelRepository 构造 ChannelRepository。
func NewChannelRepository(pool *pgxpool.Pool, logger log.Logger) *ChannelRepository {
	return &ChannelRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

// GetByID 按 ID 查询频道。
func (r *ChannelRepository) GetByID(ctx context.Context, channelID uuid.UUID) (*po.Channel, error) {
	query := `
		SELECT id, owner_id, name, created_at
		FROM media.channels
		WHERE id = $1
	`
	var channel po.Channel
	err := r.pool.QueryRow(ctx, query, channelID).Scan(
		&channel.ID,
		&channel.OwnerID,
		&channel.Name,
		&channel.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChannelNotFound
		}
		r.log.WithContext(ctx).Errorf("get channel failed: channel_id=%s err=%v", channelID, err)
		return nil, fmt.Errorf("query channel: %w", err)
	}
	return &channel, nil
}
