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

// ErrVideoNotFound 表示视频记录不存在。
var ErrVideoNotFound = errors.New("video not found")

// VideoRepository 封装 media.videos 及其轨道表的访问逻辑。
type VideoRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewVideoRepository 构造 VideoRepository。
func NewVideoRepository(pool *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

// Insert 创建视频记录。视频 ID 继承自上传会话，重试时冲突视为已创建。
func (r *VideoRepository) Insert(ctx context.Context, tx pgx.Tx, video *po.Video) error {
	query := `
		INSERT INTO media.videos (id, channel_id, name, upload_date, processing_state)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := querier(r.pool, tx).Exec(ctx, query,
		video.ID,
		video.ChannelID,
		video.Name,
		video.UploadDate,
		video.ProcessingState,
	)
	if err != nil {
		r.log.WithContext(ctx).Errorf("insert video failed: video_id=%s err=%v", video.ID, err)
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// FindByID 查询视频及其轨道。
func (r *VideoRepository) FindByID(ctx context.Context, videoID uuid.UUID) (*po.Video, error) {
	query := `
		SELECT id, channel_id, name, upload_date, publish_date, processing_state,
		       duration_micros, processed_duration_micros
		FROM media.videos
		WHERE id = $1
	`
	var video po.Video
	err := r.pool.QueryRow(ctx, query, videoID).Scan(
		&video.ID,
		&video.ChannelID,
		&video.Name,
		&video.UploadDate,
		&video.PublishDate,
		&video.ProcessingState,
		&video.DurationMicros,
		&video.ProcessedDurationMicros,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("find video failed: video_id=%s err=%v", videoID, err)
		return nil, fmt.Errorf("query video: %w", err)
	}

	if video.VideoTracks, err = r.listVideoTracks(ctx, videoID); err != nil {
		return nil, err
	}
	if video.AudioTracks, err = r.listAudioTracks(ctx, videoID); err != nil {
		return nil, err
	}
	return &video, nil
}

// SetRenditions 写入总时长并整体替换轨道元数据。
// 先删后插保证 renditions.identified 重投不会产生重复轨道行。
func (r *VideoRepository) SetRenditions(ctx context.Context, tx pgx.Tx, videoID uuid.UUID, durationMicros int64, videoTracks []po.VideoTrack, audioTracks []po.AudioTrack) error {
	q := querier(r.pool, tx)

	tag, err := q.Exec(ctx, `UPDATE media.videos SET duration_micros = $2 WHERE id = $1`, videoID, durationMicros)
	if err != nil {
		return fmt.Errorf("set video duration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}

	if _, err := q.Exec(ctx, `DELETE FROM media.video_tracks WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("clear video tracks: %w", err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM media.audio_tracks WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("clear audio tracks: %w", err)
	}

	for _, track := range videoTracks {
		if _, err := q.Exec(ctx,
			`INSERT INTO media.video_tracks (id, video_id, height, frame_rate) VALUES ($1, $2, $3, $4)`,
			track.ID, videoID, track.Height, track.FrameRate,
		); err != nil {
			return fmt.Errorf("insert video track: %w", err)
		}
	}
	for _, track := range audioTracks {
		if _, err := q.Exec(ctx,
			`INSERT INTO media.audio_tracks (id, video_id, name, stream_index) VALUES ($1, $2, $3, $4)`,
			track.ID, videoID, track.Name, track.Index,
		); err != nil {
			return fmt.Errorf("insert audio track: %w", err)
		}
	}
	return nil
}

// UpdateProgress 更新已处理时长。进度消息允许乱序，字段只求指示性。
func (r *VideoRepository) UpdateProgress(ctx context.Context, videoID uuid.UUID, processedMicros int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE media.videos SET processed_duration_micros = $2 WHERE id = $1`,
		videoID, processedMicros,
	)
	if err != nil {
		return fmt.Errorf("update video progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// MarkReady 将处理状态置为 ready 并把已处理时长对齐到总时长。幂等。
func (r *VideoRepository) MarkReady(ctx context.Context, videoID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE media.videos SET processing_state = $2, processed_duration_micros = duration_micros WHERE id = $1`,
		videoID, po.ProcessingStateReady,
	)
	if err != nil {
		return fmt.Errorf("mark video ready: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepository) listVideoTracks(ctx context.Context, videoID uuid.UUID) ([]po.VideoTrack, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, video_id, height, frame_rate FROM media.video_tracks WHERE video_id = $1 ORDER BY height ASC`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query video tracks: %w", err)
	}
	defer rows.Close()

	var tracks []po.VideoTrack
	for rows.Next() {
		var t po.VideoTrack
		if err := rows.Scan(&t.ID, &t.VideoID, &t.Height, &t.FrameRate); err != nil {
			return nil, fmt.Errorf("scan video track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (r *VideoRepository) listAudioTracks(ctx context.Context, videoID uuid.UUID) ([]po.AudioTrack, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, video_id, name, stream_index FROM media.audio_tracks WHERE video_id = $1 ORDER BY stream_index ASC`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audio tracks: %w", err)
	}
	defer rows.Close()

	var tracks []po.AudioTrack
	for rows.Next() {
		var t po.AudioTrack
		if err := rows.Scan(&t.ID, &t.VideoID, &t.Name, &t.Index); err != nil {
			return nil, fmt.Errorf("scan audio track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
