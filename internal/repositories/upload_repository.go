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

var (
	// ErrUploadNotFound 表示上传会话不存在（或不归调用方所有）。
	ErrUploadNotFound = errors.New("upload session not found")
	// ErrUploadExists 表示 (channel_id, sha256_hash) 唯一约束冲突，调用方应回读赢家记录。
	ErrUploadExists = errors.New("upload session already exists")
)

// UploadRepository 封装 media.uploads / media.upload_chunks 两张表的访问逻辑。
type UploadRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewUploadRepository 构造 UploadRepository。
func NewUploadRepository(pool *pgxpool.Pool, logger log.Logger) *UploadRepository {
	return &UploadRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

// Create 插入新的上传会话。唯一约束冲突时返回 ErrUploadExists。
func (r *UploadRepository) Create(ctx context.Context, tx pgx.Tx, session *po.UploadSession) error {
	query := `
		INSERT INTO media.uploads (id, channel_id, sha256_hash, file_name, file_size, storage_upload_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := querier(r.pool, tx).QueryRow(ctx, query,
		session.ID,
		session.ChannelID,
		session.SHA256Hash,
		session.FileName,
		session.FileSize,
		session.StorageUploadID,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUploadExists
		}
		r.log.WithContext(ctx).Errorf("create upload failed: channel_id=%s err=%v", session.ChannelID, err)
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// GetByChannelHash 按 (channel_id, sha256_hash) 查询会话，含全部分块。
func (r *UploadRepository) GetByChannelHash(ctx context.Context, tx pgx.Tx, channelID uuid.UUID, sha256Hash string) (*po.UploadSession, error) {
	query := `
		SELECT id, channel_id, sha256_hash, file_name, file_size, storage_upload_id, created_at, updated_at
		FROM media.uploads
		WHERE channel_id = $1 AND sha256_hash = $2
	`
	return r.getSession(ctx, tx, query, channelID, sha256Hash)
}

// GetOwned 查询指定 ID 的会话，要求所属频道归 ownerID 所有；否则同样返回 ErrUploadNotFound。
func (r *UploadRepository) GetOwned(ctx context.Context, tx pgx.Tx, uploadID, ownerID uuid.UUID) (*po.UploadSession, error) {
	query := `
		SELECT u.id, u.channel_id, u.sha256_hash, u.file_name, u.file_size, u.storage_upload_id, u.created_at, u.updated_at
		FROM media.uploads u
		JOIN media.channels c ON c.id = u.channel_id
		WHERE u.id = $1 AND c.owner_id = $2
	`
	return r.getSession(ctx, tx, query, uploadID, ownerID)
}

func (r *UploadRepository) getSession(ctx context.Context, tx pgx.Tx, query string, args ...any) (*po.UploadSession, error) {
	var session po.UploadSession
	err := querier(r.pool, tx).QueryRow(ctx, query, args...).Scan(
		&session.ID,
		&session.ChannelID,
		&session.SHA256Hash,
		&session.FileName,
		&session.FileSize,
		&session.StorageUploadID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		r.log.WithContext(ctx).Errorf("get upload failed: err=%v", err)
		return nil, fmt.Errorf("query upload: %w", err)
	}

	chunks, err := r.listChunks(ctx, tx, session.ID)
	if err != nil {
		return nil, err
	}
	session.Chunks = chunks
	return &session, nil
}

func (r *UploadRepository) listChunks(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID) ([]po.UploadChunk, error) {
	query := `
		SELECT upload_id, position, sha256_hash, storage_etag, updated_at
		FROM media.upload_chunks
		WHERE upload_id = $1
		ORDER BY position ASC
	`
	rows, err := querier(r.pool, tx).Query(ctx, query, uploadID)
	if err != nil {
		return nil, fmt.Errorf("query upload chunks: %w", err)
	}
	defer rows.Close()

	var chunks []po.UploadChunk
	for rows.Next() {
		var chunk po.UploadChunk
		if err := rows.Scan(&chunk.UploadID, &chunk.Position, &chunk.SHA256Hash, &chunk.StorageETag, &chunk.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan upload chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upload chunks: %w", err)
	}
	return chunks, nil
}

// ReserveChunk 为指定位置占位。位置已存在时不做任何修改。
func (r *UploadRepository) ReserveChunk(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID, position int32) error {
	query := `
		INSERT INTO media.upload_chunks (upload_id, position)
		VALUES ($1, $2)
		ON CONFLICT (upload_id, position) DO NOTHING
	`
	if _, err := querier(r.pool, tx).Exec(ctx, query, uploadID, position); err != nil {
		r.log.WithContext(ctx).Errorf("reserve chunk failed: upload_id=%s position=%d err=%v", uploadID, position, err)
		return fmt.Errorf("reserve chunk: %w", err)
	}
	return nil
}

// CompleteChunk 写入分块的哈希与 part tag。重复上传同一位置为覆盖，不产生重复行。
func (r *UploadRepository) CompleteChunk(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID, position int32, sha256Hash, storageETag string) error {
	query := `
		INSERT INTO media.upload_chunks (upload_id, position, sha256_hash, storage_etag)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (upload_id, position)
		DO UPDATE SET sha256_hash = EXCLUDED.sha256_hash, storage_etag = EXCLUDED.storage_etag, updated_at = now()
	`
	if _, err := querier(r.pool, tx).Exec(ctx, query, uploadID, position, sha256Hash, storageETag); err != nil {
		r.log.WithContext(ctx).Errorf("complete chunk failed: upload_id=%s position=%d err=%v", uploadID, position, err)
		return fmt.Errorf("complete chunk: %w", err)
	}
	return nil
}

// Delete 删除会话及其分块（分块靠外键级联）。
func (r *UploadRepository) Delete(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID) error {
	if _, err := querier(r.pool, tx).Exec(ctx, `DELETE FROM media.uploads WHERE id = $1`, uploadID); err != nil {
		r.log.WithContext(ctx).Errorf("delete upload failed: upload_id=%s err=%v", uploadID, err)
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}
