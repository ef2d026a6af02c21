package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/cache"
	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/storage"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// maxChunkPosition 限制单个会话的分块位置上限（含）。
const maxChunkPosition = 10000

var sha256HexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// UploadRepositoryContract 抽象上传会话持久化操作，便于测试。
type UploadRepositoryContract interface {
	Create(ctx context.Context, tx pgx.Tx, session *po.UploadSession) error
	GetByChannelHash(ctx context.Context, tx pgx.Tx, channelID uuid.UUID, sha256Hash string) (*po.UploadSession, error)
	GetOwned(ctx context.Context, tx pgx.Tx, uploadID, ownerID uuid.UUID) (*po.UploadSession, error)
	ReserveChunk(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID, position int32) error
	CompleteChunk(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID, position int32, sha256Hash, storageETag string) error
	Delete(ctx context.Context, tx pgx.Tx, uploadID uuid.UUID) error
}

// ChannelRepositoryContract 抽象频道查询。
type ChannelRepositoryContract interface {
	GetByID(ctx context.Context, channelID uuid.UUID) (*po.Channel, error)
}

// VideoRepositoryContract 抽象视频创建（FinishUpload 事务内使用）。
type VideoRepositoryContract interface {
	Insert(ctx context.Context, tx pgx.Tx, video *po.Video) error
}

// OutboxRepositoryContract 抽象发件箱入箱。
type OutboxRepositoryContract interface {
	Enqueue(ctx context.Context, tx pgx.Tx, msg eventbus.Message) error
}

// StartUploadInput 为发起上传会话的输入。
type StartUploadInput struct {
	UserID     uuid.UUID
	ChannelID  uuid.UUID
	SHA256Hash string
	FileName   string
	FileSize   int64
}

// UploadChunkInput 为上传单个分块的输入。Body 只被消费一次。
type UploadChunkInput struct {
	UserID   uuid.UUID
	UploadID uuid.UUID
	Position int32
	Body     io.Reader
}

// UploadChunkResult 为分块上传的结果。
type UploadChunkResult struct {
	UploadID   uuid.UUID
	Position   int32
	SHA256Hash string
}

// FinishUploadInput 为完成上传的输入。Name 为空时回退到会话文件名。
type FinishUploadInput struct {
	UserID   uuid.UUID
	UploadID uuid.UUID
	Name     string
}

// UploadService 实现分块上传的业务用例：发起（可续传）、分块写入、合并完成。
type UploadService struct {
	uploads  UploadRepositoryContract
	videos   VideoRepositoryContract
	outbox   OutboxRepositoryContract
	store    storage.ContentStore
	txm      repositories.TxManager
	channels *cache.Loader[*po.Channel]
	loadCh   func(ctx context.Context, channelID uuid.UUID) (*po.Channel, error)
	log      *log.Helper
	now      func() time.Time
}

// NewUploadService 创建 UploadService。
func NewUploadService(
	uploads UploadRepositoryContract,
	channels ChannelRepositoryContract,
	videos VideoRepositoryContract,
	outbox OutboxRepositoryContract,
	store storage.ContentStore,
	txm repositories.TxManager,
	ownershipTTL time.Duration,
	logger log.Logger,
) (*UploadService, error) {
	switch {
	case uploads == nil:
		return nil, errors.New("upload service: upload repository is required")
	case channels == nil:
		return nil, errors.New("upload service: channel repository is required")
	case videos == nil:
		return nil, errors.New("upload service: video repository is required")
	case outbox == nil:
		return nil, errors.New("upload service: outbox repository is required")
	case store == nil:
		return nil, errors.New("upload service: content store is required")
	case txm == nil:
		return nil, errors.New("upload service: tx manager is required")
	}

	return &UploadService{
		uploads:  uploads,
		videos:   videos,
		outbox:   outbox,
		store:    store,
		txm:      txm,
		channels: cache.NewLoader[*po.Channel](ownershipTTL),
		loadCh:   channels.GetByID,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}, nil
}

// StartUpload 发起或复用上传会话。
// 同一频道下相同内容哈希的会话唯一；并发发起时落败方回读赢家会话，
// 因此客户端总能拿到同一个会话继续续传。
func (s *UploadService) StartUpload(ctx context.Context, input StartUploadInput) (*po.UploadSession, error) {
	hash := strings.ToLower(input.SHA256Hash)
	if !sha256HexPattern.MatchString(hash) {
		return nil, kerrors.BadRequest(ReasonUploadInvalid, "sha256_hash must be 64 hex characters")
	}
	if input.FileName == "" {
		return nil, kerrors.BadRequest(ReasonUploadInvalid, "file_name is required")
	}
	if input.FileSize <= 0 {
		return nil, kerrors.BadRequest(ReasonUploadInvalid, "file_size must be positive")
	}
	if err := s.checkChannelOwnership(ctx, input.ChannelID, input.UserID); err != nil {
		return nil, err
	}

	if existing, err := s.uploads.GetByChannelHash(ctx, nil, input.ChannelID, hash); err == nil {
		return existing, nil
	} else if !errors.Is(err, repositories.ErrUploadNotFound) {
		return nil, fmt.Errorf("lookup upload session: %w", err)
	}

	// 会话 ID 同时是未来视频的 ID，也决定源文件在存储中的位置。
	sessionID := uuid.New()
	key := storage.SourcePath(input.ChannelID, sessionID)
	storageUploadID, err := s.store.InitiateMultipartUpload(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("initiate multipart upload: %w", err)
	}

	session := &po.UploadSession{
		ID:              sessionID,
		ChannelID:       input.ChannelID,
		SHA256Hash:      hash,
		FileName:        input.FileName,
		FileSize:        input.FileSize,
		StorageUploadID: storageUploadID,
	}
	if err := s.uploads.Create(ctx, nil, session); err != nil {
		if errors.Is(err, repositories.ErrUploadExists) {
			// 并发发起时另一请求先插入成功：丢弃本次 multipart，回读赢家。
			if abortErr := s.store.AbortMultipartUpload(ctx, key, storageUploadID); abortErr != nil {
				s.log.WithContext(ctx).Warnf("abort orphan multipart failed: key=%s err=%v", key, abortErr)
			}
			return s.uploads.GetByChannelHash(ctx, nil, input.ChannelID, hash)
		}
		return nil, fmt.Errorf("create upload session: %w", err)
	}

	s.log.WithContext(ctx).Infof("upload session started: upload_id=%s channel_id=%s size=%d", session.ID, input.ChannelID, input.FileSize)
	return session, nil
}

// UploadChunk 接收一个分块：在计算 SHA-256 的同时把字节流写入存储分片，
// 两条路径共享同一份流，不落盘也不双份缓冲。重传同一位置为幂等覆盖。
func (s *UploadService) UploadChunk(ctx context.Context, input UploadChunkInput) (*UploadChunkResult, error) {
	if input.Position < 0 || input.Position > maxChunkPosition {
		return nil, kerrors.BadRequest(ReasonChunkPositionInvalid,
			fmt.Sprintf("chunk position must be within [0, %d]", maxChunkPosition))
	}

	session, err := s.getOwnedSession(ctx, input.UploadID, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.uploads.ReserveChunk(ctx, nil, session.ID, input.Position); err != nil {
		return nil, err
	}

	key := storage.SourcePath(session.ChannelID, session.ID)
	hasher := sha256.New()
	pr, pw := io.Pipe()

	g, gctx := errgroup.WithContext(ctx)
	var etag string
	g.Go(func() error {
		_, copyErr := io.Copy(io.MultiWriter(hasher, pw), input.Body)
		pw.CloseWithError(copyErr)
		return copyErr
	})
	g.Go(func() error {
		tag, uploadErr := s.store.UploadPart(gctx, storage.UploadPartInput{
			Key:      key,
			UploadID: session.StorageUploadID,
			Number:   input.Position,
			Body:     pr,
		})
		if uploadErr != nil {
			// 让生产者尽快从 Copy 返回，不再等待消费端。
			pr.CloseWithError(uploadErr)
			return uploadErr
		}
		etag = tag
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("upload chunk %d: %w", input.Position, err)
	}

	chunkHash := hex.EncodeToString(hasher.Sum(nil))
	if err := s.uploads.CompleteChunk(ctx, nil, session.ID, input.Position, chunkHash, etag); err != nil {
		return nil, err
	}

	return &UploadChunkResult{
		UploadID:   session.ID,
		Position:   input.Position,
		SHA256Hash: chunkHash,
	}, nil
}

// FinishUpload 合并全部分块为源文件，并在一个事务里删除会话、创建处理中的
// 视频记录、把 upload.finished 写入发件箱。事件发布由 outbox 调度器异步完成，
// 与业务写属于同一次提交。返回新视频 ID。
func (s *UploadService) FinishUpload(ctx context.Context, input FinishUploadInput) (uuid.UUID, error) {
	session, err := s.getOwnedSession(ctx, input.UploadID, input.UserID)
	if err != nil {
		return uuid.Nil, err
	}

	if len(session.Chunks) == 0 {
		return uuid.Nil, kerrors.Conflict(ReasonNoChunksUploaded, "no chunks uploaded")
	}
	parts := make([]storage.PartETag, 0, len(session.Chunks))
	for _, chunk := range session.Chunks {
		if !chunk.Completed() {
			return uuid.Nil, kerrors.Conflict(ReasonUploadChunksNotFinished,
				fmt.Sprintf("chunk at position %d is not finished", chunk.Position))
		}
		parts = append(parts, storage.PartETag{Number: chunk.Position, ETag: *chunk.StorageETag})
	}

	key := storage.SourcePath(session.ChannelID, session.ID)
	if err := s.store.CompleteMultipartUpload(ctx, key, session.StorageUploadID, parts); err != nil {
		return uuid.Nil, fmt.Errorf("complete multipart upload: %w", err)
	}

	name := input.Name
	if name == "" {
		name = session.FileName
	}
	video := &po.Video{
		ID:              session.ID,
		ChannelID:       session.ChannelID,
		Name:            name,
		UploadDate:      s.now().UTC(),
		ProcessingState: po.ProcessingStateProcessing,
	}
	msg, err := events.Encode(events.KindUploadFinished, video.ID, events.UploadFinished{
		ChannelID:             session.ChannelID,
		VideoID:               video.ID,
		OriginalFileExtension: session.OriginalFileExtension(),
	})
	if err != nil {
		return uuid.Nil, err
	}

	err = s.txm.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.uploads.Delete(ctx, tx, session.ID); err != nil {
			return err
		}
		if err := s.videos.Insert(ctx, tx, video); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, msg)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("finish upload: %w", err)
	}

	s.log.WithContext(ctx).Infof("upload finished: upload_id=%s video_id=%s chunks=%d", session.ID, video.ID, len(parts))
	return video.ID, nil
}

func (s *UploadService) getOwnedSession(ctx context.Context, uploadID, userID uuid.UUID) (*po.UploadSession, error) {
	session, err := s.uploads.GetOwned(ctx, nil, uploadID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return nil, kerrors.NotFound(ReasonUploadNotFound, "upload session not found")
		}
		return nil, fmt.Errorf("lookup upload session: %w", err)
	}
	return session, nil
}

// checkChannelOwnership 校验频道归属。查询结果按 TTL 记忆化，
// 同一频道的并发校验只落库一次。归属错误对外与不存在同样呈现，
// 避免探测他人频道 ID。
func (s *UploadService) checkChannelOwnership(ctx context.Context, channelID, userID uuid.UUID) error {
	channel, err := s.channels.Get(ctx, channelID.String(), func(ctx context.Context) (*po.Channel, error) {
		return s.loadCh(ctx, channelID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			return kerrors.NotFound(ReasonChannelNotFound, "channel not found")
		}
		return fmt.Errorf("lookup channel: %w", err)
	}
	if channel.OwnerID != userID {
		return kerrors.NotFound(ReasonNotChannelOwner, "channel not found")
	}
	return nil
}
