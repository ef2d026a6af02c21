package controllers

import (
	"strconv"

	"github.com/bionicotaku/lingo-services-media/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

// UploadHandler 暴露分块上传的三个 HTTP 操作。
type UploadHandler struct {
	*BaseHandler
	svc *services.UploadService
}

// NewUploadHandler 构造 UploadHandler。
func NewUploadHandler(base *BaseHandler, svc *services.UploadService) *UploadHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &UploadHandler{BaseHandler: base, svc: svc}
}

// Register 挂载路由。
func (h *UploadHandler) Register(srv *khttp.Server) {
	route := srv.Route("/v1")
	route.POST("/channels/{channel_id}/uploads", h.StartUpload)
	route.PUT("/uploads/{upload_id}/chunks/{position}", h.UploadChunk)
	route.POST("/uploads/{upload_id}/finish", h.FinishUpload)
}

// StartUpload 发起或复用上传会话，响应包含已完成分块供续传。
func (h *UploadHandler) StartUpload(ctx khttp.Context) error {
	userID, ok := h.UserID(ctx.Request())
	if !ok {
		return kerrors.Unauthorized(services.ReasonUploadInvalid, "user identity required")
	}
	channelID, err := uuid.Parse(ctx.Vars().Get("channel_id"))
	if err != nil {
		return kerrors.BadRequest(services.ReasonUploadInvalid, "channel_id must be a UUID")
	}

	var req dto.StartUploadRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest(services.ReasonUploadInvalid, "malformed request body")
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	session, err := h.svc.StartUpload(timeoutCtx, services.StartUploadInput{
		UserID:     userID,
		ChannelID:  channelID,
		SHA256Hash: req.SHA256Hash,
		FileName:   req.FileName,
		FileSize:   req.FileSize,
	})
	if err != nil {
		return err
	}
	return ctx.Result(200, dto.FromUploadSession(session))
}

// UploadChunk 接收一个分块的原始字节流。
func (h *UploadHandler) UploadChunk(ctx khttp.Context) error {
	userID, ok := h.UserID(ctx.Request())
	if !ok {
		return kerrors.Unauthorized(services.ReasonUploadInvalid, "user identity required")
	}
	uploadID, err := uuid.Parse(ctx.Vars().Get("upload_id"))
	if err != nil {
		return kerrors.BadRequest(services.ReasonUploadNotFound, "upload_id must be a UUID")
	}
	position, err := strconv.ParseInt(ctx.Vars().Get("position"), 10, 32)
	if err != nil {
		return kerrors.BadRequest(services.ReasonChunkPositionInvalid, "position must be an integer")
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeStream)
	defer cancel()

	result, err := h.svc.UploadChunk(timeoutCtx, services.UploadChunkInput{
		UserID:   userID,
		UploadID: uploadID,
		Position: int32(position),
		Body:     ctx.Request().Body,
	})
	if err != nil {
		return err
	}
	return ctx.Result(200, &dto.UploadChunkReply{
		UploadID:   result.UploadID.String(),
		Position:   result.Position,
		SHA256Hash: result.SHA256Hash,
	})
}

// FinishUpload 合并全部分块并创建处理中的视频。
func (h *UploadHandler) FinishUpload(ctx khttp.Context) error {
	userID, ok := h.UserID(ctx.Request())
	if !ok {
		return kerrors.Unauthorized(services.ReasonUploadInvalid, "user identity required")
	}
	uploadID, err := uuid.Parse(ctx.Vars().Get("upload_id"))
	if err != nil {
		return kerrors.BadRequest(services.ReasonUploadNotFound, "upload_id must be a UUID")
	}

	var req dto.FinishUploadRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest(services.ReasonUploadInvalid, "malformed request body")
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	videoID, err := h.svc.FinishUpload(timeoutCtx, services.FinishUploadInput{
		UserID:   userID,
		UploadID: uploadID,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	return ctx.Result(200, &dto.FinishUploadReply{VideoID: videoID.String()})
}
