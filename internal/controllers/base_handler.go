// Package controllers 暴露 HTTP 接口层，负责参数解析、身份提取与超时控制。
package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HandlerType 表示 Handler 的语义类别，用于选择超时策略。
type HandlerType int

const (
	// HandlerTypeDefault 表示未显式区分的 Handler。
	HandlerTypeDefault HandlerType = iota
	// HandlerTypeCommand 表示写模型命令 Handler。
	HandlerTypeCommand
	// HandlerTypeStream 表示消费请求体字节流的 Handler，允许更长的超时。
	HandlerTypeStream
)

// HandlerTimeouts 聚合不同类型 Handler 的超时策略。
type HandlerTimeouts struct {
	Default time.Duration
	Command time.Duration
	Stream  time.Duration
}

const (
	fallbackDefaultTimeout = 5 * time.Second
	fallbackStreamTimeout  = 15 * time.Minute
	headerUserID           = "x-md-global-user-id"
)

// BaseHandler 提供公共的超时与身份解析能力，供具体 Handler 内嵌复用。
type BaseHandler struct {
	timeouts HandlerTimeouts
}

// NewBaseHandler 构造基础 Handler，并为缺省值填充合理的回退策略。
func NewBaseHandler(timeouts HandlerTimeouts) *BaseHandler {
	if timeouts.Default <= 0 {
		if timeouts.Command > 0 {
			timeouts.Default = timeouts.Command
		} else {
			timeouts.Default = fallbackDefaultTimeout
		}
	}
	if timeouts.Command <= 0 {
		timeouts.Command = timeouts.Default
	}
	if timeouts.Stream <= 0 {
		timeouts.Stream = fallbackStreamTimeout
	}
	return &BaseHandler{timeouts: timeouts}
}

// WithTimeout 根据 Handler 类型包装上下文，返回绑定超时的新 Context 与取消函数。
func (h *BaseHandler) WithTimeout(ctx context.Context, kind HandlerType) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackDefaultTimeout)
	}
	var timeout time.Duration
	switch kind {
	case HandlerTypeCommand:
		timeout = h.timeouts.Command
	case HandlerTypeStream:
		timeout = h.timeouts.Stream
	default:
		timeout = h.timeouts.Default
	}
	return context.WithTimeout(ctx, timeout)
}

// UserID 从请求头解析调用方身份。网关负责认证并注入该头。
// 返回 (uuid.Nil, false) 表示头缺失或不是合法 UUID。
func (h *BaseHandler) UserID(r *http.Request) (uuid.UUID, bool) {
	raw := strings.TrimSpace(r.Header.Get(headerUserID))
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
