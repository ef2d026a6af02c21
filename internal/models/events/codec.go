package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	"github.com/google/uuid"
)

// Encode 将事件载荷编码为总线消息，属性由事件类型与聚合 ID 推导。
func Encode(kind Kind, aggregateID uuid.UUID, payload any) (eventbus.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return eventbus.Message{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return eventbus.Message{
		Data:       data,
		Attributes: BuildAttributes(kind, uuid.New(), aggregateID, time.Now()),
	}, nil
}

// Decode 将消息载荷解码到目标载荷结构。调用方先经 KindFromAttributes 路由。
func Decode[T any](msg eventbus.Message) (*T, error) {
	var payload T
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", msg.Attributes["event_type"], err)
	}
	return &payload, nil
}
