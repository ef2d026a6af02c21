package po

import (
	"time"

	"github.com/google/uuid"
)

// Channel 描述视频归属的频道。本服务只读：频道 CRUD 由 channels 服务负责。
type Channel struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	CreatedAt time.Time
}
