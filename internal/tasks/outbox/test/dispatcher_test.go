package outbox_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/eventbus"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/tasks/outbox"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type pendingStoreStub struct {
	mu        sync.Mutex
	pending   []repositories.OutboxEvent
	published []uuid.UUID
	listErr   error
}

func (s *pendingStoreStub) ListPending(_ context.Context, limit int32) ([]repositories.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	if int32(len(s.pending)) < limit {
		limit = int32(len(s.pending))
	}
	return append([]repositories.OutboxEvent(nil), s.pending[:limit]...), nil
}

func (s *pendingStoreStub) MarkPublished(_ context.Context, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, eventID)
	for i, evt := range s.pending {
		if evt.ID == eventID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	return nil
}

type publisherStub struct {
	mu        sync.Mutex
	messages  []eventbus.Message
	failAfter int
}

func (p *publisherStub) Publish(_ context.Context, msg eventbus.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAfter > 0 && len(p.messages) >= p.failAfter {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func pendingEvent(eventType string) repositories.OutboxEvent {
	return repositories.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: uuid.New(),
		Payload:     []byte(`{"k":"v"}`),
		Attributes:  map[string]string{"event_type": eventType},
		CreatedAt:   time.Now(),
	}
}

func newDispatcher(t *testing.T, store *pendingStoreStub, pub *publisherStub) *outbox.Dispatcher {
	t.Helper()
	d, err := outbox.NewDispatcher(store, pub, outbox.Config{}, log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	return d
}

func TestDispatchPendingPublishesInOrder(t *testing.T) {
	first := pendingEvent("upload.finished")
	second := pendingEvent("renditions.identified")
	store := &pendingStoreStub{pending: []repositories.OutboxEvent{first, second}}
	pub := &publisherStub{}

	d := newDispatcher(t, store, pub)
	require.NoError(t, d.DispatchPending(context.Background()))

	require.Len(t, pub.messages, 2)
	require.Equal(t, "upload.finished", pub.messages[0].Attributes["event_type"])
	require.Equal(t, "renditions.identified", pub.messages[1].Attributes["event_type"])
	require.Equal(t, []uuid.UUID{first.ID, second.ID}, store.published)
	require.Empty(t, store.pending)
}

func TestDispatchPendingStopsBatchOnPublishFailure(t *testing.T) {
	first := pendingEvent("upload.finished")
	second := pendingEvent("transcoding.finished")
	store := &pendingStoreStub{pending: []repositories.OutboxEvent{first, second}}
	pub := &publisherStub{failAfter: 1}

	d := newDispatcher(t, store, pub)
	err := d.DispatchPending(context.Background())
	require.Error(t, err)

	// 首条已发布并标记；次条发布失败后整批停止，保持顺序等待下一轮。
	require.Equal(t, []uuid.UUID{first.ID}, store.published)
	require.Len(t, store.pending, 1)
	require.Equal(t, second.ID, store.pending[0].ID)
}

func TestDispatchPendingPropagatesListError(t *testing.T) {
	store := &pendingStoreStub{listErr: errors.New("db down")}
	d := newDispatcher(t, store, &publisherStub{})
	require.Error(t, d.DispatchPending(context.Background()))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &pendingStoreStub{}
	d, err := outbox.NewDispatcher(store, &publisherStub{}, outbox.Config{PollInterval: 5 * time.Millisecond}, log.NewStdLogger(io.Discard))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Run(ctx), context.DeadlineExceeded)
}
