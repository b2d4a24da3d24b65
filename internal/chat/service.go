package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/types"
	"go.uber.org/zap"
)

// Publisher pushes a stored message to the realtime subscribers of its room
// and reports how many connections it was queued for.
type Publisher interface {
	Publish(ctx context.Context, msg types.Message) int
}

// Service ties the message store to the realtime publisher.
type Service struct {
	store *Store
	pub   Publisher
	log   *zap.Logger
	locks *roomLocks
}

func NewService(store *Store, pub Publisher, logger *zap.Logger) *Service {
	return &Service{
		store: store,
		pub:   pub,
		log:   logger,
		locks: newRoomLocks(),
	}
}

// CreateMessage stores the message and publishes it to the room. Append and
// publish are serialised per room, so subscribers see a room's messages in
// store order. Publishing never fails the call.
func (s *Service) CreateMessage(ctx context.Context, params AppendParams) (types.Message, error) {
	unlock := s.locks.lock(params.ChatId)
	defer unlock()

	msg, err := s.store.Append(ctx, params)
	if err != nil {
		return types.Message{}, err
	}

	n := s.pub.Publish(ctx, msg)
	s.log.Debug("message published",
		zap.Stringer("message_id", msg.Id),
		zap.Stringer("chat_id", msg.ChatId),
		zap.Int("recipients", n),
	)

	return msg, nil
}

func (s *Service) ListMessages(ctx context.Context, params ListParams) (types.Page[types.Message], error) {
	return s.store.List(ctx, params)
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// roomLocks hands out one mutex per room; entries are dropped once unused.
type roomLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*roomLock
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[uuid.UUID]*roomLock)}
}

func (l *roomLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &roomLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
