package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecentMessagesLimit is the number of messages embedded in a room lookup.
const RecentMessagesLimit = 50

type CreateRoomParams struct {
	ProjectId  *uuid.UUID
	MlsId      *string
	PropertyId *string
}

// Rooms manages chat rooms and their memberships.
type Rooms struct {
	db      database.ChatRepository
	log     *zap.Logger
	timeout time.Duration
}

func NewRooms(db database.ChatRepository, logger *zap.Logger, timeout time.Duration) *Rooms {
	return &Rooms{
		db:      db,
		log:     logger,
		timeout: timeout,
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *Rooms) Create(ctx context.Context, params CreateRoomParams) (types.ChatRoom, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var projectId uuid.NullUUID
	if params.ProjectId != nil {
		projectId = uuid.NullUUID{UUID: *params.ProjectId, Valid: true}
	}

	room, err := r.db.CreateChatRoom(ctx, database.CreateChatRoomParams{
		ProjectId:  projectId,
		MlsId:      nullString(params.MlsId),
		PropertyId: nullString(params.PropertyId),
	})
	if err != nil {
		var refErr *database.ReferenceError
		if errors.As(err, &refErr) && refErr.Constraint == database.ChatRoomsProjectFKey {
			return types.ChatRoom{}, &NotFoundError{Resource: "project", Id: projectId.UUID.String()}
		}
		return types.ChatRoom{}, fmt.Errorf("create chat room: %w", err)
	}

	r.log.Info("chat room created", zap.Stringer("chat_id", room.Id))
	return toChatRoom(room, 0), nil
}

// AddMember adds a participant to a room. Each (room, user) pair can be added once.
func (r *Rooms) AddMember(ctx context.Context, chatId, userId uuid.UUID) (types.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	m, err := r.db.AddMember(ctx, chatId, userId)
	if err != nil {
		var refErr *database.ReferenceError
		if errors.As(err, &refErr) {
			switch refErr.Constraint {
			case database.MembersChatFKey:
				return types.Membership{}, &NotFoundError{Resource: "chat", Id: chatId.String()}
			case database.MembersUserFKey:
				return types.Membership{}, &NotFoundError{Resource: "user", Id: userId.String()}
			}
		}
		if errors.Is(err, database.ErrDuplicate) {
			return types.Membership{}, &ConflictError{Resource: "membership", Reason: "user is already a member of this chat"}
		}
		return types.Membership{}, fmt.Errorf("add member: %w", err)
	}

	r.log.Info("member added", zap.Stringer("chat_id", chatId), zap.Stringer("user_id", userId))
	return toMembership(m, 0), nil
}

// Get returns a room with its members and the most recent messages, newest first.
func (r *Rooms) Get(ctx context.Context, chatId uuid.UUID) (types.ChatRoom, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dbRoom, err := r.db.GetChatRoom(ctx, chatId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.ChatRoom{}, &NotFoundError{Resource: "chat", Id: chatId.String()}
		}
		return types.ChatRoom{}, fmt.Errorf("get chat room: %w", err)
	}

	var (
		members  []database.Membership
		messages []database.Message
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = r.db.ListMembers(gctx, chatId)
		return err
	})
	g.Go(func() error {
		var err error
		messages, err = r.db.ListMessages(gctx, database.ListMessagesParams{
			ChatId: uuid.NullUUID{UUID: chatId, Valid: true},
			Limit:  RecentMessagesLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return types.ChatRoom{}, fmt.Errorf("get chat room: %w", err)
	}

	dbRoom.Members = members
	room := toChatRoom(dbRoom, 0)
	room.Messages = lo.Map(messages, toMessage)

	return room, nil
}

// List returns every room with its members and message count, newest room first.
func (r *Rooms) List(ctx context.Context) ([]types.ChatRoom, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dbRooms, err := r.db.ListChatRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chat rooms: %w", err)
	}

	return lo.Map(dbRooms, func(dbRoom database.ChatRoom, i int) types.ChatRoom {
		room := toChatRoom(dbRoom, i)
		room.MessageCount = lo.ToPtr(dbRoom.MessageCount)
		return room
	}), nil
}
