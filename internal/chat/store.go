package chat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100
)

type AppendParams struct {
	ChatId   uuid.UUID
	SenderId uuid.UUID
	Content  string
}

type ListParams struct {
	// ChatId restricts the listing to one room. Nil lists every room.
	ChatId *uuid.UUID
	Page   int
	Limit  int
}

// Store is the durable, append-only record of chat messages.
type Store struct {
	db               database.ChatRepository
	log              *zap.Logger
	timeout          time.Duration
	maxContentLength int
}

func NewStore(db database.ChatRepository, logger *zap.Logger, timeout time.Duration, maxContentLength int) *Store {
	return &Store{
		db:               db,
		log:              logger,
		timeout:          timeout,
		maxContentLength: maxContentLength,
	}
}

func (s *Store) validateAppend(params AppendParams) error {
	if params.ChatId == uuid.Nil {
		return &ValidationError{Field: "chatId", Reason: "is required"}
	}
	if params.SenderId == uuid.Nil {
		return &ValidationError{Field: "senderId", Reason: "is required"}
	}
	if params.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if s.maxContentLength > 0 && utf8.RuneCountInString(params.Content) > s.maxContentLength {
		return &ValidationError{Field: "content", Reason: fmt.Sprintf("must be at most %d characters", s.maxContentLength)}
	}
	return nil
}

// Append stores a new message and returns it with its sender resolved. The
// id, sequence and timestamp are assigned by the database.
func (s *Store) Append(ctx context.Context, params AppendParams) (types.Message, error) {
	if err := s.validateAppend(params); err != nil {
		return types.Message{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	dbMsg, err := s.db.CreateMessage(ctx, database.CreateMessageParams{
		ChatId:   params.ChatId,
		SenderId: params.SenderId,
		Content:  params.Content,
	})
	if err != nil {
		var refErr *database.ReferenceError
		if errors.As(err, &refErr) {
			switch refErr.Constraint {
			case database.MessagesChatFKey:
				return types.Message{}, &NotFoundError{Resource: "chat", Id: params.ChatId.String()}
			case database.MessagesSenderFKey:
				return types.Message{}, &NotFoundError{Resource: "user", Id: params.SenderId.String()}
			}
		}

		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	s.log.Debug("message stored",
		zap.Stringer("message_id", dbMsg.Id),
		zap.Stringer("chat_id", dbMsg.ChatId),
		zap.Int64("seq", dbMsg.Seq),
	)

	return toMessage(dbMsg, 0), nil
}

// List returns one page of messages, newest first. Paging is offset based, so
// a message stored while a client pages may shift later pages by one.
func (s *Store) List(ctx context.Context, params ListParams) (types.Page[types.Message], error) {
	page, limit := params.Page, params.Limit
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	if page < 1 {
		return types.Page[types.Message]{}, &ValidationError{Field: "page", Reason: "must be at least 1"}
	}
	if limit < 1 || limit > MaxLimit {
		return types.Page[types.Message]{}, &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
	}
	if page > math.MaxInt/limit {
		return types.Page[types.Message]{}, &ValidationError{Field: "page", Reason: "is out of range"}
	}

	var chatId uuid.NullUUID
	if params.ChatId != nil {
		chatId = uuid.NullUUID{UUID: *params.ChatId, Valid: true}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		total int
		rows  []database.Message
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.db.CountMessages(gctx, chatId)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.db.ListMessages(gctx, database.ListMessagesParams{
			ChatId: chatId,
			Limit:  limit,
			Offset: (page - 1) * limit,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return types.Page[types.Message]{}, fmt.Errorf("list messages: %w", err)
	}

	return types.NewPage(lo.Map(rows, toMessage), total, page, limit), nil
}
