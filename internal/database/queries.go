package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const (
	messageColumns = "m.id, m.seq, m.chat_id, m.sender_id, m.content, m.created_at, " +
		"u.id, u.name, u.email, u.role, " +
		"c.id, c.project_id, c.mls_id, c.property_id"

	chatRoomColumns = "c.id, c.project_id, c.mls_id, c.property_id, c.created_at"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (Message, error) {
	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.Seq,
		&msg.ChatId,
		&msg.SenderId,
		&msg.Content,
		&msg.CreatedAt,
		&msg.Sender.Id,
		&msg.Sender.Name,
		&msg.Sender.Email,
		&msg.Sender.Role,
		&msg.Chat.Id,
		&msg.Chat.ProjectId,
		&msg.Chat.MlsId,
		&msg.Chat.PropertyId,
	)

	return msg, err
}

func scanChatRoom(row scanner, extra ...any) (ChatRoom, error) {
	var room ChatRoom
	dest := []any{
		&room.Id,
		&room.ProjectId,
		&room.MlsId,
		&room.PropertyId,
		&room.CreatedAt,
	}

	err := row.Scan(append(dest, extra...)...)
	return room, err
}

func (db *PgChatRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, name, email, role, created_at",
		params.Name,
		params.Email,
		params.PasswordHash,
		params.Role,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
	)

	return u, classifyError(err)
}

func (db *PgChatRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, email, role, created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
	)

	return u, classifyError(err)
}

func (db *PgChatRepository) CreateProject(ctx context.Context, params CreateProjectParams) (Project, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO projects (name, description, created_by_id) "+
			"VALUES ($1, $2, $3) RETURNING id, name, description, created_by_id, created_at",
		params.Name,
		params.Description,
		params.CreatedById,
	)

	var p Project
	err := row.Scan(
		&p.Id,
		&p.Name,
		&p.Description,
		&p.CreatedById,
		&p.CreatedAt,
	)

	return p, classifyError(err)
}

func (db *PgChatRepository) CreateChatRoom(ctx context.Context, params CreateChatRoomParams) (ChatRoom, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO chat_rooms AS c (project_id, mls_id, property_id) "+
			"VALUES ($1, $2, $3) RETURNING "+chatRoomColumns,
		params.ProjectId,
		params.MlsId,
		params.PropertyId,
	)

	room, err := scanChatRoom(row)
	if err != nil {
		return ChatRoom{}, classifyError(err)
	}

	if room.ProjectId.Valid {
		p, err := db.getProject(ctx, room.ProjectId.UUID)
		if err != nil {
			return ChatRoom{}, err
		}
		room.Project = &p
	}

	return room, nil
}

func (db *PgChatRepository) getProject(ctx context.Context, id uuid.UUID) (Project, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, description, created_by_id, created_at FROM projects WHERE id = $1",
		id,
	)

	var p Project
	err := row.Scan(&p.Id, &p.Name, &p.Description, &p.CreatedById, &p.CreatedAt)
	return p, classifyError(err)
}

func (db *PgChatRepository) GetChatRoom(ctx context.Context, id uuid.UUID) (ChatRoom, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+chatRoomColumns+", p.id, p.name, p.description "+
			"FROM chat_rooms c LEFT JOIN projects p ON p.id = c.project_id "+
			"WHERE c.id = $1",
		id,
	)

	var (
		projectId   uuid.NullUUID
		projectName *string
		projectDesc *string
	)

	room, err := scanChatRoom(row, &projectId, &projectName, &projectDesc)
	if err != nil {
		return ChatRoom{}, classifyError(err)
	}

	if projectId.Valid {
		room.Project = &Project{
			Id:          projectId.UUID,
			Name:        lo.FromPtr(projectName),
			Description: lo.FromPtr(projectDesc),
		}
	}

	return room, nil
}

func (db *PgChatRepository) ListChatRooms(ctx context.Context) ([]ChatRoom, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+chatRoomColumns+", p.id, p.name, p.description, "+
			"(SELECT count(*) FROM messages m WHERE m.chat_id = c.id) "+
			"FROM chat_rooms c LEFT JOIN projects p ON p.id = c.project_id "+
			"ORDER BY c.created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list chat rooms: %w", err)
	}
	defer rows.Close()

	var rooms = make([]ChatRoom, 0)
	for rows.Next() {
		var (
			projectId   uuid.NullUUID
			projectName *string
			projectDesc *string
			count       int
		)

		room, err := scanChatRoom(rows, &projectId, &projectName, &projectDesc, &count)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if projectId.Valid {
			room.Project = &Project{
				Id:          projectId.UUID,
				Name:        lo.FromPtr(projectName),
				Description: lo.FromPtr(projectDesc),
			}
		}
		room.MessageCount = count
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(rooms) == 0 {
		return rooms, nil
	}

	members, err := db.listMembersForRooms(ctx, lo.Map(rooms, func(r ChatRoom, _ int) uuid.UUID {
		return r.Id
	}))
	if err != nil {
		return nil, err
	}

	for i := range rooms {
		rooms[i].Members = members[rooms[i].Id]
	}

	return rooms, nil
}

const memberQuery = "SELECT s.chat_id, s.user_id, s.created_at, a.id, a.name, a.email, a.role " +
	"FROM chat_room_members s JOIN users a ON a.id = s.user_id "

func scanMembership(row scanner) (Membership, error) {
	var m Membership
	err := row.Scan(
		&m.ChatId,
		&m.UserId,
		&m.CreatedAt,
		&m.User.Id,
		&m.User.Name,
		&m.User.Email,
		&m.User.Role,
	)
	return m, err
}

func (db *PgChatRepository) listMembersForRooms(ctx context.Context, chatIds []uuid.UUID) (map[uuid.UUID][]Membership, error) {
	ids := lo.Map(chatIds, func(id uuid.UUID, _ int) string {
		return id.String()
	})

	rows, err := db.conn.QueryContext(ctx,
		memberQuery+"WHERE s.chat_id = ANY($1::uuid[]) ORDER BY s.created_at",
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make(map[uuid.UUID][]Membership, len(chatIds))
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		members[m.ChatId] = append(members[m.ChatId], m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return members, nil
}

func (db *PgChatRepository) ListMembers(ctx context.Context, chatId uuid.UUID) ([]Membership, error) {
	members, err := db.listMembersForRooms(ctx, []uuid.UUID{chatId})
	if err != nil {
		return nil, err
	}

	if members[chatId] == nil {
		return []Membership{}, nil
	}
	return members[chatId], nil
}

func (db *PgChatRepository) AddMember(ctx context.Context, chatId, userId uuid.UUID) (Membership, error) {
	row := db.conn.QueryRowContext(ctx,
		"WITH ins AS ("+
			"INSERT INTO chat_room_members (chat_id, user_id) VALUES ($1, $2) "+
			"RETURNING chat_id, user_id, created_at"+
			") SELECT ins.chat_id, ins.user_id, ins.created_at, a.id, a.name, a.email, a.role "+
			"FROM ins JOIN users a ON a.id = ins.user_id",
		chatId,
		userId,
	)

	m, err := scanMembership(row)
	return m, classifyError(err)
}

func (db *PgChatRepository) MembershipExists(ctx context.Context, chatId, userId uuid.UUID) (bool, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM chat_room_members WHERE chat_id = $1 AND user_id = $2)",
		chatId,
		userId,
	)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, classifyError(err)
	}

	return exists, nil
}

// CreateMessage inserts a message and returns it joined with its sender and
// chat. The id, sequence and timestamp are assigned by Postgres.
func (db *PgChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRowContext(ctx,
		"WITH m AS ("+
			"INSERT INTO messages (chat_id, sender_id, content) VALUES ($1, $2, $3) "+
			"RETURNING id, seq, chat_id, sender_id, content, created_at"+
			") SELECT "+messageColumns+" FROM m "+
			"JOIN users u ON u.id = m.sender_id "+
			"JOIN chat_rooms c ON c.id = m.chat_id",
		params.ChatId,
		params.SenderId,
		params.Content,
	)

	msg, err := scanMessage(row)
	return msg, classifyError(err)
}

func (db *PgChatRepository) ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages m "+
			"JOIN users u ON u.id = m.sender_id "+
			"JOIN chat_rooms c ON c.id = m.chat_id "+
			"WHERE ($1::uuid IS NULL OR m.chat_id = $1) "+
			"ORDER BY m.created_at DESC, m.seq DESC LIMIT $2 OFFSET $3",
		params.ChatId,
		limit,
		params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

func (db *PgChatRepository) CountMessages(ctx context.Context, chatId uuid.NullUUID) (int, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT count(*) FROM messages WHERE ($1::uuid IS NULL OR chat_id = $1)",
		chatId,
	)

	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}

	return total, nil
}
