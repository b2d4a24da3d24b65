package chat

import (
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/types"
	"github.com/samber/lo"
)

func toUser(u database.User) types.User {
	return types.User{
		Id:    u.Id,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

func toMessage(m database.Message, _ int) types.Message {
	sender := toUser(m.Sender)
	chat := types.ChatRef{
		Id: m.Chat.Id,
	}
	if m.Chat.ProjectId.Valid {
		chat.ProjectId = lo.ToPtr(m.Chat.ProjectId.UUID)
	}
	if m.Chat.MlsId.Valid {
		chat.MlsId = lo.ToPtr(m.Chat.MlsId.String)
	}
	if m.Chat.PropertyId.Valid {
		chat.PropertyId = lo.ToPtr(m.Chat.PropertyId.String)
	}

	return types.Message{
		Id:        m.Id,
		Seq:       m.Seq,
		ChatId:    m.ChatId,
		SenderId:  m.SenderId,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
		Sender:    &sender,
		Chat:      &chat,
	}
}

func toMembership(m database.Membership, _ int) types.Membership {
	user := toUser(m.User)
	return types.Membership{
		ChatId:    m.ChatId,
		UserId:    m.UserId,
		User:      &user,
		CreatedAt: m.CreatedAt,
	}
}

func toChatRoom(r database.ChatRoom, _ int) types.ChatRoom {
	room := types.ChatRoom{
		Id:        r.Id,
		Members:   lo.Map(r.Members, toMembership),
		CreatedAt: r.CreatedAt,
	}
	if r.ProjectId.Valid {
		room.ProjectId = lo.ToPtr(r.ProjectId.UUID)
	}
	if r.MlsId.Valid {
		room.MlsId = lo.ToPtr(r.MlsId.String)
	}
	if r.PropertyId.Valid {
		room.PropertyId = lo.ToPtr(r.PropertyId.String)
	}
	if r.Project != nil {
		room.Project = &types.Project{
			Id:          r.Project.Id,
			Name:        r.Project.Name,
			Description: r.Project.Description,
		}
	}

	return room
}
