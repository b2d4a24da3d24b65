// Command seed populates an empty database with demo users, projects and
// group chats, then prints a bearer token for each user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/npezzotti/dealchat/internal/auth"
	"github.com/npezzotti/dealchat/internal/config"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/logger"
	"go.uber.org/zap"
)

const demoPassword = "password123"

type seedUser struct {
	name, email, role string
}

var demoUsers = []seedUser{
	{"John Buyer", "buyer@example.com", "buyer"},
	{"Jane Seller", "seller@example.com", "seller"},
	{"Bob Realtor", "realtor@example.com", "realtor"},
}

type seedMessage struct {
	sender  int
	content string
}

type seedChat struct {
	project     string
	description string
	createdBy   int
	members     []int
	messages    []seedMessage
}

var demoChats = []seedChat{
	{
		project:     "Downtown Luxury Condo",
		description: "Beautiful 2BR condo in the heart of downtown with stunning city views",
		createdBy:   2,
		members:     []int{0, 1, 2},
		messages: []seedMessage{
			{2, "Welcome to the Downtown Luxury Condo chat!"},
			{0, "Hi! I'm very interested in this property."},
			{1, "Great to hear! Would you like to schedule a viewing?"},
		},
	},
	{
		project:     "Suburban Family Home",
		description: "4BR house with large backyard, perfect for families",
		createdBy:   2,
		members:     []int{0, 2},
		messages: []seedMessage{
			{2, "This family home has everything you need!"},
			{0, "The backyard looks amazing!"},
		},
	},
}

func main() {
	var envFile string
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := database.Migrate(cfg.DatabaseDSN); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	db, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users, err := seed(ctx, db, log)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			log.Error("database already seeded", zap.Error(err))
		} else {
			log.Error("seed", zap.Error(err))
		}
		return
	}

	color.Green.Println("Seeding completed")
	fmt.Printf("Password for every user: %s\n\n", demoPassword)
	for _, u := range users {
		token, err := auth.IssueToken(cfg.SigningKey, u.Id, auth.DefaultExp)
		if err != nil {
			log.Error("issue token", zap.Error(err))
			return
		}
		color.Cyan.Printf("%-8s", u.Role)
		fmt.Printf(" %s %s\n         %s\n", u.Id, u.Email, token)
	}
}

func seed(ctx context.Context, db database.ChatRepository, log *zap.Logger) ([]database.User, error) {
	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	users := make([]database.User, 0, len(demoUsers))
	for _, u := range demoUsers {
		created, err := db.CreateUser(ctx, database.CreateUserParams{
			Name:         u.name,
			Email:        u.email,
			PasswordHash: hash,
			Role:         u.role,
		})
		if err != nil {
			return nil, fmt.Errorf("create user %s: %w", u.email, err)
		}
		users = append(users, created)
	}
	log.Info("created users", zap.Int("count", len(users)))

	for _, c := range demoChats {
		project, err := db.CreateProject(ctx, database.CreateProjectParams{
			Name:        c.project,
			Description: c.description,
			CreatedById: uuid.NullUUID{UUID: users[c.createdBy].Id, Valid: true},
		})
		if err != nil {
			return nil, fmt.Errorf("create project %q: %w", c.project, err)
		}

		room, err := db.CreateChatRoom(ctx, database.CreateChatRoomParams{
			ProjectId: uuid.NullUUID{UUID: project.Id, Valid: true},
		})
		if err != nil {
			return nil, fmt.Errorf("create chat room: %w", err)
		}

		for _, i := range c.members {
			if _, err := db.AddMember(ctx, room.Id, users[i].Id); err != nil {
				return nil, fmt.Errorf("add member: %w", err)
			}
		}

		for _, m := range c.messages {
			if _, err := db.CreateMessage(ctx, database.CreateMessageParams{
				ChatId:   room.Id,
				SenderId: users[m.sender].Id,
				Content:  m.content,
			}); err != nil {
				return nil, fmt.Errorf("create message: %w", err)
			}
		}

		log.Info("created chat", zap.Stringer("chat_id", room.Id), zap.String("project", c.project))
	}

	return users, nil
}
