// Command chat is a terminal client for a single group chat. It prints the
// room history, then live messages, and sends each line read from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/npezzotti/dealchat/internal/client"
	"github.com/npezzotti/dealchat/internal/logger"
	"github.com/npezzotti/dealchat/internal/types"
	"go.uber.org/zap"
)

var (
	baseURL  string
	token    string
	chatFlag string
	userFlag string
	logLevel string
)

// printer writes each message once, in transcript order.
type printer struct {
	mu      sync.Mutex
	printed map[uuid.UUID]struct{}
	self    uuid.UUID
}

func (p *printer) print(msgs []types.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range msgs {
		if _, ok := p.printed[m.Id]; ok {
			continue
		}
		p.printed[m.Id] = struct{}{}

		name := m.SenderId.String()
		if m.Sender != nil {
			name = m.Sender.Name
		}

		ts := color.Gray.Sprint(m.Timestamp.Local().Format("15:04:05"))
		if m.SenderId == p.self {
			name = color.Green.Sprint(name)
		} else {
			name = color.Cyan.Sprint(name)
		}
		fmt.Printf("%s %s: %s\n", ts, name, m.Content)
	}
}

func main() {
	flag.StringVar(&baseURL, "url", "http://localhost:8000", "server base URL")
	flag.StringVar(&token, "token", os.Getenv("DEALCHAT_TOKEN"), "bearer token")
	flag.StringVar(&chatFlag, "chat", "", "chat id")
	flag.StringVar(&userFlag, "user", "", "your user id")
	flag.StringVar(&logLevel, "log-level", "warn", "log level")
	flag.Parse()

	chatId, err := uuid.Parse(chatFlag)
	if err != nil {
		color.Error.Println("invalid -chat:", err)
		os.Exit(2)
	}
	userId, err := uuid.Parse(userFlag)
	if err != nil {
		color.Error.Println("invalid -user:", err)
		os.Exit(2)
	}
	if token == "" {
		color.Error.Println("a token is required")
		os.Exit(2)
	}

	log, err := logger.New(logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, chatId, userId); err != nil {
		color.Error.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, chatId, userId uuid.UUID) error {
	rest := client.New(baseURL, token)

	rt, err := client.Dial(ctx, rest.WebsocketURL(), token, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer rt.Close()

	p := &printer{printed: make(map[uuid.UUID]struct{}), self: userId}

	sess, err := client.Open(ctx, rest, rt, chatId, userId, p.print)
	if err != nil {
		return err
	}
	defer sess.Close(context.Background())

	p.print(sess.Messages())
	color.Comment.Println("connected, type a message and press enter")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rt.Done():
			return fmt.Errorf("connection closed")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if _, err := sess.Send(ctx, line); err != nil {
				color.Error.Println("send:", err)
				continue
			}
			p.print(sess.Messages())
		}
	}
}
