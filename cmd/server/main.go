package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/npezzotti/dealchat/internal/api"
	"github.com/npezzotti/dealchat/internal/chat"
	"github.com/npezzotti/dealchat/internal/config"
	"github.com/npezzotti/dealchat/internal/database"
	"github.com/npezzotti/dealchat/internal/logger"
	"github.com/npezzotti/dealchat/internal/server"
	"github.com/npezzotti/dealchat/internal/stats"
	"go.uber.org/zap"
)

var (
	envFile string
	addr    string
)

func main() {
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flag.StringVar(&addr, "addr", "", "server address, overrides SERVER_ADDR")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.RunMigrations {
		if err := database.Migrate(cfg.DatabaseDSN); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			log.Error("db close", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(log, dbConn, statsUpdater, cfg.StoreTimeout)
	if err != nil {
		log.Fatal("new chat server", zap.Error(err))
	}

	store := chat.NewStore(dbConn, log, cfg.StoreTimeout, cfg.MaxContentLength)
	messages := chat.NewService(store, chatServer, log)
	rooms := chat.NewRooms(dbConn, log, cfg.StoreTimeout)

	srv := api.NewChatApp(mux, log, chatServer, messages, rooms, dbConn, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		log.Info("received signal", zap.Stringer("signal", sig))
	case err := <-errCh:
		if err != nil {
			log.Error("server", zap.Error(err))
		}
	}

	shutDownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		log.Error("HTTP server shutdown", zap.Error(err))
	}

	log.Info("shutting down chat server")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		log.Error("chat server shutdown", zap.Error(err))
	}

	log.Info("shutdown complete")
}
