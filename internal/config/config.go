package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultStoreTimeout     = 5 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultMaxContentLength = 4096
	defaultSendBufferSize   = 256
)

type Config struct {
	DatabaseDSN      string
	ServerAddr       string
	SigningKey       []byte
	AllowedOrigins   []string
	LogLevel         string
	StoreTimeout     time.Duration
	ShutdownTimeout  time.Duration
	RunMigrations    bool
	MaxContentLength int
	SendBufferSize   int
}

// environment mirrors the variables read by Load before validation.
type environment struct {
	ServerAddr       string        `env:"SERVER_ADDR" envDefault:"localhost:8000"`
	DatabaseDSN      string        `env:"DATABASE_DSN" envDefault:"host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"`
	SigningKey       string        `env:"SIGNING_KEY,required"`
	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RunMigrations    bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH" envDefault:"4096"`
	SendBufferSize   int           `env:"SEND_BUFFER_SIZE" envDefault:"256"`
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, errors.New("empty secret")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:      databaseDSN,
		ServerAddr:       serverAddr,
		SigningKey:       signingKey,
		AllowedOrigins:   allowedOrigins,
		LogLevel:         "info",
		StoreTimeout:     defaultStoreTimeout,
		ShutdownTimeout:  defaultShutdownTimeout,
		RunMigrations:    true,
		MaxContentLength: defaultMaxContentLength,
		SendBufferSize:   defaultSendBufferSize,
	}, nil
}

// Load reads the configuration from the environment. Variables defined in the
// given dotenv files are loaded first; missing files are ignored.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var e environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg, err := NewConfig(e.ServerAddr, e.DatabaseDSN, e.SigningKey, e.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	if e.StoreTimeout <= 0 {
		return nil, fmt.Errorf("store timeout must be positive")
	}
	if e.MaxContentLength <= 0 {
		return nil, fmt.Errorf("max content length must be positive")
	}
	if e.SendBufferSize <= 0 {
		return nil, fmt.Errorf("send buffer size must be positive")
	}

	cfg.LogLevel = e.LogLevel
	cfg.StoreTimeout = e.StoreTimeout
	cfg.ShutdownTimeout = e.ShutdownTimeout
	cfg.RunMigrations = e.RunMigrations
	cfg.MaxContentLength = e.MaxContentLength
	cfg.SendBufferSize = e.SendBufferSize

	return cfg, nil
}
