package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/room"
)

// 存储和唤醒的驱动
const (
	StoreRedis  = "redis"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"

	WakeAsynq = "asynq"
	WakeLocal = "local"
)

// Config 结构体用于存储从环境变量或文件加载的配置
type Config struct {
	ServerPort string
	AppEnv     string // development / production
	LogLevel   string

	StoreDriver string
	WakeDriver  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string // Redis key 前缀

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	ChatRateLimit  int
	ChatRateWindow time.Duration
	DrawRateLimit  int
	DrawRateWindow time.Duration
	CleanupDelay   time.Duration
	CloseGrace     time.Duration
	StoreTimeout   time.Duration

	ConnectRateLimit  int
	ConnectRateWindow time.Duration

	CORSAllowedOrigin string
	WorkerConcurrency int
}

// LoadConfig 从 .env 文件和环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        envOr("SERVER_PORT", "8080"),
		AppEnv:            envOr("APP_ENV", "development"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		StoreDriver:       envOr("STORE_DRIVER", StoreRedis),
		WakeDriver:        envOr("WAKE_DRIVER", WakeAsynq),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:         envOr("REDIS_KEY_PREFIX", "cr:"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		CORSAllowedOrigin: envOr("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	defaults := room.DefaultOptions()
	var err error
	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"CHAT_RATE_LIMIT", defaults.ChatLimit, &cfg.ChatRateLimit},
		{"DRAW_RATE_LIMIT", defaults.DrawLimit, &cfg.DrawRateLimit},
		{"CONNECT_RATE_LIMIT", 60, &cfg.ConnectRateLimit},
		{"WORKER_CONCURRENCY", 10, &cfg.WorkerConcurrency},
	}
	for _, e := range ints {
		if *e.dst, err = envInt(e.key, e.def); err != nil {
			return nil, err
		}
	}
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"CHAT_RATE_WINDOW", defaults.ChatWindow, &cfg.ChatRateWindow},
		{"DRAW_RATE_WINDOW", defaults.DrawWindow, &cfg.DrawRateWindow},
		{"CLEANUP_DELAY", defaults.CleanupDelay, &cfg.CleanupDelay},
		{"CLOSE_GRACE", defaults.CloseGrace, &cfg.CloseGrace},
		{"STORE_TIMEOUT", defaults.StoreTimeout, &cfg.StoreTimeout},
		{"CONNECT_RATE_WINDOW", time.Minute, &cfg.ConnectRateWindow},
	}
	for _, e := range durations {
		if *e.dst, err = envDuration(e.key, e.def); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreRedis, StoreMemory:
	case StoreMySQL:
		if c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("environment variables DB_USER and DB_NAME must be set for STORE_DRIVER=mysql")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.WakeDriver {
	case WakeAsynq, WakeLocal:
	default:
		return fmt.Errorf("unknown WAKE_DRIVER %q", c.WakeDriver)
	}
	if c.NeedsRedis() && c.RedisAddr == "" {
		return fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	for name, v := range map[string]int{
		"CHAT_RATE_LIMIT":    c.ChatRateLimit,
		"DRAW_RATE_LIMIT":    c.DrawRateLimit,
		"CONNECT_RATE_LIMIT": c.ConnectRateLimit,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return nil
}

// NeedsRedis 当前驱动组合是否依赖 Redis
func (c *Config) NeedsRedis() bool {
	return c.StoreDriver == StoreRedis || c.WakeDriver == WakeAsynq
}

// RoomOptions 把配置转换为房间参数
func (c *Config) RoomOptions() room.Options {
	opts := room.DefaultOptions()
	opts.ChatLimit = c.ChatRateLimit
	opts.ChatWindow = c.ChatRateWindow
	opts.DrawLimit = c.DrawRateLimit
	opts.DrawWindow = c.DrawRateWindow
	opts.CleanupDelay = c.CleanupDelay
	opts.CloseGrace = c.CloseGrace
	opts.StoreTimeout = c.StoreTimeout
	return opts
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return v, nil
}
