package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "collaborative-canvas/internal/handler/http"
	wsHandler "collaborative-canvas/internal/handler/websocket"
	"collaborative-canvas/internal/hub"
	gormpersistence "collaborative-canvas/internal/infra/persistence/gorm"
	"collaborative-canvas/internal/infra/setup"
	memorystate "collaborative-canvas/internal/infra/state/memory"
	redisstate "collaborative-canvas/internal/infra/state/redis"
	"collaborative-canvas/internal/infra/wake"
	"collaborative-canvas/internal/middleware"
	"collaborative-canvas/internal/repository"
	"collaborative-canvas/internal/worker"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config         *Config
	Log            *logrus.Logger
	DB             *gorm.DB
	RedisClient    *redis.Client
	AsynqClient    *asynq.Client
	AsynqInspector *asynq.Inspector
	AsynqServer    *worker.WorkerServer
	LocalWake      *wake.LocalScheduler
	Hub            *hub.Hub
	HttpServer     *http.Server
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger，组件都通过 logrus 标准 logger 输出
	log := setupLogger(cfg)
	log.Info("Configuration loaded successfully")

	app := &App{Config: cfg, Log: log}

	// 3. 初始化基础设施
	if cfg.NeedsRedis() {
		app.RedisClient, err = setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
	}

	store, err := app.newRoomStore()
	if err != nil {
		app.closeClients()
		return nil, err
	}
	log.WithField("driver", cfg.StoreDriver).Info("Room store initialized")

	scheduler := app.newWakeScheduler()
	log.WithField("driver", cfg.WakeDriver).Info("Wake scheduler initialized")

	// 4. 初始化 Hub，并把唤醒回调接到 Hub 上
	app.Hub = hub.NewHub(store, scheduler, cfg.RoomOptions())
	if app.LocalWake != nil {
		app.LocalWake.Bind(app.Hub.Wake)
	}
	if cfg.WakeDriver == WakeAsynq {
		app.AsynqServer = worker.NewWorkerServer(app.redisClientOpt(), app.Hub, cfg.WorkerConcurrency)
	}
	log.Info("Hub initialized")

	// 5. 初始化 Gin Engine 和路由
	app.HttpServer = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

func setupLogger(cfg *Config) *logrus.Logger {
	log := logrus.StandardLogger()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel) // cfg.LogLevel 已被 LoadConfig 验证
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Infof("Logger initialized (Level: %s, Format: %T)", logLevel.String(), log.Formatter)
	return log
}

func (a *App) redisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	}
}

func (a *App) newRoomStore() (repository.RoomStore, error) {
	switch a.Config.StoreDriver {
	case StoreMySQL:
		db, err := setup.InitDB(a.Config.DBUser, a.Config.DBPassword, a.Config.DBHost, a.Config.DBPort, a.Config.DBName)
		if err != nil {
			return nil, fmt.Errorf("failed to init DB: %w", err)
		}
		if err := setup.MigrateDB(db); err != nil {
			return nil, fmt.Errorf("failed to migrate DB: %w", err)
		}
		a.DB = db
		return gormpersistence.NewGormRoomStore(db), nil
	case StoreMemory:
		return memorystate.NewMemoryRoomStore(), nil
	default:
		return redisstate.NewRedisRoomStore(a.RedisClient, a.Config.KeyPrefix), nil
	}
}

func (a *App) newWakeScheduler() repository.WakeScheduler {
	if a.Config.WakeDriver == WakeLocal {
		a.LocalWake = wake.NewLocalScheduler()
		return a.LocalWake
	}
	opt := a.redisClientOpt()
	a.AsynqClient = asynq.NewClient(opt)
	a.AsynqInspector = asynq.NewInspector(opt)
	return wake.NewAsynqScheduler(a.AsynqClient, a.AsynqInspector)
}

func (a *App) newRouter() *gin.Engine {
	if a.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(a.Log))
	router.Use(CORSMiddleware(a.Config.CORSAllowedOrigin))

	roomHandler := httpHandler.NewRoomHandler(a.Hub)
	wsH := wsHandler.NewWebSocketHandler(a.Hub)

	api := router.Group("/api")
	{
		api.GET("/rooms", roomHandler.ListRooms)
		api.GET("/rooms/:roomId", roomHandler.GetRoom)
	}

	wsRoutes := router.Group("/ws")
	if a.RedisClient != nil {
		wsRoutes.Use(middleware.RateLimit(a.RedisClient, a.Config.KeyPrefix, a.Config.ConnectRateLimit, a.Config.ConnectRateWindow))
	}
	{
		wsRoutes.GET("/room/:roomId", wsH.HandleConnection)
		wsRoutes.GET("/room", wsH.HandleConnection)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	return router
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	if a.AsynqServer != nil {
		go a.AsynqServer.Start()
		a.Log.Info("Asynq worker server routine started")
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 停止接收新连接；已升级的 WebSocket 不受 Shutdown 管理
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 2. 停止投递唤醒
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	if a.LocalWake != nil {
		a.LocalWake.Stop()
	}

	// 3. 停止所有房间 actor
	a.Hub.Shutdown()

	// 4. 关闭客户端连接
	a.closeClients()
	a.Log.Info("Application shutdown complete.")
}

func (a *App) closeClients() {
	if a.AsynqInspector != nil {
		if err := a.AsynqInspector.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq inspector: %v", err)
		}
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		} else {
			a.Log.Info("Asynq client closed.")
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		} else {
			a.Log.Info("Redis connection closed.")
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}
}
