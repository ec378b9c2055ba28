package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/impostor-party/internal/config"
	"github.com/palemoky/impostor-party/internal/game/lobby"
	"github.com/palemoky/impostor-party/internal/logger"
	"github.com/palemoky/impostor-party/internal/metrics"
	"github.com/palemoky/impostor-party/internal/scheduler"
	"github.com/palemoky/impostor-party/internal/server/storage"
	"github.com/palemoky/impostor-party/internal/types"
)

const metricsNamespace = "impostor"

// Server 进程级服务：调度器、大厅注册表、指标和健康检查
type Server struct {
	config   *config.Config
	redis    *redis.Client
	metrics  *metrics.Metrics
	sched    *scheduler.Scheduler
	registry *lobby.Registry
	http     *http.Server

	monitor *scheduler.Handle

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	shutdownOnce sync.Once
}

// NewServer 创建服务器实例，启用 Redis 时会先测试连接
func NewServer(cfg *config.Config, notifier types.Notifier) (*Server, error) {
	s := &Server{
		config:  cfg,
		metrics: metrics.New(metricsNamespace),
	}

	s.sched = scheduler.New(scheduler.Config{
		Workers:       cfg.Scheduler.Workers,
		QueueSize:     cfg.Scheduler.QueueSize,
		ShutdownGrace: cfg.Scheduler.ShutdownGraceDuration(),
	}, s.metrics)

	deps := lobby.RegistryDeps{
		Scheduler:       s.sched,
		Notifier:        notifier,
		Metrics:         s.metrics,
		MaxCodeAttempts: cfg.Lobby.MaxCodeAttempts,
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}
		s.redis = rdb
		deps.Store = storage.NewRedisStore(rdb)
		logger.LogInfo("🗄️ 已连接 Redis %s，大厅快照将同步写入", cfg.Redis.Addr)
	}

	s.registry = lobby.NewRegistry(deps)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())

	s.http = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Registry 返回大厅注册表
func (s *Server) Registry() *lobby.Registry {
	return s.registry
}

// Handler 返回 HTTP 路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start 启动后台任务并监听 HTTP，正常关闭时返回 nil
func (s *Server) Start() error {
	s.sched.Start()

	if err := s.registry.StartJanitor(
		s.config.Lobby.JanitorIntervalDuration(),
		s.config.Lobby.IdleTimeoutDuration(),
	); err != nil {
		return fmt.Errorf("启动大厅清理任务失败: %w", err)
	}

	interval := s.config.Server.MonitorIntervalDuration()
	h, err := s.sched.ScheduleRepeating(s.monitorStats, interval, interval)
	if err != nil {
		return fmt.Errorf("启动监控任务失败: %w", err)
	}
	s.monitor = h

	logger.LogInfo("🚀 服务器启动在 http://%s (CPU核心数: %d, 工作协程: %d)",
		s.http.Addr, runtime.NumCPU(), s.sched.Workers())
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// healthStatus /health 响应
type healthStatus struct {
	Status      string `json:"status"`
	Lobbies     int    `json:"lobbies"`
	Users       int    `json:"users"`
	Sessions    int    `json:"sessions"`
	Maintenance bool   `json:"maintenance"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := healthStatus{
		Status:      "ok",
		Lobbies:     s.registry.LobbyCount(),
		Users:       s.registry.UserCount(),
		Sessions:    s.registry.ActiveSessionCount(),
		Maintenance: s.IsMaintenanceMode(),
	}

	code := http.StatusOK
	if status.Maintenance {
		status.Status = "maintenance"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}
