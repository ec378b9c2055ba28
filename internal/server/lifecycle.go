package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/palemoky/impostor-party/internal/logger"
)

const drainCheckInterval = time.Second

// monitorStats 定期输出服务器状态
func (s *Server) monitorStats(context.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	logger.LogInfo("📊 [监控] 大厅: %d | 玩家: %d | 对局: %d | 待触发任务: %d | Goroutines: %d | 内存: %.2f MB",
		s.registry.LobbyCount(),
		s.registry.UserCount(),
		s.registry.ActiveSessionCount(),
		s.sched.ArmedCount(),
		runtime.NumGoroutine(),
		float64(m.Alloc)/1024/1024)
}

// EnterMaintenanceMode 进入维护模式并通知所有大厅
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.broadcastAll("👷🏻‍♂️ 服务器即将维护，进行中的对局结束后将关闭")
	logger.LogInfo("🔧 进入维护模式")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

func (s *Server) broadcastAll(message string) {
	for _, l := range s.registry.Lobbies() {
		if err := l.Broadcast(message); err != nil {
			logger.LogWarn("大厅 %s 广播失败: %v", l.Code, err)
		}
	}
}

// GracefulShutdown 进入维护模式，等待进行中的对局结束（最多 timeout），然后关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(drainCheckInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		active := s.registry.ActiveSessionCount()
		if active == 0 {
			logger.LogInfo("✅ 所有对局已结束")
			break
		}
		logger.LogInfo("⏳ 等待 %d 个对局结束...", active)
		<-ticker.C
	}

	if active := s.registry.ActiveSessionCount(); active > 0 {
		logger.LogWarn("⚠️ 超时，仍有 %d 个对局进行中，强制关闭", active)
		s.broadcastAll(fmt.Sprintf("🚧 服务器停机维护，%d 个对局被中止", active))
	}

	s.Shutdown()
}

// Shutdown 依次关闭注册表、调度器、HTTP 服务和 Redis，可重复调用
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Scheduler.ShutdownGraceDuration())
		defer cancel()

		s.sched.Cancel(s.monitor)
		s.registry.Shutdown(ctx)

		if err := s.sched.Shutdown(); err != nil {
			logger.LogWarn("调度器关闭: %v", err)
		}
		if err := s.http.Shutdown(ctx); err != nil {
			logger.LogWarn("HTTP 服务关闭: %v", err)
		}
		if s.redis != nil {
			_ = s.redis.Close()
		}

		logger.LogInfo("服务器已关闭")
	})
}
