package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/logger"
)

const (
	closeReasonEmpty    = "empty"
	closeReasonForced   = "forced"
	closeReasonIdle     = "idle"
	closeReasonShutdown = "shutdown"

	mirrorTimeout = 3 * time.Second
)

// CloseLobby 强制关闭大厅，退出钩子的错误只记录日志，关闭总会完成
func (r *Registry) CloseLobby(ctx context.Context, code string) bool {
	return r.closeLobby(ctx, NormalizeCode(code), closeReasonForced)
}

func (r *Registry) closeLobby(ctx context.Context, code, reason string) bool {
	r.mu.Lock()
	l, ok := r.lobbies[code]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.lobbies, code)

	// 先标记关闭再读取成员，之后不会再有玩家加入
	l.markClosed()
	members := l.PlayerIDs()
	for _, id := range members {
		if r.users[id] == code {
			delete(r.users, id)
		}
	}
	r.mu.Unlock()

	for _, id := range members {
		r.mirrorUser(id, "")
	}
	r.teardown(ctx, l, reason)
	r.updateGauges()

	logger.LogInfo("🔒 大厅 %s 已关闭 (%s)，%d 名玩家被移出", code, reason, len(members))
	return true
}

// teardown 停止计时并调用退出钩子，钩子的错误和 panic 都不会向上传播
func (r *Registry) teardown(ctx context.Context, l *GameLobby, reason string) {
	l.markClosed()
	l.stopTimers()

	if st := l.State(); st != nil {
		if err := safeExit(ctx, st, l); err != nil {
			logger.LogWarn("大厅 %s 退出钩子失败: %v", l.Code, err)
		}
	}

	r.forgetLobby(l.Code)
	r.deps.Metrics.IncLobbyClosed(reason)
}

func safeExit(ctx context.Context, st GameState, l *GameLobby) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.LogPanic(rec)
			err = fmt.Errorf("exit hook panic: %v", rec)
		}
	}()
	return st.OnExit(ctx, l)
}

// Shutdown 停止清理任务，关闭全部大厅并清空映射
func (r *Registry) Shutdown(ctx context.Context) {
	r.StopJanitor()

	codes := r.Codes()
	for _, code := range codes {
		r.closeLobby(ctx, code, closeReasonShutdown)
	}

	r.mu.Lock()
	clear(r.lobbies)
	clear(r.users)
	r.mu.Unlock()
	r.updateGauges()

	logger.LogInfo("🛑 大厅注册表已关闭，共关闭 %d 个大厅", len(codes))
}

// StartJanitor 定期关闭空闲超过 idleTimeout 且未开局的大厅
func (r *Registry) StartJanitor(interval, idleTimeout time.Duration) error {
	if r.deps.Scheduler == nil {
		return apperrors.ErrSchedulerClosed
	}
	r.janitorMu.Lock()
	defer r.janitorMu.Unlock()
	if r.janitor != nil {
		return nil
	}
	h, err := r.deps.Scheduler.ScheduleRepeating(func(ctx context.Context) {
		r.cleanupIdle(ctx, idleTimeout)
	}, interval, interval)
	if err != nil {
		return err
	}
	r.janitor = h
	logger.LogInfo("🧹 大厅清理任务已启动，间隔 %v，空闲上限 %v", interval, idleTimeout)
	return nil
}

// StopJanitor 停止清理任务
func (r *Registry) StopJanitor() {
	r.janitorMu.Lock()
	defer r.janitorMu.Unlock()
	if r.janitor != nil {
		r.deps.Scheduler.Cancel(r.janitor)
		r.janitor = nil
	}
}

func (r *Registry) cleanupIdle(ctx context.Context, idleTimeout time.Duration) int {
	closed := 0
	for _, l := range r.snapshot() {
		if l.Lifecycle() != LifecycleForming || l.IdleFor() < idleTimeout {
			continue
		}
		if r.closeLobby(ctx, l.Code, closeReasonIdle) {
			closed++
		}
	}
	if closed > 0 {
		logger.LogInfo("🧹 已清理 %d 个空闲大厅", closed)
	}
	return closed
}

// --- 快照镜像 ---

func (r *Registry) mirrorLobby(l *GameLobby) {
	if r.deps.Store == nil {
		return
	}
	data := l.ToLobbyData()
	r.mirror(func(ctx context.Context) error {
		return r.deps.Store.SaveLobby(ctx, data.Code, data)
	})
}

func (r *Registry) mirrorUser(userID, code string) {
	if r.deps.Store == nil {
		return
	}
	r.mirror(func(ctx context.Context) error {
		if code == "" {
			return r.deps.Store.DeleteUserLobby(ctx, userID)
		}
		return r.deps.Store.SetUserLobby(ctx, userID, code)
	})
}

func (r *Registry) forgetLobby(code string) {
	if r.deps.Store == nil {
		return
	}
	r.mirror(func(ctx context.Context) error {
		return r.deps.Store.DeleteLobby(ctx, code)
	})
}

// mirror 通过调度器异步写入，不阻塞状态变更
func (r *Registry) mirror(write func(ctx context.Context) error) {
	if r.deps.Scheduler == nil {
		return
	}
	_, err := r.deps.Scheduler.SubmitNow(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		defer cancel()
		if err := write(ctx); err != nil {
			logger.LogWarn("快照写入失败: %v", err)
		}
	})
	if err != nil {
		logger.LogDebug("快照写入未能提交: %v", err)
	}
}
