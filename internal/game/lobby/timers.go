package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/game/event"
	"github.com/palemoky/impostor-party/internal/game/player"
	"github.com/palemoky/impostor-party/internal/logger"
	"github.com/palemoky/impostor-party/internal/scheduler"
)

const (
	defaultCountdownTick = 10 * time.Second
	systemName           = "系统"
)

// cooldown 击杀冷却
type cooldown struct {
	until  time.Time
	handle *scheduler.Handle
}

// sabotage 进行中的破坏，截止时间前未修复则触发 onExpire
type sabotage struct {
	kind     string
	deadline time.Time
	expiry   *scheduler.Handle // 截止时间触发
	ticker   *scheduler.Handle // 倒计时广播
	onExpire func(ctx context.Context)
}

// expired 截止时间已到，等待 expiry 任务清理
func (s *sabotage) expired(now time.Time) bool {
	return !now.Before(s.deadline)
}

// StartKillCooldown 按设置的冷却时间开始击杀冷却，已有冷却时重新计时
func (l *GameLobby) StartKillCooldown(userID string) error {
	if !l.HasPlayer(userID) {
		return apperrors.ErrNotInLobby
	}
	if l.sched == nil {
		return apperrors.ErrSchedulerClosed
	}

	d := l.settings.KillCooldownDuration()
	cd := &cooldown{until: time.Now().Add(d)}

	l.timerMu.Lock()
	defer l.timerMu.Unlock()

	if prev, ok := l.cooldowns[userID]; ok {
		l.sched.Cancel(prev.handle)
	}

	h, err := l.sched.ScheduleOnce(func(context.Context) {
		l.timerMu.Lock()
		defer l.timerMu.Unlock()
		if l.cooldowns[userID] == cd {
			delete(l.cooldowns, userID)
		}
	}, d)
	if err != nil {
		delete(l.cooldowns, userID)
		return err
	}
	cd.handle = h
	l.cooldowns[userID] = cd
	return nil
}

// IsOnCooldown 玩家是否处于击杀冷却
func (l *GameLobby) IsOnCooldown(userID string) bool {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	cd, ok := l.cooldowns[userID]
	return ok && time.Now().Before(cd.until)
}

// CooldownRemaining 剩余冷却时间
func (l *GameLobby) CooldownRemaining(userID string) time.Duration {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if cd, ok := l.cooldowns[userID]; ok {
		return max(time.Until(cd.until), 0)
	}
	return 0
}

func (l *GameLobby) cancelCooldown(userID string) {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if cd, ok := l.cooldowns[userID]; ok {
		l.sched.Cancel(cd.handle)
		delete(l.cooldowns, userID)
	}
}

// StartSabotage 发起破坏，截止时间准时触发，期间按倒计时间隔广播剩余时间
func (l *GameLobby) StartSabotage(userID, kind string, duration time.Duration, onExpire func(ctx context.Context)) error {
	if duration <= 0 || kind == "" {
		return apperrors.ErrInvalidInput
	}
	if l.sched == nil {
		return apperrors.ErrSchedulerClosed
	}

	l.timerMu.Lock()
	if l.sabotage != nil {
		l.timerMu.Unlock()
		return apperrors.ErrSabotageActive
	}
	s := &sabotage{
		kind:     kind,
		deadline: time.Now().Add(duration),
		onExpire: onExpire,
	}
	expiry, err := l.sched.ScheduleOnce(func(ctx context.Context) { l.expireSabotage(ctx, s) }, duration)
	if err != nil {
		l.timerMu.Unlock()
		return err
	}
	s.expiry = expiry
	if tick := l.countdownTick; tick < duration {
		ticker, err := l.sched.ScheduleRepeating(func(context.Context) { l.sabotageTick(s) }, tick, tick)
		if err != nil {
			l.sched.Cancel(expiry)
			l.timerMu.Unlock()
			return err
		}
		s.ticker = ticker
	}
	l.sabotage = s
	l.timerMu.Unlock()

	l.AddGameEvent(userID, event.ActionSabotage, kind)
	logger.LogInfo("🚨 大厅 %s 发生破坏 %s，%v 后生效", l.Code, kind, duration)
	return nil
}

// sabotageTick 广播剩余时间
func (l *GameLobby) sabotageTick(s *sabotage) {
	l.timerMu.Lock()
	if l.sabotage != s {
		l.timerMu.Unlock()
		return
	}
	remaining := time.Until(s.deadline)
	l.timerMu.Unlock()

	if remaining <= 0 {
		return
	}
	_ = l.Broadcast(fmt.Sprintf("⏳ 破坏 %s 剩余 %d 秒", s.kind, int(remaining.Round(time.Second).Seconds())))
}

// expireSabotage 截止时间到达，清除破坏并触发 onExpire
func (l *GameLobby) expireSabotage(ctx context.Context, s *sabotage) {
	l.timerMu.Lock()
	if l.sabotage != s {
		l.timerMu.Unlock()
		return
	}
	l.sabotage = nil
	l.sched.Cancel(s.ticker)
	l.timerMu.Unlock()

	l.addEvent("", systemName, event.ActionSabotageExpired, s.kind)
	logger.LogInfo("💥 大厅 %s 的破坏 %s 未被修复", l.Code, s.kind)
	if s.onExpire != nil {
		s.onExpire(ctx)
	}
}

// FixSabotage 修复当前破坏，没有进行中的破坏或已过截止时间时返回 false
func (l *GameLobby) FixSabotage(userID string) bool {
	l.timerMu.Lock()
	s := l.sabotage
	if s == nil || s.expired(time.Now()) {
		l.timerMu.Unlock()
		return false
	}
	l.sabotage = nil
	l.sched.Cancel(s.expiry)
	l.sched.Cancel(s.ticker)
	l.timerMu.Unlock()

	l.AddGameEvent(userID, event.ActionSabotageFixed, s.kind)
	return true
}

// ActiveSabotage 返回进行中的破坏类型和剩余时间，已过截止时间的破坏不再视为进行中
func (l *GameLobby) ActiveSabotage() (kind string, remaining time.Duration, ok bool) {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	s := l.sabotage
	if s == nil {
		return "", 0, false
	}
	remaining = time.Until(s.deadline)
	if remaining <= 0 {
		return "", 0, false
	}
	return s.kind, remaining, true
}

// stopTimers 取消全部冷却和破坏计时
func (l *GameLobby) stopTimers() {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	for id, cd := range l.cooldowns {
		l.sched.Cancel(cd.handle)
		delete(l.cooldowns, id)
	}
	if l.sabotage != nil {
		l.sched.Cancel(l.sabotage.expiry)
		l.sched.Cancel(l.sabotage.ticker)
		l.sabotage = nil
	}
}

// --- 通知 ---

// Broadcast 通过调度器异步通知所有玩家，单个玩家投递失败不影响其他人
func (l *GameLobby) Broadcast(message string) error {
	players := l.GetPlayers()
	targets := make([]player.Identity, len(players))
	for i, p := range players {
		targets[i] = p.Identity()
	}
	return l.deliver(targets, message)
}

// NotifyPlayer 通过调度器异步通知单个玩家
func (l *GameLobby) NotifyPlayer(userID, message string) error {
	p, ok := l.GetPlayer(userID)
	if !ok {
		return apperrors.ErrNotInLobby
	}
	return l.deliver([]player.Identity{p.Identity()}, message)
}

func (l *GameLobby) deliver(targets []player.Identity, message string) error {
	if l.notifier == nil || len(targets) == 0 {
		return nil
	}
	if l.sched == nil {
		return apperrors.ErrSchedulerClosed
	}
	_, err := l.sched.SubmitNow(func(ctx context.Context) {
		for _, to := range targets {
			if err := l.notifier.Deliver(ctx, to, message); err != nil {
				logger.LogWarn("大厅 %s 通知 %s 失败: %v", l.Code, to.UserID, err)
			}
		}
	})
	return err
}
