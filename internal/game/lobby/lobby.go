package lobby

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/game/event"
	"github.com/palemoky/impostor-party/internal/game/player"
	"github.com/palemoky/impostor-party/internal/game/rule"
	"github.com/palemoky/impostor-party/internal/game/settings"
	"github.com/palemoky/impostor-party/internal/logger"
	"github.com/palemoky/impostor-party/internal/scheduler"
	"github.com/palemoky/impostor-party/internal/types"
)

const (
	MinPlayers = rule.MinPlayers
	MaxPlayers = rule.MaxPlayers
)

// GameLobby 一个游戏大厅：玩家、设置、事件日志和房主
type GameLobby struct {
	Code      string
	CreatedAt time.Time

	settings *settings.LobbySettings
	sched    *scheduler.Scheduler
	notifier types.Notifier

	mu           sync.RWMutex
	hostID       string
	players      []*player.Player // 按加入顺序
	state        GameState
	started      bool
	closed       bool
	lastActivity time.Time

	eventsMu sync.RWMutex
	events   []*event.GameEvent

	timerMu       sync.Mutex
	cooldowns     map[string]*cooldown
	sabotage      *sabotage
	countdownTick time.Duration
}

// NewGameLobby 创建空大厅，sched 为 nil 时计时与通知功能不可用
func NewGameLobby(code string, sched *scheduler.Scheduler, notifier types.Notifier) *GameLobby {
	now := time.Now()
	return &GameLobby{
		Code:          code,
		CreatedAt:     now,
		settings:      settings.New(),
		sched:         sched,
		notifier:      notifier,
		players:       make([]*player.Player, 0, MaxPlayers),
		lastActivity:  now,
		cooldowns:     make(map[string]*cooldown),
		countdownTick: defaultCountdownTick,
	}
}

// --- 成员管理 ---

// TryAddPlayer 添加玩家，拒绝时不修改任何状态
func (l *GameLobby) TryAddPlayer(userID, name string) (*player.Player, error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	if userID == "" || name == "" {
		return nil, apperrors.ErrInvalidInput
	}

	l.mu.Lock()
	if err := l.admissionLocked(userID); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	p := player.New(userID, name)
	l.players = append(l.players, p)
	if l.hostID == "" {
		l.hostID = userID
	}
	l.lastActivity = time.Now()
	l.mu.Unlock()

	l.addEvent(userID, name, event.ActionJoin, "")
	return p, nil
}

// AddPlayer 添加玩家，重复、已满、已开局时返回 false
func (l *GameLobby) AddPlayer(userID, name string) bool {
	_, err := l.TryAddPlayer(userID, name)
	if err != nil {
		logger.LogDebug("大厅 %s 拒绝玩家 %s 加入: %v", l.Code, userID, err)
	}
	return err == nil
}

// RemovePlayer 移除玩家；房主离开时由最早加入的剩余玩家接任，无人剩余时清空房主
func (l *GameLobby) RemovePlayer(userID string) bool {
	l.mu.Lock()
	idx := l.indexOfLocked(userID)
	if idx < 0 {
		l.mu.Unlock()
		return false
	}

	removed := l.players[idx]
	l.players = append(l.players[:idx], l.players[idx+1:]...)

	var newHostID, newHost string
	if l.hostID == userID {
		l.hostID = ""
		if len(l.players) > 0 {
			l.hostID = l.players[0].ID
			newHostID, newHost = l.players[0].ID, l.players[0].Name
		}
	}
	l.lastActivity = time.Now()
	l.mu.Unlock()

	l.cancelCooldown(userID)
	l.addEvent(userID, removed.Name, event.ActionLeave, "")
	if newHost != "" {
		l.addEvent(newHostID, newHost, event.ActionHostChange, "")
		logger.LogInfo("👑 大厅 %s 房主变更为 %s", l.Code, newHost)
	}
	return true
}

// AssignNewHost 将最早加入的成员设为房主，大厅为空时返回 false
func (l *GameLobby) AssignNewHost() bool {
	l.mu.Lock()
	if len(l.players) == 0 {
		l.hostID = ""
		l.mu.Unlock()
		return false
	}
	first := l.players[0]
	changed := l.hostID != first.ID
	l.hostID = first.ID
	l.mu.Unlock()

	if changed {
		l.addEvent(first.ID, first.Name, event.ActionHostChange, "")
	}
	return true
}

// TransferHost 将房主转交给指定成员
func (l *GameLobby) TransferHost(userID string) bool {
	l.mu.Lock()
	idx := l.indexOfLocked(userID)
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	p := l.players[idx]
	l.hostID = userID
	l.mu.Unlock()

	l.addEvent(p.ID, p.Name, event.ActionHostChange, "")
	return true
}

// CanAccept 检查玩家当前能否加入，不修改状态
func (l *GameLobby) CanAccept(userID string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.admissionLocked(userID)
}

func (l *GameLobby) admissionLocked(userID string) error {
	switch {
	case l.closed:
		return apperrors.ErrLobbyNotFound
	case l.started:
		return apperrors.ErrGameInProgress
	case l.indexOfLocked(userID) >= 0:
		return apperrors.ErrDuplicatePlayer
	case len(l.players) >= MaxPlayers:
		return apperrors.ErrLobbyFull
	}
	return nil
}

func (l *GameLobby) indexOfLocked(userID string) int {
	for i, p := range l.players {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

// closeIfEmpty 大厅为空时标记为关闭，之后的加入都会失败
func (l *GameLobby) closeIfEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.players) > 0 || l.closed {
		return false
	}
	l.closed = true
	return true
}

func (l *GameLobby) markClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// --- 查询 ---

func (l *GameLobby) HostID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hostID
}

func (l *GameLobby) IsHost(userID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return userID != "" && l.hostID == userID
}

func (l *GameLobby) HasPlayer(userID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexOfLocked(userID) >= 0
}

func (l *GameLobby) GetPlayer(userID string) (*player.Player, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := l.indexOfLocked(userID); idx >= 0 {
		return l.players[idx], true
	}
	return nil, false
}

// GetPlayers 按加入顺序返回玩家快照
func (l *GameLobby) GetPlayers() []*player.Player {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*player.Player, len(l.players))
	copy(out, l.players)
	return out
}

func (l *GameLobby) PlayerIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, len(l.players))
	for i, p := range l.players {
		ids[i] = p.ID
	}
	return ids
}

func (l *GameLobby) GetPlayerCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.players)
}

func (l *GameLobby) IsEmpty() bool {
	return l.GetPlayerCount() == 0
}

func (l *GameLobby) IsFull() bool {
	return l.GetPlayerCount() >= MaxPlayers
}

// HasEnoughPlayers 人数是否达到开局下限
func (l *GameLobby) HasEnoughPlayers() bool {
	return l.GetPlayerCount() >= MinPlayers
}

// IdleFor 距最近一次成员或设置变动的时长
func (l *GameLobby) IdleFor() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return time.Since(l.lastActivity)
}

func (l *GameLobby) touch() {
	l.mu.Lock()
	l.lastActivity = time.Now()
	l.mu.Unlock()
}

// --- 设置 ---

// Settings 返回大厅设置
func (l *GameLobby) Settings() *settings.LobbySettings {
	return l.settings
}

// UpdateSetting 更新设置，返回校验结果
func (l *GameLobby) UpdateSetting(name string, value int) bool {
	if err := l.ApplySetting(name, value); err != nil {
		logger.LogDebug("大厅 %s 设置更新失败: %v", l.Code, err)
		return false
	}
	return true
}

// ApplySetting 与 UpdateSetting 相同，返回具体错误
func (l *GameLobby) ApplySetting(name string, value int) error {
	if err := l.settings.Update(name, value); err != nil {
		return fmt.Errorf("lobby %s: %w", l.Code, err)
	}
	l.touch()
	return nil
}

// ResetSettings 恢复默认设置
func (l *GameLobby) ResetSettings() {
	l.settings.Reset()
	l.touch()
}

// --- 游戏状态 ---

// SetState 绑定外部游戏状态对象
func (l *GameLobby) SetState(st GameState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = st
}

func (l *GameLobby) State() GameState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// BeginSession 外部状态通知大厅已开局，之后禁止加入
func (l *GameLobby) BeginSession() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.closed:
		return apperrors.ErrLobbyNotFound
	case l.started:
		return apperrors.ErrGameInProgress
	case len(l.players) < MinPlayers:
		return fmt.Errorf("%d/%d: %w", len(l.players), MinPlayers, apperrors.ErrNotEnoughPlayers)
	}
	l.started = true
	l.lastActivity = time.Now()
	return nil
}

// EndSession 外部状态通知本局结束，大厅重新接受加入
func (l *GameLobby) EndSession() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = false
	l.lastActivity = time.Now()
}

func (l *GameLobby) IsStarted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

func (l *GameLobby) Lifecycle() Lifecycle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch {
	case l.closed:
		return LifecycleClosed
	case l.started:
		return LifecycleInProgress
	default:
		return LifecycleForming
	}
}
