package lobby

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/game/event"
	"github.com/palemoky/impostor-party/internal/game/player"
	"github.com/palemoky/impostor-party/internal/logger"
	"github.com/palemoky/impostor-party/internal/metrics"
	"github.com/palemoky/impostor-party/internal/scheduler"
	"github.com/palemoky/impostor-party/internal/server/storage"
	"github.com/palemoky/impostor-party/internal/types"
)

// SnapshotStore 大厅快照的外部镜像，写入失败只记录日志
type SnapshotStore interface {
	SaveLobby(ctx context.Context, code string, data *storage.LobbyData) error
	DeleteLobby(ctx context.Context, code string) error
	SetUserLobby(ctx context.Context, userID, code string) error
	DeleteUserLobby(ctx context.Context, userID string) error
}

// RegistryDeps 注册表依赖
type RegistryDeps struct {
	Scheduler *scheduler.Scheduler
	Notifier  types.Notifier
	Store     SnapshotStore // 可选
	Metrics   *metrics.Metrics

	// NewState 为新大厅创建外部游戏状态，可为 nil
	NewState func(l *GameLobby) GameState

	CodeAlphabet    string
	CodeLength      int
	MaxCodeAttempts int
}

// Registry 大厅注册表：code → 大厅，userID → code
//
// 加锁顺序：用户锁 → mu → 大厅锁。mu 只保护两个 map，持有大厅锁时不会再获取 mu。
type Registry struct {
	deps RegistryDeps

	mu      sync.RWMutex
	lobbies map[string]*GameLobby
	users   map[string]string

	userLocks *keyLock

	janitorMu sync.Mutex
	janitor   *scheduler.Handle
}

// NewRegistry 创建注册表
func NewRegistry(deps RegistryDeps) *Registry {
	if deps.CodeAlphabet == "" {
		deps.CodeAlphabet = CodeAlphabet
	}
	if deps.CodeLength <= 0 {
		deps.CodeLength = CodeLength
	}
	if deps.MaxCodeAttempts <= 0 {
		deps.MaxCodeAttempts = DefaultMaxCodeAttempts
	}
	return &Registry{
		deps:      deps,
		lobbies:   make(map[string]*GameLobby),
		users:     make(map[string]string),
		userLocks: newKeyLock(),
	}
}

// CreateLobby 创建大厅，房主已在其他大厅时先将其移出
func (r *Registry) CreateLobby(hostID, hostName string) (*GameLobby, error) {
	hostID = strings.TrimSpace(hostID)
	hostName = strings.TrimSpace(hostName)
	if hostID == "" || hostName == "" {
		return nil, apperrors.ErrInvalidInput
	}

	unlock := r.userLocks.Lock(hostID)
	defer unlock()

	prev, prevPlayer := r.detach(hostID)
	if prev != nil {
		logger.LogInfo("🔀 玩家 %s 创建新大厅，已从大厅 %s 移出", hostID, prev.Code)
	}

	l, err := r.register(hostID, hostName)
	if err != nil {
		r.restore(prev, prevPlayer)
		return nil, err
	}

	if r.deps.NewState != nil {
		l.SetState(r.deps.NewState(l))
	}

	r.mirrorLobby(l)
	r.mirrorUser(hostID, l.Code)
	r.updateGauges()

	logger.LogInfo("🏠 大厅 %s 已创建，房主 %s", l.Code, hostName)
	return l, nil
}

// register 生成唯一大厅号并登记，新大厅对外不可见前完成房主加入
func (r *Registry) register(hostID, hostName string) (*GameLobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range r.deps.MaxCodeAttempts {
		code := randomCode(r.deps.CodeAlphabet, r.deps.CodeLength)
		if _, exists := r.lobbies[code]; exists {
			r.deps.Metrics.IncCodeCollision()
			continue
		}

		l := NewGameLobby(code, r.deps.Scheduler, r.deps.Notifier)
		if _, err := l.TryAddPlayer(hostID, hostName); err != nil {
			return nil, err
		}
		l.addEvent(hostID, hostName, event.ActionCreate, code)
		r.lobbies[code] = l
		r.users[hostID] = code
		return l, nil
	}

	logger.LogError("大厅号生成失败：%d 次尝试全部冲突，当前大厅 %d 个", r.deps.MaxCodeAttempts, len(r.lobbies))
	return nil, fmt.Errorf("%d attempts over %d lobbies: %w",
		r.deps.MaxCodeAttempts, len(r.lobbies), apperrors.ErrCodeGenerationExhausted)
}

// JoinLobby 加入大厅，玩家已在其他大厅时先离开；失败时尽量恢复到原大厅
func (r *Registry) JoinLobby(code, userID, userName string) (*GameLobby, error) {
	code = NormalizeCode(code)
	userID = strings.TrimSpace(userID)
	userName = strings.TrimSpace(userName)
	if code == "" || userID == "" || userName == "" {
		return nil, apperrors.ErrInvalidInput
	}

	unlock := r.userLocks.Lock(userID)
	defer unlock()

	target, ok := r.GetLobbyByCode(code)
	if !ok {
		return nil, apperrors.ErrLobbyNotFound
	}

	if current, ok := r.userCode(userID); ok && current == code && target.HasPlayer(userID) {
		return target, nil
	}

	// 目标大厅无法接纳时不移动玩家
	if err := target.CanAccept(userID); err != nil {
		return nil, err
	}

	prev, prevPlayer := r.detach(userID)
	if prev != nil {
		logger.LogInfo("🔀 玩家 %s 从大厅 %s 移动到 %s", userID, prev.Code, code)
	}

	if _, err := target.TryAddPlayer(userID, userName); err != nil {
		r.restore(prev, prevPlayer)
		return nil, err
	}

	r.mu.Lock()
	if r.lobbies[code] != target {
		// 加入期间大厅被关闭
		r.mu.Unlock()
		target.RemovePlayer(userID)
		r.restore(prev, prevPlayer)
		return nil, apperrors.ErrLobbyNotFound
	}
	r.users[userID] = code
	r.mu.Unlock()

	r.mirrorLobby(target)
	r.mirrorUser(userID, code)
	r.updateGauges()

	logger.LogInfo("👤 玩家 %s 加入大厅 %s", userName, code)
	return target, nil
}

// LeaveLobby 离开当前大厅，大厅为空时移除；返回是否发生了移除
func (r *Registry) LeaveLobby(userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}

	unlock := r.userLocks.Lock(userID)
	defer unlock()

	l, p := r.detach(userID)
	if l == nil || p == nil {
		return false
	}
	logger.LogInfo("👋 玩家 %s 离开大厅 %s", p.Name, l.Code)
	return true
}

// detach 先删除映射再移除成员；大厅因此为空时一并拆除
func (r *Registry) detach(userID string) (*GameLobby, *player.Player) {
	r.mu.Lock()
	code, ok := r.users[userID]
	delete(r.users, userID)
	l := r.lobbies[code]
	r.mu.Unlock()

	if !ok || l == nil {
		return nil, nil
	}

	p, _ := l.GetPlayer(userID)
	if !l.RemovePlayer(userID) {
		p = nil
	}
	r.mirrorUser(userID, "")

	if l.closeIfEmpty() {
		r.mu.Lock()
		if r.lobbies[code] == l {
			delete(r.lobbies, code)
		}
		r.mu.Unlock()
		r.teardown(context.Background(), l, closeReasonEmpty)
		logger.LogInfo("🏠 大厅 %s 已解散", code)
	} else {
		r.mirrorLobby(l)
	}
	r.updateGauges()
	return l, p
}

// restore 把玩家放回原大厅，原大厅已解散或已开局时放弃
func (r *Registry) restore(prev *GameLobby, p *player.Player) {
	if prev == nil || p == nil {
		return
	}
	if _, err := prev.TryAddPlayer(p.ID, p.Name); err != nil {
		logger.LogWarn("玩家 %s 无法回到大厅 %s: %v", p.ID, prev.Code, err)
		return
	}

	r.mu.Lock()
	if r.lobbies[prev.Code] != prev {
		r.mu.Unlock()
		prev.RemovePlayer(p.ID)
		return
	}
	r.users[p.ID] = prev.Code
	r.mu.Unlock()

	r.mirrorLobby(prev)
	r.mirrorUser(p.ID, prev.Code)
	r.updateGauges()
}

// --- 查询 ---

// GetLobbyByCode 按大厅号查找，大小写与首尾空白不敏感
func (r *Registry) GetLobbyByCode(code string) (*GameLobby, bool) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[code]
	return l, ok
}

// GetLobbyForUser 查找玩家所在大厅
func (r *Registry) GetLobbyForUser(userID string) (*GameLobby, bool) {
	if userID == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	l, ok := r.lobbies[code]
	return l, ok
}

func (r *Registry) userCode(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.users[userID]
	return code, ok
}

func (r *Registry) LobbyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}

func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Codes 返回当前全部大厅号
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.lobbies))
	for code := range r.lobbies {
		codes = append(codes, code)
	}
	return codes
}

// ActiveSessionCount 已开局的大厅数量
func (r *Registry) ActiveSessionCount() int {
	count := 0
	for _, l := range r.snapshot() {
		if l.IsStarted() {
			count++
		}
	}
	return count
}

// Lobbies 返回当前全部大厅的快照
func (r *Registry) Lobbies() []*GameLobby {
	return r.snapshot()
}

func (r *Registry) snapshot() []*GameLobby {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*GameLobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		out = append(out, l)
	}
	return out
}

func (r *Registry) updateGauges() {
	r.mu.RLock()
	lobbies, users := len(r.lobbies), len(r.users)
	r.mu.RUnlock()
	r.deps.Metrics.SetActiveLobbies(lobbies)
	r.deps.Metrics.SetLobbyMembers(users)
}
