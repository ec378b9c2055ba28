package player

import (
	"fmt"
	"sync"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/game/role"
	"github.com/palemoky/impostor-party/internal/game/task"
)

// Identity 投递消息所需的玩家身份
type Identity struct {
	UserID   string
	UserName string
	ChatID   string
}

// Player 大厅中的玩家
//
// ID、Name 在创建后不变；chatID 及其余状态由内部锁保护，Reset 会恢复除 chatID 外的默认值。
type Player struct {
	ID   string
	Name string

	mu                    sync.RWMutex
	chatID                string
	alive                 bool
	role                  role.Role
	tasks                 []task.Task
	emergencyMeetingsUsed int
	awaitingTask          int // -1 表示无
	awaitingFakeTask      int // -1 表示无
}

// New 创建玩家
func New(id, name string) *Player {
	return &Player{
		ID:               id,
		Name:             name,
		alive:            true,
		awaitingTask:     -1,
		awaitingFakeTask: -1,
	}
}

// Identity 返回玩家身份
func (p *Player) Identity() Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Identity{UserID: p.ID, UserName: p.Name, ChatID: p.chatID}
}

// SetChatID 绑定会话频道，Reset 不会清除
func (p *Player) SetChatID(chatID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chatID = chatID
}

// ChatID 返回绑定的会话频道
func (p *Player) ChatID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chatID
}

func (p *Player) IsAlive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.alive
}

// Kill 标记死亡，返回是否发生了状态变化
func (p *Player) Kill() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.alive {
		return false
	}
	p.alive = false
	return true
}

// Role 返回角色，未分配时第二个返回值为 false
func (p *Player) Role() (role.Role, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.role, p.role.Valid()
}

func (p *Player) SetRole(r role.Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.role = r
}

func (p *Player) IsImpostor() bool {
	r, _ := p.Role()
	return r.IsImpostor()
}

// AssignTasks 用模板的副本替换当前任务，并将归属设为该玩家
func (p *Player) AssignTasks(templates []task.Task) {
	tasks := make([]task.Task, len(templates))
	for i, tmpl := range templates {
		tasks[i] = tmpl.Duplicate()
		tasks[i].OwnerID = p.ID
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = tasks
}

// Tasks 返回任务副本
func (p *Player) Tasks() []task.Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]task.Task, len(p.tasks))
	copy(out, p.tasks)
	return out
}

// CompleteTask 完成指定任务，已完成的任务返回 false
func (p *Player) CompleteTask(index int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.tasks) {
		return false, fmt.Errorf("task %d of %d: %w", index, len(p.tasks), apperrors.ErrInvalidTaskIndex)
	}
	return p.tasks[index].Complete(), nil
}

func (p *Player) CompletedTaskCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, t := range p.tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

func (p *Player) TotalTaskCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tasks)
}

// AllTasksCompleted 没有任务的玩家视为未完成
func (p *Player) AllTasksCompleted() bool {
	total := p.TotalTaskCount()
	return total > 0 && p.CompletedTaskCount() == total
}

func (p *Player) EmergencyMeetingsUsed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.emergencyMeetingsUsed
}

// UseEmergencyMeeting 在未超过 limit 时消耗一次紧急会议
func (p *Player) UseEmergencyMeeting(limit int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.emergencyMeetingsUsed >= limit {
		return false
	}
	p.emergencyMeetingsUsed++
	return true
}

// SetAwaitingTask 记录等待提交凭证的任务编号
func (p *Player) SetAwaitingTask(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.awaitingTask = index
}

func (p *Player) AwaitingTask() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.awaitingTask, p.awaitingTask >= 0
}

// SetAwaitingFakeTask 内鬼伪装做任务时的等待标记
func (p *Player) SetAwaitingFakeTask(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.awaitingFakeTask = index
}

func (p *Player) AwaitingFakeTask() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.awaitingFakeTask, p.awaitingFakeTask >= 0
}

// ClearAwaiting 清除两种等待标记
func (p *Player) ClearAwaiting() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.awaitingTask = -1
	p.awaitingFakeTask = -1
}

// Reset 恢复为新一局的默认状态，保留身份与 ChatID
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive = true
	p.role = role.Unassigned
	p.tasks = nil
	p.emergencyMeetingsUsed = 0
	p.awaitingTask = -1
	p.awaitingFakeTask = -1
}
