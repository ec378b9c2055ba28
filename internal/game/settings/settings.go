package settings

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/palemoky/impostor-party/internal/apperrors"
)

// 规范的设置键
const (
	ImpostorCount     = "impostorCount"
	EmergencyMeetings = "emergencyMeetings"
	DiscussionTime    = "discussionTime"
	VotingTime        = "votingTime"
	TasksPerPlayer    = "tasksPerPlayer"
	KillCooldown      = "killCooldown"
)

// Spec 单个设置项的默认值与取值范围
type Spec struct {
	Key     string
	Default int
	Min     int
	Max     int
	Aliases []string
}

// Contains 值是否在范围内
func (s Spec) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

var specs = []Spec{
	{Key: ImpostorCount, Default: 1, Min: 1, Max: 3, Aliases: []string{"impostor_count", "impostors", "imp"}},
	{Key: EmergencyMeetings, Default: 1, Min: 0, Max: 5, Aliases: []string{"emergency_meetings", "meetings", "emergency"}},
	{Key: DiscussionTime, Default: 45, Min: 15, Max: 180, Aliases: []string{"discussion_time", "discussion"}},
	{Key: VotingTime, Default: 60, Min: 15, Max: 300, Aliases: []string{"voting_time", "voting", "vote_time"}},
	{Key: TasksPerPlayer, Default: 5, Min: 1, Max: 10, Aliases: []string{"tasks_per_player", "tasks"}},
	{Key: KillCooldown, Default: 30, Min: 10, Max: 60, Aliases: []string{"kill_cooldown", "cooldown"}},
}

// 别名（已归一化）→ 规范键
var aliases = func() map[string]string {
	m := make(map[string]string)
	for _, s := range specs {
		m[normalize(s.Key)] = s.Key
		for _, a := range s.Aliases {
			m[normalize(a)] = s.Key
		}
	}
	return m
}()

var byKey = func() map[string]Spec {
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		m[s.Key] = s
	}
	return m
}()

// normalize 忽略大小写、空白、下划线和连字符
func normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case '_', '-', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Resolve 将别名解析为规范键
func Resolve(name string) (string, bool) {
	key, ok := aliases[normalize(name)]
	return key, ok
}

// Specs 返回所有设置项定义
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// LobbySettings 大厅设置
type LobbySettings struct {
	mu     sync.RWMutex
	values map[string]int
}

// New 创建默认设置
func New() *LobbySettings {
	s := &LobbySettings{}
	s.Reset()
	return s
}

// Update 校验并更新设置，失败时不修改任何状态
func (s *LobbySettings) Update(name string, value int) error {
	key, ok := Resolve(name)
	if !ok {
		return fmt.Errorf("setting %q: %w", name, apperrors.ErrUnknownSetting)
	}
	spec := byKey[key]
	if !spec.Contains(value) {
		return fmt.Errorf("%s=%d not in [%d,%d]: %w", key, value, spec.Min, spec.Max, apperrors.ErrSettingOutOfRange)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// UpdateSetting 与 Update 相同，只返回是否成功
func (s *LobbySettings) UpdateSetting(name string, value int) bool {
	return s.Update(name, value) == nil
}

// UpdateFromString 解析文本值后更新
func (s *LobbySettings) UpdateFromString(name, raw string) error {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("setting %q value %q: %w", name, raw, apperrors.ErrInvalidInput)
	}
	return s.Update(name, v)
}

// Reset 恢复默认值
func (s *LobbySettings) Reset() {
	values := make(map[string]int, len(specs))
	for _, spec := range specs {
		values[spec.Key] = spec.Default
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = values
}

// Get 按名称或别名读取
func (s *LobbySettings) Get(name string) (int, bool) {
	key, ok := Resolve(name)
	if !ok {
		return 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], true
}

// Snapshot 返回规范键到值的副本
func (s *LobbySettings) Snapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

func (s *LobbySettings) get(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *LobbySettings) ImpostorCount() int     { return s.get(ImpostorCount) }
func (s *LobbySettings) EmergencyMeetings() int { return s.get(EmergencyMeetings) }
func (s *LobbySettings) DiscussionTime() int    { return s.get(DiscussionTime) }
func (s *LobbySettings) VotingTime() int        { return s.get(VotingTime) }
func (s *LobbySettings) TasksPerPlayer() int    { return s.get(TasksPerPlayer) }
func (s *LobbySettings) KillCooldown() int      { return s.get(KillCooldown) }

// DiscussionDuration 讨论阶段时长
func (s *LobbySettings) DiscussionDuration() time.Duration {
	return time.Duration(s.DiscussionTime()) * time.Second
}

// VotingDuration 投票阶段时长
func (s *LobbySettings) VotingDuration() time.Duration {
	return time.Duration(s.VotingTime()) * time.Second
}

// KillCooldownDuration 击杀冷却时长
func (s *LobbySettings) KillCooldownDuration() time.Duration {
	return time.Duration(s.KillCooldown()) * time.Second
}
