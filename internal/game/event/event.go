package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action 事件动作标签
type Action string

const (
	ActionCreate           Action = "create"
	ActionJoin             Action = "join"
	ActionLeave            Action = "leave"
	ActionHostChange       Action = "host_change"
	ActionGameStart        Action = "game_start"
	ActionGameEnd          Action = "game_end"
	ActionTaskCompleted    Action = "task_completed"
	ActionFakeTask         Action = "fake_task"
	ActionKill             Action = "kill"
	ActionReport           Action = "report"
	ActionEmergencyMeeting Action = "emergency_meeting"
	ActionVote             Action = "vote"
	ActionEject            Action = "eject"
	ActionSabotage         Action = "sabotage"
	ActionSabotageFixed    Action = "sabotage_fixed"
	ActionSabotageExpired  Action = "sabotage_expired"
)

var labels = map[Action]string{
	ActionCreate:           "🏠 创建大厅",
	ActionJoin:             "👤 加入",
	ActionLeave:            "👋 离开",
	ActionHostChange:       "👑 房主变更",
	ActionGameStart:        "🚀 游戏开始",
	ActionGameEnd:          "🏁 游戏结束",
	ActionTaskCompleted:    "✅ 完成任务",
	ActionFakeTask:         "🎭 假装做任务",
	ActionKill:             "🔪 击杀",
	ActionReport:           "📢 报告尸体",
	ActionEmergencyMeeting: "🚨 紧急会议",
	ActionVote:             "🗳️ 投票",
	ActionEject:            "🚀 被驱逐",
	ActionSabotage:         "💥 破坏",
	ActionSabotageFixed:    "🔧 修复破坏",
	ActionSabotageExpired:  "☠️ 破坏生效",
}

// Label 返回动作的显示文本，未知动作原样返回
func (a Action) Label() string {
	if l, ok := labels[a]; ok {
		return l
	}
	return string(a)
}

const timeLayout = "15:04:05"

// GameEvent 游戏事件，创建后只有照片附件可以补充
type GameEvent struct {
	ID        uuid.UUID
	UserID    string
	UserName  string
	Action    Action
	Details   string
	Timestamp time.Time

	mu      sync.RWMutex
	photoID string
}

// New 创建事件，时间戳取当前时间
func New(userID, userName string, action Action, details string) *GameEvent {
	return &GameEvent{
		ID:        uuid.New(),
		UserID:    userID,
		UserName:  userName,
		Action:    action,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SetPhotoID 绑定凭证照片
func (e *GameEvent) SetPhotoID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.photoID = id
}

// PhotoID 返回照片附件，没有时第二个返回值为 false
func (e *GameEvent) PhotoID() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.photoID, e.photoID != ""
}

// FormattedDescription 返回 "[动作] 时:分:秒 名字: 详情"
func (e *GameEvent) FormattedDescription() string {
	s := fmt.Sprintf("[%s] %s %s", e.Action.Label(), e.Timestamp.Format(timeLayout), e.UserName)
	if e.Details != "" {
		s += ": " + e.Details
	}
	return s
}
