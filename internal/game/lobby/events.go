package lobby

import (
	"github.com/palemoky/impostor-party/internal/game/event"
)

// AddGameEvent 追加事件并返回
func (l *GameLobby) AddGameEvent(userID string, action event.Action, details string) *event.GameEvent {
	name := userID
	if p, ok := l.GetPlayer(userID); ok {
		name = p.Name
	}
	return l.addEvent(userID, name, action, details)
}

func (l *GameLobby) addEvent(userID, userName string, action event.Action, details string) *event.GameEvent {
	e := event.New(userID, userName, action, details)
	l.eventsMu.Lock()
	l.events = append(l.events, e)
	l.eventsMu.Unlock()
	return e
}

// GetGameEvents 按追加顺序返回全部事件
func (l *GameLobby) GetGameEvents() []*event.GameEvent {
	return l.filterEvents(func(*event.GameEvent) bool { return true })
}

// GetEventsByType 返回指定动作的事件
func (l *GameLobby) GetEventsByType(action event.Action) []*event.GameEvent {
	return l.filterEvents(func(e *event.GameEvent) bool { return e.Action == action })
}

// GetPlayerEvents 返回指定玩家的事件
func (l *GameLobby) GetPlayerEvents(userID string) []*event.GameEvent {
	return l.filterEvents(func(e *event.GameEvent) bool { return e.UserID == userID })
}

// EventCount 事件数量
func (l *GameLobby) EventCount() int {
	l.eventsMu.RLock()
	defer l.eventsMu.RUnlock()
	return len(l.events)
}

// ClearGameEvents 清空事件日志，回合之间使用
func (l *GameLobby) ClearGameEvents() {
	l.eventsMu.Lock()
	defer l.eventsMu.Unlock()
	l.events = nil
}

func (l *GameLobby) filterEvents(keep func(*event.GameEvent) bool) []*event.GameEvent {
	l.eventsMu.RLock()
	defer l.eventsMu.RUnlock()
	out := make([]*event.GameEvent, 0, len(l.events))
	for _, e := range l.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
