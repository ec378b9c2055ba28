package match

import (
	"cmp"
	"errors"
	"slices"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/game/lobby"
	"github.com/palemoky/impostor-party/internal/logger"
)

// OpenLobby 可加入的大厅
type OpenLobby struct {
	Code    string
	Host    string
	Players int
}

// Matcher 快速匹配：优先加入人数最多且仍可加入的大厅，没有时新建
type Matcher struct {
	registry *lobby.Registry
}

// NewMatcher 创建匹配器
func NewMatcher(r *lobby.Registry) *Matcher {
	return &Matcher{registry: r}
}

// OpenLobbies 返回未开局且未满的大厅，人数多的在前
func (m *Matcher) OpenLobbies() []OpenLobby {
	var out []OpenLobby
	for _, l := range m.registry.Lobbies() {
		if l.Lifecycle() != lobby.LifecycleForming || l.IsFull() {
			continue
		}
		host := ""
		if p, ok := l.GetPlayer(l.HostID()); ok {
			host = p.Name
		}
		out = append(out, OpenLobby{Code: l.Code, Host: host, Players: l.GetPlayerCount()})
	}
	slices.SortFunc(out, func(a, b OpenLobby) int {
		if a.Players != b.Players {
			return b.Players - a.Players
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return out
}

// QuickJoin 为玩家匹配大厅；候选大厅在加入前被占满或开局时尝试下一个
func (m *Matcher) QuickJoin(userID, userName string) (*lobby.GameLobby, error) {
	if current, ok := m.registry.GetLobbyForUser(userID); ok && current.Lifecycle() == lobby.LifecycleForming {
		return current, nil
	}

	for _, candidate := range m.OpenLobbies() {
		l, err := m.registry.JoinLobby(candidate.Code, userID, userName)
		if err == nil {
			logger.LogInfo("🔍 玩家 %s 匹配到大厅 %s", userName, l.Code)
			return l, nil
		}
		if !retryable(err) {
			return nil, err
		}
	}

	l, err := m.registry.CreateLobby(userID, userName)
	if err != nil {
		return nil, err
	}
	logger.LogInfo("🔍 没有可加入的大厅，为玩家 %s 新建大厅 %s", userName, l.Code)
	return l, nil
}

func retryable(err error) bool {
	return errors.Is(err, apperrors.ErrLobbyFull) ||
		errors.Is(err, apperrors.ErrGameInProgress) ||
		errors.Is(err, apperrors.ErrLobbyNotFound)
}
