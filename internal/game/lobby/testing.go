//go:build !production

package lobby

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockGameState 游戏状态 mock
type MockGameState struct {
	mock.Mock
}

func (m *MockGameState) OnExit(ctx context.Context, l *GameLobby) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

// SetCountdownTick 调整破坏倒计时的步进间隔
func (l *GameLobby) SetCountdownTick(d time.Duration) {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	l.countdownTick = d
}

// Backdate 将最近活动时间向前推移 d
func (l *GameLobby) Backdate(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActivity = l.lastActivity.Add(-d)
}
