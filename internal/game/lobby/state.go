package lobby

import "context"

// Lifecycle 大厅生命周期
type Lifecycle int

const (
	LifecycleForming    Lifecycle = iota // 接受加入，尚未分配角色
	LifecycleInProgress                  // 已开局，禁止加入
	LifecycleClosed                      // 已从注册表移除
)

func (s Lifecycle) String() string {
	switch s {
	case LifecycleForming:
		return "forming"
	case LifecycleInProgress:
		return "in_progress"
	case LifecycleClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// GameState 外部游戏状态对象，大厅只在关闭时调用 OnExit
//
// OnExit 在大厅锁之外调用，可以回调大厅的只读方法。
type GameState interface {
	OnExit(ctx context.Context, l *GameLobby) error
}

// GameStateFunc 函数适配器
type GameStateFunc func(ctx context.Context, l *GameLobby) error

func (f GameStateFunc) OnExit(ctx context.Context, l *GameLobby) error {
	return f(ctx, l)
}
