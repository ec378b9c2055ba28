package types

import (
	"context"

	"github.com/palemoky/impostor-party/internal/game/player"
)

// Notifier 外部消息投递能力，单个收件人失败不影响其他人
type Notifier interface {
	Deliver(ctx context.Context, to player.Identity, message string) error
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, to player.Identity, message string) error

func (f NotifierFunc) Deliver(ctx context.Context, to player.Identity, message string) error {
	return f(ctx, to, message)
}
