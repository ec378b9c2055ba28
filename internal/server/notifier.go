package server

import (
	"context"

	"github.com/palemoky/impostor-party/internal/game/player"
	"github.com/palemoky/impostor-party/internal/logger"
	"github.com/palemoky/impostor-party/internal/types"
)

// LogNotifier 没有接入消息通道时使用，只把通知写入日志
var LogNotifier types.Notifier = types.NotifierFunc(func(_ context.Context, to player.Identity, message string) error {
	logger.LogDebug("📨 -> %s(%s): %s", to.UserName, to.UserID, message)
	return nil
})
