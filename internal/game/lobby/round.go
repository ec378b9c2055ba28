package lobby

import (
	"context"
	"math/rand/v2"

	"github.com/palemoky/impostor-party/internal/game/event"
	"github.com/palemoky/impostor-party/internal/game/player"
	"github.com/palemoky/impostor-party/internal/game/rule"
	"github.com/palemoky/impostor-party/internal/game/task"
	"github.com/palemoky/impostor-party/internal/logger"
)

// StartRound 开局：锁定成员，分配角色和任务，返回内鬼列表
func (l *GameLobby) StartRound(rng *rand.Rand) ([]*player.Player, error) {
	if err := l.BeginSession(); err != nil {
		return nil, err
	}

	players := l.GetPlayers()
	impostors := rule.AssignRoles(players, l.settings.ImpostorCount(), rng)
	rule.DistributeTasks(players, task.DefaultTemplates(), l.settings.TasksPerPlayer(), rng)

	l.AddGameEvent(l.HostID(), event.ActionGameStart, "")
	logger.LogInfo("🎮 大厅 %s 开局，%d 名玩家，%d 名内鬼", l.Code, len(players), len(impostors))
	return impostors, nil
}

// CheckWinner 按当前玩家状态判定胜负
func (l *GameLobby) CheckWinner() rule.Winner {
	return rule.CheckWinner(l.GetPlayers())
}

// TaskProgress 船员任务完成百分比
func (l *GameLobby) TaskProgress() float64 {
	return rule.TaskProgress(l.GetPlayers())
}

// EndRound 结束本局：停止计时，重置玩家，清空事件日志，重新接受加入
func (l *GameLobby) EndRound(ctx context.Context, winner rule.Winner) error {
	l.stopTimers()
	if err := rule.ResetPlayers(ctx, l.GetPlayers()); err != nil {
		return err
	}
	l.ClearGameEvents()
	l.EndSession()

	l.addEvent("", systemName, event.ActionGameEnd, winner.String())
	logger.LogInfo("🏁 大厅 %s 本局结束，胜利方 %s", l.Code, winner)
	return nil
}
