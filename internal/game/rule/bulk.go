package rule

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/palemoky/impostor-party/internal/game/player"
)

const (
	// BulkThreshold 玩家数量超过该值时并行处理
	BulkThreshold = 12
	bulkWorkers   = 4
)

// ForEachPlayer 对每个玩家执行 fn，数量较多时并行
func ForEachPlayer(ctx context.Context, players []*player.Player, fn func(*player.Player)) error {
	if len(players) <= BulkThreshold {
		for _, p := range players {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(p)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkWorkers)
	for _, p := range players {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(p)
			return nil
		})
	}
	return g.Wait()
}

// ResetPlayers 将所有玩家恢复为新一局的状态
func ResetPlayers(ctx context.Context, players []*player.Player) error {
	return ForEachPlayer(ctx, players, (*player.Player).Reset)
}
