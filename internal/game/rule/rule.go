package rule

import (
	"math/rand/v2"

	"github.com/palemoky/impostor-party/internal/game/player"
	"github.com/palemoky/impostor-party/internal/game/role"
	"github.com/palemoky/impostor-party/internal/game/task"
)

const (
	// 玩家数量上下限
	MinPlayers = 4
	MaxPlayers = 20

	// TaskWinThreshold 船员任务完成百分比达到该值即获胜
	TaskWinThreshold = 100.0
)

// Winner 胜利方
type Winner int

const (
	WinnerNone Winner = iota
	WinnerCrewmates
	WinnerImpostors
)

func (w Winner) String() string {
	switch w {
	case WinnerCrewmates:
		return "crewmates"
	case WinnerImpostors:
		return "impostors"
	default:
		return "none"
	}
}

// ImpostorCap 按玩家数量返回内鬼上限：4-6 人 1 个，7-9 人 2 个，10 人以上 3 个
func ImpostorCap(playerCount int) int {
	switch {
	case playerCount < MinPlayers:
		return 0
	case playerCount <= 6:
		return 1
	case playerCount <= 9:
		return 2
	default:
		return 3
	}
}

// ImpostorCountFor 取设置值与上限中较小者，人数足够时至少 1 个
func ImpostorCountFor(playerCount, configured int) int {
	limit := ImpostorCap(playerCount)
	if limit == 0 {
		return 0
	}
	return max(1, min(configured, limit))
}

// AssignRoles 随机分配角色，返回内鬼列表
func AssignRoles(players []*player.Player, configured int, rng *rand.Rand) []*player.Player {
	n := ImpostorCountFor(len(players), configured)

	order := make([]*player.Player, len(players))
	copy(order, players)
	shuffle(rng, len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	impostors := make([]*player.Player, 0, n)
	for i, p := range order {
		if i < n {
			p.SetRole(role.Impostor)
			impostors = append(impostors, p)
			continue
		}
		p.SetRole(role.Crewmate)
	}
	return impostors
}

// DistributeTasks 为每个有任务的角色从模板中随机抽取 perPlayer 个任务副本
//
// 模板不足 perPlayer 个时全部分配。
func DistributeTasks(players []*player.Player, templates []task.Task, perPlayer int, rng *rand.Rand) {
	count := min(perPlayer, len(templates))
	for _, p := range players {
		r, ok := p.Role()
		if !ok || !r.HasTasks() {
			p.AssignTasks(nil)
			continue
		}

		pool := make([]task.Task, len(templates))
		copy(pool, templates)
		shuffle(rng, len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		p.AssignTasks(pool[:count])
	}
}

// TaskProgress 返回全体船员的任务完成百分比，没有任务时为 0
func TaskProgress(players []*player.Player) float64 {
	var done, total int
	for _, p := range players {
		if p.IsImpostor() {
			continue
		}
		done += p.CompletedTaskCount()
		total += p.TotalTaskCount()
	}
	if total == 0 {
		return 0
	}
	return float64(done) * 100 / float64(total)
}

// CrewmatesFinishedTasks 任务完成度是否达到胜利阈值
func CrewmatesFinishedTasks(players []*player.Player) bool {
	return TaskProgress(players) >= TaskWinThreshold
}

// CheckWinner 判定胜负：内鬼全部出局或任务完成则船员胜，存活内鬼不少于存活船员则内鬼胜
func CheckWinner(players []*player.Player) Winner {
	var impostors, crewmates int
	for _, p := range players {
		if !p.IsAlive() {
			continue
		}
		if p.IsImpostor() {
			impostors++
		} else {
			crewmates++
		}
	}

	switch {
	case impostors == 0:
		return WinnerCrewmates
	case CrewmatesFinishedTasks(players):
		return WinnerCrewmates
	case impostors >= crewmates:
		return WinnerImpostors
	default:
		return WinnerNone
	}
}

func shuffle(rng *rand.Rand, n int, swap func(i, j int)) {
	if rng != nil {
		rng.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}
