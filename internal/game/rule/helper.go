package rule

import (
	"github.com/palemoky/impostor-party/internal/game/player"
	"github.com/palemoky/impostor-party/internal/game/role"
)

// GroupByRole 按角色分组，未分配角色的玩家归入 role.Unassigned
func GroupByRole(players []*player.Player) map[role.Role][]*player.Player {
	groups := make(map[role.Role][]*player.Player)
	for _, p := range players {
		r, _ := p.Role()
		groups[r] = append(groups[r], p)
	}
	return groups
}

// PartitionByAlive 按存活状态划分
func PartitionByAlive(players []*player.Player) (alive, dead []*player.Player) {
	for _, p := range players {
		if p.IsAlive() {
			alive = append(alive, p)
		} else {
			dead = append(dead, p)
		}
	}
	return alive, dead
}

// TallyVotes 统计投票，空字符串代表弃票，平票或最高票为弃票时无人出局
func TallyVotes(votes map[string]string) (ejected string, tie bool) {
	counts := make(map[string]int)
	for _, target := range votes {
		counts[target]++
	}

	best := 0
	var leaders []string
	for target, n := range counts {
		switch {
		case n > best:
			best = n
			leaders = []string{target}
		case n == best:
			leaders = append(leaders, target)
		}
	}

	if len(leaders) != 1 {
		return "", len(leaders) > 1
	}
	return leaders[0], false
}
