package role

// Role 角色，固定的两种变体加上未分配的零值
//
// 角色没有实例状态，所有同类玩家共享同一个值。
type Role uint8

const (
	Unassigned Role = iota
	Crewmate
	Impostor
)

type capabilities struct {
	name        string
	description string
	impostor    bool
	canKill     bool
	hasTasks    bool
}

var table = [...]capabilities{
	Unassigned: {},
	Crewmate: {
		name:        "船员",
		description: "完成所有任务，或找出并投票淘汰所有内鬼",
		hasTasks:    true,
	},
	Impostor: {
		name:        "内鬼",
		description: "暗中淘汰船员，伪装做任务，避免被投票淘汰",
		impostor:    true,
		canKill:     true,
	},
}

func (r Role) caps() capabilities {
	if int(r) < len(table) {
		return table[r]
	}
	return capabilities{}
}

// Valid 是否为已分配的角色
func (r Role) Valid() bool {
	return r == Crewmate || r == Impostor
}

func (r Role) Name() string        { return r.caps().name }
func (r Role) Description() string { return r.caps().description }
func (r Role) IsImpostor() bool    { return r.caps().impostor }
func (r Role) CanKill() bool       { return r.caps().canKill }
func (r Role) HasTasks() bool      { return r.caps().hasTasks }

func (r Role) String() string {
	switch r {
	case Crewmate:
		return "crewmate"
	case Impostor:
		return "impostor"
	default:
		return "unassigned"
	}
}
