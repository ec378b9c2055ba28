package task

// Difficulty 任务难度
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// Label 返回难度的显示文本
func (d Difficulty) Label() string {
	switch d {
	case Easy:
		return "简单"
	case Medium:
		return "中等"
	case Hard:
		return "困难"
	default:
		return "未知"
	}
}

// Task 任务。模板只定义一次，分配给玩家时通过 Duplicate 生成实例
type Task struct {
	Name        string
	Description string
	Difficulty  Difficulty
	Completed   bool
	OwnerID     string // 空字符串表示无主
}

// New 创建任务模板
func New(name, description string, difficulty Difficulty) Task {
	return Task{Name: name, Description: description, Difficulty: difficulty}
}

// Duplicate 只复制名称、描述和难度，完成状态与归属不会被复制
func (t Task) Duplicate() Task {
	return Task{
		Name:        t.Name,
		Description: t.Description,
		Difficulty:  t.Difficulty,
	}
}

// Complete 标记为已完成，返回是否发生了状态变化
func (t *Task) Complete() bool {
	if t.Completed {
		return false
	}
	t.Completed = true
	return true
}

// HasOwner 是否已分配给玩家
func (t Task) HasOwner() bool {
	return t.OwnerID != ""
}
