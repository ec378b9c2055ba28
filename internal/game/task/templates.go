package task

var defaultTemplates = []Task{
	New("修理线路", "在电气室连接断开的电线", Easy),
	New("清理过滤器", "清空氧气室的过滤网", Easy),
	New("刷卡", "在管理室刷一次身份卡", Easy),
	New("下载数据", "从通讯室下载数据并上传到管理室", Medium),
	New("校准分配器", "在电气室校准能源分配器", Medium),
	New("加油", "为上下引擎补充燃料", Medium),
	New("对准引擎", "调整引擎输出方向", Medium),
	New("检查样本", "在医疗室完成样本检测", Hard),
	New("稳定航向", "在导航室校正飞船航线", Hard),
	New("启动反应堆", "按顺序完成反应堆启动流程", Hard),
}

// DefaultTemplates 返回任务模板目录的副本
func DefaultTemplates() []Task {
	out := make([]Task, len(defaultTemplates))
	copy(out, defaultTemplates)
	return out
}
