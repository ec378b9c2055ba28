package scheduler

import "sync"

// job 工作队列中的条目，通过 sync.Pool 复用
type job struct {
	handle *Handle
}

var jobPool = sync.Pool{
	New: func() any {
		return &job{}
	},
}

func getJob(h *Handle) *job {
	j := jobPool.Get().(*job)
	j.handle = h
	return j
}

// putJob 清空引用后放回池中
func putJob(j *job) {
	if j == nil {
		return
	}
	j.handle = nil
	jobPool.Put(j)
}
