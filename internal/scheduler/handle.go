package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	statePending int32 = iota
	stateRunning
	stateDone
	stateCancelled
)

// Handle 已调度任务的句柄
type Handle struct {
	id     uint64
	kind   string
	task   Task
	period time.Duration

	state atomic.Int32

	mu    sync.Mutex
	timer *time.Timer
}

// ID 返回句柄编号
func (h *Handle) ID() uint64 { return h.id }

// Kind 返回任务类型（once / repeating / now）
func (h *Handle) Kind() string { return h.kind }

// Done 一次性任务已执行完毕
func (h *Handle) Done() bool { return h.state.Load() == stateDone }

// Cancelled 任务已被取消
func (h *Handle) Cancelled() bool { return h.state.Load() == stateCancelled }

// cancel 执行中的一次性任务无法取消；周期任务在执行中取消会阻止后续执行
func (h *Handle) cancel() bool {
	for {
		st := h.state.Load()
		switch st {
		case stateDone, stateCancelled:
			return false
		case stateRunning:
			if h.period == 0 {
				return false
			}
		}
		if h.state.CompareAndSwap(st, stateCancelled) {
			h.stopTimer()
			return true
		}
	}
}

// abandon 未执行即被丢弃
func (h *Handle) abandon() {
	h.state.CompareAndSwap(statePending, stateCancelled)
	h.stopTimer()
}

func (h *Handle) stopTimer() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
