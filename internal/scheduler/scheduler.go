package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/logger"
	"github.com/palemoky/impostor-party/internal/metrics"
)

const (
	// 工作协程数量上下限
	MinWorkers = 2
	MaxWorkers = 64

	defaultQueueSize     = 1024
	defaultShutdownGrace = 5 * time.Second

	// 队列已满时计时任务的重试间隔
	queueRetryDelay = 10 * time.Millisecond
)

// Task 调度执行的工作单元，强制关闭时 ctx 会被取消
type Task func(ctx context.Context)

// Config 调度器配置
type Config struct {
	Workers       int           // 工作协程数，<=0 时取 2*NumCPU
	QueueSize     int           // 待执行队列长度
	ShutdownGrace time.Duration // 关闭时等待进行中任务的时间
}

// pool 一代工作池，强制关闭后整体丢弃，下次使用时重新创建
type pool struct {
	jobs    chan *job
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	senders sync.WaitGroup
}

// Scheduler 共享的有界工作池，负责延迟、周期和立即任务
type Scheduler struct {
	cfg     Config
	metrics *metrics.Metrics

	mu      sync.Mutex
	pool    *pool
	closing bool
	armed   map[uint64]*Handle // 已设定计时器、尚未触发的任务

	nextID atomic.Uint64
}

// New 创建调度器，工作池在首次使用或 Start 时创建
func New(cfg Config, m *metrics.Metrics) *Scheduler {
	cfg.Workers = resolveWorkers(cfg.Workers)
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = defaultShutdownGrace
	}
	return &Scheduler{
		cfg:     cfg,
		metrics: m,
		armed:   make(map[uint64]*Handle),
	}
}

func resolveWorkers(n int) int {
	if n <= 0 {
		n = 2 * runtime.NumCPU()
	}
	return min(max(n, MinWorkers), MaxWorkers)
}

// Workers 返回工作协程数
func (s *Scheduler) Workers() int {
	return s.cfg.Workers
}

// Start 启动工作池，可重复调用
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closing {
		s.startLocked()
	}
}

// Running 报告工作池是否已启动
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool != nil && !s.closing
}

// ArmedCount 返回尚未触发的计时任务数量
func (s *Scheduler) ArmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

func (s *Scheduler) startLocked() *pool {
	if s.pool != nil {
		return s.pool
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &pool{
		jobs:   make(chan *job, s.cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	p.workers.Add(s.cfg.Workers)
	for range s.cfg.Workers {
		go s.worker(p)
	}
	s.pool = p

	logger.LogInfo("⚙️ 调度器已启动，工作协程 %d 个，队列长度 %d", s.cfg.Workers, s.cfg.QueueSize)
	return p
}

// ScheduleOnce 在 delay 之后执行一次 task
func (s *Scheduler) ScheduleOnce(task Task, delay time.Duration) (*Handle, error) {
	if task == nil {
		return nil, apperrors.ErrNilTask
	}
	h := s.newHandle(task, 0, metrics.KindOnce)
	if err := s.arm(h, delay); err != nil {
		return nil, err
	}
	s.metrics.IncTaskScheduled(metrics.KindOnce)
	return h, nil
}

// ScheduleRepeating 在 initialDelay 之后首次执行，之后每次执行完成再间隔 period 执行
func (s *Scheduler) ScheduleRepeating(task Task, initialDelay, period time.Duration) (*Handle, error) {
	if task == nil {
		return nil, apperrors.ErrNilTask
	}
	if period <= 0 {
		return nil, apperrors.ErrInvalidInput
	}
	h := s.newHandle(task, period, metrics.KindRepeating)
	if err := s.arm(h, initialDelay); err != nil {
		return nil, err
	}
	s.metrics.IncTaskScheduled(metrics.KindRepeating)
	return h, nil
}

// SubmitNow 立即提交 task，不等待其完成；队列已满时返回 ErrQueueFull，不会阻塞调用方
func (s *Scheduler) SubmitNow(task Task) (*Handle, error) {
	if task == nil {
		return nil, apperrors.ErrNilTask
	}
	h := s.newHandle(task, 0, metrics.KindNow)
	if err := s.enqueue(h); err != nil {
		if errors.Is(err, apperrors.ErrQueueFull) {
			logger.LogWarn("⚠️ 调度队列已满（%d），立即任务未能提交", s.cfg.QueueSize)
		}
		return nil, err
	}
	s.metrics.IncTaskScheduled(metrics.KindNow)
	return h, nil
}

// Cancel 协作式取消，任务已完成或已取消时返回 false
func (s *Scheduler) Cancel(h *Handle) bool {
	if h == nil || !h.cancel() {
		return false
	}
	s.forget(h)
	return true
}

func (s *Scheduler) newHandle(task Task, period time.Duration, kind string) *Handle {
	return &Handle{
		id:     s.nextID.Add(1),
		kind:   kind,
		task:   task,
		period: period,
	}
}

// arm 为任务设定计时器
func (s *Scheduler) arm(h *Handle, delay time.Duration) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return apperrors.ErrSchedulerClosed
	}
	s.startLocked()
	s.armed[h.id] = h
	s.mu.Unlock()

	h.mu.Lock()
	h.timer = time.AfterFunc(max(delay, 0), func() { s.fire(h) })
	h.mu.Unlock()
	return nil
}

// fire 计时器到期，将任务投递到工作池；队列已满时稍后重试
func (s *Scheduler) fire(h *Handle) {
	if h.state.Load() != statePending {
		return
	}
	err := s.enqueue(h)
	switch {
	case err == nil:
		if h.period == 0 {
			s.forget(h)
		}
	case errors.Is(err, apperrors.ErrQueueFull):
		h.mu.Lock()
		if h.state.Load() == statePending {
			h.timer = time.AfterFunc(queueRetryDelay, func() { s.fire(h) })
		}
		h.mu.Unlock()
	default:
		h.abandon()
		s.forget(h)
		logger.LogDebug("计时任务 #%d 未能投递: %v", h.id, err)
	}
}

// enqueue 非阻塞投递，队列已满时返回 ErrQueueFull
func (s *Scheduler) enqueue(h *Handle) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return apperrors.ErrSchedulerClosed
	}
	p := s.startLocked()
	p.senders.Add(1)
	s.mu.Unlock()
	defer p.senders.Done()

	if p.ctx.Err() != nil {
		return apperrors.ErrSchedulerClosed
	}

	j := getJob(h)
	select {
	case p.jobs <- j:
		return nil
	default:
		putJob(j)
		s.metrics.IncTaskRejected(h.kind)
		return apperrors.ErrQueueFull
	}
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.armed, h.id)
	s.mu.Unlock()
}

func (s *Scheduler) worker(p *pool) {
	defer p.workers.Done()
	for j := range p.jobs {
		h := j.handle
		putJob(j)

		// 强制关闭后队列中剩余的任务直接丢弃
		if p.ctx.Err() != nil {
			h.abandon()
			continue
		}
		s.run(p.ctx, h)
	}
}

func (s *Scheduler) run(ctx context.Context, h *Handle) {
	if !h.state.CompareAndSwap(statePending, stateRunning) {
		return
	}

	s.execute(ctx, h)

	if h.period > 0 {
		if h.state.CompareAndSwap(stateRunning, statePending) {
			h.mu.Lock()
			h.timer = time.AfterFunc(h.period, func() { s.fire(h) })
			h.mu.Unlock()
			return
		}
		s.forget(h)
		return
	}

	h.state.CompareAndSwap(stateRunning, stateDone)
}

func (s *Scheduler) execute(ctx context.Context, h *Handle) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			s.metrics.IncTaskPanic()
		}
	}()
	h.task(ctx)
}

// Shutdown 停止接收新任务，在宽限期内等待进行中的任务，超时后取消剩余任务
//
// 可重复调用；关闭完成后调度器可在下次使用时重新初始化。
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	if s.pool == nil || s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	p := s.pool
	armed := s.armed
	s.armed = make(map[uint64]*Handle)
	s.mu.Unlock()

	for _, h := range armed {
		h.cancel()
	}

	drained := make(chan struct{})
	go func() {
		p.senders.Wait()
		close(p.jobs)
		p.workers.Wait()
		close(drained)
	}()

	var err error
	timer := time.NewTimer(s.cfg.ShutdownGrace)
	select {
	case <-drained:
		timer.Stop()
	case <-timer.C:
		err = apperrors.ErrForcedShutdown
		logger.LogWarn("⚠️ 调度器在 %v 内未能完成全部任务，强制取消", s.cfg.ShutdownGrace)
	}
	p.cancel()

	s.mu.Lock()
	s.pool = nil
	s.closing = false
	s.mu.Unlock()

	logger.LogInfo("⚙️ 调度器已关闭，取消计时任务 %d 个", len(armed))
	return err
}
