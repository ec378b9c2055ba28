package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 调度任务类型标签
const (
	KindOnce      = "once"
	KindRepeating = "repeating"
	KindNow       = "now"
)

// Metrics 大厅核心的 Prometheus 指标
//
// 所有方法都允许 nil 接收者，未启用指标时调用方无需判空。
type Metrics struct {
	registry *prometheus.Registry

	ActiveLobbies  prometheus.Gauge
	LobbyMembers   prometheus.Gauge
	TasksScheduled *prometheus.CounterVec
	TasksRejected  *prometheus.CounterVec
	TaskPanics     prometheus.Counter
	CodeCollisions prometheus.Counter
	LobbiesClosed  *prometheus.CounterVec
}

// New 创建并注册指标，每个实例使用独立的 Registry
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActiveLobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_lobbies",
			Help:      "Number of registered lobbies",
		}),
		LobbyMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lobby_members",
			Help:      "Number of users mapped to a lobby",
		}),
		TasksScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_tasks_total",
			Help:      "Tasks accepted by the scheduler",
		}, []string{"kind"}),
		TasksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_queue_full_total",
			Help:      "Task submissions that found the queue full",
		}, []string{"kind"}),
		TaskPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_task_panics_total",
			Help:      "Scheduled tasks that panicked",
		}),
		CodeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobby_code_collisions_total",
			Help:      "Generated lobby codes that were already taken",
		}),
		LobbiesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobbies_closed_total",
			Help:      "Lobbies removed from the registry",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		m.ActiveLobbies,
		m.LobbyMembers,
		m.TasksScheduled,
		m.TasksRejected,
		m.TaskPanics,
		m.CodeCollisions,
		m.LobbiesClosed,
	)

	return m
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetActiveLobbies(n int) {
	if m == nil {
		return
	}
	m.ActiveLobbies.Set(float64(n))
}

func (m *Metrics) SetLobbyMembers(n int) {
	if m == nil {
		return
	}
	m.LobbyMembers.Set(float64(n))
}

func (m *Metrics) IncTaskScheduled(kind string) {
	if m == nil {
		return
	}
	m.TasksScheduled.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncTaskRejected(kind string) {
	if m == nil {
		return
	}
	m.TasksRejected.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncTaskPanic() {
	if m == nil {
		return
	}
	m.TaskPanics.Inc()
}

func (m *Metrics) IncCodeCollision() {
	if m == nil {
		return
	}
	m.CodeCollisions.Inc()
}

func (m *Metrics) IncLobbyClosed(reason string) {
	if m == nil {
		return
	}
	m.LobbiesClosed.WithLabelValues(reason).Inc()
}
