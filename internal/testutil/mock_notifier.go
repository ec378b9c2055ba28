//go:build !production

package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/impostor-party/internal/game/player"
)

// MockNotifier 实现 types.Notifier 的 mock
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, to player.Identity, message string) error {
	args := m.Called(ctx, to, message)
	return args.Error(0)
}

// Delivery 一次投递记录
type Delivery struct {
	To      player.Identity
	Message string
}

// RecordingNotifier 记录所有投递，不使用 testify（用于不需要断言调用顺序的测试）
type RecordingNotifier struct {
	mu         sync.Mutex
	deliveries []Delivery
	failFor    map[string]error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{failFor: make(map[string]error)}
}

// FailFor 让投递给 userID 的消息返回 err
func (n *RecordingNotifier) FailFor(userID string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failFor[userID] = err
}

func (n *RecordingNotifier) Deliver(_ context.Context, to player.Identity, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[to.UserID]; ok {
		return err
	}
	n.deliveries = append(n.deliveries, Delivery{To: to, Message: message})
	return nil
}

// Deliveries 返回投递记录副本
func (n *RecordingNotifier) Deliveries() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Delivery, len(n.deliveries))
	copy(out, n.deliveries)
	return out
}

// DeliveredTo 返回投递给 userID 的消息
func (n *RecordingNotifier) DeliveredTo(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, d := range n.deliveries {
		if d.To.UserID == userID {
			out = append(out, d.Message)
		}
	}
	return out
}
