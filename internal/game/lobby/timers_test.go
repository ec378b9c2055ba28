package lobby

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/game/event"
	"github.com/palemoky/impostor-party/internal/testutil"
)

func TestKillCooldown(t *testing.T) {
	t.Parallel()

	l := newTestLobby(t, 2)

	assert.False(t, l.IsOnCooldown("p0"))
	require.NoError(t, l.StartKillCooldown("p0"))
	assert.True(t, l.IsOnCooldown("p0"))
	assert.False(t, l.IsOnCooldown("p1"))

	remaining := l.CooldownRemaining("p0")
	assert.Greater(t, remaining, 25*time.Second)
	assert.LessOrEqual(t, remaining, 30*time.Second)

	assert.ErrorIs(t, l.StartKillCooldown("ghost"), apperrors.ErrNotInLobby)
}

func TestKillCooldown_RestartReplacesTimer(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t)
	l := NewGameLobby("ABC234", sched, nil)
	require.True(t, l.AddPlayer("p0", "Player0"))

	require.NoError(t, l.StartKillCooldown("p0"))
	require.NoError(t, l.StartKillCooldown("p0"))
	assert.Equal(t, 1, sched.ArmedCount())
}

func TestKillCooldown_ClearedOnLeave(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t)
	l := NewGameLobby("ABC234", sched, nil)
	require.True(t, l.AddPlayer("p0", "Player0"))
	require.True(t, l.AddPlayer("p1", "Player1"))

	require.NoError(t, l.StartKillCooldown("p1"))
	require.True(t, l.RemovePlayer("p1"))

	assert.False(t, l.IsOnCooldown("p1"))
	assert.Zero(t, sched.ArmedCount())
}

func TestKillCooldown_RequiresScheduler(t *testing.T) {
	t.Parallel()

	l := NewGameLobby("ABC234", nil, nil)
	require.True(t, l.AddPlayer("p0", "Player0"))
	assert.ErrorIs(t, l.StartKillCooldown("p0"), apperrors.ErrSchedulerClosed)
}

func TestSabotage_ExpiresAndBroadcastsCountdown(t *testing.T) {
	t.Parallel()

	notifier := testutil.NewRecordingNotifier()
	l := NewGameLobby("ABC234", newTestScheduler(t), notifier)
	require.True(t, l.AddPlayer("p0", "Player0"))
	l.SetCountdownTick(20 * time.Millisecond)

	var expired atomic.Bool
	require.NoError(t, l.StartSabotage("p0", "reactor", 100*time.Millisecond, func(context.Context) {
		expired.Store(true)
	}))

	kind, remaining, ok := l.ActiveSabotage()
	require.True(t, ok)
	assert.Equal(t, "reactor", kind)
	assert.Positive(t, remaining)

	err := l.StartSabotage("p0", "lights", time.Second, nil)
	assert.ErrorIs(t, err, apperrors.ErrSabotageActive)

	assert.Eventually(t, expired.Load, 2*time.Second, 10*time.Millisecond)

	_, _, ok = l.ActiveSabotage()
	assert.False(t, ok)
	assert.Len(t, l.GetEventsByType(event.ActionSabotage), 1)
	assert.Len(t, l.GetEventsByType(event.ActionSabotageExpired), 1)
	assert.Eventually(t, func() bool {
		return len(notifier.DeliveredTo("p0")) > 0
	}, time.Second, 10*time.Millisecond)
}

func TestSabotage_ExpiresAtDeadlineBetweenTicks(t *testing.T) {
	t.Parallel()

	l := newTestLobby(t, 1)
	l.SetCountdownTick(200 * time.Millisecond)

	var calls atomic.Int32
	start := time.Now()
	var expiredAt atomic.Int64
	require.NoError(t, l.StartSabotage("p0", "reactor", 210*time.Millisecond, func(context.Context) {
		expiredAt.Store(int64(time.Since(start)))
		calls.Add(1)
	}))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	// The second countdown tick would land at 400ms
	assert.Less(t, time.Duration(expiredAt.Load()), 350*time.Millisecond)

	_, _, ok := l.ActiveSabotage()
	assert.False(t, ok)
	assert.False(t, l.FixSabotage("p0"), "fixing after the deadline is too late")
	assert.Empty(t, l.GetEventsByType(event.ActionSabotageFixed))
	assert.Len(t, l.GetEventsByType(event.ActionSabotageExpired), 1)

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSabotage_ShortDurationSkipsCountdown(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t)
	l := NewGameLobby("ABC234", sched, nil)
	require.True(t, l.AddPlayer("p0", "Player0"))

	require.NoError(t, l.StartSabotage("p0", "lights", 5*time.Second, nil))
	assert.Equal(t, 1, sched.ArmedCount(), "only the deadline is armed")
	assert.True(t, l.FixSabotage("p0"))
	assert.Zero(t, sched.ArmedCount())
}

func TestSabotage_Fix(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t)
	l := NewGameLobby("ABC234", sched, nil)
	require.True(t, l.AddPlayer("p0", "Player0"))

	var expired atomic.Bool
	require.NoError(t, l.StartSabotage("p0", "oxygen", time.Minute, func(context.Context) {
		expired.Store(true)
	}))
	// deadline plus countdown ticker
	assert.Equal(t, 2, sched.ArmedCount())

	assert.True(t, l.FixSabotage("p0"))
	assert.False(t, l.FixSabotage("p0"))

	_, _, ok := l.ActiveSabotage()
	assert.False(t, ok)
	assert.Zero(t, sched.ArmedCount())
	assert.False(t, expired.Load())

	fixed := l.GetEventsByType(event.ActionSabotageFixed)
	require.Len(t, fixed, 1)
	assert.Equal(t, "oxygen", fixed[0].Details)
}

func TestSabotage_InvalidInput(t *testing.T) {
	t.Parallel()

	l := newTestLobby(t, 1)
	assert.ErrorIs(t, l.StartSabotage("p0", "", time.Second, nil), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, l.StartSabotage("p0", "lights", 0, nil), apperrors.ErrInvalidInput)
}

func TestStopTimers(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t)
	l := NewGameLobby("ABC234", sched, nil)
	require.True(t, l.AddPlayer("p0", "Player0"))
	require.NoError(t, l.StartKillCooldown("p0"))
	require.NoError(t, l.StartSabotage("p0", "lights", time.Minute, nil))

	l.stopTimers()

	assert.Zero(t, sched.ArmedCount())
	assert.False(t, l.IsOnCooldown("p0"))
	_, _, ok := l.ActiveSabotage()
	assert.False(t, ok)
}
