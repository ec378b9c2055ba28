package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/impostor-party/internal/apperrors"
	"github.com/palemoky/impostor-party/internal/game/event"
	"github.com/palemoky/impostor-party/internal/metrics"
	"github.com/palemoky/impostor-party/internal/server/storage"
)

func newTestRegistry(t *testing.T, mutate ...func(*RegistryDeps)) *Registry {
	t.Helper()
	deps := RegistryDeps{Scheduler: newTestScheduler(t)}
	for _, fn := range mutate {
		fn(&deps)
	}
	r := NewRegistry(deps)
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return r
}

// assertConsistent every user mapping points at a lobby that contains the user
func assertConsistent(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	users := make(map[string]string, len(r.users))
	for u, c := range r.users {
		users[u] = c
	}
	r.mu.RUnlock()

	for userID, code := range users {
		l, ok := r.GetLobbyByCode(code)
		if assert.True(t, ok, "user %s maps to missing lobby %s", userID, code) {
			assert.True(t, l.HasPlayer(userID), "lobby %s does not contain %s", code, userID)
		}
	}
}

func TestRegistry_CreateLobby(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	l, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)
	assert.Len(t, l.Code, CodeLength)
	assert.Equal(t, NormalizeCode(l.Code), l.Code)

	found, ok := r.GetLobbyForUser("h1")
	require.True(t, ok)
	assert.Same(t, l, found)
	assert.Equal(t, 1, l.GetPlayerCount())
	assert.True(t, l.IsHost("h1"))
	assert.Equal(t, 1, r.LobbyCount())
	assert.Equal(t, []string{l.Code}, r.Codes())

	created := l.GetEventsByType(event.ActionCreate)
	require.Len(t, created, 1)
	assert.Equal(t, "h1", created[0].UserID)
	assert.Equal(t, l.Code, created[0].Details)
	assert.Len(t, l.GetEventsByType(event.ActionJoin), 1)
}

func TestRegistry_CreateLobbyValidation(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	_, err := r.CreateLobby("", "Host")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = r.CreateLobby("h1", "  ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, r.LobbyCount())
}

func TestRegistry_CreateLobbyMovesHost(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	first, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)
	second, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)

	_, ok := r.GetLobbyByCode(first.Code)
	assert.False(t, ok, "empty lobby is removed")
	found, ok := r.GetLobbyForUser("h1")
	require.True(t, ok)
	assert.Same(t, second, found)
	assert.Equal(t, 1, r.LobbyCount())
}

func TestRegistry_Lookups(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	l, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)

	found, ok := r.GetLobbyByCode(fmt.Sprintf("  %s ", strings.ToLower(l.Code)))
	require.True(t, ok)
	assert.Same(t, l, found)

	_, ok = r.GetLobbyByCode("")
	assert.False(t, ok)
	_, ok = r.GetLobbyByCode("ZZZZZZ")
	assert.False(t, ok)
	_, ok = r.GetLobbyForUser("")
	assert.False(t, ok)
	_, ok = r.GetLobbyForUser("nobody")
	assert.False(t, ok)
}

func TestRegistry_JoinLobby(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	l, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)

	joined, err := r.JoinLobby(strings.ToLower(l.Code), "p1", "Alice")
	require.NoError(t, err)
	assert.Same(t, l, joined)
	assert.Equal(t, 2, l.GetPlayerCount())
	assert.Equal(t, 2, r.UserCount())

	// Joining again does not duplicate membership
	again, err := r.JoinLobby(l.Code, "p1", "Alice")
	require.NoError(t, err)
	assert.Same(t, l, again)
	assert.Equal(t, 2, l.GetPlayerCount())

	assertConsistent(t, r)
}

func TestRegistry_JoinLobbyErrors(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	_, err := r.JoinLobby("", "p1", "Alice")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = r.JoinLobby("ABC234", "p1", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = r.JoinLobby("ABC234", "p1", "Alice")
	assert.ErrorIs(t, err, apperrors.ErrLobbyNotFound)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, ok := r.GetLobbyForUser("p1")
	assert.False(t, ok)
}

func TestRegistry_JoinFullLobbyKeepsUserInPlace(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	home, err := r.CreateLobby("mover", "Mover")
	require.NoError(t, err)
	require.NoError(t, home.ApplySetting("impostors", 2))

	full, err := r.CreateLobby("h0", "Host")
	require.NoError(t, err)
	for i := 1; i < MaxPlayers; i++ {
		_, err := r.JoinLobby(full.Code, fmt.Sprintf("p%d", i), "Player")
		require.NoError(t, err)
	}

	_, err = r.JoinLobby(full.Code, "mover", "Mover")
	assert.ErrorIs(t, err, apperrors.ErrLobbyFull)
	assert.Equal(t, MaxPlayers, full.GetPlayerCount())

	found, ok := r.GetLobbyForUser("mover")
	require.True(t, ok)
	assert.Same(t, home, found)
	assert.True(t, home.IsHost("mover"))
	assert.Equal(t, 2, home.Settings().ImpostorCount())
	assertConsistent(t, r)
}

func TestRegistry_JoinStartedLobby(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	l, err := r.CreateLobby("h0", "Host")
	require.NoError(t, err)
	for i := 1; i < MinPlayers; i++ {
		_, err := r.JoinLobby(l.Code, fmt.Sprintf("p%d", i), "Player")
		require.NoError(t, err)
	}
	require.NoError(t, l.BeginSession())
	assert.Equal(t, 1, r.ActiveSessionCount())

	_, err = r.JoinLobby(l.Code, "late", "Late")
	assert.ErrorIs(t, err, apperrors.ErrGameInProgress)
	_, ok := r.GetLobbyForUser("late")
	assert.False(t, ok)
}

func TestRegistry_MoveBetweenLobbies(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	a, err := r.CreateLobby("ha", "HostA")
	require.NoError(t, err)
	b, err := r.CreateLobby("hb", "HostB")
	require.NoError(t, err)

	_, err = r.JoinLobby(a.Code, "u", "User")
	require.NoError(t, err)
	_, err = r.JoinLobby(b.Code, "u", "User")
	require.NoError(t, err)

	found, ok := r.GetLobbyForUser("u")
	require.True(t, ok)
	assert.Same(t, b, found)
	assert.False(t, a.HasPlayer("u"))
	assert.True(t, b.HasPlayer("u"))
	assertConsistent(t, r)
}

func TestRegistry_LeaveLobby(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	l, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)
	_, err = r.JoinLobby(l.Code, "p1", "Alice")
	require.NoError(t, err)

	assert.True(t, r.LeaveLobby("h1"))
	assert.Equal(t, "p1", l.HostID())
	assert.Equal(t, 1, l.GetPlayerCount())
	_, ok := r.GetLobbyForUser("h1")
	assert.False(t, ok)

	assert.False(t, r.LeaveLobby("h1"))
	assert.False(t, r.LeaveLobby(""))

	assert.True(t, r.LeaveLobby("p1"))
	_, ok = r.GetLobbyByCode(l.Code)
	assert.False(t, ok)
	assert.Equal(t, LifecycleClosed, l.Lifecycle())
	assert.Zero(t, r.LobbyCount())
	assert.Zero(t, r.UserCount())
}

func TestRegistry_CodeGenerationExhausted(t *testing.T) {
	t.Parallel()

	m := metrics.New("test")
	r := newTestRegistry(t, func(d *RegistryDeps) {
		d.Metrics = m
		d.CodeAlphabet = "A"
		d.CodeLength = 1
		d.MaxCodeAttempts = 5
	})

	only, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)
	assert.Equal(t, "A", only.Code)

	_, err = r.JoinLobby("a", "u2", "Guest")
	require.NoError(t, err)

	_, err = r.CreateLobby("u2", "Guest")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCodeGenerationExhausted)
	assert.True(t, apperrors.IsKind(err, apperrors.KindResourceExhaustion))
	assert.Equal(t, 5.0, promtest.ToFloat64(m.CodeCollisions))

	// The guest is put back where they were
	found, ok := r.GetLobbyForUser("u2")
	require.True(t, ok)
	assert.Same(t, only, found)
	assert.Equal(t, 1, r.LobbyCount())
	assertConsistent(t, r)
}

func TestRegistry_CloseLobbySwallowsHookFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(m *MockGameState)
	}{
		{
			name: "hook succeeds",
			setup: func(m *MockGameState) {
				m.On("OnExit", mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name: "hook returns error",
			setup: func(m *MockGameState) {
				m.On("OnExit", mock.Anything, mock.Anything).Return(errors.New("state broken"))
			},
		},
		{
			name: "hook panics",
			setup: func(m *MockGameState) {
				m.On("OnExit", mock.Anything, mock.Anything).Panic("boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state := &MockGameState{}
			tt.setup(state)
			m := metrics.New("test")
			r := newTestRegistry(t, func(d *RegistryDeps) {
				d.Metrics = m
				d.NewState = func(*GameLobby) GameState { return state }
			})

			l, err := r.CreateLobby("h1", "Host")
			require.NoError(t, err)
			_, err = r.JoinLobby(l.Code, "p1", "Alice")
			require.NoError(t, err)

			assert.True(t, r.CloseLobby(context.Background(), l.Code))
			assert.False(t, r.CloseLobby(context.Background(), l.Code))

			state.AssertNumberOfCalls(t, "OnExit", 1)
			assert.Zero(t, r.LobbyCount())
			_, ok := r.GetLobbyForUser("h1")
			assert.False(t, ok)
			_, ok = r.GetLobbyForUser("p1")
			assert.False(t, ok)
			assert.Equal(t, LifecycleClosed, l.Lifecycle())
			assert.Equal(t, 1.0, promtest.ToFloat64(m.LobbiesClosed.WithLabelValues(closeReasonForced)))

			_, err = r.JoinLobby(l.Code, "p2", "Bob")
			assert.ErrorIs(t, err, apperrors.ErrLobbyNotFound)
		})
	}
}

func TestRegistry_Shutdown(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	for i := range 3 {
		_, err := r.CreateLobby(fmt.Sprintf("h%d", i), "Host")
		require.NoError(t, err)
	}
	require.NoError(t, r.StartJanitor(time.Hour, time.Hour))

	r.Shutdown(context.Background())
	r.Shutdown(context.Background())

	assert.Zero(t, r.LobbyCount())
	assert.Zero(t, r.UserCount())
	assert.Nil(t, r.janitor)
}

func TestRegistry_CleanupIdle(t *testing.T) {
	t.Parallel()

	m := metrics.New("test")
	r := newTestRegistry(t, func(d *RegistryDeps) { d.Metrics = m })

	idle, err := r.CreateLobby("h1", "Idle")
	require.NoError(t, err)
	fresh, err := r.CreateLobby("h2", "Fresh")
	require.NoError(t, err)

	started, err := r.CreateLobby("h3", "Busy")
	require.NoError(t, err)
	for i := 1; i < MinPlayers; i++ {
		_, err := r.JoinLobby(started.Code, fmt.Sprintf("s%d", i), "Player")
		require.NoError(t, err)
	}
	require.NoError(t, started.BeginSession())

	idle.Backdate(time.Hour)
	started.Backdate(time.Hour)

	closed := r.cleanupIdle(context.Background(), 30*time.Minute)
	assert.Equal(t, 1, closed)

	_, ok := r.GetLobbyByCode(idle.Code)
	assert.False(t, ok)
	_, ok = r.GetLobbyByCode(fresh.Code)
	assert.True(t, ok)
	_, ok = r.GetLobbyByCode(started.Code)
	assert.True(t, ok)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.LobbiesClosed.WithLabelValues(closeReasonIdle)))
}

func TestRegistry_JanitorRunsOnScheduler(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	l, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)
	l.Backdate(time.Hour)

	require.NoError(t, r.StartJanitor(10*time.Millisecond, time.Minute))
	require.NoError(t, r.StartJanitor(10*time.Millisecond, time.Minute))

	assert.Eventually(t, func() bool { return r.LobbyCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_ConcurrentMovesStayConsistent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	codes := make([]string, 4)
	for i := range codes {
		l, err := r.CreateLobby(fmt.Sprintf("host%d", i), "Host")
		require.NoError(t, err)
		codes[i] = l.Code
	}

	var wg sync.WaitGroup
	for u := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", u)
			for i := range 20 {
				switch i % 3 {
				case 2:
					r.LeaveLobby(userID)
				default:
					_, _ = r.JoinLobby(codes[(u+i)%len(codes)], userID, "User")
				}
			}
		}()
	}
	wg.Wait()

	assertConsistent(t, r)
	for _, code := range codes {
		if l, ok := r.GetLobbyByCode(code); ok {
			assert.LessOrEqual(t, l.GetPlayerCount(), MaxPlayers)
			assert.True(t, l.HasPlayer(l.HostID()))
			for _, id := range l.PlayerIDs() {
				found, ok := r.GetLobbyForUser(id)
				if assert.True(t, ok, "member %s has no mapping", id) {
					assert.Same(t, l, found)
				}
			}
		}
	}
}

func TestRegistry_MirrorsToRedis(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := storage.NewRedisStore(client)

	r := newTestRegistry(t, func(d *RegistryDeps) { d.Store = store })

	l, err := r.CreateLobby("h1", "Host")
	require.NoError(t, err)

	ctx := context.Background()
	assert.Eventually(t, func() bool {
		data, err := store.LoadLobby(ctx, l.Code)
		return err == nil && data != nil && data.HostID == "h1"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		code, err := store.GetUserLobby(ctx, "h1")
		return err == nil && code == l.Code
	}, 2*time.Second, 10*time.Millisecond)

	require.True(t, r.LeaveLobby("h1"))
	assert.Eventually(t, func() bool {
		return !mr.Exists("lobby:" + l.Code)
	}, 2*time.Second, 10*time.Millisecond)
}
