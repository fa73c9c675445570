package room

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRegistry(t *testing.T, seats int) *Registry {
	t.Helper()
	return NewRegistry(Options{MaxSeats: seats, StartingHealth: 4}, zaptest.NewLogger(t))
}

func TestCreateAndGetRoom(t *testing.T) {
	r := newRegistry(t, 4)

	room, host, err := r.CreateRoom("friday", "alice")
	require.NoError(t, err)
	assert.Equal(t, "friday", room.Name)
	assert.Equal(t, game.StateWaiting, room.State)
	require.Len(t, room.Players, 1)
	assert.Equal(t, host.ID, room.Players[0].ID)

	got, err := r.GetRoom(room.ID)
	require.NoError(t, err)
	assert.Same(t, room, got)

	byMember, err := r.RoomOf(host.ID)
	require.NoError(t, err)
	assert.Same(t, room, byMember)

	_, err = r.GetRoom("missing")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
	_, err = r.RoomOf("nobody")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	_, _, err = r.CreateRoom("x", "  ")
	assert.ErrorIs(t, err, game.ErrInvalidGameState)

	unnamed, _, err := r.CreateRoom("", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob's table", unnamed.Name)
}

func TestJoinRoom(t *testing.T) {
	r := newRegistry(t, 2)
	room, host, err := r.CreateRoom("friday", "alice")
	require.NoError(t, err)

	t.Run("seats a new player", func(t *testing.T) {
		res, err := r.JoinRoom(room.ID, "bob", false)
		require.NoError(t, err)
		require.NotNil(t, res.Player)
		assert.Nil(t, res.Spectator)
		assert.False(t, res.Reconnected)
		assert.Len(t, room.Players, 2)
	})

	t.Run("reconnects by name", func(t *testing.T) {
		res, err := r.JoinRoom(room.ID, "alice", false)
		require.NoError(t, err)
		require.NotNil(t, res.Player)
		assert.True(t, res.Reconnected)
		assert.Equal(t, host.ID, res.Player.ID)
		assert.Equal(t, host.ID, res.MemberID())
		assert.Len(t, room.Players, 2)
	})

	t.Run("full room makes a spectator", func(t *testing.T) {
		res, err := r.JoinRoom(room.ID, "carol", false)
		require.NoError(t, err)
		require.NotNil(t, res.Spectator)
		assert.Nil(t, res.Player)

		again, err := r.JoinRoom(room.ID, "carol", false)
		require.NoError(t, err)
		require.NotNil(t, again.Spectator)
		assert.True(t, again.Reconnected)
		assert.Equal(t, res.Spectator.ID, again.Spectator.ID)
		assert.Len(t, room.Spectators, 1)
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := r.JoinRoom("missing", "dave", false)
		assert.ErrorIs(t, err, game.ErrRoomNotFound)
	})
}

func TestJoinAsSpectator(t *testing.T) {
	r := newRegistry(t, 4)
	room, _, err := r.CreateRoom("friday", "alice")
	require.NoError(t, err)

	res, err := r.JoinRoom(room.ID, "sam", true)
	require.NoError(t, err)
	require.NotNil(t, res.Spectator)

	room.Lock()
	room.State = game.StatePlaying
	room.Unlock()

	res, err = r.JoinRoom(room.ID, "late", false)
	require.NoError(t, err)
	require.NotNil(t, res.Spectator)

	member, err := r.RoomOf(res.Spectator.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, member.ID)
}

func TestListAndRemoveRooms(t *testing.T) {
	r := newRegistry(t, 4)
	first, host, err := r.CreateRoom("one", "alice")
	require.NoError(t, err)
	second, _, err := r.CreateRoom("two", "bob")
	require.NoError(t, err)

	list := r.ListRooms()
	require.Len(t, list, 2)
	ids := []string{list[0].RoomID, list[1].RoomID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	assert.True(t, r.RemoveRoom(first.ID))
	assert.False(t, r.RemoveRoom(first.ID))
	assert.Equal(t, 1, r.Count())
	_, err = r.RoomOf(host.ID)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

func TestReap(t *testing.T) {
	r := newRegistry(t, 4)
	idle, _, err := r.CreateRoom("idle", "alice")
	require.NoError(t, err)
	busy, _, err := r.CreateRoom("busy", "bob")
	require.NoError(t, err)
	watched, watcher, err := r.CreateRoom("watched", "carol")
	require.NoError(t, err)

	for _, room := range []*game.Room{idle, busy, watched} {
		room.Lock()
		room.CreatedAt = time.Now().Add(-time.Hour)
		room.Unlock()
	}
	busy.Lock()
	busy.State = game.StatePlaying
	busy.Unlock()

	live := func(members []string) bool {
		for _, id := range members {
			if id == watcher.ID {
				return true
			}
		}
		return false
	}

	removed := r.Reap(time.Minute, live)
	assert.Equal(t, []string{idle.ID}, removed)
	assert.Equal(t, 2, r.Count())

	assert.Empty(t, r.Reap(2*time.Hour, nil))
}

func TestRunReaperStopsOnCancel(t *testing.T) {
	r := newRegistry(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunReaper(ctx, time.Millisecond, time.Hour, nil) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestConcurrentJoins(t *testing.T) {
	r := newRegistry(t, 4)
	room, _, err := r.CreateRoom("crowded", "host")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.JoinRoom(room.ID, fmt.Sprintf("guest-%d", i), false)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	room.Lock()
	defer room.Unlock()
	assert.Len(t, room.Players, 4)
	assert.Len(t, room.Spectators, 17)
}
