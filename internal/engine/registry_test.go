package engine

import (
	"testing"

	"github.com/duelhall/duelhall-server/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySingleExecutionPerRoom(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(&Execution{ID: "x1", RoomID: "room-1"}))
	require.NoError(t, r.Add(&Execution{ID: "x2", RoomID: "room-2"}))

	err := r.Add(&Execution{ID: "x3", RoomID: "room-1"})
	assert.ErrorIs(t, err, game.ErrExecutionEngine)
	err = r.Add(&Execution{ID: "x1", RoomID: "room-3"})
	assert.ErrorIs(t, err, game.ErrExecutionEngine)

	x, ok := r.ForRoom("room-1")
	require.True(t, ok)
	assert.Equal(t, "x1", x.ID)
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.Remove("x1"))
	assert.False(t, r.Remove("x1"))
	_, ok = r.ForRoom("room-1")
	assert.False(t, ok)

	assert.True(t, r.Remove("x2"))
	assert.Equal(t, 0, r.Len())
}
