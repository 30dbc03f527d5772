package service

import (
	"testing"

	"github.com/gobwas/glob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

func TestConnectionManager_Bind(t *testing.T) {
	m := NewConnectionManager(logger.Discard())
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")
	m.Add(c1)
	m.Add(c2)

	assert.ErrorIs(t, m.Bind("missing", "A"), models.ErrInvalidArgument)

	require.NoError(t, m.Bind("c1", "A"))
	got, ok := m.ConnForAgent("A")
	require.True(t, ok)
	assert.Equal(t, "c1", got.ID())

	// The agent moves to a new connection; the old one no longer carries it.
	require.NoError(t, m.Bind("c2", "A"))
	got, ok = m.ConnForAgent("A")
	require.True(t, ok)
	assert.Equal(t, "c2", got.ID())
	_, ok = m.AgentFor("c1")
	assert.False(t, ok)

	agentID, ok := m.Remove("c2")
	assert.True(t, ok)
	assert.Equal(t, "A", agentID)
	_, ok = m.ConnForAgent("A")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Count())
}

func TestConnectionManager_Rooms(t *testing.T) {
	m := NewConnectionManager(logger.Discard())
	for _, id := range []string{"c1", "c2", "c3"} {
		m.Add(newFakeConn(id))
	}
	require.NoError(t, m.Join("c1", "team-alpha"))
	require.NoError(t, m.Join("c1", "team-beta"))
	require.NoError(t, m.Join("c2", "team-beta"))
	require.NoError(t, m.Join("c3", "ops"))
	assert.Error(t, m.Join("nope", "ops"))

	members := m.RoomMembers(glob.MustCompile("team-*"), "")
	require.Len(t, members, 2)
	assert.Equal(t, "c1", members[0].ID())
	assert.Equal(t, "c2", members[1].ID())

	members = m.RoomMembers(glob.MustCompile("team-*"), "c1")
	require.Len(t, members, 1)
	assert.Equal(t, "c2", members[0].ID())

	assert.Equal(t, []string{"team-alpha", "team-beta"}, m.Rooms("c1"))
	m.Leave("c1", "team-alpha")
	m.Leave("c1", "never-joined")
	assert.Equal(t, []string{"team-beta"}, m.Rooms("c1"))

	m.Remove("c1")
	assert.Empty(t, m.Rooms("c1"))
	members = m.RoomMembers(glob.MustCompile("*"), "")
	assert.Len(t, members, 2)
}

func TestConnectionManager_BroadcastSkipsFailures(t *testing.T) {
	m := NewConnectionManager(logger.Discard())
	ok1, bad, ok2 := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")
	bad.fail = true
	m.Add(ok1)
	m.Add(bad)
	m.Add(ok2)

	n := m.Broadcast(models.NewEvent("ping", nil), "c")
	assert.Equal(t, 1, n)
	assert.Len(t, ok1.received(), 1)
	assert.Empty(t, ok2.received())
}
