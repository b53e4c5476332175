package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryBindReportsPriorRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	id := reg.OnConnect()
	prev, ok := reg.Bind(id, alice, "general")
	req.True(ok)
	req.Empty(prev)

	prev, ok = reg.Bind(id, alice, "random")
	req.True(ok)
	req.Equal("general", prev)

	m, ok := reg.Membership(id)
	req.True(ok)
	req.Equal("random", m.RoomID)
}

func TestRegistryBindUnknownConnection(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	_, ok := reg.Bind(ConnID("ghost"), alice, "general")
	req.False(ok)
	req.Zero(reg.Len())
}

func TestRegistryUnbindKeepsConnection(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	id := reg.OnConnect()
	reg.Bind(id, alice, "general")
	reg.Unbind(id)

	m, ok := reg.Membership(id)
	req.True(ok)
	req.Empty(m.RoomID)
	req.Equal(alice, m.User)
}

func TestRegistryDisconnectIsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	id := reg.OnConnect()
	reg.Bind(id, bob, "general")

	m, ok := reg.OnDisconnect(id)
	req.True(ok)
	req.Equal("general", m.RoomID)
	req.Equal(bob, m.User)

	_, ok = reg.OnDisconnect(id)
	req.False(ok)
}

func TestRegistryIDsAreUnique(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	seen := map[ConnID]struct{}{}
	for i := 0; i < 1000; i++ {
		id := reg.OnConnect()
		_, dup := seen[id]
		req.False(dup)
		seen[id] = struct{}{}
	}
	req.Equal(1000, reg.Len())
}
