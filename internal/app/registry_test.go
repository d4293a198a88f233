package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loquichat/loqui/internal/core"
	"github.com/loquichat/loqui/internal/domain"
)

// fakeConn records every frame pushed at it.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	reject bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return assert.AnError
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) lastEvent(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.frames)
	var out map[string]any
	require.NoError(t, json.Unmarshal(f.frames[len(f.frames)-1], &out))
	return out
}

func newSession(connID string, identityID string, name string) (core.ClientSession, *fakeConn) {
	fc := &fakeConn{}
	identity := &domain.Identity{ID: domain.IdentityID(identityID), DisplayName: name}
	return core.NewClientSession(core.ConnID(connID), identity, fc), fc
}

func onlineIDs(r *ConnRegistry) []domain.IdentityID {
	var out []domain.IdentityID
	for _, id := range r.OnlineIdentities() {
		out = append(out, id.ID)
	}
	return out
}

func TestRegistryRegisterUnregisterSequence(t *testing.T) {
	reg := NewConnRegistry()

	a1, _ := newSession("a1", "alice", "Alice")
	a2, _ := newSession("a2", "alice", "Alice")
	b1, _ := newSession("b1", "bob", "Bob")

	reg.Register(a1)
	reg.Register(b1)
	reg.Register(a2)
	assert.Equal(t, []domain.IdentityID{"alice", "bob"}, onlineIDs(reg))
	assert.Equal(t, 3, reg.ConnCount())

	reg.Unregister("b1")
	assert.Equal(t, []domain.IdentityID{"alice"}, onlineIDs(reg))

	reg.Unregister("a1")
	reg.Unregister("a2")
	assert.Empty(t, onlineIDs(reg))
	assert.Equal(t, 0, reg.ConnCount())
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	reg := NewConnRegistry()
	a1, _ := newSession("a1", "alice", "Alice")
	reg.Register(a1)

	reg.Unregister("a1")
	reg.Unregister("a1")
	reg.Unregister("never-existed")

	assert.Empty(t, onlineIDs(reg))
	assert.Empty(t, reg.ConnectionsFor("alice"))
}

func TestRegistryMultiConnectionPresence(t *testing.T) {
	reg := NewConnRegistry()
	a1, _ := newSession("a1", "alice", "Alice")
	a2, _ := newSession("a2", "alice", "Alice")

	reg.Register(a1)
	reg.Register(a2)
	assert.True(t, reg.IsOnline("alice"))
	assert.Len(t, reg.ConnectionsFor("alice"), 2)

	reg.Unregister("a1")
	assert.True(t, reg.IsOnline("alice"), "one live handle keeps the identity online")

	reg.Unregister("a2")
	assert.False(t, reg.IsOnline("alice"))
}

func TestRegistryConnectionsForUnknownIdentity(t *testing.T) {
	reg := NewConnRegistry()
	got := reg.ConnectionsFor("nobody")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
