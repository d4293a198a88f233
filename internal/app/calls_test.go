package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loquichat/loqui/internal/domain"
)

func TestCallTableCreate(t *testing.T) {
	table := NewCallTable()

	call, err := table.Create("c1", "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CallRinging, call.State)
	assert.Equal(t, domain.IdentityID("alice"), call.Caller)
	assert.Equal(t, domain.IdentityID("bob"), call.Callee)
	assert.False(t, call.CreatedAt.IsZero())

	_, err = table.Create("c1", "alice", "bob")
	assert.ErrorIs(t, err, ErrCallExists)

	_, err = table.Create("c2", "alice", "alice")
	assert.ErrorIs(t, err, domain.ErrSelfCall)

	_, err = table.Create("", "alice", "bob")
	assert.ErrorIs(t, err, domain.ErrCallIDEmpty)
}

func TestCallTableAcceptPath(t *testing.T) {
	table := NewCallTable()
	_, err := table.Create("c1", "alice", "bob")
	require.NoError(t, err)

	_, err = table.Accept("c1", "alice")
	assert.ErrorIs(t, err, ErrNotParticipant, "only the callee accepts")

	call, err := table.Accept("c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CallAccepted, call.State)
	assert.False(t, call.AcceptedAt.IsZero())

	_, err = table.Accept("c1", "bob")
	assert.ErrorIs(t, err, ErrBadState, "accept is not valid twice")
}

func TestCallTableRejectDeletes(t *testing.T) {
	table := NewCallTable()
	_, err := table.Create("c1", "alice", "bob")
	require.NoError(t, err)

	call, err := table.Reject("c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CallRejected, call.State)

	_, err = table.Get("c1")
	assert.ErrorIs(t, err, ErrCallNotFound, "terminal sessions are deleted")
	assert.Equal(t, 0, table.Len())
}

func TestCallTableEndFromRingingAndAccepted(t *testing.T) {
	table := NewCallTable()

	// Hang up mid-ring.
	_, err := table.Create("c1", "alice", "bob")
	require.NoError(t, err)
	call, err := table.End("c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CallEnded, call.State)
	assert.Equal(t, 0, table.Len())

	// Hang up after accept, from the callee side.
	_, err = table.Create("c2", "alice", "bob")
	require.NoError(t, err)
	_, err = table.Accept("c2", "bob")
	require.NoError(t, err)
	call, err = table.End("c2", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.CallEnded, call.State)

	// Outsiders cannot end a call.
	_, err = table.Create("c3", "alice", "bob")
	require.NoError(t, err)
	_, err = table.End("c3", "mallory")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestCallTableUnknownIDIsCallNotFound(t *testing.T) {
	table := NewCallTable()
	for _, op := range []func() error{
		func() error { _, err := table.Accept("ghost", "bob"); return err },
		func() error { _, err := table.Reject("ghost", "bob"); return err },
		func() error { _, err := table.End("ghost", "bob"); return err },
		func() error { _, err := table.Get("ghost"); return err },
	} {
		assert.ErrorIs(t, op(), ErrCallNotFound)
	}
}

func TestCallTableExpireReapsOnlyStaleRinging(t *testing.T) {
	table := NewCallTable()
	now := time.Now()
	table.now = func() time.Time { return now.Add(-10 * time.Minute) }
	_, err := table.Create("stale-ringing", "alice", "bob")
	require.NoError(t, err)
	_, err = table.Create("stale-accepted", "carol", "dave")
	require.NoError(t, err)
	_, err = table.Accept("stale-accepted", "dave")
	require.NoError(t, err)

	table.now = func() time.Time { return now }
	_, err = table.Create("fresh", "erin", "frank")
	require.NoError(t, err)

	reaped := table.Expire(now.Add(-5 * time.Minute))
	assert.Equal(t, []domain.CallID{"stale-ringing"}, reaped)

	_, err = table.Get("stale-ringing")
	assert.ErrorIs(t, err, ErrCallNotFound)
	_, err = table.Get("stale-accepted")
	assert.NoError(t, err, "accepted calls are never expired")
	_, err = table.Get("fresh")
	assert.NoError(t, err)
}

func TestCallTableIDNotReusedUntilTerminal(t *testing.T) {
	table := NewCallTable()
	_, err := table.Create("c1", "alice", "bob")
	require.NoError(t, err)
	_, err = table.Create("c1", "carol", "dave")
	assert.ErrorIs(t, err, ErrCallExists)

	// Once the session is gone the id may be minted again.
	_, err = table.End("c1", "alice")
	require.NoError(t, err)
	_, err = table.Create("c1", "carol", "dave")
	assert.NoError(t, err)
}
