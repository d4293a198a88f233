package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loquichat/loqui/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "loqui-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	identity, err := s.CreateUser(ctx, "Alice@Example.com", "s3cret!", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, "Alice", identity.DisplayName)

	// Email lookup is case-insensitive.
	got, err := s.Authenticate(ctx, "alice@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)

	_, err = s.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = s.Authenticate(ctx, "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = s.CreateUser(ctx, "alice@example.com", "other", "Alice2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestFindIdentity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	identity, err := s.CreateUser(ctx, "bob@example.com", "pw", "Bob")
	require.NoError(t, err)

	got, err := s.FindIdentity(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.DisplayName)

	_, err = s.FindIdentity(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestMessagesBetweenOrderedBothDirections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i, m := range []domain.Message{
		{SenderID: "alice", ReceiverID: "bob", Text: "hi bob"},
		{SenderID: "bob", ReceiverID: "alice", Text: "hi alice"},
		{SenderID: "alice", ReceiverID: "bob", Text: "how are you"},
		{SenderID: "alice", ReceiverID: "carol", Text: "different chat"},
	} {
		m := m
		m.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.SaveMessage(ctx, &m))
	}

	msgs, err := s.MessagesBetween(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi bob", msgs[0].Text)
	assert.Equal(t, "hi alice", msgs[1].Text)
	assert.Equal(t, "how are you", msgs[2].Text)

	// Same history regardless of argument order.
	rev, err := s.MessagesBetween(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, msgs, rev)

	none, err := s.MessagesBetween(ctx, "alice", "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveMessageValidates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.SaveMessage(ctx, &domain.Message{SenderID: "alice", ReceiverID: "bob"})
	assert.ErrorIs(t, err, domain.ErrMessageEmpty)

	err = s.SaveMessage(ctx, &domain.Message{SenderID: "alice", ReceiverID: "alice", Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrSelfMessage)

	// Id and timestamp are filled in on save.
	msg := &domain.Message{SenderID: "alice", ReceiverID: "bob", Text: "hi"}
	require.NoError(t, s.SaveMessage(ctx, msg))
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestChatPartners(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveMessage(ctx, &domain.Message{SenderID: "alice", ReceiverID: "bob", Text: "x"}))
	require.NoError(t, s.SaveMessage(ctx, &domain.Message{SenderID: "carol", ReceiverID: "alice", Text: "y"}))

	partners, err := s.ChatPartners(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.IdentityID{"bob", "carol"}, partners)

	bobs, err := s.ChatPartners(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []domain.IdentityID{"alice"}, bobs)
}
