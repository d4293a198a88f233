package core

import (
	"context"
	"time"

	"github.com/loquichat/loqui/internal/domain"
)

// Frame is a raw encoded payload pushed to a client.
type Frame []byte

// ConnID identifies one live connection handle. An identity may own any
// number of them at once (tabs, devices).
type ConnID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ClientSession binds an authenticated identity to its transport endpoint.
// This is what the registry stores and the relay fans out to.
type ClientSession interface {
	ConnID() ConnID
	Identity() *domain.Identity
	OpenedAt() time.Time
	Signal() SignalConnection
}

// IdentityVerifier turns an opaque credential token into an identity id.
// Implemented outside the signaling core (JWT adapter in production).
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domain.IdentityID, error)
}

// IdentityStore resolves identity records for the handshake and REST API.
type IdentityStore interface {
	FindIdentity(ctx context.Context, id domain.IdentityID) (*domain.Identity, error)
	ListIdentities(ctx context.Context) ([]domain.Identity, error)
}

// MessageStore persists chat messages; the fanout only fires after a
// successful save, so the socket push stays a latency optimization.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *domain.Message) error
	MessagesBetween(ctx context.Context, a, b domain.IdentityID) ([]domain.Message, error)
	ChatPartners(ctx context.Context, id domain.IdentityID) ([]domain.IdentityID, error)
}

// PresenceDTO is a read-only view for presence snapshots (no transport fields).
type PresenceDTO struct {
	ID          domain.IdentityID `json:"id"`
	DisplayName string            `json:"displayName"`
	AvatarURL   string            `json:"avatarUrl,omitempty"`
}
