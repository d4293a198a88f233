// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxIdentityIDLen  = 36
	MaxDisplayNameLen = 72
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrIdentityNotFound   = errors.New("identity not found")
)

type IdentityID string

// Identity is the read-only user record attached to a connection at
// handshake time. The user store owns it; the signaling layer only caches it.
type Identity struct {
	ID          IdentityID `json:"id"`
	DisplayName string     `json:"displayName"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
}

func NewIdentity(id IdentityID, displayName string) (*Identity, error) {
	if len(displayName) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &Identity{ID: id, DisplayName: displayName}, nil
}

func (i *Identity) SetDisplayName(name string) error {
	if len(name) == 0 {
		return ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrDisplayNameTooLong
	}
	i.DisplayName = name
	return nil
}
