package domain

import (
	"errors"
	"time"
)

const MaxCallIDLen = 64

var (
	ErrCallIDEmpty   = errors.New("call id empty")
	ErrCallIDTooLong = errors.New("call id too long")
	ErrSelfCall      = errors.New("caller and callee are the same identity")
)

type CallID string

type CallState string

const (
	CallRinging  CallState = "ringing"
	CallAccepted CallState = "accepted"
	CallRejected CallState = "rejected"
	CallEnded    CallState = "ended"
	CallExpired  CallState = "expired"
)

// Terminal reports whether a session in this state is done for good.
// Terminal sessions are deleted from the table, never retained.
func (s CallState) Terminal() bool {
	return s == CallRejected || s == CallEnded || s == CallExpired
}

// CallSession coordinates one call attempt between exactly two identities.
// The table in app owns it; ids are caller-generated and never reused.
type CallSession struct {
	ID         CallID
	Caller     IdentityID
	Callee     IdentityID
	State      CallState
	CreatedAt  time.Time
	AcceptedAt time.Time
	EndedAt    time.Time
}

func NewCallSession(id CallID, caller, callee IdentityID, now time.Time) (*CallSession, error) {
	if id == "" {
		return nil, ErrCallIDEmpty
	}
	if len(id) > MaxCallIDLen {
		return nil, ErrCallIDTooLong
	}
	if caller == callee {
		return nil, ErrSelfCall
	}
	return &CallSession{
		ID:        id,
		Caller:    caller,
		Callee:    callee,
		State:     CallRinging,
		CreatedAt: now,
	}, nil
}

func (c *CallSession) HasParticipant(id IdentityID) bool {
	return c.Caller == id || c.Callee == id
}

// OtherParticipant returns the peer of id, or "" when id is not a participant.
func (c *CallSession) OtherParticipant(id IdentityID) IdentityID {
	switch id {
	case c.Caller:
		return c.Callee
	case c.Callee:
		return c.Caller
	}
	return ""
}
