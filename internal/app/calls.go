package app

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/domain"
)

var (
	// ErrCallNotFound covers unknown and already-terminal call ids. Races
	// against hangups and the sweeper are expected, so callers report this
	// to the sender and move on.
	ErrCallNotFound = errors.New("call not found")
	// ErrCallExists rejects reuse of a live call id; a fresh attempt must
	// mint a new id.
	ErrCallExists = errors.New("call id already in use")
	// ErrNotParticipant rejects operations from identities outside the call.
	ErrNotParticipant = errors.New("identity is not a call participant")
	// ErrBadState rejects transitions the state machine does not allow.
	ErrBadState = errors.New("call is not in a valid state for this transition")
)

// CallTable is the single source of truth for in-flight call sessions.
// Sessions live only while signaling needs them: every terminal transition
// deletes the record.
type CallTable struct {
	mu    sync.Mutex
	calls map[domain.CallID]*domain.CallSession
	now   func() time.Time
}

func NewCallTable() *CallTable {
	return &CallTable{
		calls: make(map[domain.CallID]*domain.CallSession),
		now:   time.Now,
	}
}

// Create starts a session in the ringing state.
func (t *CallTable) Create(id domain.CallID, caller, callee domain.IdentityID) (*domain.CallSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.calls[id]; ok {
		return nil, ErrCallExists
	}
	call, err := domain.NewCallSession(id, caller, callee, t.now())
	if err != nil {
		return nil, err
	}
	t.calls[id] = call
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("caller", string(caller)).Str("callee", string(callee)).Msg("call created")
	return copyOf(call), nil
}

// Accept moves ringing -> accepted. Only the callee may accept.
func (t *CallTable) Accept(id domain.CallID, by domain.IdentityID) (*domain.CallSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.calls[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	if call.Callee != by {
		return nil, ErrNotParticipant
	}
	if call.State != domain.CallRinging {
		return nil, ErrBadState
	}
	call.State = domain.CallAccepted
	call.AcceptedAt = t.now()
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("by", string(by)).Msg("call accepted")
	return copyOf(call), nil
}

// Reject moves ringing -> rejected and deletes the session. Only the callee
// may reject; a caller backing out goes through End instead.
func (t *CallTable) Reject(id domain.CallID, by domain.IdentityID) (*domain.CallSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.calls[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	if call.Callee != by {
		return nil, ErrNotParticipant
	}
	if call.State != domain.CallRinging {
		return nil, ErrBadState
	}
	call.State = domain.CallRejected
	call.EndedAt = t.now()
	delete(t.calls, id)
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("by", string(by)).Msg("call rejected")
	return call, nil
}

// End moves ringing-or-accepted -> ended and deletes the session. Either
// participant may hang up at any point before the session is terminal.
func (t *CallTable) End(id domain.CallID, by domain.IdentityID) (*domain.CallSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.calls[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	if !call.HasParticipant(by) {
		return nil, ErrNotParticipant
	}
	if call.State != domain.CallRinging && call.State != domain.CallAccepted {
		return nil, ErrBadState
	}
	call.State = domain.CallEnded
	call.EndedAt = t.now()
	delete(t.calls, id)
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("by", string(by)).Msg("call ended")
	return call, nil
}

// Get returns a snapshot of a live session.
func (t *CallTable) Get(id domain.CallID) (*domain.CallSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.calls[id]
	if !ok {
		return nil, ErrCallNotFound
	}
	return copyOf(call), nil
}

// Expire deletes every ringing session created before the cutoff and returns
// the reaped ids. No notification goes out; the caller gave up long ago.
func (t *CallTable) Expire(cutoff time.Time) []domain.CallID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var reaped []domain.CallID
	for id, call := range t.calls {
		if call.State == domain.CallRinging && call.CreatedAt.Before(cutoff) {
			call.State = domain.CallExpired
			delete(t.calls, id)
			reaped = append(reaped, id)
		}
	}
	if len(reaped) > 0 {
		log.Info().Str("module", "app.calls").Int("reaped", len(reaped)).Msg("expired ringing calls")
	}
	return reaped
}

func (t *CallTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

func copyOf(c *domain.CallSession) *domain.CallSession {
	cp := *c
	return &cp
}
