package core

import (
	"time"

	"github.com/loquichat/loqui/internal/domain"
)

// clientSession implements ClientSession by pairing identity + transport.
type clientSession struct {
	id       ConnID
	identity *domain.Identity
	openedAt time.Time
	conn     SignalConnection
}

func NewClientSession(id ConnID, identity *domain.Identity, conn SignalConnection) ClientSession {
	return &clientSession{
		id:       id,
		identity: identity,
		openedAt: time.Now(),
		conn:     conn,
	}
}

func (s *clientSession) ConnID() ConnID             { return s.id }
func (s *clientSession) Identity() *domain.Identity { return s.identity }
func (s *clientSession) OpenedAt() time.Time        { return s.openedAt }
func (s *clientSession) Signal() SignalConnection   { return s.conn }
