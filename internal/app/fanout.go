package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/core"
	"github.com/loquichat/loqui/internal/domain"
)

// EventNewMessage carries a freshly persisted chat message to the receiver's
// live connections.
const EventNewMessage = "new-message"

// Fanout pushes persisted messages to the receiver's live connections.
// Best effort only: the durable copy already sits in the message store, so
// an offline receiver simply fetches history later.
type Fanout struct {
	Registry *ConnRegistry
}

func NewFanout(reg *ConnRegistry) *Fanout {
	return &Fanout{Registry: reg}
}

// Push delivers msg to every live connection of the receiver.
// Zero connections is the expected offline case, not an error.
func (f *Fanout) Push(msg *domain.Message) {
	sessions := f.Registry.ConnectionsFor(msg.ReceiverID)
	if len(sessions) == 0 {
		return
	}

	event := struct {
		Type    string          `json:"type"`
		Message *domain.Message `json:"message"`
	}{
		Type:    EventNewMessage,
		Message: msg,
	}
	frame, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.fanout").Msg("message marshal")
		return
	}

	sent := 0
	for _, sess := range sessions {
		if err := sess.Signal().TrySend(core.Frame(frame)); err != nil {
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.fanout").Str("receiver", string(msg.ReceiverID)).Int("sent", sent).Msg("message fanout")
}
