package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/core"
)

// EventPresenceSnapshot is pushed to every live connection after each
// registry mutation. Full snapshot, not a delta: a missed event is corrected
// by the next mutation's broadcast.
const EventPresenceSnapshot = "presence-snapshot"

type Presence struct {
	Registry *ConnRegistry
}

func NewPresence(reg *ConnRegistry) *Presence {
	return &Presence{Registry: reg}
}

func (p *Presence) Snapshot() []core.PresenceDTO {
	online := p.Registry.OnlineIdentities()
	out := make([]core.PresenceDTO, 0, len(online))
	for _, id := range online {
		out = append(out, core.PresenceDTO{
			ID:          id.ID,
			DisplayName: id.DisplayName,
			AvatarURL:   id.AvatarURL,
		})
	}
	return out
}

// Broadcast pushes the current online set to all live connections.
// Slow consumers are skipped; the next mutation re-broadcasts anyway.
func (p *Presence) Broadcast() {
	snapshot := p.Snapshot()
	event := struct {
		Type  string             `json:"type"`
		Users []core.PresenceDTO `json:"users"`
	}{
		Type:  EventPresenceSnapshot,
		Users: snapshot,
	}
	frame, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Msg("snapshot marshal")
		return
	}

	sent, dropped := 0, 0
	for _, sess := range p.Registry.AllConnections() {
		if err := sess.Signal().TrySend(core.Frame(frame)); err != nil {
			dropped++
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.presence").Int("online", len(snapshot)).Int("sent", sent).Int("dropped", dropped).Msg("presence broadcast")
}
