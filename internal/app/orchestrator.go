package app

import (
	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/core"
)

// Orchestrator owns the process-wide signaling state. Everything is injected
// so tests can stand up isolated instances; nothing here is a package-level
// singleton.
type Orchestrator struct {
	Registry *ConnRegistry
	Presence *Presence
	Calls    *CallTable
	Fanout   *Fanout
}

func NewOrchestrator() *Orchestrator {
	reg := NewConnRegistry()
	return &Orchestrator{
		Registry: reg,
		Presence: NewPresence(reg),
		Calls:    NewCallTable(),
		Fanout:   NewFanout(reg),
	}
}

// OnConnect admits an authenticated session and announces the new online set.
func (o *Orchestrator) OnConnect(sess core.ClientSession) {
	o.Registry.Register(sess)
	o.Presence.Broadcast()
}

// OnDisconnect drops a connection handle and re-announces presence.
// Safe to call more than once per handle.
func (o *Orchestrator) OnDisconnect(cid core.ConnID) {
	o.Registry.Unregister(cid)
	o.Presence.Broadcast()
	log.Debug().Str("module", "app.orchestrator").Str("conn", string(cid)).Msg("disconnect handled")
}
