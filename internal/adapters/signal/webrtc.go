package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/core"
	"github.com/loquichat/loqui/internal/domain"
)

// handleNegotiation relays webrtc-offer, webrtc-answer and ice-candidate
// frames. The SDP/candidate payload is an opaque blob: it is forwarded
// verbatim, never parsed. What IS checked before forwarding:
//   - the call id maps to a live (non-terminal) session,
//   - the sender is one of the two participants,
//   - the declared target is the other participant.
//
// Any failed check drops the frame with a call-error to the sender only.
func (ctl *SignalWSController) handleNegotiation(
	sess core.ClientSession,
	conn core.SignalConnection,
	kind string,
	data []byte,
) {
	type negotiationPayload struct {
		Type           string          `json:"type"`
		CallID         string          `json:"callId"`
		Payload        json.RawMessage `json:"payload"`
		TargetIdentity string          `json:"targetIdentity"`
	}
	var p negotiationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("bad negotiation payload")
		ctl.sendCallError(conn, p.CallID, "bad payload")
		return
	}

	me := sess.Identity().ID
	call, err := ctl.Orch.Calls.Get(domain.CallID(p.CallID))
	if err != nil {
		// Late retransmits against a reaped or hung-up call are routine;
		// tell the sender and drop the frame.
		ctl.sendCallError(conn, p.CallID, "call not found")
		return
	}
	if !call.HasParticipant(me) {
		ctl.sendCallError(conn, p.CallID, "not a participant of this call")
		return
	}
	if domain.IdentityID(p.TargetIdentity) != call.OtherParticipant(me) {
		ctl.sendCallError(conn, p.CallID, "target is not the call peer")
		return
	}

	relay := struct {
		Type         string            `json:"type"`
		CallID       domain.CallID     `json:"callId"`
		Payload      json.RawMessage   `json:"payload"`
		FromIdentity domain.IdentityID `json:"fromIdentity"`
	}{
		Type:         kind,
		CallID:       call.ID,
		Payload:      p.Payload,
		FromIdentity: me,
	}
	sent := ctl.fanTo(call.OtherParticipant(me), relay)
	log.Debug().Str("module", "signal").Str("kind", kind).Str("call", p.CallID).Int("sent", sent).Msg("negotiation relayed")
}
