package signal

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/app"
	"github.com/loquichat/loqui/internal/core"
	"github.com/loquichat/loqui/internal/domain"
)

// evStartWebRTC tells both participants of a freshly accepted call to begin
// the offer/answer exchange.
const evStartWebRTC = "start-webrtc"

func (ctl *SignalWSController) handleCallInitiate(
	sess core.ClientSession,
	conn core.SignalConnection,
	data []byte,
) {
	type initiatePayload struct {
		Type           string `json:"type"`
		TargetIdentity string `json:"targetIdentity"`
		CallID         string `json:"callId"`
	}
	var p initiatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-initiate payload")
		ctl.sendCallError(conn, p.CallID, "bad payload")
		return
	}
	if p.TargetIdentity == "" || p.CallID == "" {
		ctl.sendCallError(conn, p.CallID, "missing callId or targetIdentity")
		return
	}

	caller := sess.Identity()
	if ctl.Limiter != nil && !ctl.Limiter.Allow(caller.ID) {
		ctl.sendCallError(conn, p.CallID, "too many call attempts")
		return
	}

	callee := domain.IdentityID(p.TargetIdentity)
	call, err := ctl.Orch.Calls.Create(domain.CallID(p.CallID), caller.ID, callee)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("call", p.CallID).Msg("call-initiate rejected")
		ctl.sendCallError(conn, p.CallID, callErrorMessage(err))
		return
	}

	log.Info().Str("module", "signal").Str("call", p.CallID).Str("caller", string(caller.ID)).Str("callee", string(callee)).Msg("call-initiate")

	ack := struct {
		Type           string            `json:"type"`
		CallID         domain.CallID     `json:"callId"`
		TargetIdentity domain.IdentityID `json:"targetIdentity"`
		State          domain.CallState  `json:"state"`
	}{
		Type:           evCallSent,
		CallID:         call.ID,
		TargetIdentity: call.Callee,
		State:          call.State,
	}
	ctl.sendJSON(conn, ack)

	ring := struct {
		Type           string            `json:"type"`
		CallID         domain.CallID     `json:"callId"`
		CallerIdentity domain.IdentityID `json:"callerIdentity"`
		CallerName     string            `json:"callerName"`
		Timestamp      time.Time         `json:"timestamp"`
	}{
		Type:           evIncomingCall,
		CallID:         call.ID,
		CallerIdentity: caller.ID,
		CallerName:     caller.DisplayName,
		Timestamp:      call.CreatedAt,
	}
	// Offline callee is fine: the ringing session stays until the sweeper
	// reaps it or the caller hangs up.
	ctl.fanTo(callee, ring)
}

func (ctl *SignalWSController) handleCallAccept(
	sess core.ClientSession,
	conn core.SignalConnection,
	data []byte,
) {
	type acceptPayload struct {
		Type           string `json:"type"`
		CallID         string `json:"callId"`
		TargetIdentity string `json:"targetIdentity"`
	}
	var p acceptPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-accept payload")
		ctl.sendCallError(conn, p.CallID, "bad payload")
		return
	}

	me := sess.Identity().ID
	call, err := ctl.Orch.Calls.Accept(domain.CallID(p.CallID), me)
	if err != nil {
		ctl.sendCallError(conn, p.CallID, callErrorMessage(err))
		return
	}

	accepted := struct {
		Type         string            `json:"type"`
		CallID       domain.CallID     `json:"callId"`
		FromIdentity domain.IdentityID `json:"fromIdentity"`
		Timestamp    time.Time         `json:"timestamp"`
	}{
		Type:         evCallAccepted,
		CallID:       call.ID,
		FromIdentity: me,
		Timestamp:    call.AcceptedAt,
	}
	ctl.fanTo(call.Caller, accepted)

	// Both sides switch to offer/answer negotiation now.
	ctl.sendJSON(conn, startPayload(call.ID, call.Caller))
	ctl.fanTo(call.Caller, startPayload(call.ID, me))
}

func (ctl *SignalWSController) handleCallReject(
	sess core.ClientSession,
	conn core.SignalConnection,
	data []byte,
) {
	type rejectPayload struct {
		Type   string `json:"type"`
		CallID string `json:"callId"`
	}
	var p rejectPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-reject payload")
		ctl.sendCallError(conn, p.CallID, "bad payload")
		return
	}

	me := sess.Identity().ID
	call, err := ctl.Orch.Calls.Reject(domain.CallID(p.CallID), me)
	if err != nil {
		ctl.sendCallError(conn, p.CallID, callErrorMessage(err))
		return
	}

	rejected := struct {
		Type       string            `json:"type"`
		CallID     domain.CallID     `json:"callId"`
		RejectedBy domain.IdentityID `json:"rejectedBy"`
		Timestamp  time.Time         `json:"timestamp"`
	}{
		Type:       evCallRejected,
		CallID:     call.ID,
		RejectedBy: me,
		Timestamp:  call.EndedAt,
	}
	ctl.fanTo(call.Caller, rejected)
}

func (ctl *SignalWSController) handleCallEnd(
	sess core.ClientSession,
	conn core.SignalConnection,
	data []byte,
) {
	type endPayload struct {
		Type   string `json:"type"`
		CallID string `json:"callId"`
	}
	var p endPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-end payload")
		ctl.sendCallError(conn, p.CallID, "bad payload")
		return
	}

	me := sess.Identity().ID
	call, err := ctl.Orch.Calls.End(domain.CallID(p.CallID), me)
	if err != nil {
		ctl.sendCallError(conn, p.CallID, callErrorMessage(err))
		return
	}

	ended := struct {
		Type      string            `json:"type"`
		CallID    domain.CallID     `json:"callId"`
		EndedBy   domain.IdentityID `json:"endedBy"`
		Timestamp time.Time         `json:"timestamp"`
	}{
		Type:      evCallEnded,
		CallID:    call.ID,
		EndedBy:   me,
		Timestamp: call.EndedAt,
	}
	ctl.fanTo(call.OtherParticipant(me), ended)
}

func startPayload(callID domain.CallID, from domain.IdentityID) any {
	return struct {
		Type         string            `json:"type"`
		CallID       domain.CallID     `json:"callId"`
		FromIdentity domain.IdentityID `json:"fromIdentity"`
	}{
		Type:         evStartWebRTC,
		CallID:       callID,
		FromIdentity: from,
	}
}

// callErrorMessage maps table errors onto the single client-facing reason
// the UI surfaces. Everything that is not "not found" still means the
// operation cannot proceed against the current session state.
func callErrorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrCallNotFound):
		return "call not found"
	case errors.Is(err, app.ErrCallExists):
		return "call id already in use"
	case errors.Is(err, app.ErrNotParticipant):
		return "not a participant of this call"
	case errors.Is(err, app.ErrBadState):
		return "call is not in a state that allows this"
	case errors.Is(err, domain.ErrSelfCall):
		return "cannot call yourself"
	default:
		return "invalid call operation"
	}
}
