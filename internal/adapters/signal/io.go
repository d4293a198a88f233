package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/core"
	"github.com/loquichat/loqui/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sess core.ClientSession, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sess.ConnID())).Msg("readPump closing")
		cancel()
		ctl.Orch.OnDisconnect(sess.ConnID())
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(sess.ConnID())).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(sess.ConnID())).Msg("readPump read error")
				return
			}
			ctl.handleSignal(sess, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sess core.ClientSession, c core.SignalConnection, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case evCallInitiate:
		ctl.handleCallInitiate(sess, c, data)
	case evCallAccept:
		ctl.handleCallAccept(sess, c, data)
	case evCallReject:
		ctl.handleCallReject(sess, c, data)
	case evCallEnd:
		ctl.handleCallEnd(sess, c, data)
	case evOffer, evAnswer, evICECandidate:
		ctl.handleNegotiation(sess, c, env.Type, data)
	case evPing:
		ctl.handlePing(c)
	case evWhoAmI:
		ctl.handleWhoAmI(sess, c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// sendCallError reports a failed call operation to the sender only. The relay
// path never escalates these: races against hangups and the sweeper are
// expected behavior.
func (ctl *SignalWSController) sendCallError(c core.SignalConnection, callID, message string) {
	resp := struct {
		Type    string `json:"type"`
		CallID  string `json:"callId,omitempty"`
		Message string `json:"message"`
	}{
		Type:    evCallError,
		CallID:  callID,
		Message: message,
	}
	ctl.sendJSON(c, resp)
}

// fanTo pushes one encoded event to every live connection of an identity.
// Zero live connections means the target is offline; the event is dropped.
func (ctl *SignalWSController) fanTo(id domain.IdentityID, v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("fanTo marshal")
		return 0
	}
	sent := 0
	for _, sess := range ctl.Orch.Registry.ConnectionsFor(id) {
		if err := sess.Signal().TrySend(core.Frame(b)); err != nil {
			continue
		}
		sent++
	}
	return sent
}
