package signal

import "github.com/loquichat/loqui/internal/core"

func (ctl *SignalWSController) handlePing(
	conn core.SignalConnection,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: evPong,
	}
	ctl.sendJSON(conn, resp)
}
