package signal

import (
	"time"

	"github.com/loquichat/loqui/internal/core"
	"github.com/loquichat/loqui/internal/domain"
)

func (ctl *SignalWSController) handleWhoAmI(
	sess core.ClientSession,
	conn core.SignalConnection,
) {
	resp := struct {
		Type     string           `json:"type"`
		Identity *domain.Identity `json:"identity"`
		ConnID   core.ConnID      `json:"connId"`
		OpenedAt time.Time        `json:"openedAt"`
	}{
		Type:     "whoami",
		Identity: sess.Identity(),
		ConnID:   sess.ConnID(),
		OpenedAt: sess.OpenedAt(),
	}
	ctl.sendJSON(conn, resp)
}
