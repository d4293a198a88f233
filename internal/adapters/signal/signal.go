package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/app"
	"github.com/loquichat/loqui/internal/core"
	"github.com/loquichat/loqui/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// TokenCookie carries the credential at handshake time. A cookie keeps the
// token out of the URL, so it never lands in access logs.
const TokenCookie = "jwt"

type SignalWSController struct {
	Orch     *app.Orchestrator
	Verifier core.IdentityVerifier
	Users    core.IdentityStore
	Limiter  *CallRateLimiter

	// ReadLimit caps inbound frame size; PingPeriod drives keepalive pings.
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewSignalWSController(orch *app.Orchestrator, verifier core.IdentityVerifier, users core.IdentityStore, limiter *CallRateLimiter) *SignalWSController {
	return &SignalWSController{
		Orch:       orch,
		Verifier:   verifier,
		Users:      users,
		Limiter:    limiter,
		ReadLimit:  32 << 10,
		PingPeriod: 54 * time.Second,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal authenticates and admits one websocket connection.
// The handshake runs fully before the registry sees the connection: a
// rejected credential leaves no partial state behind.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	identity, err := ctl.authenticate(c)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, domain.ErrIdentityNotFound) {
			status = http.StatusForbidden
		}
		log.Warn().Err(err).Str("module", "signal").Msg("handshake rejected")
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	sess := core.NewClientSession(core.ConnID(uuid.NewString()), identity, conn)
	log.Info().Str("module", "signal").Str("conn", string(sess.ConnID())).Str("identity", string(identity.ID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.OnConnect(sess)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}

// authenticate extracts and verifies the handshake credential, then resolves
// the identity record. Any failure rejects the attempt before admission.
func (ctl *SignalWSController) authenticate(c *gin.Context) (*domain.Identity, error) {
	token, err := c.Cookie(TokenCookie)
	if err != nil || token == "" {
		return nil, errors.New("unauthenticated: no credential provided")
	}

	id, err := ctl.Verifier.Verify(c.Request.Context(), token)
	if err != nil {
		return nil, errors.New("unauthenticated: invalid credential")
	}

	identity, err := ctl.Users.FindIdentity(c.Request.Context(), id)
	if err != nil {
		return nil, domain.ErrIdentityNotFound
	}
	return identity, nil
}
