package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/adapters/signal"
	"github.com/loquichat/loqui/internal/adapters/store"
	"github.com/loquichat/loqui/internal/domain"
)

func (a *API) setTokenCookie(c *gin.Context, identity *domain.Identity) error {
	token, err := a.Tokens.Issue(identity.ID)
	if err != nil {
		return err
	}
	c.SetCookie(signal.TokenCookie, token, int(a.Tokens.TTL().Seconds()), "/", "", a.Cfg.Mode == "release", true)
	return nil
}

func (a *API) handleSignup(c *gin.Context) {
	var req struct {
		FullName string `json:"fullName" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signup payload"})
		return
	}

	identity, err := a.Store.CreateUser(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.setTokenCookie(c, identity); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, identity)
}

func (a *API) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload"})
		return
	}

	identity, err := a.Store.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err := a.setTokenCookie(c, identity); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (a *API) handleLogout(c *gin.Context) {
	c.SetCookie(signal.TokenCookie, "", -1, "/", "", a.Cfg.Mode == "release", true)
	c.Status(http.StatusNoContent)
}

func (a *API) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentIdentity(c))
}

// handlePresence serves the same snapshot the socket pushes, for clients
// that just reconnected and have not seen a broadcast yet.
func (a *API) handlePresence(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": a.Orch.Presence.Snapshot()})
}

func (a *API) handleContacts(c *gin.Context) {
	identities, err := a.Store.ListIdentities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	me := currentIdentity(c).ID
	out := make([]domain.Identity, 0, len(identities))
	for _, id := range identities {
		if id.ID != me {
			out = append(out, id)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) handleChats(c *gin.Context) {
	me := currentIdentity(c).ID
	partnerIDs, err := a.Store.ChatPartners(c.Request.Context(), me)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]domain.Identity, 0, len(partnerIDs))
	for _, pid := range partnerIDs {
		identity, err := a.Store.FindIdentity(c.Request.Context(), pid)
		if err != nil {
			continue
		}
		out = append(out, *identity)
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) handleHistory(c *gin.Context) {
	me := currentIdentity(c).ID
	other := domain.IdentityID(c.Param("id"))
	msgs, err := a.Store.MessagesBetween(c.Request.Context(), me, other)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// handleSendMessage persists the message, then hands it to the fanout.
// The socket push is best effort; the saved record is the delivery guarantee.
func (a *API) handleSendMessage(c *gin.Context) {
	var req struct {
		Text     string `json:"text"`
		ImageURL string `json:"imageUrl"`
		VideoURL string `json:"videoUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message payload"})
		return
	}

	msg := &domain.Message{
		SenderID:   currentIdentity(c).ID,
		ReceiverID: domain.IdentityID(c.Param("id")),
		Text:       req.Text,
		ImageURL:   req.ImageURL,
		VideoURL:   req.VideoURL,
	}
	if err := a.Store.SaveMessage(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a.Orch.Fanout.Push(msg)
	c.JSON(http.StatusCreated, msg)
}

// handleRTCConfig hands the client the ICE servers it should use once
// signaling has paired it with a peer.
func (a *API) handleRTCConfig(c *gin.Context) {
	servers := []webrtc.ICEServer{
		{URLs: a.Cfg.STUNURLs},
	}
	c.JSON(http.StatusOK, gin.H{"iceServers": servers})
}
