package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/loquichat/loqui/internal/core"
	"github.com/loquichat/loqui/internal/domain"
)

// ConnRegistry maps authenticated identities to their live connections.
// One identity may hold several handles at once; presence is derived from
// the bucket counts, never stored separately.
type ConnRegistry struct {
	mu         sync.RWMutex
	byConn     map[core.ConnID]core.ClientSession
	byIdentity map[domain.IdentityID]map[core.ConnID]core.ClientSession
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		byConn:     make(map[core.ConnID]core.ClientSession),
		byIdentity: make(map[domain.IdentityID]map[core.ConnID]core.ClientSession),
	}
}

// Register adds the session under its identity's bucket.
func (r *ConnRegistry) Register(sess core.ClientSession) {
	id := sess.Identity().ID
	cid := sess.ConnID()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[cid] = sess
	bucket, ok := r.byIdentity[id]
	if !ok {
		bucket = make(map[core.ConnID]core.ClientSession)
		r.byIdentity[id] = bucket
	}
	bucket[cid] = sess
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Str("identity", string(id)).Int("handles", len(bucket)).Msg("connection registered")
}

// Unregister removes the handle by connection id. Unknown ids are a no-op:
// disconnect events can race or double-fire.
func (r *ConnRegistry) Unregister(cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byConn[cid]
	if !ok {
		return
	}
	delete(r.byConn, cid)

	id := sess.Identity().ID
	if bucket, ok := r.byIdentity[id]; ok {
		delete(bucket, cid)
		if len(bucket) == 0 {
			delete(r.byIdentity, id)
		}
	}
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Str("identity", string(id)).Msg("connection unregistered")
}

// ConnectionsFor returns every live session of an identity.
// An identity without connections yields an empty slice, not an error.
func (r *ConnRegistry) ConnectionsFor(id domain.IdentityID) []core.ClientSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.byIdentity[id]
	out := make([]core.ClientSession, 0, len(bucket))
	for _, sess := range bucket {
		out = append(out, sess)
	}
	return out
}

// AllConnections snapshots every live session across all identities.
func (r *ConnRegistry) AllConnections() []core.ClientSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ClientSession, 0, len(r.byConn))
	for _, sess := range r.byConn {
		out = append(out, sess)
	}
	return out
}

// OnlineIdentities snapshots the distinct identities with at least one live
// handle, sorted by id for stable output.
func (r *ConnRegistry) OnlineIdentities() []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Identity, 0, len(r.byIdentity))
	for _, bucket := range r.byIdentity {
		for _, sess := range bucket {
			out = append(out, *sess.Identity())
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsOnline reports whether an identity has at least one live handle.
func (r *ConnRegistry) IsOnline(id domain.IdentityID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity[id]) > 0
}

func (r *ConnRegistry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
