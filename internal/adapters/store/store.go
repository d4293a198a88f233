// Package store persists identities and chat messages in a single bbolt
// file. Only one process may hold the file open at a time, which matches
// the single-process presence model of the signaling layer.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"

	"github.com/loquichat/loqui/internal/domain"
)

const (
	bucketIdentities   = "identities"
	bucketEmailIndex   = "identity_email"
	bucketMessages     = "messages"
	bucketChatPartners = "chat_partners"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrBadCredentials = errors.New("invalid email or password")
)

// userRecord is the stored shape; the password hash never leaves this package.
type userRecord struct {
	Identity     domain.Identity `json:"identity"`
	Email        string          `json:"email"`
	PasswordHash []byte          `json:"passwordHash"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o640, &bolt.Options{Timeout: 50 * time.Millisecond})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketIdentities, bucketEmailIndex, bucketMessages, bucketChatPartners} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	log.Info().Str("module", "store").Str("path", path).Msg("store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CreateUser registers a new identity with a bcrypt-hashed password.
func (s *Store) CreateUser(_ context.Context, email, password, displayName string) (*domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrBadCredentials
	}
	identity, err := domain.NewIdentity(domain.IdentityID(uuid.NewString()), displayName)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	rec := userRecord{
		Identity:     *identity,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket([]byte(bucketEmailIndex))
		if emails.Get([]byte(email)) != nil {
			return ErrEmailTaken
		}
		if err := emails.Put([]byte(email), []byte(identity.ID)); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketIdentities)).Put([]byte(identity.ID), buf)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "store").Str("identity", string(identity.ID)).Msg("user created")
	return identity, nil
}

// Authenticate checks email+password and returns the identity on success.
func (s *Store) Authenticate(_ context.Context, email, password string) (*domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var rec userRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket([]byte(bucketEmailIndex)).Get([]byte(email))
		if id == nil {
			return ErrBadCredentials
		}
		raw := tx.Bucket([]byte(bucketIdentities)).Get(id)
		if raw == nil {
			return ErrBadCredentials
		}
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	identity := rec.Identity
	return &identity, nil
}

// FindIdentity implements core.IdentityStore.
func (s *Store) FindIdentity(_ context.Context, id domain.IdentityID) (*domain.Identity, error) {
	var rec userRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketIdentities)).Get([]byte(id))
		if raw == nil {
			return domain.ErrIdentityNotFound
		}
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, err
	}
	identity := rec.Identity
	return &identity, nil
}

// ListIdentities returns every registered identity, sorted by display name.
func (s *Store) ListIdentities(_ context.Context) ([]domain.Identity, error) {
	var out []domain.Identity
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketIdentities)).ForEach(func(_, raw []byte) error {
			var rec userRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			out = append(out, rec.Identity)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

// convKey orders the two participants so both directions of a conversation
// share one key prefix.
func convKey(a, b domain.IdentityID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

// SaveMessage persists one message under its conversation prefix.
// Keys embed the creation time so a prefix scan yields messages in order.
func (s *Store) SaveMessage(_ context.Context, msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = domain.MessageID(uuid.NewString())
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s/%020d-%s", convKey(msg.SenderID, msg.ReceiverID), msg.CreatedAt.UnixNano(), msg.ID)

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(bucketMessages)).Put([]byte(key), buf); err != nil {
			return err
		}
		partners := tx.Bucket([]byte(bucketChatPartners))
		if err := partners.Put([]byte(string(msg.SenderID)+"|"+string(msg.ReceiverID)), nil); err != nil {
			return err
		}
		return partners.Put([]byte(string(msg.ReceiverID)+"|"+string(msg.SenderID)), nil)
	})
}

// MessagesBetween returns the full history of a conversation, oldest first.
func (s *Store) MessagesBetween(_ context.Context, a, b domain.IdentityID) ([]domain.Message, error) {
	prefix := []byte(convKey(a, b) + "/")
	out := []domain.Message{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketMessages)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var msg domain.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ChatPartners lists the identities id has exchanged at least one message with.
func (s *Store) ChatPartners(_ context.Context, id domain.IdentityID) ([]domain.IdentityID, error) {
	prefix := []byte(string(id) + "|")
	out := []domain.IdentityID{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketChatPartners)).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			out = append(out, domain.IdentityID(bytes.TrimPrefix(k, prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
