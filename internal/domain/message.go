package domain

import (
	"errors"
	"time"
)

const MaxMessageTextLen = 4096

var (
	ErrMessageEmpty    = errors.New("message has neither text nor attachment")
	ErrMessageTooLong  = errors.New("message text too long")
	ErrSelfMessage     = errors.New("sender and receiver are the same identity")
	ErrMessageNotFound = errors.New("message not found")
)

type MessageID string

// Message is one persisted chat message. Attachments are pass-through URLs;
// the object store that produced them is not our concern.
type Message struct {
	ID         MessageID  `json:"id"`
	SenderID   IdentityID `json:"senderId"`
	ReceiverID IdentityID `json:"receiverId"`
	Text       string     `json:"text,omitempty"`
	ImageURL   string     `json:"imageUrl,omitempty"`
	VideoURL   string     `json:"videoUrl,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (m *Message) Validate() error {
	if m.Text == "" && m.ImageURL == "" && m.VideoURL == "" {
		return ErrMessageEmpty
	}
	if len(m.Text) > MaxMessageTextLen {
		return ErrMessageTooLong
	}
	if m.SenderID == m.ReceiverID {
		return ErrSelfMessage
	}
	return nil
}
