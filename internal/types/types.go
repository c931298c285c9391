package types

import (
	"time"
)

type User struct {
	Id           int        `json:"id"`
	Username     string     `json:"username"`
	Phone        string     `json:"phone,omitempty"`
	ProfilePhoto string     `json:"profile_photo,omitempty"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
}

// Contact is a linked user as returned by search and contact listings.
// IsContact is only meaningful on search results, UnreadCount only on
// contact listings.
type Contact struct {
	Id           int        `json:"id"`
	Username     string     `json:"username"`
	Phone        string     `json:"phone"`
	ProfilePhoto string     `json:"profile_photo"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	IsContact    bool       `json:"is_contact,omitempty"`
	UnreadCount  int        `json:"unread_count"`
}

// Message is the canonical message payload: the persisted row joined
// with the sender's display name and photo reference.
type Message struct {
	Id          int       `json:"id"`
	SenderId    int       `json:"sender_id"`
	ReceiverId  int       `json:"receiver_id"`
	MessageText string    `json:"message_text"`
	IsSeen      bool      `json:"is_seen"`
	SentAt      time.Time `json:"sent_at"`
	SenderName  string    `json:"sender_name,omitempty"`
	SenderPhoto string    `json:"sender_photo,omitempty"`
}
