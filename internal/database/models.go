package database

import "time"

type User struct {
	Id           int
	Username     string
	Phone        string
	PasswordHash string
	ProfilePhoto string
	IsOnline     bool
	LastSeen     time.Time
	CreatedAt    time.Time
}

type Contact struct {
	Id        int
	UserId    int
	ContactId int
	CreatedAt time.Time
}

type Message struct {
	Id          int
	SenderId    int
	ReceiverId  int
	MessageText string
	IsSeen      bool
	SentAt      time.Time
	// populated only by the joined queries
	SenderName  string
	SenderPhoto string
}

// ContactEntry is a contact row joined with the linked user and
// the caller's unread message count from that user.
type ContactEntry struct {
	User        User
	UnreadCount int
}

type CreateAccountParams struct {
	Username     string
	Phone        string
	PasswordHash string
	ProfilePhoto string
}

type UpdateProfileParams struct {
	UserId       int
	Username     string
	ProfilePhoto string
}
