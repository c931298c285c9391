package gateway

import (
	"time"

	"github.com/behailu412/teletok/internal/types"
)

// ClientEvent is the closed set of inbound event kinds. Exactly one of
// the pointer fields is expected to be set; events failing their kind's
// required-field check are dropped without acknowledgement.
type ClientEvent struct {
	Online *UserOnline   `json:"user_online,omitempty"`
	Join   *JoinUserRoom `json:"join_user_room,omitempty"`
	Send   *SendMessage  `json:"send_message,omitempty"`
	Seen   *MessageSeen  `json:"message_seen,omitempty"`
	Typing *Typing       `json:"typing,omitempty"`

	client *Client
}

type UserOnline struct {
	UserId int `json:"user_id"`
}

type JoinUserRoom struct {
	UserId int `json:"user_id"`
}

type SendMessage struct {
	SenderId    int    `json:"sender_id"`
	ReceiverId  int    `json:"receiver_id"`
	MessageText string `json:"message_text"`
}

type MessageSeen struct {
	MessageId int `json:"message_id"`
	UserId    int `json:"user_id"`
}

type Typing struct {
	SenderId   int  `json:"sender_id"`
	ReceiverId int  `json:"receiver_id"`
	IsTyping   bool `json:"is_typing"`
}

// ServerEvent is the closed set of outbound event kinds.
type ServerEvent struct {
	Connected      *Connected     `json:"connected,omitempty"`
	UserStatus     *UserStatus    `json:"user_status,omitempty"`
	NewMessage     *types.Message `json:"new_message,omitempty"`
	MessageSent    *types.Message `json:"message_sent,omitempty"`
	NewMessageSelf *types.Message `json:"new_message_self,omitempty"`
	MessageStatus  *MessageStatus `json:"message_status,omitempty"`
	UserTyping     *UserTyping    `json:"user_typing,omitempty"`
}

type Connected struct {
	Status string `json:"status"`
}

type UserStatus struct {
	UserId   int        `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type MessageStatus struct {
	MessageId int  `json:"message_id"`
	IsSeen    bool `json:"is_seen"`
}

type UserTyping struct {
	SenderId int  `json:"sender_id"`
	IsTyping bool `json:"is_typing"`
}

func connectedEvent() *ServerEvent {
	return &ServerEvent{Connected: &Connected{Status: "connected"}}
}

func onlineStatusEvent(userId int) *ServerEvent {
	return &ServerEvent{UserStatus: &UserStatus{UserId: userId, IsOnline: true}}
}

func offlineStatusEvent(userId int, lastSeen time.Time) *ServerEvent {
	return &ServerEvent{UserStatus: &UserStatus{UserId: userId, LastSeen: &lastSeen}}
}

func messageStatusEvent(messageId int, seen bool) *ServerEvent {
	return &ServerEvent{MessageStatus: &MessageStatus{MessageId: messageId, IsSeen: seen}}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
