package database

import "time"

type TeleTokRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByPhone(phone string) (User, error)
	UsernameTaken(username string, excludeId int) (bool, error)
	UpdateProfile(params UpdateProfileParams) (User, error)
	SetPresence(accountId int, online bool, lastSeen time.Time) error
	SearchAccounts(query string, excludeId, limit int) ([]User, error)
	ContactExists(accountId, contactId int) (bool, error)
	CreateContactPair(accountId, contactId int) error
	ListContacts(accountId int) ([]ContactEntry, error)
	CreateMessage(senderId, receiverId int, text string) (Message, error)
	GetMessageById(messageId int) (Message, error)
	GetMessageWithSender(messageId int) (Message, error)
	GetConversation(accountId, otherId int) ([]Message, error)
	MarkConversationSeen(senderId, receiverId int) error
	MarkMessageSeen(messageId int) error
	DeleteMessage(messageId int) error
}
