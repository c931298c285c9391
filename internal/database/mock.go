package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockTeleTokRepository struct {
	mock.Mock
}

func (m *MockTeleTokRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockTeleTokRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTeleTokRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTeleTokRepository) GetAccountByPhone(phone string) (User, error) {
	args := m.Called(phone)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTeleTokRepository) UsernameTaken(username string, excludeId int) (bool, error) {
	args := m.Called(username, excludeId)
	return args.Bool(0), args.Error(1)
}
func (m *MockTeleTokRepository) UpdateProfile(params UpdateProfileParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockTeleTokRepository) SetPresence(accountId int, online bool, lastSeen time.Time) error {
	args := m.Called(accountId, online, lastSeen)
	return args.Error(0)
}
func (m *MockTeleTokRepository) SearchAccounts(query string, excludeId, limit int) ([]User, error) {
	args := m.Called(query, excludeId, limit)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockTeleTokRepository) ContactExists(accountId, contactId int) (bool, error) {
	args := m.Called(accountId, contactId)
	return args.Bool(0), args.Error(1)
}
func (m *MockTeleTokRepository) CreateContactPair(accountId, contactId int) error {
	args := m.Called(accountId, contactId)
	return args.Error(0)
}
func (m *MockTeleTokRepository) ListContacts(accountId int) ([]ContactEntry, error) {
	args := m.Called(accountId)
	return args.Get(0).([]ContactEntry), args.Error(1)
}
func (m *MockTeleTokRepository) CreateMessage(senderId, receiverId int, text string) (Message, error) {
	args := m.Called(senderId, receiverId, text)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockTeleTokRepository) GetMessageById(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockTeleTokRepository) GetMessageWithSender(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockTeleTokRepository) GetConversation(accountId, otherId int) ([]Message, error) {
	args := m.Called(accountId, otherId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockTeleTokRepository) MarkConversationSeen(senderId, receiverId int) error {
	args := m.Called(senderId, receiverId)
	return args.Error(0)
}
func (m *MockTeleTokRepository) MarkMessageSeen(messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockTeleTokRepository) DeleteMessage(messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
