package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/behailu412/teletok/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, userId int) *http.Request {
	return req.WithContext(WithUserId(req.Context(), userId))
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	t.Run("creates account and session", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByPhone", "0912345678").Return(database.User{}, sql.ErrNoRows).Once()
		db.On("UsernameTaken", "abel", 0).Return(false, nil).Once()
		db.On("CreateAccount", mock.MatchedBy(func(p database.CreateAccountParams) bool {
			return p.Username == "abel" && p.Phone == "0912345678" &&
				p.PasswordHash != "" && p.PasswordHash != "hunter2"
		})).Return(database.User{Id: 1, Username: "abel", Phone: "0912345678", ProfilePhoto: "default.jpg"}, nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.register(rec, jsonRequest(t, http.MethodPost, "/register",
			RegisterRequest{Username: "abel", Phone: "0912345678", Password: "hunter2"}))

		assert.Equal(t, http.StatusOK, rec.Code, "expected HTTP 200")

		var resp sessionResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a session response")
		assert.True(t, resp.Success, "expected success")
		assert.Equal(t, "Registration successful", resp.Message, "expected registration message")
		assert.Equal(t, 1, resp.UserId, "expected new user id")
		assert.Equal(t, "abel", resp.Username, "expected username")

		cookie := responseCookie(rec, tokenCookieKey)
		assert.NotNil(t, cookie, "expected a session cookie")
		assert.NotEmpty(t, cookie.Value, "expected a signed token in the cookie")

		userId, err := app.extractUserIdFromToken(cookie.Value)
		assert.NoError(t, err, "expected cookie token to parse")
		assert.Equal(t, 1, userId, "expected session for the new account")
	})

	tests := []struct {
		name    string
		req     RegisterRequest
		setup   func(db *database.MockTeleTokRepository)
		message string
	}{
		{
			name:    "missing fields",
			req:     RegisterRequest{Username: "abel", Phone: "0912345678"},
			message: "All fields are required",
		},
		{
			name:    "invalid phone",
			req:     RegisterRequest{Username: "abel", Phone: "12345", Password: "hunter2"},
			message: "Invalid Ethiopian phone number format",
		},
		{
			name: "phone already registered",
			req:  RegisterRequest{Username: "abel", Phone: "0912345678", Password: "hunter2"},
			setup: func(db *database.MockTeleTokRepository) {
				db.On("GetAccountByPhone", "0912345678").Return(database.User{Id: 2}, nil).Once()
			},
			message: "Phone number already registered",
		},
		{
			name: "username already taken",
			req:  RegisterRequest{Username: "abel", Phone: "0912345678", Password: "hunter2"},
			setup: func(db *database.MockTeleTokRepository) {
				db.On("GetAccountByPhone", "0912345678").Return(database.User{}, sql.ErrNoRows).Once()
				db.On("UsernameTaken", "abel", 0).Return(true, nil).Once()
			},
			message: "Username already taken",
		},
		{
			name: "database failure",
			req:  RegisterRequest{Username: "abel", Phone: "0912345678", Password: "hunter2"},
			setup: func(db *database.MockTeleTokRepository) {
				db.On("GetAccountByPhone", "0912345678").Return(database.User{}, sql.ErrNoRows).Once()
				db.On("UsernameTaken", "abel", 0).Return(false, nil).Once()
				db.On("CreateAccount", mock.Anything).Return(database.User{}, errors.New("db error")).Once()
			},
			message: "Registration failed due to database error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockTeleTokRepository{}
			defer db.AssertExpectations(t)
			if tc.setup != nil {
				tc.setup(db)
			}

			app := newTestApp(t, db)
			rec := httptest.NewRecorder()
			app.register(rec, jsonRequest(t, http.MethodPost, "/register", tc.req))

			assert.Equal(t, http.StatusOK, rec.Code, "expected failures over HTTP 200")
			resp := decodeEnvelope(t, rec)
			assert.False(t, resp.Success, "expected failure envelope")
			assert.Equal(t, tc.message, resp.Message, "expected failure message")
			assert.Nil(t, responseCookie(rec, tokenCookieKey), "expected no session cookie on failure")
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := hashPassword("hunter2")
	if err != nil {
		t.Fatalf("failed to hash test password: %v", err)
	}

	account := database.User{Id: 1, Username: "abel", Phone: "0912345678", PasswordHash: hash, ProfilePhoto: "default.jpg"}

	t.Run("valid credentials start a session", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByPhone", "0912345678").Return(account, nil).Once()
		db.On("SetPresence", 1, true, mock.AnythingOfType("time.Time")).Return(nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.login(rec, jsonRequest(t, http.MethodPost, "/login",
			LoginRequest{Phone: "0912345678", Password: "hunter2"}))

		var resp sessionResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a session response")
		assert.True(t, resp.Success, "expected success")
		assert.Equal(t, 1, resp.UserId, "expected account id")
		assert.NotNil(t, responseCookie(rec, tokenCookieKey), "expected a session cookie")
	})

	t.Run("unknown phone", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByPhone", "0912345678").Return(database.User{}, sql.ErrNoRows).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.login(rec, jsonRequest(t, http.MethodPost, "/login",
			LoginRequest{Phone: "0912345678", Password: "hunter2"}))

		resp := decodeEnvelope(t, rec)
		assert.False(t, resp.Success, "expected failure envelope")
		assert.Equal(t, "Invalid phone or password", resp.Message, "expected indistinct credential failure")
	})

	t.Run("wrong password", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByPhone", "0912345678").Return(account, nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.login(rec, jsonRequest(t, http.MethodPost, "/login",
			LoginRequest{Phone: "0912345678", Password: "wrong"}))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Invalid phone or password", resp.Message, "expected indistinct credential failure")
	})

	t.Run("presence write failure fails the login", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByPhone", "0912345678").Return(account, nil).Once()
		db.On("SetPresence", 1, true, mock.AnythingOfType("time.Time")).Return(errors.New("db error")).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.login(rec, jsonRequest(t, http.MethodPost, "/login",
			LoginRequest{Phone: "0912345678", Password: "hunter2"}))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Login failed due to database error", resp.Message, "expected database failure message")
		assert.Nil(t, responseCookie(rec, tokenCookieKey), "expected no session cookie on failure")
	})

	t.Run("missing fields", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.login(rec, jsonRequest(t, http.MethodPost, "/login", LoginRequest{Phone: "0912345678"}))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Phone and password are required", resp.Message, "expected validation message")
	})
}

func TestLogout(t *testing.T) {
	t.Run("with a session flips presence offline", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("SetPresence", 1, false, mock.AnythingOfType("time.Time")).Return(nil).Once()

		app := newTestApp(t, db)
		token, err := app.createJwtForSession(1, time.Hour)
		assert.NoError(t, err, "expected token to be created")

		req := jsonRequest(t, http.MethodPost, "/logout", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})
		rec := httptest.NewRecorder()
		app.logout(rec, req)

		resp := decodeEnvelope(t, rec)
		assert.True(t, resp.Success, "expected success")
		assert.Equal(t, "Logged out successfully", resp.Message, "expected logout message")

		cookie := responseCookie(rec, tokenCookieKey)
		assert.NotNil(t, cookie, "expected the session cookie to be rewritten")
		assert.Empty(t, cookie.Value, "expected the cookie value to be cleared")
		assert.True(t, cookie.Expires.Before(time.Now()), "expected the cookie to be expired")
	})

	t.Run("without a session still succeeds", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.logout(rec, jsonRequest(t, http.MethodPost, "/logout", nil))

		resp := decodeEnvelope(t, rec)
		assert.True(t, resp.Success, "expected success without a session")
		assert.Equal(t, "Logged out successfully", resp.Message, "expected logout message")
	})
}

func TestGetProfile(t *testing.T) {
	t.Run("returns the caller's account", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountById", 1).Return(database.User{Id: 1, Username: "abel", Phone: "0912345678", ProfilePhoto: "abel.jpg"}, nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.getProfile(rec, asUser(httptest.NewRequest(http.MethodGet, "/get_profile", nil), 1))

		var resp profileResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a profile response")
		assert.True(t, resp.Success, "expected success")
		assert.Equal(t, "abel", resp.Username, "expected username")
		assert.Equal(t, "abel.jpg", resp.ProfilePhoto, "expected profile photo")
	})

	t.Run("unknown account", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountById", 1).Return(database.User{}, sql.ErrNoRows).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.getProfile(rec, asUser(httptest.NewRequest(http.MethodGet, "/get_profile", nil), 1))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "User not found", resp.Message, "expected not-found message")
	})
}

func TestSearchUsers(t *testing.T) {
	t.Run("query too short", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.searchUsers(rec, asUser(httptest.NewRequest(http.MethodGet, "/search_users?q=a", nil), 1))

		resp := decodeEnvelope(t, rec)
		assert.False(t, resp.Success, "expected failure envelope")
		assert.Equal(t, "Query too short", resp.Message, "expected validation message")
	})

	t.Run("flags existing contacts", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("SearchAccounts", "ab", 1, searchLimit).Return([]database.User{
			{Id: 2, Username: "abeba"},
			{Id: 3, Username: "abdi"},
		}, nil).Once()
		db.On("ContactExists", 1, 2).Return(true, nil).Once()
		db.On("ContactExists", 1, 3).Return(false, nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.searchUsers(rec, asUser(httptest.NewRequest(http.MethodGet, "/search_users?q=ab", nil), 1))

		var resp searchUsersResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a search response")
		assert.True(t, resp.Success, "expected success")
		assert.Len(t, resp.Users, 2, "expected both matches")
		assert.True(t, resp.Users[0].IsContact, "expected first match flagged as contact")
		assert.False(t, resp.Users[1].IsContact, "expected second match flagged as stranger")
	})
}

func TestAddContact(t *testing.T) {
	t.Run("links both directions once", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("ContactExists", 1, 2).Return(false, nil).Once()
		db.On("CreateContactPair", 1, 2).Return(nil).Once()
		db.On("GetAccountById", 2).Return(database.User{Id: 2, Username: "abeba"}, nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.addContact(rec, asUser(jsonRequest(t, http.MethodPost, "/add_contact",
			AddContactRequest{ContactId: 2}), 1))

		var resp addContactResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a contact response")
		assert.True(t, resp.Success, "expected success")
		assert.Equal(t, 2, resp.Contact.Id, "expected the linked contact")
	})

	t.Run("already connected", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("ContactExists", 1, 2).Return(true, nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.addContact(rec, asUser(jsonRequest(t, http.MethodPost, "/add_contact",
			AddContactRequest{ContactId: 2}), 1))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Already connected", resp.Message, "expected duplicate-link message")
	})

	t.Run("missing contact id", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.addContact(rec, asUser(jsonRequest(t, http.MethodPost, "/add_contact",
			AddContactRequest{}), 1))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Invalid request", resp.Message, "expected validation message")
	})
}

func TestGetContacts(t *testing.T) {
	db := &database.MockTeleTokRepository{}
	defer db.AssertExpectations(t)
	db.On("ListContacts", 1).Return([]database.ContactEntry{
		{User: database.User{Id: 2, Username: "abeba"}, UnreadCount: 3},
		{User: database.User{Id: 3, Username: "abdi"}, UnreadCount: 0},
	}, nil).Once()

	app := newTestApp(t, db)
	rec := httptest.NewRecorder()
	app.getContacts(rec, asUser(httptest.NewRequest(http.MethodGet, "/get_contacts", nil), 1))

	var resp contactsResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a contacts response")
	assert.True(t, resp.Success, "expected success")
	assert.Len(t, resp.Contacts, 2, "expected both contacts")
	assert.Equal(t, 3, resp.Contacts[0].UnreadCount, "expected unread count carried through")
}

func TestGetMessages(t *testing.T) {
	t.Run("returns the thread and marks it seen", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetConversation", 1, 2).Return([]database.Message{
			{Id: 10, SenderId: 2, ReceiverId: 1, MessageText: "selam", SenderName: "abeba"},
			{Id: 11, SenderId: 1, ReceiverId: 2, MessageText: "selam nesh", SenderName: "abel"},
		}, nil).Once()
		db.On("MarkConversationSeen", 2, 1).Return(nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.getMessages(rec, asUser(httptest.NewRequest(http.MethodGet, "/get_messages?user_id=2", nil), 1))

		var resp messagesResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a messages response")
		assert.True(t, resp.Success, "expected success")
		assert.Len(t, resp.Messages, 2, "expected the whole thread")
		assert.Equal(t, 10, resp.Messages[0].Id, "expected store ordering preserved")
		assert.Equal(t, "abeba", resp.Messages[0].SenderName, "expected sender name joined in")
	})

	t.Run("invalid user id parameter", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.getMessages(rec, asUser(httptest.NewRequest(http.MethodGet, "/get_messages?user_id=abc", nil), 1))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Invalid request", resp.Message, "expected validation message")
	})

	t.Run("seen flip failure fails the read", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetConversation", 1, 2).Return([]database.Message{}, nil).Once()
		db.On("MarkConversationSeen", 2, 1).Return(errors.New("db error")).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.getMessages(rec, asUser(httptest.NewRequest(http.MethodGet, "/get_messages?user_id=2", nil), 1))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Failed to get messages", resp.Message, "expected read failure message")
	})
}

func TestDeleteMessage(t *testing.T) {
	t.Run("sender deletes own message", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetMessageById", 10).Return(database.Message{Id: 10, SenderId: 1}, nil).Once()
		db.On("DeleteMessage", 10).Return(nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.deleteMessage(rec, jsonRequest(t, http.MethodPost, "/delete_message",
			map[string]interface{}{"message_id": 10, "user_id": 1}))

		resp := decodeEnvelope(t, rec)
		assert.True(t, resp.Success, "expected success")
		assert.Equal(t, "Message deleted successfully", resp.Message, "expected deletion message")
	})

	t.Run("accepts ids as numeric strings", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetMessageById", 10).Return(database.Message{Id: 10, SenderId: 1}, nil).Once()
		db.On("DeleteMessage", 10).Return(nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.deleteMessage(rec, jsonRequest(t, http.MethodPost, "/delete_message",
			map[string]interface{}{"message_id": "10", "user_id": "1"}))

		resp := decodeEnvelope(t, rec)
		assert.True(t, resp.Success, "expected success with string ids")
	})

	t.Run("non-sender is rejected and the row survives", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetMessageById", 10).Return(database.Message{Id: 10, SenderId: 1}, nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.deleteMessage(rec, jsonRequest(t, http.MethodPost, "/delete_message",
			map[string]interface{}{"message_id": 10, "user_id": 2}))

		resp := decodeEnvelope(t, rec)
		assert.False(t, resp.Success, "expected failure envelope")
		assert.Equal(t, "Unauthorized to delete this message", resp.Message, "expected authorization message")
		db.AssertNotCalled(t, "DeleteMessage", 10)
	})

	t.Run("unknown message", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("GetMessageById", 10).Return(database.Message{}, sql.ErrNoRows).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.deleteMessage(rec, jsonRequest(t, http.MethodPost, "/delete_message",
			map[string]interface{}{"message_id": 10, "user_id": 1}))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Message not found", resp.Message, "expected not-found message")
	})

	t.Run("missing ids", func(t *testing.T) {
		app := newTestApp(t, &database.MockTeleTokRepository{})
		rec := httptest.NewRecorder()
		app.deleteMessage(rec, jsonRequest(t, http.MethodPost, "/delete_message",
			map[string]interface{}{"message_id": 10}))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Missing message_id or user_id", resp.Message, "expected validation message")
	})

	t.Run("non-numeric ids", func(t *testing.T) {
		app := newTestApp(t, &database.MockTeleTokRepository{})
		rec := httptest.NewRecorder()
		app.deleteMessage(rec, jsonRequest(t, http.MethodPost, "/delete_message",
			map[string]interface{}{"message_id": "ten", "user_id": "1"}))

		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Invalid message_id or user_id format", resp.Message, "expected format message")
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("Ping").Return(nil).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.healthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code, "expected HTTP 200 when healthy")

		var resp healthResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a health response")
		assert.Equal(t, "healthy", resp.Status, "expected healthy status")
		assert.Equal(t, "connected", resp.Database, "expected connected database")
	})

	t.Run("unhealthy", func(t *testing.T) {
		db := &database.MockTeleTokRepository{}
		defer db.AssertExpectations(t)
		db.On("Ping").Return(errors.New("connection refused")).Once()

		app := newTestApp(t, db)
		rec := httptest.NewRecorder()
		app.healthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code, "expected HTTP 500 when unhealthy")

		var resp healthResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "expected a health response")
		assert.Equal(t, "unhealthy", resp.Status, "expected unhealthy status")
		assert.Equal(t, "connection refused", resp.Error, "expected the probe error")
	})
}
