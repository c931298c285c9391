package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/behailu412/teletok/internal/database"
	"github.com/behailu412/teletok/internal/gateway"
	"github.com/behailu412/teletok/internal/types"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

const searchLimit = 20

type RegisterRequest struct {
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type AddContactRequest struct {
	ContactId int `json:"contact_id"`
}

// DeleteMessageRequest tolerates ids sent as JSON numbers or numeric
// strings.
type DeleteMessageRequest struct {
	MessageId json.Number `json:"message_id"`
	UserId    json.Number `json:"user_id"`
}

type sessionResponse struct {
	apiResponse
	UserId       int    `json:"user_id"`
	Username     string `json:"username"`
	Phone        string `json:"phone"`
	ProfilePhoto string `json:"profile_photo"`
}

type profileResponse struct {
	apiResponse
	Username     string `json:"username"`
	Phone        string `json:"phone"`
	ProfilePhoto string `json:"profile_photo"`
}

type searchUsersResponse struct {
	apiResponse
	Users []types.Contact `json:"users"`
}

type addContactResponse struct {
	apiResponse
	Contact types.Contact `json:"contact"`
}

type contactsResponse struct {
	apiResponse
	Contacts []types.Contact `json:"contacts"`
}

type messagesResponse struct {
	apiResponse
	Messages []types.Message `json:"messages"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func contactFromUser(u database.User, isContact bool, unreadCount int) types.Contact {
	lastSeen := u.LastSeen
	return types.Contact{
		Id:           u.Id,
		Username:     u.Username,
		Phone:        u.Phone,
		ProfilePhoto: u.ProfilePhoto,
		IsOnline:     u.IsOnline,
		LastSeen:     &lastSeen,
		IsContact:    isContact,
		UnreadCount:  unreadCount,
	}
}

func wireMessage(m database.Message) types.Message {
	return types.Message{
		Id:          m.Id,
		SenderId:    m.SenderId,
		ReceiverId:  m.ReceiverId,
		MessageText: m.MessageText,
		IsSeen:      m.IsSeen,
		SentAt:      m.SentAt,
		SenderName:  m.SenderName,
		SenderPhoto: m.SenderPhoto,
	}
}

func (s *TeleTokApp) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "Invalid request format")
		return
	}

	if req.Username == "" || req.Phone == "" || req.Password == "" {
		s.fail(w, "All fields are required")
		return
	}

	if !validPhone(req.Phone) {
		s.fail(w, "Invalid Ethiopian phone number format")
		return
	}

	if _, err := s.db.GetAccountByPhone(req.Phone); err == nil {
		s.fail(w, "Phone number already registered")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.log.Println("phone lookup:", err)
		s.fail(w, "Database error occurred")
		return
	}

	taken, err := s.db.UsernameTaken(req.Username, 0)
	if err != nil {
		s.log.Println("username lookup:", err)
		s.fail(w, "Database error occurred")
		return
	}
	if taken {
		s.fail(w, "Username already taken")
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.log.Println("hash password:", err)
		s.fail(w, "Registration failed")
		return
	}

	newUser, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		Phone:        req.Phone,
		PasswordHash: pwdHash,
	})
	if err != nil {
		s.log.Println("create account:", err)
		s.fail(w, "Registration failed due to database error")
		return
	}

	token, err := s.createJwtForSession(newUser.Id, defaultJwtExpiration)
	if err != nil {
		s.log.Println("create session token:", err)
		s.fail(w, "Registration failed")
		return
	}
	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, sessionResponse{
		apiResponse:  apiResponse{Success: true, Message: "Registration successful"},
		UserId:       newUser.Id,
		Username:     newUser.Username,
		Phone:        newUser.Phone,
		ProfilePhoto: newUser.ProfilePhoto,
	})
}

func (s *TeleTokApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "Invalid request format")
		return
	}

	if req.Phone == "" || req.Password == "" {
		s.fail(w, "Phone and password are required")
		return
	}

	dbUser, err := s.db.GetAccountByPhone(req.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.fail(w, "Invalid phone or password")
			return
		}
		s.log.Println("account lookup:", err)
		s.fail(w, "Database error occurred")
		return
	}

	if !verifyPassword(dbUser.PasswordHash, req.Password) {
		s.fail(w, "Invalid phone or password")
		return
	}

	if err := s.db.SetPresence(dbUser.Id, true, time.Now().UTC()); err != nil {
		s.log.Println("update presence:", err)
		s.fail(w, "Login failed due to database error")
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		s.log.Println("create session token:", err)
		s.fail(w, "Login failed")
		return
	}
	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, sessionResponse{
		apiResponse:  apiResponse{Success: true},
		UserId:       dbUser.Id,
		Username:     dbUser.Username,
		Phone:        dbUser.Phone,
		ProfilePhoto: dbUser.ProfilePhoto,
	})
}

// logout succeeds even without a valid session; with one, the user
// record and presence table are flipped offline before the cookie is
// expired.
func (s *TeleTokApp) logout(w http.ResponseWriter, r *http.Request) {
	if tokenCookie, err := r.Cookie(tokenCookieKey); err == nil {
		if userId, err := s.extractUserIdFromToken(tokenCookie.Value); err == nil {
			if err := s.db.SetPresence(userId, false, time.Now().UTC()); err != nil {
				s.log.Println("update presence:", err)
			}

			s.gw.NotifyLogout(userId)
		}
	}

	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	s.writeJson(w, http.StatusOK, apiResponse{Success: true, Message: "Logged out successfully"})
}

func (s *TeleTokApp) getProfile(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.fail(w, "Not authenticated")
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.fail(w, "User not found")
			return
		}
		s.log.Println("get profile:", err)
		s.fail(w, "Failed to get profile")
		return
	}

	s.writeJson(w, http.StatusOK, profileResponse{
		apiResponse:  apiResponse{Success: true},
		Username:     user.Username,
		Phone:        user.Phone,
		ProfilePhoto: user.ProfilePhoto,
	})
}

func (s *TeleTokApp) searchUsers(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.fail(w, "Not authenticated")
		return
	}

	query := r.URL.Query().Get("q")
	if len(query) < 2 {
		s.fail(w, "Query too short")
		return
	}

	users, err := s.db.SearchAccounts(query, userId, searchLimit)
	if err != nil {
		s.log.Println("search accounts:", err)
		s.fail(w, "Search failed")
		return
	}

	results := make([]types.Contact, 0, len(users))
	for _, u := range users {
		isContact, err := s.db.ContactExists(userId, u.Id)
		if err != nil {
			s.log.Println("contact lookup:", err)
			s.fail(w, "Search failed")
			return
		}

		results = append(results, contactFromUser(u, isContact, 0))
	}

	s.writeJson(w, http.StatusOK, searchUsersResponse{
		apiResponse: apiResponse{Success: true},
		Users:       results,
	})
}

func (s *TeleTokApp) addContact(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.fail(w, "Not authenticated")
		return
	}

	var req AddContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContactId == 0 {
		s.fail(w, "Invalid request")
		return
	}

	exists, err := s.db.ContactExists(userId, req.ContactId)
	if err != nil {
		s.log.Println("contact lookup:", err)
		s.fail(w, "Failed to add contact")
		return
	}
	if exists {
		s.fail(w, "Already connected")
		return
	}

	if err := s.db.CreateContactPair(userId, req.ContactId); err != nil {
		s.log.Println("create contact pair:", err)
		s.fail(w, "Failed to add contact")
		return
	}

	contactUser, err := s.db.GetAccountById(req.ContactId)
	if err != nil {
		s.fail(w, "Contact user not found")
		return
	}

	s.writeJson(w, http.StatusOK, addContactResponse{
		apiResponse: apiResponse{Success: true},
		Contact:     contactFromUser(contactUser, false, 0),
	})
}

func (s *TeleTokApp) getContacts(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.fail(w, "Not authenticated")
		return
	}

	entries, err := s.db.ListContacts(userId)
	if err != nil {
		s.log.Println("list contacts:", err)
		s.fail(w, "Failed to get contacts")
		return
	}

	contacts := make([]types.Contact, 0, len(entries))
	for _, e := range entries {
		contacts = append(contacts, contactFromUser(e.User, false, e.UnreadCount))
	}

	s.writeJson(w, http.StatusOK, contactsResponse{
		apiResponse: apiResponse{Success: true},
		Contacts:    contacts,
	})
}

// getMessages returns the full thread with the other user ordered by
// send time, and marks the caller's unseen messages from that user as
// seen as a side effect of reading.
func (s *TeleTokApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.fail(w, "Not authenticated")
		return
	}

	otherId, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		s.fail(w, "Invalid request")
		return
	}

	dbMessages, err := s.db.GetConversation(userId, otherId)
	if err != nil {
		s.log.Println("get conversation:", err)
		s.fail(w, "Failed to get messages")
		return
	}

	if err := s.db.MarkConversationSeen(otherId, userId); err != nil {
		s.log.Println("mark conversation seen:", err)
		s.fail(w, "Failed to get messages")
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, wireMessage(m))
	}

	s.writeJson(w, http.StatusOK, messagesResponse{
		apiResponse: apiResponse{Success: true},
		Messages:    messages,
	})
}

// deleteMessage authorizes on the caller-supplied user id matching the
// message's sender; only the sender may delete a message.
func (s *TeleTokApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	var req DeleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "Invalid request format")
		return
	}

	if req.MessageId == "" || req.UserId == "" {
		s.fail(w, "Missing message_id or user_id")
		return
	}

	messageId, err := strconv.Atoi(req.MessageId.String())
	if err != nil {
		s.fail(w, "Invalid message_id or user_id format")
		return
	}
	userId, err := strconv.Atoi(req.UserId.String())
	if err != nil {
		s.fail(w, "Invalid message_id or user_id format")
		return
	}

	msg, err := s.db.GetMessageById(messageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.fail(w, "Message not found")
			return
		}
		s.log.Println("get message:", err)
		s.fail(w, "Failed to delete message")
		return
	}

	if msg.SenderId != userId {
		s.fail(w, "Unauthorized to delete this message")
		return
	}

	if err := s.db.DeleteMessage(messageId); err != nil {
		s.log.Println("delete message:", err)
		s.fail(w, "Failed to delete message")
		return
	}

	s.writeJson(w, http.StatusOK, apiResponse{Success: true, Message: "Message deleted successfully"})
}

func (s *TeleTokApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.writeJson(w, http.StatusInternalServerError, healthResponse{
			Status:    "unhealthy",
			Database:  "disconnected",
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	s.writeJson(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Database:  "connected",
		Timestamp: time.Now().UTC(),
	})
}

func (s *TeleTokApp) serveWs(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserId(r.Context()); !ok {
		s.fail(w, "Not authenticated")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	connId, err := shortid.Generate()
	if err != nil {
		s.log.Println("generate connection id:", err)
		conn.Close()
		return
	}

	client := gateway.NewClient(connId, conn, s.gw, s.log)
	s.gw.RegisterChan <- client
	go client.Write()
	go client.Read()
}

// trimmedFormValue returns the trimmed form value, treating
// whitespace-only input as absent.
func trimmedFormValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
