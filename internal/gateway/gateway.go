package gateway

import (
	"context"
	"log"

	"github.com/behailu412/teletok/internal/database"
	"github.com/behailu412/teletok/internal/stats"
	"github.com/behailu412/teletok/internal/types"
)

type stopReq struct {
	done chan struct{}
}

// Gateway accepts realtime connections, owns the presence table and the
// per-user broadcast groups, and routes inbound events to the store and
// to outbound broadcasts. All group and presence mutation happens on the
// Run goroutine; handlers may block on database calls.
type Gateway struct {
	log            *log.Logger
	db             database.TeleTokRepository
	stats          stats.StatsProvider
	presence       *PresenceTable
	clients        map[*Client]struct{}
	groups         map[int]map[*Client]struct{}
	RegisterChan   chan *Client
	deregisterChan chan *Client
	eventChan      chan *ClientEvent
	logoutChan     chan int
	stop           chan stopReq
}

func NewGateway(logger *log.Logger, db database.TeleTokRepository, su stats.StatsProvider) (*Gateway, error) {
	gw := &Gateway{
		log:            logger,
		db:             db,
		stats:          su,
		presence:       NewPresenceTable(),
		clients:        make(map[*Client]struct{}),
		groups:         make(map[int]map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deregisterChan: make(chan *Client, 256),
		eventChan:      make(chan *ClientEvent, 256),
		logoutChan:     make(chan int, 16),
		stop:           make(chan stopReq),
	}

	su.RegisterMetric("NumActiveClients")
	su.RegisterMetric("NumOnlineUsers")
	su.RegisterMetric("NumMessagesSent")
	su.RegisterMetric("NumStatusBroadcasts")

	return gw, nil
}

func (g *Gateway) Run() {
	for {
		select {
		case c := <-g.RegisterChan:
			g.addClient(c)
		case c := <-g.deregisterChan:
			g.removeClient(c)
		case ev := <-g.eventChan:
			g.dispatch(ev)
		case userId := <-g.logoutChan:
			g.handleLogout(userId)
		case req := <-g.stop:
			g.log.Println("closing client connections")
			for c := range g.clients {
				c.stopClient()
			}
			close(req.done)
			return
		}
	}
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}
	select {
	case g.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotifyLogout drops the user's presence entry and broadcasts the
// offline transition. Called by the HTTP logout handler, which updates
// the backing user record itself.
func (g *Gateway) NotifyLogout(userId int) {
	select {
	case g.logoutChan <- userId:
	default:
		g.log.Printf("logout channel full, dropping logout for user %d", userId)
	}
}

// IsOnline reports whether the user holds a live connection.
func (g *Gateway) IsOnline(userId int) bool {
	return g.presence.IsOnline(userId)
}

func (g *Gateway) dispatch(ev *ClientEvent) {
	switch {
	case ev.Online != nil:
		g.handleUserOnline(ev)
	case ev.Join != nil:
		g.handleJoinRoom(ev)
	case ev.Send != nil:
		g.handleSendMessage(ev)
	case ev.Seen != nil:
		g.handleMessageSeen(ev)
	case ev.Typing != nil:
		g.handleTyping(ev)
	default:
		g.log.Println("dropping event with unknown kind")
	}
}

func (g *Gateway) addClient(c *Client) {
	g.log.Printf("adding connection %q", c.id)
	g.clients[c] = struct{}{}
	g.stats.Incr("NumActiveClients")
	c.queueEvent(connectedEvent())
}

// removeClient handles the Closed transition: reverse lookup by
// connection id, clear the presence entry, mirror the offline state to
// the user record and broadcast it. Connections that never identified
// produce no presence change.
func (g *Gateway) removeClient(c *Client) {
	if _, ok := g.clients[c]; !ok {
		return
	}

	g.log.Printf("removing connection %q", c.id)
	delete(g.clients, c)
	g.stats.Decr("NumActiveClients")

	for userId, group := range g.groups {
		if _, ok := group[c]; ok {
			delete(group, c)
			if len(group) == 0 {
				delete(g.groups, userId)
			}
		}
	}

	userId, ok := g.presence.SetOffline(c.id)
	if !ok {
		return
	}

	g.stats.Decr("NumOnlineUsers")

	lastSeen := Now()
	if err := g.db.SetPresence(userId, false, lastSeen); err != nil {
		// presence entry is already gone; the user record stays stale
		g.log.Println("update offline status:", err)
	}

	g.broadcastAll(offlineStatusEvent(userId, lastSeen))
}

// handleUserOnline performs the Connected to Identified transition: the
// presence entry is recorded and the connection joins the broadcast
// group keyed by its user id.
func (g *Gateway) handleUserOnline(ev *ClientEvent) {
	userId := ev.Online.UserId
	if userId == 0 {
		return
	}

	replaced := g.presence.SetOnline(userId, ev.client.id)
	if !replaced {
		g.stats.Incr("NumOnlineUsers")
	}
	g.joinGroup(userId, ev.client)

	if err := g.db.SetPresence(userId, true, Now()); err != nil {
		// in-memory presence is kept even when the mirror write fails
		g.log.Println("update online status:", err)
	}

	g.broadcastAll(onlineStatusEvent(userId))
}

func (g *Gateway) handleJoinRoom(ev *ClientEvent) {
	if ev.Join.UserId == 0 {
		return
	}

	g.joinGroup(ev.Join.UserId, ev.client)
}

// handleSendMessage runs the six-step send handshake. The message is
// persisted before any fan-out; steps after persistence are not
// transactional with respect to each other.
func (g *Gateway) handleSendMessage(ev *ClientEvent) {
	send := ev.Send
	if send.SenderId == 0 || send.ReceiverId == 0 || send.MessageText == "" {
		return
	}

	msg, err := g.db.CreateMessage(send.SenderId, send.ReceiverId, send.MessageText)
	if err != nil {
		g.log.Println("save message:", err)
		return
	}

	full, err := g.db.GetMessageWithSender(msg.Id)
	if err != nil {
		g.log.Println("load message with sender:", err)
		return
	}

	payload := wireMessage(full)

	// new message to the receiver's group
	g.broadcastGroup(send.ReceiverId, &ServerEvent{NewMessage: payload})

	// delivery confirmation to the originating connection only
	ev.client.queueEvent(&ServerEvent{MessageSent: payload})

	// echo to the sender's group so other views reflect the send
	g.broadcastGroup(send.SenderId, &ServerEvent{NewMessageSelf: payload})

	g.stats.Incr("NumMessagesSent")

	// delivered while online implies seen
	if g.presence.IsOnline(send.ReceiverId) {
		if err := g.db.MarkMessageSeen(msg.Id); err != nil {
			g.log.Println("mark message seen:", err)
			return
		}

		g.broadcastGroup(send.SenderId, messageStatusEvent(msg.Id, true))
	}
}

// handleMessageSeen flips the seen flag and notifies the stored sender's
// group. The caller-supplied user id is required but not checked against
// the message's receiver, matching the behaviour this service replaced.
func (g *Gateway) handleMessageSeen(ev *ClientEvent) {
	seen := ev.Seen
	if seen.MessageId == 0 || seen.UserId == 0 {
		return
	}

	msg, err := g.db.GetMessageById(seen.MessageId)
	if err != nil {
		g.log.Println("load message:", err)
		return
	}

	if err := g.db.MarkMessageSeen(msg.Id); err != nil {
		g.log.Println("mark message seen:", err)
		return
	}

	g.broadcastGroup(msg.SenderId, messageStatusEvent(msg.Id, true))
}

func (g *Gateway) handleTyping(ev *ClientEvent) {
	typing := ev.Typing
	if typing.SenderId == 0 || typing.ReceiverId == 0 {
		return
	}

	g.broadcastGroup(typing.ReceiverId, &ServerEvent{
		UserTyping: &UserTyping{
			SenderId: typing.SenderId,
			IsTyping: typing.IsTyping,
		},
	})
}

func (g *Gateway) handleLogout(userId int) {
	if _, ok := g.presence.Drop(userId); !ok {
		return
	}

	g.stats.Decr("NumOnlineUsers")
	g.broadcastAll(offlineStatusEvent(userId, Now()))
}

func (g *Gateway) joinGroup(userId int, c *Client) {
	if g.groups[userId] == nil {
		g.groups[userId] = make(map[*Client]struct{})
	}
	g.groups[userId][c] = struct{}{}
}

// broadcastAll fans an event out to every connection. Presence changes
// are deliberately not scoped to contacts.
func (g *Gateway) broadcastAll(ev *ServerEvent) {
	for c := range g.clients {
		c.queueEvent(ev)
	}

	g.stats.Incr("NumStatusBroadcasts")
}

func (g *Gateway) broadcastGroup(userId int, ev *ServerEvent) {
	for c := range g.groups[userId] {
		c.queueEvent(ev)
	}
}

func wireMessage(m database.Message) *types.Message {
	return &types.Message{
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
