// Package session is the client side of the realtime channel: one user's
// chat session state machine over the websocket, with the HTTP endpoints as
// snapshot source and send fallback.
package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"roomly/internal/chat/event"
	"roomly/internal/chat/service"
	"roomly/internal/dbmysql"

	"github.com/gorilla/websocket"
)

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

type LoadState int

const (
	LoadIdle LoadState = iota
	LoadInitial
	LoadReady
	LoadMore
)

const (
	// typingExpiry is the local staleness cutoff for typing indicators. The
	// server never emits a compensating typing(false) for a sender that
	// vanished, so the view applies its own timeout.
	typingExpiry = 5 * time.Second

	// nearBottomThreshold is how close to the newest message the viewer must
	// be for an incoming message to pull the view down.
	nearBottomThreshold = 80
)

// Conversation is the view state of the currently open thread.
type Conversation struct {
	PartnerID string
	Messages  []*dbmysql.Message
	State     LoadState
	HasMore   bool
}

// Controller coordinates the websocket channel, the HTTP fallback and local
// view state for one user's chat session.
type Controller struct {
	userID   string
	wsURL    string
	token    string
	api      API
	pageSize int

	mu        sync.Mutex
	state     ConnState
	conn      *websocket.Conn
	online    map[string]struct{}
	summaries []service.ConversationSummary
	active    *Conversation
	loading   bool
	typing    map[string]time.Time

	wmu sync.Mutex // serializes websocket writes
}

func NewController(userID, wsURL, token string, api API) *Controller {
	return &Controller{
		userID:   userID,
		wsURL:    wsURL,
		token:    token,
		api:      api,
		pageSize: service.DefaultPageSize,
		online:   make(map[string]struct{}),
		typing:   make(map[string]time.Time),
	}
}

// Connect dials the channel, joins the user's own room and starts the read
// loop. On failure the controller stays usable: sends fall back to HTTP.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.mu.Unlock()

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, c.wsURL+"?token="+c.token, nil)
	if err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.state = Connected
	c.mu.Unlock()

	if err := c.writeEvent(event.EventJoinRoom, event.JoinRoom{UserID: c.userID}); err != nil {
		c.Close()
		return err
	}

	go c.readLoop(conn)
	return nil
}

// Close tears the channel down; the session keeps its local state.
func (c *Controller) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = Disconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Controller) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) readLoop(conn *websocket.Conn) {
	for {
		var env event.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.state = Disconnected
			}
			c.mu.Unlock()
			return
		}
		c.HandleEvent(env)
	}
}

// HandleEvent merges one server event into local state.
func (c *Controller) HandleEvent(env event.Envelope) {
	switch env.Event {
	case event.EventOnlineUsers:
		var p event.OnlineUsers
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.mu.Lock()
		c.online = make(map[string]struct{}, len(p.UserIDs))
		for _, id := range p.UserIDs {
			c.online[id] = struct{}{}
		}
		c.mu.Unlock()

	case event.EventUserOnline:
		var p event.UserOnline
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.mu.Lock()
		c.online[p.UserID] = struct{}{}
		c.mu.Unlock()

	case event.EventUserOffline:
		var p event.UserOffline
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.mu.Lock()
		delete(c.online, p.UserID)
		delete(c.typing, p.UserID)
		c.mu.Unlock()

	case event.EventReceiveMessage:
		var msg dbmysql.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return
		}
		c.mergeMessage(&msg)

	case event.EventUserTyping:
		var p event.UserTyping
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		c.mu.Lock()
		if p.IsTyping {
			c.typing[p.SenderID] = time.Now()
		} else {
			delete(c.typing, p.SenderID)
		}
		c.mu.Unlock()

	case event.EventError:
		var p event.ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		log.Printf("channel error: %s (%s)", p.Message, p.Code)
	}
}

// mergeMessage appends a delivered message to the open thread only when it
// belongs there; for any other conversation only the summary moves, so a
// foreign thread never leaks into the open one.
func (c *Controller) mergeMessage(msg *dbmysql.Message) {
	partnerID := c.partnerOf(msg)

	c.mu.Lock()
	inActive := c.active != nil && c.active.PartnerID == partnerID
	if inActive {
		c.active.Messages = append(c.active.Messages, msg)
	}
	c.bumpSummary(msg, partnerID, inActive)
	c.mu.Unlock()

	// Reading the open thread live is a read action.
	if inActive && msg.ReceiverID == c.userID {
		_ = c.writeEvent(event.EventMessageRead, event.MessageRead{MessageID: msg.ID})
	}
}

// bumpSummary updates the conversation list entry for partnerID. The unread
// increment is an optimistic cache; OpenConversation reconciles it against
// the store. Caller holds c.mu.
func (c *Controller) bumpSummary(msg *dbmysql.Message, partnerID string, inActive bool) {
	incoming := msg.ReceiverID == c.userID
	for i := range c.summaries {
		if c.summaries[i].PartnerID != partnerID {
			continue
		}
		c.summaries[i].LastMessage = msg
		c.summaries[i].LastMessageAt = msg.CreatedAt
		if incoming && !inActive {
			c.summaries[i].UnreadCount++
		}
		return
	}

	summary := service.ConversationSummary{
		ConversationID: service.PairID(c.userID, partnerID),
		PartnerID:      partnerID,
		LastMessage:    msg,
		LastMessageAt:  msg.CreatedAt,
	}
	if incoming && !inActive {
		summary.UnreadCount = 1
	}
	c.summaries = append(c.summaries, summary)
}

func (c *Controller) partnerOf(msg *dbmysql.Message) string {
	if msg.SenderID == c.userID {
		return msg.ReceiverID
	}
	return msg.SenderID
}

// LoadConversations fetches the initial HTTP snapshot. A failed load leaves
// an empty list rather than blocking the view.
func (c *Controller) LoadConversations(ctx context.Context) error {
	summaries, err := c.api.Conversations(ctx)
	if err != nil {
		log.Printf("failed to load conversations: %v", err)
		return err
	}

	c.mu.Lock()
	c.summaries = summaries
	c.mu.Unlock()
	return nil
}

// OpenConversation makes partnerID the active thread and loads its newest
// page. The fetch marks the partner's messages read server-side, so the
// local unread count reconciles to zero here.
func (c *Controller) OpenConversation(ctx context.Context, partnerID string) error {
	c.mu.Lock()
	c.active = &Conversation{PartnerID: partnerID, State: LoadInitial}
	c.loading = false
	c.mu.Unlock()

	page, err := c.api.Messages(ctx, partnerID, 0, c.pageSize)
	if err != nil {
		c.mu.Lock()
		if c.active != nil && c.active.PartnerID == partnerID {
			c.active.State = LoadReady
		}
		c.mu.Unlock()
		log.Printf("failed to load messages with %s: %v", partnerID, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil || c.active.PartnerID != partnerID {
		return nil // another thread was opened meanwhile
	}
	c.active.Messages = page
	c.active.HasMore = len(page) == c.pageSize
	c.active.State = LoadReady
	for i := range c.summaries {
		if c.summaries[i].PartnerID == partnerID {
			c.summaries[i].UnreadCount = 0
		}
	}
	return nil
}

// LoadOlder fetches the next-older history window when the viewer hits the
// oldest loaded message. Concurrent loads for the same thread are
// suppressed.
func (c *Controller) LoadOlder(ctx context.Context) error {
	c.mu.Lock()
	if c.active == nil || c.active.State != LoadReady || !c.active.HasMore || c.loading {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	c.active.State = LoadMore
	partnerID := c.active.PartnerID
	offset := len(c.active.Messages)
	c.mu.Unlock()

	page, err := c.api.Messages(ctx, partnerID, offset, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if c.active == nil || c.active.PartnerID != partnerID {
		return nil
	}
	c.active.State = LoadReady
	if err != nil {
		log.Printf("failed to load older messages with %s: %v", partnerID, err)
		return err
	}

	c.active.Messages = append(page, c.active.Messages...)
	c.active.HasMore = len(page) == c.pageSize
	return nil
}

// Send emits over the channel when connected; otherwise it falls back to the
// HTTP path and appends the server-confirmed message itself, since no
// broadcast will reach a client that never joined.
func (c *Controller) Send(ctx context.Context, req SendRequest) (*dbmysql.Message, error) {
	c.mu.Lock()
	connected := c.state == Connected
	c.mu.Unlock()

	if connected {
		err := c.writeEvent(event.EventSendMessage, event.SendMessage{
			SenderID:    c.userID,
			ReceiverID:  req.ReceiverID,
			Content:     req.Content,
			MessageType: req.MessageType,
			ListingID:   req.ListingID,
		})
		if err == nil {
			// The persisted message arrives via receive-message.
			return nil, nil
		}
		log.Printf("channel send failed, falling back to HTTP: %v", err)
	}

	msg, err := c.api.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	c.mergeMessage(msg)
	return msg, nil
}

// Typing emits a fire-and-forget typing indicator; it is a no-op when the
// channel is down.
func (c *Controller) Typing(receiverID string, isTyping bool) {
	c.mu.Lock()
	connected := c.state == Connected
	c.mu.Unlock()
	if !connected {
		return
	}
	_ = c.writeEvent(event.EventTyping, event.Typing{ReceiverID: receiverID, IsTyping: isTyping})
}

// PartnerTyping reports whether the partner's typing indicator is still
// fresh under the local expiry.
func (c *Controller) PartnerTyping(partnerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.typing[partnerID]
	return ok && time.Since(t) < typingExpiry
}

func (c *Controller) IsOnline(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.online[userID]
	return ok
}

// Summaries returns a copy of the conversation list, most recent first.
func (c *Controller) Summaries() []service.ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]service.ConversationSummary, len(c.summaries))
	copy(out, c.summaries)
	return out
}

// Active returns a snapshot of the open thread, or nil.
func (c *Controller) Active() *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	snapshot := *c.active
	snapshot.Messages = append([]*dbmysql.Message(nil), c.active.Messages...)
	return &snapshot
}

// ShouldAutoScroll decides whether a newly arrived message pulls the view to
// the bottom: always for the viewer's own outgoing message, otherwise only
// when the viewer was already near the bottom, so reading history is never
// interrupted.
func (c *Controller) ShouldAutoScroll(distanceFromBottom int, ownMessage bool) bool {
	return ownMessage || distanceFromBottom <= nearBottomThreshold
}

func (c *Controller) writeEvent(name string, payload any) error {
	env, err := event.NewEnvelope(name, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(env)
}
