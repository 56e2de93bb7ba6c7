package hub

import (
	"context"
	"errors"
	"log"
	"net/http"

	"roomly/internal/chat/event"
	"roomly/internal/chat/service"
	"roomly/internal/common"
	"roomly/internal/config"

	"github.com/gorilla/websocket"
)

// Hub is the realtime channel server: it owns the presence registry, decodes
// and routes inbound events, and fans persisted messages out to the rooms of
// both participants. Every event of a given connection is processed to
// completion before the next one; different connections interleave freely.
type Hub struct {
	registry  *Registry
	chat      service.ChatService
	upgrader  websocket.Upgrader
	egressBuf int
	maxFrame  int64
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewHub(chat service.ChatService, cnf *config.Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry:  NewRegistry(),
		chat:      chat,
		egressBuf: cnf.Chat.EgressBuffer,
		maxFrame:  int64(cnf.Chat.MaxMessageSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	if h.egressBuf <= 0 {
		h.egressBuf = defaultSendBufSize
	}
	if h.maxFrame <= 0 {
		h.maxFrame = defaultMaxMessageSize
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cnf.Chat.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		return set[r.Header.Get("Origin")]
	}
}

// Registry exposes the presence map for read-side consumers.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeWS authenticates the upgrade request and starts the connection pumps.
// The connection is not visible to anyone until its join-room event arrives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := common.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}
	claims, err := common.ValidToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := newClient(claims.UserID, conn, h)
	log.Printf("client %s connected for user %s", c.ID, c.userID)

	go c.writePump()
	go c.readPump()
}

// Close drops every connection; used on graceful shutdown.
func (h *Hub) Close() {
	h.cancel()
	for _, c := range h.registry.AllClients() {
		c.close()
	}
}

func (h *Hub) handleEvent(c *Client, env event.Envelope) {
	switch env.Event {
	case event.EventJoinRoom:
		h.handleJoin(c, env)
	case event.EventLeaveRoom:
		h.handleLeave(c, env)
	case event.EventSendMessage:
		h.handleSend(c, env)
	case event.EventTyping:
		h.handleTyping(c, env)
	case event.EventMessageRead:
		h.handleRead(c, env)
	default:
		log.Printf("unknown event %q from client %s", env.Event, c.ID)
		c.send(event.NewError("unknown-event", "unknown event type"))
	}
}

func (h *Hub) handleJoin(c *Client, env event.Envelope) {
	p, err := event.DecodeJoinRoom(env.Payload)
	if err != nil {
		c.send(event.NewError("bad-payload", err.Error()))
		return
	}
	if p.UserID != c.userID {
		c.send(event.NewError("identity-mismatch", "cannot join another user's room"))
		return
	}

	if !c.joined {
		first := h.registry.Add(c)
		c.joined = true
		if first {
			h.broadcastExcept(c.userID, mustEnvelope(event.EventUserOnline, event.UserOnline{UserID: c.userID}))
		}
	}

	// Reply with the full online snapshot, caller included.
	c.send(mustEnvelope(event.EventOnlineUsers, event.OnlineUsers{UserIDs: h.registry.OnlineUserIDs()}))
}

func (h *Hub) handleLeave(c *Client, env event.Envelope) {
	p, err := event.DecodeLeaveRoom(env.Payload)
	if err != nil {
		c.send(event.NewError("bad-payload", err.Error()))
		return
	}
	if p.UserID != c.userID {
		c.send(event.NewError("identity-mismatch", "cannot leave another user's room"))
		return
	}

	c.joined = false
	if last := h.registry.Remove(c); last {
		h.broadcastExcept(c.userID, mustEnvelope(event.EventUserOffline, event.UserOffline{UserID: c.userID}))
	}
}

// disconnect is the authoritative cleanup path; it runs on explicit leave,
// abrupt transport termination and slow-consumer eviction alike. The
// registry tolerates double removal, so racing callers are safe.
func (h *Hub) disconnect(c *Client) {
	if last := h.registry.Remove(c); last {
		h.broadcastExcept(c.userID, mustEnvelope(event.EventUserOffline, event.UserOffline{UserID: c.userID}))
	}
	log.Printf("client %s removed for user %s", c.ID, c.userID)
}

func (h *Hub) handleSend(c *Client, env event.Envelope) {
	p, err := event.DecodeSendMessage(env.Payload)
	if err != nil {
		c.send(event.NewError("bad-payload", err.Error()))
		return
	}

	// The sender identity comes from the connection, never the payload.
	msg, err := h.chat.SendMessage(h.ctx, service.SendMessageInput{
		SenderID:    c.userID,
		ReceiverID:  p.ReceiverID,
		Content:     p.Content,
		MessageType: p.MessageType,
		ListingID:   p.ListingID,
	})
	if err != nil {
		// Scoped to the originator; nothing was broadcast.
		c.send(event.NewError("send-failed", sendErrorMessage(err)))
		return
	}

	// The store write has completed; fan out to every connection of both
	// participants so all their devices converge.
	out := mustEnvelope(event.EventReceiveMessage, msg)
	h.sendToUser(msg.SenderID, out)
	if msg.ReceiverID != msg.SenderID {
		h.sendToUser(msg.ReceiverID, out)
	}
}

func (h *Hub) handleTyping(c *Client, env event.Envelope) {
	p, err := event.DecodeTyping(env.Payload)
	if err != nil {
		c.send(event.NewError("bad-payload", err.Error()))
		return
	}

	// Fire-and-forget relay; no persistence, no confirmation.
	h.sendToUser(p.ReceiverID, mustEnvelope(event.EventUserTyping, event.UserTyping{
		SenderID: c.userID,
		IsTyping: p.IsTyping,
	}))
}

func (h *Hub) handleRead(c *Client, env event.Envelope) {
	p, err := event.DecodeMessageRead(env.Payload)
	if err != nil {
		c.send(event.NewError("bad-payload", err.Error()))
		return
	}

	if err := h.chat.MarkMessageRead(h.ctx, c.userID, p.MessageID); err != nil {
		c.send(event.NewError("read-failed", err.Error()))
	}
}

func (h *Hub) sendToUser(userID string, env event.Envelope) {
	for _, c := range h.registry.ClientsFor(userID) {
		c.send(env)
	}
}

func (h *Hub) broadcastExcept(userID string, env event.Envelope) {
	for _, c := range h.registry.AllClients() {
		if c.userID == userID {
			continue
		}
		c.send(env)
	}
}

// sendErrorMessage keeps store and driver internals server-side: validation
// failures carry their sentinel text, everything else gets a generic message.
func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrUnknownReceiver),
		errors.Is(err, service.ErrSenderRequired),
		errors.Is(err, service.ErrReceiverRequired),
		errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrInvalidType),
		errors.Is(err, common.ErrEmptyContent),
		errors.Is(err, common.ErrContentTooLong):
		return err.Error()
	default:
		return "failed to send message"
	}
}

func mustEnvelope(name string, payload any) event.Envelope {
	env, err := event.NewEnvelope(name, payload)
	if err != nil {
		log.Printf("failed to encode %s event: %v", name, err)
		return event.NewError("encode-failed", "failed to encode event")
	}
	return env
}
