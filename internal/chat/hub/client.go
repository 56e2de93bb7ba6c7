package hub

import (
	"log"
	"net"
	"sync"
	"time"

	"roomly/internal/chat/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// tuning parameters
	writeWait             = 10 * time.Second    // time allowed to write a message to the peer
	pongWait              = 60 * time.Second    // time allowed to read the next pong message from the peer
	pingInterval          = (pongWait * 9) / 10 // send pings to peer with this period
	defaultMaxMessageSize = 16 * 1024           // max inbound frame size unless configured
	defaultSendBufSize    = 256                 // per-connection outbound buffer unless configured
	sendTimeout           = 2 * time.Second     // timeout for enqueuing outbound frames
)

// Client is one websocket connection. A user may hold several of these;
// presence and fan-out are keyed by the logical identity, not the socket.
type Client struct {
	ID     string
	userID string
	conn   *websocket.Conn
	hub    *Hub
	egress chan event.Envelope

	joined    bool // set once the join-room handshake succeeded
	closeOnce sync.Once
	done      chan struct{}
}

func newClient(userID string, conn *websocket.Conn, h *Hub) *Client {
	return &Client{
		ID:     uuid.New().String(),
		userID: userID,
		conn:   conn,
		hub:    h,
		egress: make(chan event.Envelope, h.egressBuf),
		done:   make(chan struct{}),
	}
}

// UserID returns the authenticated identity this connection belongs to.
func (c *Client) UserID() string {
	return c.userID
}

// readPump processes inbound frames to completion, one at a time, so each
// connection's events are handled in arrival order. The deferred disconnect
// is the authoritative presence cleanup path and runs on any exit, abrupt
// transport termination included.
func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.close()
	}()

	c.conn.SetReadLimit(c.hub.maxFrame)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env event.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				log.Printf("client %s disconnected", c.ID)
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				log.Printf("client %s timed out", c.ID)
				return
			}
			log.Printf("error reading from client %s: %v", c.ID, err)
			return
		}

		c.hub.handleEvent(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case env, ok := <-c.egress:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				log.Printf("write error for client %s: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Printf("ping error for client %s: %v", c.ID, err)
				return
			}
		}
	}
}

// send enqueues a frame for delivery. Delivery is best-effort: a connection
// that cannot drain its buffer within the send timeout is dropped, and the
// durable store remains the recovery path for anything it missed.
func (c *Client) send(env event.Envelope) {
	select {
	case c.egress <- env:
	case <-c.done:
	case <-time.After(sendTimeout):
		log.Printf("egress full, disconnecting client %s", c.ID)
		c.hub.disconnect(c)
		c.close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
