package ws

import (
	"encoding/json"
	"time"

	"tamv/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
	Done   chan struct{}
}

func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    hub,
		Done:   make(chan struct{}),
	}
}

// Run registers the client and blocks until the connection closes.
func (c *Client) Run() {
	c.Hub.register(c)
	go c.writePump()

	ready, _ := json.Marshal(Envelope{Type: MsgReady})
	select {
	case c.Send <- ready:
	default:
	}

	c.readPump()
	<-c.Done
}

//read
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}
		var in inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			c.reply(Envelope{Type: MsgError, Data: "invalid message"})
			continue
		}
		if in.Type == MsgPing {
			c.reply(Envelope{Type: MsgPong})
		}
	}
}

func (c *Client) reply(e Envelope) {
	msg, err := json.Marshal(e)
	if err != nil {
		return
	}
	// Send закрывается только после выхода из readPump
	select {
	case c.Send <- msg:
	default:
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		close(c.Done)
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "user_id", c.UserID, "error", err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
