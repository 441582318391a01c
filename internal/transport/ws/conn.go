package ws

import (
	"sync"
	"time"

	"github.com/cwrk-planet/collab-service/internal/realtime"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

type wsConn struct {
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
	once   sync.Once
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Send serializes writers; the registry and the session goroutine may
// both push frames at the same connection.
func (c *wsConn) Send(ev realtime.Event) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	return c.conn.WriteJSON(ev)
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.closed) })

	return c.conn.Close()
}
