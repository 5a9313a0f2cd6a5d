package templog

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWS streams readings to one WebSocket client until it
// disconnects.
func (m *MonitorServer) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := m.broker.Subscribe()
	defer m.broker.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		// Drain client frames so we notice the close handshake.
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case s := <-ch:
			if err := conn.WriteJSON(s); err != nil {
				return
			}
		}
	}
}
