package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	// Token auth happens in middleware before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// allowed tables for client subscriptions.
var subscribableTables = map[string]bool{
	"orders":   true,
	"messages": true,
}

// WSHandler upgrades the request to a WebSocket and streams change events
// for one table+filter pair until the client disconnects. The subscription
// is always released on teardown.
func WSHandler(hub *Hub, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.Query("table")
		if !subscribableTables[table] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown table"})
			return
		}
		filter := Filter{Column: c.Query("filter_col"), Value: c.Query("filter_val")}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		sub := hub.Subscribe(table, filter)
		defer sub.Unsubscribe()

		// Reader goroutine: we never expect client frames, but reading is
		// the only way to observe the peer closing.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case change, ok := <-sub.C:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(change); err != nil {
					return
				}
			case <-done:
				return
			case <-c.Request.Context().Done():
				return
			}
		}
	}
}
