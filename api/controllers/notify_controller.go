package controllers

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/sharesession/api/notifyhub"
	"github.com/moyoez/sharesession/share"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/types"
)

const (
	NotifyTypeSnapshot = "sessions_snapshot"

	notifyWSPongWait   = 60 * time.Second
	notifyWSPingPeriod = 50 * time.Second
	notifyWSWriteWait  = 5 * time.Second
)

var notifyWSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // OnlyAllowLocal middleware already restricts to localhost
	},
}

// HandleNotifyWS upgrades the request to WebSocket, sends a snapshot of the
// registered sessions and then streams every notification from hub.
func HandleNotifyWS(hub *notifyhub.Hub, registry *share.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := notifyWSUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			tool.DefaultLogger.Debugf("[NotifyWS] Upgrade failed: %v", err)
			return
		}
		defer func() {
			if err := conn.Close(); err != nil {
				tool.DefaultLogger.Debugf("[NotifyWS] Failed to close WebSocket connection: %v", err)
			}
		}()

		if registry != nil {
			snapshot, err := sonic.Marshal(&types.Notification{
				Type: NotifyTypeSnapshot,
				Data: map[string]any{"sessions": registry.List()},
			})
			if err == nil {
				_ = conn.SetWriteDeadline(time.Now().Add(notifyWSWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
					return
				}
				_ = conn.SetWriteDeadline(time.Time{})
			}
		}

		hub.Register(conn)
		defer hub.Unregister(conn)

		_ = conn.SetReadDeadline(time.Now().Add(notifyWSPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(notifyWSPongWait))
		})
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			ticker := time.NewTicker(notifyWSPingPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(notifyWSWriteWait)); err != nil {
						return
					}
				}
			}
		}()

		// Reading only detects the client going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
