package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/sharesession/api/notifyhub"
	"github.com/moyoez/sharesession/share"
	"github.com/moyoez/sharesession/tool"
)

// StatusInfo is served by GET /status.
type StatusInfo struct {
	Alias           string `json:"alias"`
	Running         bool   `json:"running"`
	NotifyWSEnabled bool   `json:"notify_ws_enabled"`
	NotifyClients   int    `json:"notify_clients"`
	Sessions        int    `json:"sessions"`
}

func UserStatus(alias string, registry *share.Registry, hub *notifyhub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := StatusInfo{
			Alias:           alias,
			Running:         true,
			NotifyWSEnabled: hub != nil,
			Sessions:        len(registry.List()),
		}
		if hub != nil {
			info.NotifyClients = hub.Len()
		}
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(info))
	}
}

// UserGetNetworkInfo lists local addresses with the share port filled in.
func UserGetNetworkInfo(port int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(share.GetNetworkInfos(port)))
	}
}
