package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/sharesession/tool"
)

// OnlyAllowLocal lets through loopback clients and clients dialing from one
// of this machine's own IPv4 addresses.
func OnlyAllowLocal(c *gin.Context) {
	ip := c.ClientIP()
	if ip == "127.0.0.1" || ip == "::1" {
		c.Next()
		return
	}
	if _, ok := tool.GetLocalIPv4Set()[ip]; ok {
		c.Next()
		return
	}
	tool.DefaultLogger.Debugf("[API] Rejected non-local client %s", ip)
	c.AbortWithStatusJSON(http.StatusForbidden, tool.FastReturnError("Forbidden"))
}
