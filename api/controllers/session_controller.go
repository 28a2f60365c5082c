package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/sharesession/share"
	"github.com/moyoez/sharesession/tool"
)

// SessionController exposes the share registry.
type SessionController struct {
	registry *share.Registry
}

func NewSessionController(registry *share.Registry) *SessionController {
	return &SessionController{registry: registry}
}

// HandleList returns every session still in flight.
func (s *SessionController) HandleList(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(s.registry.List()))
}

func (s *SessionController) HandleGet(c *gin.Context) {
	entry, ok := s.registry.Get(c.Param("endpointId"))
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Session not found"))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(entry))
}

// HandleCancel asks a session to cancel. The final status arrives through
// the registry and the notify socket.
func (s *SessionController) HandleCancel(c *gin.Context) {
	endpointID := c.Param("endpointId")
	if !s.registry.Cancel(endpointID) {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Session not found"))
		return
	}
	tool.DefaultLogger.Infof("[API] Cancel requested for %s", endpointID)
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}
