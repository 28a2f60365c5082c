package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/share"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/transfer"
)

// Sender is what the send endpoint needs from share.Service.
type Sender interface {
	Send(ctx context.Context, addr string, container *attachment.Container, selfShare bool) (transfer.Metadata, error)
}

type TextInput struct {
	Title string `json:"title"`
	Body  string `json:"body" binding:"required"`
}

type WifiInput struct {
	SSID     string `json:"ssid" binding:"required"`
	Password string `json:"password"`
	Hidden   bool   `json:"hidden"`
}

type SendRequest struct {
	Address   string      `json:"address" binding:"required"`
	Texts     []TextInput `json:"texts"`
	Files     []string    `json:"files"`
	Wifi      []WifiInput `json:"wifi"`
	SelfShare bool        `json:"selfShare"`
}

type SendResponse struct {
	Status           transfer.Status `json:"status"`
	Token            string          `json:"token,omitempty"`
	TransferredBytes int64           `json:"transferredBytes"`
	TotalBytes       int64           `json:"totalBytes"`
}

func (r *SendRequest) container() *attachment.Container {
	b := &attachment.Builder{}
	for _, t := range r.Texts {
		b.AddText(t.Body, t.Title)
	}
	for _, f := range r.Files {
		b.AddFile(f)
	}
	for _, w := range r.Wifi {
		b.AddWifi(w.SSID, w.Password, w.Hidden)
	}
	return b.Build()
}

type SendController struct {
	sender Sender
}

func NewSendController(sender Sender) *SendController {
	return &SendController{sender: sender}
}

// HandleSend shares with a peer and answers once the session finished.
// Closing the request cancels the share.
func (s *SendController) HandleSend(c *gin.Context) {
	var request SendRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}

	m, err := s.sender.Send(c.Request.Context(), request.Address, request.container(), request.SelfShare)
	response := SendResponse{
		Status:           m.Status,
		Token:            m.Token,
		TransferredBytes: m.TransferredBytes,
		TotalBytes:       m.TotalBytes,
	}
	switch {
	case errors.Is(err, share.ErrNothingToSend):
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Nothing to send"))
	case m.Status == transfer.StatusMediaUnavailable:
		c.JSON(http.StatusBadRequest, gin.H{"error": errorText(err, "Files unavailable"), "data": response})
	case m.Status == transfer.StatusFailedToInitiateOutgoingConnection:
		c.JSON(http.StatusBadGateway, gin.H{"error": errorText(err, "Peer unreachable"), "data": response})
	default:
		if err != nil {
			tool.DefaultLogger.Warnf("[API] Send to %s ended with %v", request.Address, err)
		}
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(response))
	}
}

func errorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}
