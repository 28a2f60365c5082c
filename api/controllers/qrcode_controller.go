package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/moyoez/sharesession/share"
	"github.com/moyoez/sharesession/tool"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// GenerateQRCode returns a PNG QR code image. Compatible with api.qrserver.com create-qr-code API:
// GET ?size=200x200&data=<url-encoded-content>
func GenerateQRCode(c *gin.Context) {
	data := c.Query("data")
	if data == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: data"))
		return
	}
	writeQRCode(c, data)
}

// ShareAddressQRCode encodes the address peers should dial to reach this
// device. ?interface=<name> picks an interface, otherwise the first usable
// one is used.
func ShareAddressQRCode(port int) gin.HandlerFunc {
	return func(c *gin.Context) {
		want := c.Query("interface")
		for _, info := range share.GetNetworkInfos(port) {
			if want == "" || info.InterfaceName == want {
				writeQRCode(c, info.ShareAddress)
				return
			}
		}
		c.JSON(http.StatusNotFound, tool.FastReturnError("No usable network interface"))
	}
}

func writeQRCode(c *gin.Context, data string) {
	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := qrcode.Encode(data, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
