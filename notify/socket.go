// Package notify forwards session notifications to a local helper process
// listening on a Unix domain socket.
package notify

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/types"
)

// MaxPayloadSize bounds one notification; it is written in a single chunk.
const MaxPayloadSize = 32 * 1024

var (
	// DefaultSocketPath is used when no socket path is configured.
	DefaultSocketPath = "/tmp/sharesession-notify.sock"
	// DefaultTimeout bounds dialing, writing and waiting for the reply.
	DefaultTimeout = 3 * time.Second

	ErrSocketNotFound  = errors.New("notify socket not found")
	ErrPayloadTooLarge = errors.New("notification payload too large")
)

// SocketNotifier writes each notification as a 4-byte little-endian length
// followed by its JSON, then reads the helper's JSON reply. A reply with a
// non-empty "error" field is a failure.
type SocketNotifier struct {
	Path    string
	Timeout time.Duration
}

func NewSocketNotifier(path string) *SocketNotifier {
	if path == "" {
		path = DefaultSocketPath
	}
	return &SocketNotifier{Path: path, Timeout: DefaultTimeout}
}

// Broadcast sends notification and logs failures. A missing socket only
// means no helper is running.
func (n *SocketNotifier) Broadcast(notification *types.Notification) {
	if err := n.Send(notification); err != nil {
		if errors.Is(err, ErrSocketNotFound) {
			tool.DefaultLogger.Debugf("[UnixSocket] %v", err)
			return
		}
		tool.DefaultLogger.Warnf("[UnixSocket] Failed to send notification: %v", err)
	}
}

func (n *SocketNotifier) Send(notification *types.Notification) error {
	if _, err := os.Stat(n.Path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrSocketNotFound, n.Path)
	}

	payload := []byte("{}")
	if notification != nil {
		var err error
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification data: %v", err)
		}
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := net.DialTimeout("unix", n.Path, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to Unix socket %s: %v", n.Path, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close Unix socket connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set socket deadline: %v", err)
	}

	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("failed to write payload to Unix socket: %v", err)
	}

	reply := make([]byte, 4096)
	read, err := conn.Read(reply)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read response from Unix socket: %v", err)
	}
	if read > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(reply[:read], &response); err != nil {
			tool.DefaultLogger.Debugf("Unix socket response (raw): %s", string(reply[:read]))
		} else if errMsg, ok := response["error"].(string); ok && errMsg != "" {
			return fmt.Errorf("server returned error: %s", errMsg)
		}
	}

	if notification != nil {
		tool.DefaultLogger.Debugf("[UnixSocket] Notification sent: %s - %s", notification.Type, notification.Title)
	}
	return nil
}

// Notifier receives session notifications. The websocket hub and
// SocketNotifier both implement it.
type Notifier interface {
	Broadcast(notification *types.Notification)
}

// Fanout delivers to every non-nil notifier in order.
type Fanout []Notifier

func (f Fanout) Broadcast(notification *types.Notification) {
	for _, n := range f {
		if n != nil {
			n.Broadcast(notification)
		}
	}
}
