// Package share connects sessions to real sockets: it dials and accepts
// peers, runs one session per connection and keeps a registry of what is in
// flight.
package share

import (
	"fmt"
	"sort"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/sharesession/notify"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/transfer"
	"github.com/moyoez/sharesession/types"
)

const (
	DefaultTTL = 300 * time.Second // set 300 seconds.

	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// Entry is a snapshot of one registered session.
type Entry struct {
	EndpointID       string          `json:"endpointId"`
	SessionID        int64           `json:"sessionId"`
	Direction        string          `json:"direction"`
	PeerName         string          `json:"peerName,omitempty"`
	RemoteAddr       string          `json:"remoteAddr,omitempty"`
	Status           transfer.Status `json:"status"`
	Progress         float64         `json:"progress"`
	TransferredBytes int64           `json:"transferredBytes"`
	TotalBytes       int64           `json:"totalBytes"`
	Token            string          `json:"token,omitempty"`
	StartedAt        time.Time       `json:"startedAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type registryItem struct {
	entry  Entry
	cancel func()
}

// Registry tracks live sessions by endpoint id. Entries nobody updates for
// the TTL fall out of the cache on their own.
type Registry struct {
	mu       sync.Mutex
	cache    *ttlworker.Cache[string, *registryItem]
	notifier notify.Notifier
	now      func() time.Time
}

func NewRegistry(ttl time.Duration, notifier notify.Notifier) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		cache:    ttlworker.NewCache[string, *registryItem](ttl),
		notifier: notifier,
		now:      time.Now,
	}
}

// Register adds a session. cancel is called by Cancel and must be safe to
// call from any goroutine.
func (r *Registry) Register(entry Entry, cancel func()) {
	now := r.now()
	entry.StartedAt = now
	entry.UpdatedAt = now
	r.mu.Lock()
	r.cache.Set(entry.EndpointID, &registryItem{entry: entry, cancel: cancel})
	r.mu.Unlock()

	tool.DefaultLogger.Debugf("[Registry] Registered %s session %s", entry.Direction, entry.EndpointID)
	r.notify(&types.Notification{
		Type:    types.NotifyTypeSessionStarted,
		Title:   "Session Started",
		Message: fmt.Sprintf("%s share with %s", entry.Direction, describePeer(entry)),
		Data:    entryData(entry),
	})
}

// Update records a status change for endpointID. Unknown endpoints are
// ignored.
func (r *Registry) Update(endpointID string, sessionID int64, m transfer.Metadata) {
	r.mu.Lock()
	item := r.cache.Get(endpointID)
	if item == nil {
		r.mu.Unlock()
		return
	}
	item.entry.Status = m.Status
	item.entry.Progress = m.Progress
	item.entry.TransferredBytes = m.TransferredBytes
	item.entry.TotalBytes = m.TotalBytes
	if sessionID != 0 {
		item.entry.SessionID = sessionID
	}
	if m.Token != "" {
		item.entry.Token = m.Token
	}
	item.entry.UpdatedAt = r.now()
	r.cache.Set(endpointID, item)
	entry := item.entry
	r.mu.Unlock()

	notification := &types.Notification{
		Type:    types.NotifyTypeTransferUpdate,
		Title:   "Transfer Update",
		Message: fmt.Sprintf("%s: %s", describePeer(entry), entry.Status),
		Data:    entryData(entry),
	}
	if m.IsFinal() {
		notification.Type = types.NotifyTypeSessionFinished
		notification.Title = "Session Finished"
	}
	r.notify(notification)
}

func (r *Registry) Get(endpointID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.cache.Get(endpointID)
	if item == nil {
		return Entry{}, false
	}
	return item.entry, true
}

// List returns every entry sorted by endpoint id.
func (r *Registry) List() []Entry {
	r.mu.Lock()
	entries := make([]Entry, 0)
	err := r.cache.Range(func(_ string, item *registryItem) error {
		if item != nil {
			entries = append(entries, item.entry)
		}
		return nil
	})
	r.mu.Unlock()
	if err != nil {
		tool.DefaultLogger.Warnf("[Registry] Listing sessions: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EndpointID < entries[j].EndpointID })
	return entries
}

// Cancel asks the session behind endpointID to cancel. It reports whether
// such a session was registered.
func (r *Registry) Cancel(endpointID string) bool {
	r.mu.Lock()
	item := r.cache.Get(endpointID)
	r.mu.Unlock()
	if item == nil {
		return false
	}
	if item.cancel != nil {
		item.cancel()
	}
	return true
}

func (r *Registry) Remove(endpointID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(endpointID)
}

// Notify passes a notification that is not tied to a status change, such as
// a received text, to the registry's notifier.
func (r *Registry) Notify(notification *types.Notification) {
	r.notify(notification)
}

func (r *Registry) notify(notification *types.Notification) {
	if r.notifier != nil {
		r.notifier.Broadcast(notification)
	}
}

func describePeer(e Entry) string {
	switch {
	case e.PeerName != "":
		return e.PeerName
	case e.RemoteAddr != "":
		return e.RemoteAddr
	default:
		return e.EndpointID
	}
}

func entryData(e Entry) map[string]any {
	return map[string]any{
		"endpointId":       e.EndpointID,
		"sessionId":        e.SessionID,
		"direction":        e.Direction,
		"peerName":         e.PeerName,
		"remoteAddr":       e.RemoteAddr,
		"status":           e.Status.String(),
		"progress":         e.Progress,
		"transferredBytes": e.TransferredBytes,
		"totalBytes":       e.TotalBytes,
		"token":            e.Token,
	}
}
