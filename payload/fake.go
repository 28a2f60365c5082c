package payload

import "sync"

type SentPayload struct {
	EndpointID string
	Payload    Payload
	Listener   StatusListener
}

// FakeConnectionsManager records what a session hands to the transport.
type FakeConnectionsManager struct {
	mu        sync.Mutex
	sent      []SentPayload
	listeners map[int64]StatusListener
	cancelled []int64

	// OnSend, when set, runs for every Send after it is recorded.
	OnSend func(endpointID string, p Payload, listener StatusListener)
}

func NewFakeConnectionsManager() *FakeConnectionsManager {
	return &FakeConnectionsManager{listeners: make(map[int64]StatusListener)}
}

func (m *FakeConnectionsManager) Send(endpointID string, p Payload, listener StatusListener) {
	m.mu.Lock()
	m.sent = append(m.sent, SentPayload{EndpointID: endpointID, Payload: p, Listener: listener})
	hook := m.OnSend
	m.mu.Unlock()
	if hook != nil {
		hook(endpointID, p, listener)
	}
}

func (m *FakeConnectionsManager) RegisterPayloadStatusListener(payloadID int64, listener StatusListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners[payloadID] = listener
}

func (m *FakeConnectionsManager) Cancel(payloadID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, payloadID)
}

func (m *FakeConnectionsManager) Sent() []SentPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentPayload(nil), m.sent...)
}

func (m *FakeConnectionsManager) Listener(payloadID int64) StatusListener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listeners[payloadID]
}

func (m *FakeConnectionsManager) Cancelled() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.cancelled...)
}
