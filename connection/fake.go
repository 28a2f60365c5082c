package connection

import "sync"

// Fake is an in-memory Connection for tests. Data appended with
// AppendReadableData is handed to pending or later reads; everything written
// is kept for inspection.
type Fake struct {
	mu         sync.Mutex
	readable   [][]byte
	written    [][]byte
	pending    func([]byte, error)
	closed     bool
	disconnect func()
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Read(callback func(data []byte, err error)) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		callback(nil, ErrClosed)
		return
	}
	if len(f.readable) > 0 {
		data := f.readable[0]
		f.readable = f.readable[1:]
		f.mu.Unlock()
		callback(data, nil)
		return
	}
	f.pending = callback
	f.mu.Unlock()
}

func (f *Fake) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	pending := f.pending
	f.pending = nil
	disconnect := f.disconnect
	f.mu.Unlock()

	if pending != nil {
		pending(nil, ErrClosed)
	}
	if disconnect != nil {
		disconnect()
	}
	return nil
}

func (f *Fake) SetDisconnectListener(listener func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnect = listener
}

// AppendReadableData makes data available to the next Read.
func (f *Fake) AppendReadableData(data []byte) {
	f.mu.Lock()
	if f.pending != nil {
		cb := f.pending
		f.pending = nil
		f.mu.Unlock()
		cb(data, nil)
		return
	}
	f.readable = append(f.readable, data)
	f.mu.Unlock()
}

// NextWritten pops the oldest written record, or nil when there is none.
func (f *Fake) NextWritten() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.written) == 0 {
		return nil
	}
	data := f.written[0]
	f.written = f.written[1:]
	return data
}

// WrittenCount is the number of records written and not yet popped.
func (f *Fake) WrittenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func (f *Fake) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
