package payload

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/moyoez/sharesession/tool"
)

const (
	// ChunkSize is the largest payload slice put in one record.
	ChunkSize = 64 << 10

	chunkHeaderSize = 17

	chunkFlagLast   byte = 1
	chunkFlagCancel byte = 2
	chunkFlagFile   byte = 4
)

// Pipe is the part of a stream connection that carries payload records.
type Pipe interface {
	WritePayload(data []byte) error
	SetPayloadHandler(handler func([]byte))
}

type outgoingPayload struct {
	payload  Payload
	listener StatusListener
}

type incomingPayload struct {
	total       int64
	transferred int64
	file        *os.File
	path        string
	buf         []byte
	failed      bool
}

// StreamManager is a ConnectionsManager over a single stream connection.
// Outgoing payloads are chunked in send order by one worker; incoming
// chunks are reassembled in memory (bytes) or written to disk (files).
//
// Chunk record: payload id (int64 LE), flags byte, total size (int64 LE),
// data.
type StreamManager struct {
	pipe        Pipe
	downloadDir string

	mu        sync.Mutex
	queue     []outgoingPayload
	cancelled map[int64]bool
	listeners map[int64]StatusListener
	incoming  map[int64]*incomingPayload
	expected  map[int64]*incomingPayload
	received  map[int64]Payload
	closed    bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func NewStreamManager(pipe Pipe, downloadDir string) *StreamManager {
	m := &StreamManager{
		pipe:        pipe,
		downloadDir: downloadDir,
		cancelled:   make(map[int64]bool),
		listeners:   make(map[int64]StatusListener),
		incoming:    make(map[int64]*incomingPayload),
		expected:    make(map[int64]*incomingPayload),
		received:    make(map[int64]Payload),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	pipe.SetPayloadHandler(m.onRecord)
	m.wg.Add(1)
	go m.sendLoop()
	return m
}

func (m *StreamManager) Send(endpointID string, p Payload, listener StatusListener) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		listener.OnStatusUpdate(TransferUpdate{PayloadID: p.ID, Status: StatusFailure, TotalBytes: p.Size()})
		return
	}
	m.queue = append(m.queue, outgoingPayload{payload: p, listener: listener})
	m.mu.Unlock()
	tool.DefaultLogger.Debugf("[StreamManager] Queued payload %d for %s", p.ID, endpointID)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// RegisterPayloadStatusListener watches an incoming payload. A payload that
// already arrived is reported right away.
func (m *StreamManager) RegisterPayloadStatusListener(payloadID int64, listener StatusListener) {
	m.mu.Lock()
	m.listeners[payloadID] = listener
	p, done := m.received[payloadID]
	m.mu.Unlock()
	if done {
		listener.OnStatusUpdate(TransferUpdate{PayloadID: payloadID, Status: StatusSuccess, TotalBytes: p.Size(), BytesTransferred: p.Size()})
	}
}

func (m *StreamManager) Cancel(payloadID int64) {
	m.mu.Lock()
	m.cancelled[payloadID] = true
	in := m.incoming[payloadID]
	if in == nil {
		in = m.expected[payloadID]
	}
	delete(m.incoming, payloadID)
	delete(m.expected, payloadID)
	listener := m.listeners[payloadID]
	m.mu.Unlock()

	if in == nil {
		return
	}
	in.discard()
	if listener != nil {
		listener.OnStatusUpdate(TransferUpdate{PayloadID: payloadID, Status: StatusCanceled, TotalBytes: in.total, BytesTransferred: in.transferred})
	}
}

// ExpectFile reserves a file under the download folder for an incoming file
// payload and returns its path.
func (m *StreamManager) ExpectFile(payloadID int64, name string) (string, error) {
	if err := os.MkdirAll(m.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download folder: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := tool.NextAvailablePath(m.downloadDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %v", path, err)
	}
	m.expected[payloadID] = &incomingPayload{file: f, path: path}
	return path, nil
}

// ReceivedPayload returns a fully received payload.
func (m *StreamManager) ReceivedPayload(payloadID int64) (Payload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.received[payloadID]
	return p, ok
}

func (m *StreamManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	queued := m.queue
	m.queue = nil
	open := make([]*incomingPayload, 0, len(m.incoming)+len(m.expected))
	for _, in := range m.incoming {
		open = append(open, in)
	}
	for _, in := range m.expected {
		open = append(open, in)
	}
	m.incoming = make(map[int64]*incomingPayload)
	m.expected = make(map[int64]*incomingPayload)
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
	for _, item := range queued {
		item.listener.OnStatusUpdate(TransferUpdate{PayloadID: item.payload.ID, Status: StatusFailure, TotalBytes: item.payload.Size()})
	}
	for _, in := range open {
		in.discard()
	}
}

func (m *StreamManager) sendLoop() {
	defer m.wg.Done()
	for {
		item, ok := m.next()
		if !ok {
			return
		}
		m.sendOne(item)
	}
}

func (m *StreamManager) next() (outgoingPayload, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			item := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return item, true
		}
		m.mu.Unlock()
		select {
		case <-m.wake:
		case <-m.done:
			return outgoingPayload{}, false
		}
	}
}

func (m *StreamManager) isCancelled(payloadID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled[payloadID]
}

func (m *StreamManager) sendOne(item outgoingPayload) {
	p := item.payload
	total := p.Size()
	report := func(status Status, transferred int64) {
		item.listener.OnStatusUpdate(TransferUpdate{PayloadID: p.ID, Status: status, TotalBytes: total, BytesTransferred: transferred})
	}

	var (
		src   io.Reader
		flags byte
	)
	switch p.Content.Type {
	case ContentTypeBytes:
		src = bytes.NewReader(p.Content.Bytes)
	case ContentTypeFile:
		f, err := os.Open(p.Content.File.Path)
		if err != nil {
			tool.DefaultLogger.Errorf("[StreamManager] Failed to open %s: %v", p.Content.File.Path, err)
			report(StatusFailure, 0)
			return
		}
		defer f.Close()
		src = f
		flags = chunkFlagFile
	default:
		tool.DefaultLogger.Errorf("[StreamManager] Payload %d has no content", p.ID)
		report(StatusFailure, 0)
		return
	}

	buf := make([]byte, ChunkSize)
	var transferred int64
	for {
		if m.isCancelled(p.ID) {
			_ = m.pipe.WritePayload(encodeChunk(p.ID, flags|chunkFlagCancel, total, nil))
			report(StatusCanceled, transferred)
			return
		}
		select {
		case <-m.done:
			report(StatusFailure, transferred)
			return
		default:
		}

		n := int64(len(buf))
		if remaining := total - transferred; remaining < n {
			n = remaining
		}
		if _, err := io.ReadFull(src, buf[:n]); err != nil {
			tool.DefaultLogger.Errorf("[StreamManager] Failed to read payload %d: %v", p.ID, err)
			report(StatusFailure, transferred)
			return
		}
		last := transferred+n == total
		chunkFlags := flags
		if last {
			chunkFlags |= chunkFlagLast
		}
		if err := m.pipe.WritePayload(encodeChunk(p.ID, chunkFlags, total, buf[:n])); err != nil {
			tool.DefaultLogger.Errorf("[StreamManager] Failed to write payload %d: %v", p.ID, err)
			report(StatusFailure, transferred)
			return
		}
		transferred += n
		if last {
			report(StatusSuccess, transferred)
			return
		}
		report(StatusInProgress, transferred)
	}
}

func (m *StreamManager) onRecord(record []byte) {
	if len(record) < chunkHeaderSize {
		tool.DefaultLogger.Warnf("[StreamManager] Dropping short payload record (%d bytes)", len(record))
		return
	}
	id := int64(binary.LittleEndian.Uint64(record[0:8]))
	flags := record[8]
	total := int64(binary.LittleEndian.Uint64(record[9:17]))
	data := record[chunkHeaderSize:]

	m.mu.Lock()
	if m.closed || m.cancelled[id] {
		m.mu.Unlock()
		return
	}
	in := m.incoming[id]
	if in == nil {
		in = m.expected[id]
		delete(m.expected, id)
		if in == nil {
			in = &incomingPayload{}
		}
		in.total = total
		m.incoming[id] = in
	}
	listener := m.listeners[id]
	m.mu.Unlock()

	report := func(status Status) {
		if listener != nil {
			listener.OnStatusUpdate(TransferUpdate{PayloadID: id, Status: status, TotalBytes: in.total, BytesTransferred: in.transferred})
		}
	}

	if in.failed {
		return
	}
	if flags&chunkFlagCancel != 0 {
		m.forget(id)
		in.discard()
		report(StatusCanceled)
		return
	}
	if err := in.write(flags&chunkFlagFile != 0, id, m.downloadDir, data); err != nil {
		tool.DefaultLogger.Errorf("[StreamManager] Failed to store payload %d: %v", id, err)
		in.failed = true
		in.discard()
		report(StatusFailure)
		return
	}
	if flags&chunkFlagLast == 0 {
		report(StatusInProgress)
		return
	}

	var p Payload
	if in.path != "" {
		if err := in.file.Close(); err != nil {
			tool.DefaultLogger.Errorf("[StreamManager] Failed to close %s: %v", in.path, err)
			in.failed = true
			report(StatusFailure)
			return
		}
		in.file = nil
		p = NewFilePayload(id, in.path, in.transferred, filepath.Dir(in.path))
	} else {
		p = NewBytesPayload(id, in.buf)
	}
	m.mu.Lock()
	delete(m.incoming, id)
	m.received[id] = p
	m.mu.Unlock()
	report(StatusSuccess)
}

func (m *StreamManager) forget(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.incoming, id)
}

func (in *incomingPayload) write(isFile bool, id int64, dir string, data []byte) error {
	if isFile && in.file == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		path := tool.NextAvailablePath(dir, fmt.Sprintf("payload-%d", id))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		in.file = f
		in.path = path
	}
	if in.file != nil {
		if _, err := in.file.Write(data); err != nil {
			return err
		}
	} else {
		in.buf = append(in.buf, data...)
	}
	in.transferred += int64(len(data))
	return nil
}

func (in *incomingPayload) discard() {
	if in.file != nil {
		_ = in.file.Close()
		_ = os.Remove(in.path)
		in.file = nil
	}
	in.buf = nil
}

func encodeChunk(id int64, flags byte, total int64, data []byte) []byte {
	buf := make([]byte, chunkHeaderSize+len(data))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(id))
	buf[8] = flags
	binary.LittleEndian.PutUint64(buf[9:17], uint64(total))
	copy(buf[chunkHeaderSize:], data)
	return buf
}
