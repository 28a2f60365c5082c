package connection

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"

	"github.com/moyoez/sharesession/tool"
)

const (
	recordFrame   byte = 1
	recordPayload byte = 2

	// MaxRecordSize bounds one record body; payload chunks stay far below it.
	MaxRecordSize = 8 << 20
)

// StreamConnection multiplexes control frames and payload chunks over one
// net.Conn. Every record is a 4-byte little-endian length, a kind byte and
// the body. Frame records feed Read; payload records go to the payload
// handler.
type StreamConnection struct {
	conn    net.Conn
	writeMu sync.Mutex

	mu              sync.Mutex
	frames          [][]byte
	pending         func([]byte, error)
	payloadHandler  func([]byte)
	bufferedPayload [][]byte
	disconnect      func()
	err             error

	closeOnce sync.Once
	done      chan struct{}
}

func NewStreamConnection(conn net.Conn) *StreamConnection {
	s := &StreamConnection{
		conn: conn,
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *StreamConnection) Read(callback func(data []byte, err error)) {
	s.mu.Lock()
	if len(s.frames) > 0 {
		data := s.frames[0]
		s.frames = s.frames[1:]
		s.mu.Unlock()
		callback(data, nil)
		return
	}
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		callback(nil, err)
		return
	}
	s.pending = callback
	s.mu.Unlock()
}

func (s *StreamConnection) Write(data []byte) error {
	return s.writeRecord(recordFrame, data)
}

// WritePayload sends one payload chunk record.
func (s *StreamConnection) WritePayload(data []byte) error {
	return s.writeRecord(recordPayload, data)
}

// SetPayloadHandler installs the receiver of payload records. Records that
// arrived earlier are replayed to it first.
func (s *StreamConnection) SetPayloadHandler(handler func([]byte)) {
	s.mu.Lock()
	s.payloadHandler = handler
	buffered := s.bufferedPayload
	s.bufferedPayload = nil
	s.mu.Unlock()
	for _, b := range buffered {
		handler(b)
	}
}

func (s *StreamConnection) SetDisconnectListener(listener func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect = listener
}

func (s *StreamConnection) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.err == nil {
			s.err = ErrClosed
		}
		s.mu.Unlock()
		err = s.conn.Close()
	})
	<-s.done
	return err
}

// AuthToken is derived from both socket addresses, so each side computes
// the same bytes.
func (s *StreamConnection) AuthToken() []byte {
	addrs := []string{s.conn.LocalAddr().String(), s.conn.RemoteAddr().String()}
	sort.Strings(addrs)
	sum := sha256.Sum256([]byte(addrs[0] + "|" + addrs[1]))
	return sum[:]
}

// Done is closed once the read loop stopped, whichever side closed.
func (s *StreamConnection) Done() <-chan struct{} {
	return s.done
}

func (s *StreamConnection) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *StreamConnection) writeRecord(kind byte, body []byte) error {
	if len(body)+1 > MaxRecordSize {
		return ErrRecordTooLarge
	}
	buf := make([]byte, 5+len(body))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(body)+1))
	buf[4] = kind
	copy(buf[5:], body)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(buf); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func (s *StreamConnection) readLoop() {
	defer close(s.done)
	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(s.conn, header); err != nil {
			s.stop(err)
			return
		}
		size := binary.LittleEndian.Uint32(header)
		if size == 0 || size > MaxRecordSize {
			s.stop(ErrRecordTooLarge)
			return
		}
		record := make([]byte, size)
		if _, err := io.ReadFull(s.conn, record); err != nil {
			s.stop(err)
			return
		}
		switch record[0] {
		case recordFrame:
			s.deliverFrame(record[1:])
		case recordPayload:
			s.deliverPayload(record[1:])
		default:
			tool.DefaultLogger.Debugf("[StreamConnection] Skipping record of unknown kind %d", record[0])
		}
	}
}

func (s *StreamConnection) deliverFrame(body []byte) {
	s.mu.Lock()
	if s.pending != nil {
		cb := s.pending
		s.pending = nil
		s.mu.Unlock()
		cb(body, nil)
		return
	}
	s.frames = append(s.frames, body)
	s.mu.Unlock()
}

func (s *StreamConnection) deliverPayload(body []byte) {
	s.mu.Lock()
	handler := s.payloadHandler
	if handler == nil {
		s.bufferedPayload = append(s.bufferedPayload, body)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	handler(body)
}

func (s *StreamConnection) stop(cause error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = cause
	}
	err := s.err
	pending := s.pending
	s.pending = nil
	disconnect := s.disconnect
	s.disconnect = nil
	s.mu.Unlock()

	_ = s.conn.Close()
	if err != ErrClosed {
		tool.DefaultLogger.Debugf("[StreamConnection] Read loop stopped: %v", err)
	}
	if pending != nil {
		pending(nil, err)
	}
	if disconnect != nil {
		disconnect()
	}
}
