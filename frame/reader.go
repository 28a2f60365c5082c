package frame

import (
	"time"

	"github.com/moyoez/sharesession/connection"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/tool"
)

// Reader pulls frames off a connection one read at a time. Frames that
// arrive while nobody waits for their type are kept until asked for. All
// callbacks run on the runner.
type Reader struct {
	runner  task.Runner
	decoder Decoder
	conn    connection.Connection

	cached  []*V1Frame
	pending *pendingRead
	reading bool
	closed  bool
}

type pendingRead struct {
	frameType FrameType
	callback  func(*V1Frame)
	timeout   *task.CancelableTask
}

func NewReader(runner task.Runner, decoder Decoder, conn connection.Connection) *Reader {
	if decoder == nil {
		decoder = DefaultDecoder{}
	}
	return &Reader{runner: runner, decoder: decoder, conn: conn}
}

// ReadFrame calls callback with the next frame of frameType, or with nil on
// read failure or timeout. FrameTypeUnknown matches any frame. A timeout of
// zero waits forever. Only one read may be outstanding.
func (r *Reader) ReadFrame(frameType FrameType, callback func(*V1Frame), timeout time.Duration) {
	if r.closed {
		callback(nil)
		return
	}
	if r.pending != nil {
		tool.DefaultLogger.Warnf("[FrameReader] Read for %v rejected, already waiting for %v", frameType, r.pending.frameType)
		callback(nil)
		return
	}
	if f := r.takeCached(frameType); f != nil {
		callback(f)
		return
	}
	p := &pendingRead{frameType: frameType, callback: callback}
	r.pending = p
	if timeout > 0 {
		p.timeout = r.runner.PostDelayedTask(timeout, func() {
			if r.pending != p {
				return
			}
			tool.DefaultLogger.Warnf("[FrameReader] Timed out after %v waiting for %v", timeout, frameType)
			r.finish(nil)
		})
	}
	r.readNext()
}

// Close fails any outstanding read and refuses new ones.
func (r *Reader) Close() {
	r.closed = true
	r.cached = nil
	if r.pending != nil {
		r.finish(nil)
	}
}

func (r *Reader) takeCached(frameType FrameType) *V1Frame {
	for i, f := range r.cached {
		if frameType == FrameTypeUnknown || f.Type == frameType {
			r.cached = append(r.cached[:i], r.cached[i+1:]...)
			return f
		}
	}
	return nil
}

func (r *Reader) readNext() {
	if r.reading || r.closed {
		return
	}
	r.reading = true
	r.conn.Read(func(data []byte, err error) {
		r.runner.PostTask(func() {
			r.reading = false
			r.onData(data, err)
		})
	})
}

func (r *Reader) onData(data []byte, err error) {
	if r.closed {
		return
	}
	if err != nil {
		tool.DefaultLogger.Debugf("[FrameReader] Connection read failed: %v", err)
		r.closed = true
		if r.pending != nil {
			r.finish(nil)
		}
		return
	}
	f, err := r.decoder.DecodeFrame(data)
	if err != nil {
		tool.DefaultLogger.Warnf("[FrameReader] Dropping undecodable frame: %v", err)
		if r.pending != nil {
			r.finish(nil)
		}
		return
	}
	v1 := f.V1
	if r.pending != nil && (r.pending.frameType == FrameTypeUnknown || r.pending.frameType == v1.Type) {
		r.finish(v1)
		return
	}
	tool.DefaultLogger.Debugf("[FrameReader] Caching %v frame", v1.Type)
	r.cached = append(r.cached, v1)
	if r.pending != nil {
		r.readNext()
	}
}

func (r *Reader) finish(f *V1Frame) {
	p := r.pending
	r.pending = nil
	if p.timeout != nil {
		p.timeout.Cancel()
	}
	p.callback(f)
}
