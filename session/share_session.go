// Package session drives one share with one peer over a borrowed connection:
// introduction, response, payload dispatch and status reporting. Every
// method must run on the session's runner.
package session

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/moyoez/sharesession/analytics"
	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/connection"
	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/payload"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/transfer"
	"github.com/moyoez/sharesession/types"
)

// ShareSession is the state both directions share.
type ShareSession struct {
	runner   task.Runner
	clock    task.Clock
	recorder *analytics.Recorder
	logger   *log.Logger

	endpointID  string
	shareTarget types.ShareTarget
	sessionID   int64
	token       string
	osType      types.OSType

	conn            connection.Connection
	decoder         frame.Decoder
	frames          *frame.Reader
	connectionStart time.Time

	state                State
	container            *attachment.Container
	attachmentPayloadMap map[int64]int64
	lastMetadata         transfer.Metadata
	finalized            bool

	tracker       *payload.Tracker
	trackerHandle *payload.Handle

	onTransferUpdate TransferCallback
	onTerminate      func()
}

func newShareSession(p Params) ShareSession {
	clock := p.Clock
	if clock == nil {
		clock = task.SystemClock{}
	}
	runner := p.Runner
	if runner == nil {
		runner = task.NewInlineRunner(clock)
	}
	container := p.Container
	if container == nil {
		container = attachment.NewContainer(nil, nil, nil)
	}
	return ShareSession{
		runner:               runner,
		clock:                clock,
		recorder:             p.Analytics,
		logger:               tool.SessionLogger(p.EndpointID),
		endpointID:           p.EndpointID,
		shareTarget:          p.Target,
		container:            container,
		attachmentPayloadMap: make(map[int64]int64),
		onTransferUpdate:     p.OnTransferUpdate,
	}
}

func (s *ShareSession) EndpointID() string             { return s.endpointID }
func (s *ShareSession) ShareTarget() types.ShareTarget { return s.shareTarget }
func (s *ShareSession) SessionID() int64               { return s.sessionID }
func (s *ShareSession) Token() string                  { return s.token }
func (s *ShareSession) OSType() types.OSType           { return s.osType }
func (s *ShareSession) State() State                   { return s.state }
func (s *ShareSession) ConnectionStart() time.Time     { return s.connectionStart }
func (s *ShareSession) Connection() connection.Connection {
	return s.conn
}
func (s *ShareSession) FrameReader() *frame.Reader { return s.frames }
func (s *ShareSession) Runner() task.Runner        { return s.runner }

// SetSessionID fixes the session id; SendIntroduction generates one when
// none was set.
func (s *ShareSession) SetSessionID(id int64) { s.sessionID = id }

// SetToken sets the display token directly.
func (s *ShareSession) SetToken(token string) { s.token = token }

// SetAuthToken derives the four digit display token from the connection's
// raw auth token.
func (s *ShareSession) SetAuthToken(raw []byte) {
	s.token = tool.FourDigitToken(raw)
}

func (s *ShareSession) AttachmentContainer() *attachment.Container { return s.container }

// SetAttachmentContainer replaces the attachments and forgets any payload
// mapping built for the previous set.
func (s *ShareSession) SetAttachmentContainer(c *attachment.Container) {
	if c == nil {
		c = attachment.NewContainer(nil, nil, nil)
	}
	s.container = c
	s.attachmentPayloadMap = make(map[int64]int64)
}

// AttachmentPayloadMap maps attachment ids to payload ids.
func (s *ShareSession) AttachmentPayloadMap() map[int64]int64 {
	return s.attachmentPayloadMap
}

func (s *ShareSession) LastMetadata() transfer.Metadata { return s.lastMetadata }

// Finalized reports whether a final status was delivered.
func (s *ShareSession) Finalized() bool { return s.finalized }

func (s *ShareSession) IsConnected() bool { return s.conn != nil }

// PayloadTracker returns the live tracker, or nil when none is running.
func (s *ShareSession) PayloadTracker() *payload.Tracker {
	if s.trackerHandle == nil {
		return nil
	}
	return s.trackerHandle.Tracker()
}

// OnConnected binds a live connection. An unexpected disconnect before a
// final status ends the session with StatusUnexpectedDisconnection.
func (s *ShareSession) OnConnected(decoder frame.Decoder, now time.Time, conn connection.Connection) bool {
	if conn == nil {
		s.logger.Warnf("[ShareSession] OnConnected without a connection")
		return false
	}
	if decoder == nil {
		decoder = frame.DefaultDecoder{}
	}
	if s.frames != nil {
		s.frames.Close()
	}
	s.conn = conn
	s.decoder = decoder
	s.frames = frame.NewReader(s.runner, decoder, conn)
	s.connectionStart = now
	if s.state == StateCreated {
		s.state = StateConnected
	}
	conn.SetDisconnectListener(func() {
		s.runner.PostTask(func() {
			if s.conn != conn {
				return
			}
			s.onDisconnected()
		})
	})
	return true
}

func (s *ShareSession) onDisconnected() {
	s.logger.Infof("[ShareSession] Connection to %s closed", s.endpointID)
	if s.frames != nil {
		s.frames.Close()
	}
	s.conn = nil
	if !s.finalized {
		s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusUnexpectedDisconnection))
	}
}

// Disconnect closes the borrowed connection without reporting anything.
func (s *ShareSession) Disconnect() {
	conn := s.conn
	if conn == nil {
		return
	}
	s.conn = nil
	conn.SetDisconnectListener(nil)
	if s.frames != nil {
		s.frames.Close()
	}
	if err := conn.Close(); err != nil {
		s.logger.Debugf("[ShareSession] Closing connection: %v", err)
	}
}

// Abort ends the session with status and drops the connection.
func (s *ShareSession) Abort(status transfer.Status) {
	if !s.finalized {
		s.UpdateTransferMetadata(transfer.NewMetadata(status))
	}
	s.Disconnect()
}

// UpdateTransferMetadata records and forwards a status change. Once a final
// status went out, later updates are dropped.
func (s *ShareSession) UpdateTransferMetadata(m transfer.Metadata) {
	if s.finalized {
		s.logger.Debugf("[ShareSession] Dropping %s after final status %s", m.Status, s.lastMetadata.Status)
		return
	}
	if m.Token == "" {
		m.Token = s.token
	}
	s.lastMetadata = m
	if m.IsFinal() {
		s.finalized = true
		s.state = stateForStatus(m.Status)
		s.releaseTracker()
		if s.onTerminate != nil {
			s.onTerminate()
		}
		s.logger.Infof("[ShareSession] Session %d finished: %s", s.sessionID, m.Status)
	}
	if s.onTransferUpdate != nil {
		s.onTransferUpdate(m)
	}
}

// WriteFrame encodes v1 and writes it on the connection.
func (s *ShareSession) WriteFrame(v1 *frame.V1Frame) bool {
	if s.conn == nil {
		s.logger.Warnf("[ShareSession] Cannot write %v frame, not connected", v1.Type)
		return false
	}
	if err := s.conn.Write(frame.EncodeV1(v1)); err != nil {
		s.logger.Errorf("[ShareSession] Failed to write %v frame: %v", v1.Type, err)
		return false
	}
	return true
}

// ProcessKeyVerificationResult records the peer OS type and reports whether
// verification succeeded. Nothing else changes.
func (s *ShareSession) ProcessKeyVerificationResult(result Result, osType types.OSType) bool {
	s.osType = osType
	if result != ResultSuccess {
		s.logger.Warnf("[ShareSession] Paired key verification for %s: %s", s.endpointID, result)
		return false
	}
	return true
}

// RunPairedKeyVerification runs verifier and reports back on the runner.
func (s *ShareSession) RunPairedKeyVerification(verifier PairedKeyVerifier, callback func(result Result, ok bool)) {
	verifier.Run(func(result Result, osType types.OSType) {
		s.runner.PostTask(func() {
			ok := s.ProcessKeyVerificationResult(result, osType)
			if callback != nil {
				callback(result, ok)
			}
		})
	})
}

func (s *ShareSession) startTracking(clock task.Clock, callbacks payload.TrackerCallbacks) *payload.Handle {
	s.releaseTracker()
	if clock == nil {
		clock = s.clock
	}
	s.tracker = payload.NewTracker(clock, s.container, s.attachmentPayloadMap, callbacks)
	s.trackerHandle = payload.NewHandle(s.runner, s.tracker)
	return s.trackerHandle
}

func (s *ShareSession) releaseTracker() {
	if s.trackerHandle != nil {
		s.trackerHandle.Release()
	}
	s.tracker = nil
}

func (s *ShareSession) transferredBytes() int64 {
	if s.tracker == nil {
		return 0
	}
	return s.tracker.TransferredBytes()
}

func (s *ShareSession) payloadIDs() []int64 {
	ids := make([]int64, 0, len(s.attachmentPayloadMap))
	for _, a := range s.container.All() {
		if id, ok := s.attachmentPayloadMap[a.ID()]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
