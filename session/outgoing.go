package session

import (
	"time"

	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/payload"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/transfer"
)

// OutgoingShareSession sends a container of attachments to one peer.
//
// Created -> Connected -> IntroductionSent -> AwaitingResponse ->
// Accepted -> Transferring -> Completed | Cancelled | Failed, or Rejected
// straight from AwaitingResponse.
type OutgoingShareSession struct {
	ShareSession

	mode          AcceptanceMode
	acceptTimeout time.Duration
	acceptTimer   *task.CancelableTask

	filePayloads []payload.Payload
	textPayloads []payload.Payload
	wifiPayloads []payload.Payload

	dispatch              []payload.Payload
	cursor                int
	cancellationOptimized bool
	manager               payload.ConnectionsManager
	onFrameRead           func(*frame.V1Frame)
}

func NewOutgoingShareSession(p Params) *OutgoingShareSession {
	timeout := p.AcceptTimeout
	if timeout <= 0 {
		timeout = DefaultAcceptTimeout
	}
	s := &OutgoingShareSession{
		ShareSession:  newShareSession(p),
		mode:          p.Mode,
		acceptTimeout: timeout,
	}
	s.onTerminate = s.cancelAcceptTimer
	return s
}

func (s *OutgoingShareSession) Mode() AcceptanceMode { return s.mode }

// SendIntroduction writes the Introduction frame announcing every built
// payload and, in remote mode, arms the accept timer. onTimeout runs at most
// once and never after a response was handled.
func (s *OutgoingShareSession) SendIntroduction(onTimeout func()) bool {
	if s.payloadCount() == 0 {
		s.logger.Warnf("[OutgoingShareSession] No payloads to introduce")
		return false
	}
	if s.conn == nil {
		s.logger.Warnf("[OutgoingShareSession] Cannot send introduction, not connected")
		return false
	}
	if s.sessionID == 0 {
		s.sessionID = tool.GenerateID()
	}
	if !s.WriteFrame(frame.NewIntroduction(s.introduction())) {
		return false
	}
	s.state = StateIntroductionSent
	s.recorder.SendIntroduction(s.sessionID, s.shareTarget, s.container.Count(), s.container.TotalSize())
	s.logger.Infof("[OutgoingShareSession] Introduced %d payloads in session %d", s.payloadCount(), s.sessionID)

	if s.mode == AcceptanceModeRemote {
		s.cancelAcceptTimer()
		s.acceptTimer = s.runner.PostDelayedTask(s.acceptTimeout, func() {
			s.acceptTimer = nil
			s.logger.Warnf("[OutgoingShareSession] No response from %s within %v", s.endpointID, s.acceptTimeout)
			if onTimeout != nil {
				onTimeout()
			}
		})
	}
	s.state = StateAwaitingResponse
	return true
}

// HandleConnectionResponse maps the peer's answer. A terminal outcome is
// reported once and returned with true; ACCEPT returns false and starts the
// transfer.
func (s *OutgoingShareSession) HandleConnectionResponse(resp *frame.ConnectionResponseFrame) (transfer.Status, bool) {
	s.cancelAcceptTimer()
	if s.finalized {
		s.logger.Debugf("[OutgoingShareSession] Response from %s after session ended", s.endpointID)
		return s.lastMetadata.Status, true
	}

	status, terminal := transfer.StatusForResponse(resp)
	if terminal {
		s.logger.Infof("[OutgoingShareSession] %s answered: %s", s.endpointID, status)
		s.UpdateTransferMetadata(transfer.NewMetadata(status))
		return status, true
	}

	s.state = StateAccepted
	s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusInProgress))
	s.WriteFrame(frame.NewStartTransfer())
	return transfer.StatusUnknown, false
}

// AcceptTransfer waits for the peer's RESPONSE frame. onResponse gets nil
// when the read fails or, in self share mode, times out.
func (s *OutgoingShareSession) AcceptTransfer(onResponse func(*frame.ConnectionResponseFrame)) bool {
	if s.conn == nil || s.frames == nil {
		s.logger.Warnf("[OutgoingShareSession] Cannot wait for a response, not connected")
		return false
	}
	if s.payloadCount() == 0 {
		s.logger.Warnf("[OutgoingShareSession] Cannot wait for a response, no payloads")
		return false
	}

	var timeout time.Duration
	if s.mode == AcceptanceModeSelfShare {
		timeout = s.acceptTimeout
	}
	s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusAwaitingRemoteAcceptance))
	s.frames.ReadFrame(frame.FrameTypeResponse, func(f *frame.V1Frame) {
		var resp *frame.ConnectionResponseFrame
		if f != nil {
			resp = f.ConnectionResponse
		}
		onResponse(resp)
	}, timeout)
	return true
}

// SendPayloads starts the tracker and hands payloads to the transport in
// file, text, wifi order. With cancellation optimization only one payload is
// in flight; the next goes out when the previous one completes. It returns
// false without side effects when not connected, without payloads or
// without a transport.
func (s *OutgoingShareSession) SendPayloads(enableCancellationOptimization bool, clock task.Clock, manager payload.ConnectionsManager, onFrameRead func(*frame.V1Frame), onStatus TransferCallback) bool {
	if s.conn == nil || s.frames == nil {
		s.logger.Warnf("[OutgoingShareSession] Cannot send payloads, not connected")
		return false
	}
	if s.payloadCount() == 0 {
		s.logger.Warnf("[OutgoingShareSession] Cannot send payloads, none built")
		return false
	}
	if manager == nil {
		s.logger.Warnf("[OutgoingShareSession] Cannot send payloads, no transport")
		return false
	}
	if s.finalized {
		s.logger.Warnf("[OutgoingShareSession] Cannot send payloads, session already ended")
		return false
	}

	s.manager = manager
	s.cancellationOptimized = enableCancellationOptimization
	s.onFrameRead = onFrameRead
	s.dispatch = make([]payload.Payload, 0, s.payloadCount())
	s.dispatch = append(s.dispatch, s.filePayloads...)
	s.dispatch = append(s.dispatch, s.textPayloads...)
	s.dispatch = append(s.dispatch, s.wifiPayloads...)
	s.cursor = 0

	s.startTracking(clock, payload.TrackerCallbacks{
		OnUpdate: func(m transfer.Metadata) {
			if onStatus != nil {
				onStatus(m)
			}
			s.onTrackerUpdate(m)
		},
		OnProgress: func(progress float32) {
			s.WriteFrame(frame.NewProgressUpdate(progress))
		},
		OnPayloadComplete: func(int64) {
			if s.cancellationOptimized && !s.finalized {
				s.SendNextPayload(s.manager)
			}
		},
	})
	s.recorder.SendAttachmentsStart(s.sessionID, s.container.Count(), s.container.TotalSize())
	s.state = StateTransferring
	s.readPeerFrames()

	if enableCancellationOptimization {
		s.SendNextPayload(manager)
		return true
	}
	// A synchronous failure finalizes the session; nothing more goes out.
	for s.cursor < len(s.dispatch) && !s.finalized {
		s.SendNextPayload(manager)
	}
	return true
}

// SendNextPayload hands the payload at the cursor to the transport. Past the
// last payload, or once the session ended, it does nothing.
func (s *OutgoingShareSession) SendNextPayload(manager payload.ConnectionsManager) {
	if s.finalized {
		s.logger.Debugf("[OutgoingShareSession] Session ended, not sending more payloads")
		return
	}
	if s.cursor >= len(s.dispatch) {
		s.logger.Debugf("[OutgoingShareSession] No more payloads to send")
		return
	}
	if s.trackerHandle == nil || manager == nil {
		s.logger.Warnf("[OutgoingShareSession] SendNextPayload before SendPayloads")
		return
	}
	p := s.dispatch[s.cursor]
	s.cursor++
	s.logger.Debugf("[OutgoingShareSession] Sending payload %d (%d/%d)", p.ID, s.cursor, len(s.dispatch))
	manager.Send(s.endpointID, p, s.trackerHandle)
}

// Cancel stops dispatch, cancels what the transport already has and tells
// the peer.
func (s *OutgoingShareSession) Cancel() bool {
	if s.finalized {
		return false
	}
	s.cancelAcceptTimer()
	if s.state == StateTransferring {
		s.recorder.SendAttachmentsEnd(s.sessionID, transfer.StatusCancelled, s.transferredBytes())
	}
	s.cancelDispatched()
	s.WriteFrame(frame.NewCancel())
	s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusCancelled))
	return true
}

func (s *OutgoingShareSession) cancelDispatched() {
	s.releaseTracker()
	if s.manager != nil {
		for _, p := range s.dispatch[:s.cursor] {
			s.manager.Cancel(p.ID)
		}
	}
	s.cursor = len(s.dispatch)
}

func (s *OutgoingShareSession) onTrackerUpdate(m transfer.Metadata) {
	if s.finalized {
		return
	}
	if m.IsFinal() {
		s.recorder.SendAttachmentsEnd(s.sessionID, m.Status, m.TransferredBytes)
	}
	s.UpdateTransferMetadata(m)
}

func (s *OutgoingShareSession) readPeerFrames() {
	if s.frames == nil {
		return
	}
	s.frames.ReadFrame(frame.FrameTypeUnknown, s.onPeerFrame, 0)
}

func (s *OutgoingShareSession) onPeerFrame(f *frame.V1Frame) {
	if s.finalized {
		return
	}
	if f == nil {
		if s.onFrameRead != nil {
			s.onFrameRead(nil)
		}
		return
	}
	if f.Type == frame.FrameTypeCancel {
		s.logger.Infof("[OutgoingShareSession] %s cancelled the transfer", s.endpointID)
		s.recorder.SendAttachmentsEnd(s.sessionID, transfer.StatusCancelled, s.transferredBytes())
		s.cancelDispatched()
		s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusCancelled))
		return
	}
	if s.onFrameRead != nil {
		s.onFrameRead(f)
	}
	if !s.finalized {
		s.readPeerFrames()
	}
}

func (s *OutgoingShareSession) cancelAcceptTimer() {
	if s.acceptTimer != nil {
		s.acceptTimer.Cancel()
		s.acceptTimer = nil
	}
}
