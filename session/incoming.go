package session

import (
	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/payload"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/transfer"
)

// PayloadLookup finds payloads the transport finished receiving.
type PayloadLookup interface {
	ReceivedPayload(payloadID int64) (payload.Payload, bool)
}

// IncomingShareSession receives what a peer introduces, once the local side
// accepts it.
type IncomingShareSession struct {
	ShareSession

	manager  payload.ConnectionsManager
	onStatus TransferCallback
}

func NewIncomingShareSession(p Params) *IncomingShareSession {
	p.Target.IsIncoming = true
	return &IncomingShareSession{ShareSession: newShareSession(p)}
}

// ProcessIntroduction rebuilds the announced attachments and their payload
// ids. An empty or missing introduction ends the session.
func (s *IncomingShareSession) ProcessIntroduction(intro *frame.IntroductionFrame) (transfer.Status, bool) {
	if intro.PayloadCount() == 0 {
		s.logger.Warnf("[IncomingShareSession] Introduction from %s announces nothing", s.endpointID)
		s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusInvalidIntroductionFrame))
		return transfer.StatusInvalidIntroductionFrame, false
	}

	s.SetAttachmentContainer(attachment.FromIntroduction(intro))
	for _, m := range intro.FileMetadata {
		s.attachmentPayloadMap[m.ID] = m.PayloadID
	}
	for _, m := range intro.TextMetadata {
		s.attachmentPayloadMap[m.ID] = m.PayloadID
	}
	for _, m := range intro.WifiCredentialsMetadata {
		s.attachmentPayloadMap[m.ID] = m.PayloadID
	}
	if s.sessionID == 0 {
		s.sessionID = tool.GenerateID()
	}

	s.recorder.ReceiveIntroduction(s.sessionID, s.shareTarget, s.container.Count(), s.totalAnnouncedSize(intro))
	s.state = StateAwaitingLocalConfirmation
	s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusAwaitingLocalConfirmation))
	return transfer.StatusAwaitingLocalConfirmation, true
}

func (s *IncomingShareSession) totalAnnouncedSize(intro *frame.IntroductionFrame) int64 {
	var total int64
	for _, m := range intro.FileMetadata {
		total += m.Size
	}
	for _, m := range intro.TextMetadata {
		total += m.Size
	}
	return total
}

// AcceptTransfer answers ACCEPT and starts tracking every announced payload.
// If manager can look payloads up, received texts, files and wifi
// credentials are filled in before the transfer reports completion.
func (s *IncomingShareSession) AcceptTransfer(clock task.Clock, manager payload.ConnectionsManager, onStatus TransferCallback) bool {
	if s.state != StateAwaitingLocalConfirmation {
		s.logger.Warnf("[IncomingShareSession] Cannot accept in state %s", s.state)
		return false
	}
	if s.conn == nil || manager == nil {
		s.logger.Warnf("[IncomingShareSession] Cannot accept, not connected")
		return false
	}
	s.manager = manager
	s.onStatus = onStatus

	handle := s.startTracking(clock, payload.TrackerCallbacks{
		OnUpdate: s.onTrackerUpdate,
	})
	for _, id := range s.payloadIDs() {
		manager.RegisterPayloadStatusListener(id, handle)
	}
	if !s.WriteFrame(frame.NewConnectionResponse(frame.ResponseAccept)) {
		s.releaseTracker()
		return false
	}
	s.recorder.RespondToIntroduction(s.sessionID, frame.ResponseAccept)
	s.recorder.ReceiveAttachmentsStart(s.sessionID, s.container.Count(), s.container.TotalSize())
	s.state = StateTransferring
	s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusInProgress))
	s.readPeerFrames()
	return true
}

// RejectTransfer answers with a non-accept status and ends the session.
func (s *IncomingShareSession) RejectTransfer(status frame.ResponseStatus) bool {
	if status == frame.ResponseAccept {
		return false
	}
	if s.state != StateAwaitingLocalConfirmation {
		s.logger.Warnf("[IncomingShareSession] Cannot reject in state %s", s.state)
		return false
	}
	if !s.WriteFrame(frame.NewConnectionResponse(status)) {
		return false
	}
	s.recorder.RespondToIntroduction(s.sessionID, status)
	final, _ := transfer.StatusForResponse(&frame.ConnectionResponseFrame{Status: status})
	s.UpdateTransferMetadata(transfer.NewMetadata(final))
	return true
}

// FinalizePayloads copies received payload content into the attachments. It
// fails if any payload has not arrived.
func (s *IncomingShareSession) FinalizePayloads(lookup PayloadLookup) bool {
	for i, t := range s.container.TextAttachments() {
		p, ok := s.lookup(lookup, t.ID())
		if !ok || p.Content.Type != payload.ContentTypeBytes {
			return false
		}
		s.container.SetTextBody(i, string(p.Content.Bytes))
	}
	for i, f := range s.container.FileAttachments() {
		p, ok := s.lookup(lookup, f.ID())
		if !ok || p.Content.Type != payload.ContentTypeFile {
			return false
		}
		s.container.SetFilePath(i, p.Content.File.Path)
		s.container.SetFileSize(i, p.Content.File.Size)
	}
	for i, w := range s.container.WifiCredentialsAttachments() {
		p, ok := s.lookup(lookup, w.ID())
		if !ok || p.Content.Type != payload.ContentTypeBytes {
			return false
		}
		creds, err := frame.UnmarshalWifiCredentials(p.Content.Bytes)
		if err != nil {
			s.logger.Warnf("[IncomingShareSession] Bad wifi credentials payload %d: %v", p.ID, err)
			return false
		}
		s.container.SetWifiPassword(i, creds.Password, creds.HiddenSSID)
	}
	return true
}

func (s *IncomingShareSession) lookup(lookup PayloadLookup, attachmentID int64) (payload.Payload, bool) {
	payloadID, ok := s.attachmentPayloadMap[attachmentID]
	if !ok {
		return payload.Payload{}, false
	}
	p, ok := lookup.ReceivedPayload(payloadID)
	if !ok {
		s.logger.Warnf("[IncomingShareSession] Payload %d for attachment %d missing", payloadID, attachmentID)
	}
	return p, ok
}

// Cancel stops receiving and tells the sender.
func (s *IncomingShareSession) Cancel() bool {
	if s.finalized {
		return false
	}
	if s.state == StateTransferring {
		s.recorder.ReceiveAttachmentsEnd(s.sessionID, transfer.StatusCancelled, s.transferredBytes())
	}
	s.cancelPayloads()
	s.WriteFrame(frame.NewCancel())
	s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusCancelled))
	return true
}

func (s *IncomingShareSession) cancelPayloads() {
	s.releaseTracker()
	if s.manager == nil {
		return
	}
	for _, id := range s.payloadIDs() {
		s.manager.Cancel(id)
	}
}

func (s *IncomingShareSession) onTrackerUpdate(m transfer.Metadata) {
	if s.finalized {
		return
	}
	if m.Status == transfer.StatusComplete {
		if lookup, ok := s.manager.(PayloadLookup); ok && !s.FinalizePayloads(lookup) {
			m.Status = transfer.StatusIncompletePayloads
		}
	}
	if s.onStatus != nil {
		s.onStatus(m)
	}
	if m.IsFinal() {
		s.recorder.ReceiveAttachmentsEnd(s.sessionID, m.Status, m.TransferredBytes)
	}
	s.UpdateTransferMetadata(m)
}

func (s *IncomingShareSession) readPeerFrames() {
	if s.frames == nil {
		return
	}
	s.frames.ReadFrame(frame.FrameTypeUnknown, s.onPeerFrame, 0)
}

func (s *IncomingShareSession) onPeerFrame(f *frame.V1Frame) {
	if s.finalized || f == nil {
		return
	}
	switch f.Type {
	case frame.FrameTypeCancel:
		s.logger.Infof("[IncomingShareSession] %s cancelled the transfer", s.endpointID)
		s.recorder.ReceiveAttachmentsEnd(s.sessionID, transfer.StatusCancelled, s.transferredBytes())
		s.cancelPayloads()
		s.UpdateTransferMetadata(transfer.NewMetadata(transfer.StatusCancelled))
		return
	case frame.FrameTypeProgressUpdate:
		if pu := f.ProgressUpdate; pu != nil && pu.Progress != nil {
			s.logger.Debugf("[IncomingShareSession] Sender reports %.1f%%", *pu.Progress)
		}
	}
	s.readPeerFrames()
}
