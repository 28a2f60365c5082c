package transfer

import "github.com/moyoez/sharesession/frame"

// StatusForResponse maps the peer's answer to an introduction. ok is false
// for ACCEPT: the transfer continues and no final status exists yet. A nil
// response means the frame could not be read.
func StatusForResponse(resp *frame.ConnectionResponseFrame) (status Status, ok bool) {
	if resp == nil {
		return StatusFailedToReadOutgoingConnectionResponse, true
	}
	switch resp.Status {
	case frame.ResponseAccept:
		return StatusUnknown, false
	case frame.ResponseReject:
		return StatusRejected, true
	case frame.ResponseNotEnoughSpace:
		return StatusNotEnoughSpace, true
	case frame.ResponseUnsupportedAttachmentType:
		return StatusUnsupportedAttachmentType, true
	case frame.ResponseTimedOut:
		return StatusTimedOut, true
	default:
		return StatusFailed, true
	}
}

// ResponseForStatus is the inverse used by the receiving side when it
// declines a share.
func ResponseForStatus(status Status) frame.ResponseStatus {
	switch status {
	case StatusInProgress, StatusComplete:
		return frame.ResponseAccept
	case StatusNotEnoughSpace:
		return frame.ResponseNotEnoughSpace
	case StatusUnsupportedAttachmentType:
		return frame.ResponseUnsupportedAttachmentType
	case StatusTimedOut:
		return frame.ResponseTimedOut
	default:
		return frame.ResponseReject
	}
}
