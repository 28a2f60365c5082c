package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moyoez/sharesession/frame"
)

// TestStatusForResponse checks every wire answer maps to the right outcome.
func TestStatusForResponse(t *testing.T) {
	cases := []struct {
		resp   *frame.ConnectionResponseFrame
		status Status
		final  bool
	}{
		{nil, StatusFailedToReadOutgoingConnectionResponse, true},
		{&frame.ConnectionResponseFrame{Status: frame.ResponseAccept}, StatusUnknown, false},
		{&frame.ConnectionResponseFrame{Status: frame.ResponseReject}, StatusRejected, true},
		{&frame.ConnectionResponseFrame{Status: frame.ResponseNotEnoughSpace}, StatusNotEnoughSpace, true},
		{&frame.ConnectionResponseFrame{Status: frame.ResponseUnsupportedAttachmentType}, StatusUnsupportedAttachmentType, true},
		{&frame.ConnectionResponseFrame{Status: frame.ResponseTimedOut}, StatusTimedOut, true},
		{&frame.ConnectionResponseFrame{Status: frame.ResponseUnknown}, StatusFailed, true},
	}
	for _, c := range cases {
		status, final := StatusForResponse(c.resp)
		assert.Equal(t, c.status, status)
		assert.Equal(t, c.final, final)
		if final {
			assert.True(t, status.IsFinal(), status.String())
		}
	}
}

// TestResponseForStatus checks the receiving side's answers.
func TestResponseForStatus(t *testing.T) {
	assert.Equal(t, frame.ResponseAccept, ResponseForStatus(StatusInProgress))
	assert.Equal(t, frame.ResponseReject, ResponseForStatus(StatusRejected))
	assert.Equal(t, frame.ResponseNotEnoughSpace, ResponseForStatus(StatusNotEnoughSpace))
	assert.Equal(t, frame.ResponseUnsupportedAttachmentType, ResponseForStatus(StatusUnsupportedAttachmentType))
	assert.Equal(t, frame.ResponseTimedOut, ResponseForStatus(StatusTimedOut))
}

// TestIsFinal checks which statuses end a transfer.
func TestIsFinal(t *testing.T) {
	for _, s := range []Status{StatusUnknown, StatusConnecting, StatusAwaitingLocalConfirmation, StatusAwaitingRemoteAcceptance, StatusInProgress} {
		assert.False(t, s.IsFinal(), s.String())
	}
	for _, s := range []Status{StatusComplete, StatusFailed, StatusRejected, StatusCancelled, StatusTimedOut, StatusUnexpectedDisconnection} {
		assert.True(t, s.IsFinal(), s.String())
	}
	for s := StatusUnknown; s <= StatusUnexpectedDisconnection; s++ {
		_, named := statusNames[s]
		assert.True(t, named, "status %d has no name", s)
	}
}

// TestMetadataWithProgress checks the percentage is derived and capped.
func TestMetadataWithProgress(t *testing.T) {
	m := NewMetadata(StatusInProgress).WithProgress(50, 200)
	assert.Equal(t, 25.0, m.Progress)
	assert.False(t, m.IsFinal())

	m = NewMetadata(StatusComplete).WithProgress(300, 200)
	assert.Equal(t, 100.0, m.Progress)
	assert.True(t, m.IsFinal())

	m = NewMetadata(StatusInProgress).WithProgress(10, 0)
	assert.Equal(t, 0.0, m.Progress)
}
