// Package transfer describes where a share stands as seen by the user.
package transfer

type Status int

const (
	StatusUnknown Status = iota
	StatusConnecting
	StatusAwaitingLocalConfirmation
	StatusAwaitingRemoteAcceptance
	StatusInProgress
	StatusComplete
	StatusFailed
	StatusRejected
	StatusCancelled
	StatusTimedOut
	StatusMediaUnavailable
	StatusNotEnoughSpace
	StatusUnsupportedAttachmentType
	StatusMissingTransferUpdateCallback
	StatusMissingShareTarget
	StatusMissingEndpointID
	StatusMissingPayloads
	StatusPairedKeyVerificationFailed
	StatusInvalidIntroductionFrame
	StatusIncompletePayloads
	StatusFailedToCreateShareTarget
	StatusFailedToInitiateOutgoingConnection
	StatusFailedToReadOutgoingConnectionResponse
	StatusUnexpectedDisconnection
)

var statusNames = map[Status]string{
	StatusUnknown:                                "unknown",
	StatusConnecting:                             "connecting",
	StatusAwaitingLocalConfirmation:              "awaiting_local_confirmation",
	StatusAwaitingRemoteAcceptance:               "awaiting_remote_acceptance",
	StatusInProgress:                             "in_progress",
	StatusComplete:                               "complete",
	StatusFailed:                                 "failed",
	StatusRejected:                               "rejected",
	StatusCancelled:                              "cancelled",
	StatusTimedOut:                               "timed_out",
	StatusMediaUnavailable:                       "media_unavailable",
	StatusNotEnoughSpace:                         "not_enough_space",
	StatusUnsupportedAttachmentType:              "unsupported_attachment_type",
	StatusMissingTransferUpdateCallback:          "missing_transfer_update_callback",
	StatusMissingShareTarget:                     "missing_share_target",
	StatusMissingEndpointID:                      "missing_endpoint_id",
	StatusMissingPayloads:                        "missing_payloads",
	StatusPairedKeyVerificationFailed:            "paired_key_verification_failed",
	StatusInvalidIntroductionFrame:               "invalid_introduction_frame",
	StatusIncompletePayloads:                     "incomplete_payloads",
	StatusFailedToCreateShareTarget:              "failed_to_create_share_target",
	StatusFailedToInitiateOutgoingConnection:     "failed_to_initiate_outgoing_connection",
	StatusFailedToReadOutgoingConnectionResponse: "failed_to_read_outgoing_connection_response",
	StatusUnexpectedDisconnection:                "unexpected_disconnection",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsFinal reports whether no further status can follow s.
func (s Status) IsFinal() bool {
	switch s {
	case StatusUnknown, StatusConnecting, StatusAwaitingLocalConfirmation,
		StatusAwaitingRemoteAcceptance, StatusInProgress:
		return false
	default:
		return true
	}
}
