package payload

type Status int

const (
	StatusInProgress Status = iota
	StatusSuccess
	StatusFailure
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// TransferUpdate is the transport's report on one payload.
type TransferUpdate struct {
	PayloadID        int64
	Status           Status
	TotalBytes       int64
	BytesTransferred int64
}

type StatusListener interface {
	OnStatusUpdate(update TransferUpdate)
}

// ConnectionsManager moves payloads to a peer. Send has no result: success
// and failure are only reported through the listener.
type ConnectionsManager interface {
	Send(endpointID string, p Payload, listener StatusListener)
	RegisterPayloadStatusListener(payloadID int64, listener StatusListener)
	Cancel(payloadID int64)
}
