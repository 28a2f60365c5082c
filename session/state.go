package session

import (
	"time"

	"github.com/moyoez/sharesession/analytics"
	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/transfer"
	"github.com/moyoez/sharesession/types"
)

// DefaultAcceptTimeout bounds how long a sender waits for the peer's answer.
const DefaultAcceptTimeout = 60 * time.Second

type State int

const (
	StateCreated State = iota
	StateConnected
	StateIntroductionSent
	StateAwaitingResponse
	StateAwaitingLocalConfirmation
	StateAccepted
	StateTransferring
	StateCompleted
	StateRejected
	StateCancelled
	StateFailed
)

var stateNames = [...]string{
	StateCreated:                   "created",
	StateConnected:                 "connected",
	StateIntroductionSent:          "introduction_sent",
	StateAwaitingResponse:          "awaiting_response",
	StateAwaitingLocalConfirmation: "awaiting_local_confirmation",
	StateAccepted:                  "accepted",
	StateTransferring:              "transferring",
	StateCompleted:                 "completed",
	StateRejected:                  "rejected",
	StateCancelled:                 "cancelled",
	StateFailed:                    "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) IsFinal() bool {
	return s >= StateCompleted
}

func stateForStatus(status transfer.Status) State {
	switch status {
	case transfer.StatusComplete:
		return StateCompleted
	case transfer.StatusRejected, transfer.StatusNotEnoughSpace, transfer.StatusUnsupportedAttachmentType:
		return StateRejected
	case transfer.StatusCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}

// AcceptanceMode decides which side of the handshake guards the wait for the
// peer's answer.
type AcceptanceMode int

const (
	// AcceptanceModeRemote: the peer's user must confirm. SendIntroduction
	// arms the accept timer; the response read itself has no deadline.
	AcceptanceModeRemote AcceptanceMode = iota
	// AcceptanceModeSelfShare: the peer is one of our own devices and
	// answers on its own. No accept timer; the response read times out.
	AcceptanceModeSelfShare
)

func (m AcceptanceMode) String() string {
	if m == AcceptanceModeSelfShare {
		return "self_share"
	}
	return "remote"
}

// TransferCallback receives every status change of a session, on its runner.
type TransferCallback func(metadata transfer.Metadata)

type Params struct {
	Runner     task.Runner
	Clock      task.Clock
	Analytics  *analytics.Recorder
	EndpointID string
	Target     types.ShareTarget
	Container  *attachment.Container
	// OnTransferUpdate is the single status subscriber.
	OnTransferUpdate TransferCallback

	// Outgoing only.
	Mode          AcceptanceMode
	AcceptTimeout time.Duration
}
