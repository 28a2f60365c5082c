package analytics

import (
	"sync"

	"github.com/google/uuid"

	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/transfer"
	"github.com/moyoez/sharesession/types"
)

// Recorder turns session milestones into events and metrics. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	logger EventLogger
	clock  task.Clock

	mu      sync.Mutex
	started map[int64]startMark
}

type startMark struct {
	category Category
	unixNano int64
}

func NewRecorder(logger EventLogger, clock task.Clock) *Recorder {
	if clock == nil {
		clock = task.SystemClock{}
	}
	return &Recorder{logger: logger, clock: clock, started: make(map[int64]startMark)}
}

func (r *Recorder) SendIntroduction(sessionID int64, target types.ShareTarget, attachmentCount int, totalSize int64) {
	r.emit(EventSendIntroduction, CategorySending, sessionID, map[string]any{
		"deviceType":      target.DeviceType,
		"selfShare":       target.ForSelfShare,
		"attachmentCount": attachmentCount,
		"totalSize":       totalSize,
	})
}

func (r *Recorder) SendAttachmentsStart(sessionID int64, attachmentCount int, totalSize int64) {
	r.markStart(sessionID, CategorySending)
	r.emit(EventSendAttachmentsStart, CategorySending, sessionID, map[string]any{
		"attachmentCount": attachmentCount,
		"totalSize":       totalSize,
	})
}

func (r *Recorder) SendAttachmentsEnd(sessionID int64, status transfer.Status, transferredBytes int64) {
	r.finish(EventSendAttachmentsEnd, CategorySending, sessionID, status, transferredBytes)
}

func (r *Recorder) ReceiveIntroduction(sessionID int64, target types.ShareTarget, attachmentCount int, totalSize int64) {
	r.emit(EventReceiveIntroduction, CategoryReceiving, sessionID, map[string]any{
		"deviceType":      target.DeviceType,
		"attachmentCount": attachmentCount,
		"totalSize":       totalSize,
	})
}

func (r *Recorder) RespondToIntroduction(sessionID int64, response frame.ResponseStatus) {
	r.emit(EventRespondToIntroduction, CategoryReceiving, sessionID, map[string]any{
		"response": response.String(),
	})
}

func (r *Recorder) ReceiveAttachmentsStart(sessionID int64, attachmentCount int, totalSize int64) {
	r.markStart(sessionID, CategoryReceiving)
	r.emit(EventReceiveAttachmentsStart, CategoryReceiving, sessionID, map[string]any{
		"attachmentCount": attachmentCount,
		"totalSize":       totalSize,
	})
}

func (r *Recorder) ReceiveAttachmentsEnd(sessionID int64, status transfer.Status, transferredBytes int64) {
	r.finish(EventReceiveAttachmentsEnd, CategoryReceiving, sessionID, status, transferredBytes)
}

func (r *Recorder) markStart(sessionID int64, category Category) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started[sessionID] = startMark{category: category, unixNano: r.clock.Now().UnixNano()}
}

func (r *Recorder) finish(typ EventType, category Category, sessionID int64, status transfer.Status, transferredBytes int64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	mark, ok := r.started[sessionID]
	delete(r.started, sessionID)
	r.mu.Unlock()

	seconds := -1.0
	if ok && mark.category == category {
		seconds = float64(r.clock.Now().UnixNano()-mark.unixNano) / 1e9
	}
	recordTransfer(category, status.String(), transferredBytes, seconds)
	r.emit(typ, category, sessionID, map[string]any{
		"status":           status.String(),
		"transferredBytes": transferredBytes,
	})
}

func (r *Recorder) emit(typ EventType, category Category, sessionID int64, fields map[string]any) {
	if r == nil {
		return
	}
	event := Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Category:  category,
		SessionID: sessionID,
		Timestamp: r.clock.Now(),
		Fields:    fields,
	}
	recordEvent(event)
	if r.logger != nil {
		r.logger.Log(event)
	}
}
