package payload

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/transfer"
)

// ProgressUpdateInterval is the minimum spacing of in-progress updates.
const ProgressUpdateInterval = 200 * time.Millisecond

type TrackerCallbacks struct {
	// OnUpdate receives aggregate metadata; a final status arrives once.
	OnUpdate func(transfer.Metadata)
	// OnProgress is called alongside in-progress updates with the
	// percentage, for writing progress frames.
	OnProgress func(progress float32)
	// OnPayloadComplete fires when a payload succeeds and others remain.
	OnPayloadComplete func(payloadID int64)
}

type payloadState struct {
	attachmentID int64
	size         int64
	transferred  int64
	status       Status
}

// Tracker folds per-payload transport updates into session progress. It
// only knows payloads from the attachment map it was built with and holds
// no reference to the session.
type Tracker struct {
	clock     task.Clock
	callbacks TrackerCallbacks
	payloads  map[int64]*payloadState
	totalSize int64
	limiter   *rate.Limiter

	lastProgress float64
	emitted      bool
	finished     bool
}

func NewTracker(clock task.Clock, container *attachment.Container, attachmentPayloadMap map[int64]int64, callbacks TrackerCallbacks) *Tracker {
	if clock == nil {
		clock = task.SystemClock{}
	}
	t := &Tracker{
		clock:     clock,
		callbacks: callbacks,
		payloads:  make(map[int64]*payloadState),
		limiter:   rate.NewLimiter(rate.Every(ProgressUpdateInterval), 1),
	}
	for _, a := range container.All() {
		payloadID, ok := attachmentPayloadMap[a.ID()]
		if !ok {
			continue
		}
		t.payloads[payloadID] = &payloadState{attachmentID: a.ID(), size: a.Size()}
		t.totalSize += a.Size()
	}
	return t
}

func (t *Tracker) OnStatusUpdate(update TransferUpdate) {
	if t.finished {
		return
	}
	p, ok := t.payloads[update.PayloadID]
	if !ok {
		tool.DefaultLogger.Debugf("[PayloadTracker] Ignoring update for unknown payload %d", update.PayloadID)
		return
	}
	if update.TotalBytes > 0 && update.TotalBytes != p.size {
		t.totalSize += update.TotalBytes - p.size
		p.size = update.TotalBytes
	}
	p.transferred = update.BytesTransferred
	p.status = update.Status

	switch update.Status {
	case StatusSuccess:
		p.transferred = p.size
		if t.allSucceeded() {
			t.finish(transfer.StatusComplete)
			return
		}
		if t.callbacks.OnPayloadComplete != nil {
			t.callbacks.OnPayloadComplete(update.PayloadID)
		}
	case StatusFailure:
		tool.DefaultLogger.Warnf("[PayloadTracker] Payload %d failed", update.PayloadID)
		t.finish(transfer.StatusFailed)
		return
	case StatusCanceled:
		tool.DefaultLogger.Infof("[PayloadTracker] Payload %d cancelled", update.PayloadID)
		t.finish(transfer.StatusCancelled)
		return
	}
	t.emitProgress()
}

func (t *Tracker) Finished() bool {
	return t.finished
}

func (t *Tracker) TotalSize() int64 {
	return t.totalSize
}

func (t *Tracker) TransferredBytes() int64 {
	var n int64
	for _, p := range t.payloads {
		n += p.transferred
	}
	return n
}

func (t *Tracker) allSucceeded() bool {
	for _, p := range t.payloads {
		if p.status != StatusSuccess {
			return false
		}
	}
	return true
}

func (t *Tracker) emitProgress() {
	m := transfer.NewMetadata(transfer.StatusInProgress).WithProgress(t.TransferredBytes(), t.totalSize)
	if t.emitted && m.Progress <= t.lastProgress {
		return
	}
	if !t.limiter.AllowN(t.clock.Now(), 1) {
		return
	}
	t.emitted = true
	t.lastProgress = m.Progress
	t.callbacks.OnUpdate(m)
	if t.callbacks.OnProgress != nil {
		t.callbacks.OnProgress(float32(m.Progress))
	}
}

func (t *Tracker) finish(status transfer.Status) {
	t.finished = true
	m := transfer.NewMetadata(status).WithProgress(t.TransferredBytes(), t.totalSize)
	if status == transfer.StatusComplete {
		m.Progress = 100
	}
	t.callbacks.OnUpdate(m)
}
