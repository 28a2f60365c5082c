package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/task"
	"github.com/moyoez/sharesession/transfer"
)

type trackerFixture struct {
	clock     *task.FakeClock
	tracker   *Tracker
	updates   []transfer.Metadata
	progress  []float32
	completed []int64
	textID    int64
	wifiID    int64
}

const (
	textPayloadID int64 = 11
	wifiPayloadID int64 = 12
)

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()
	text := attachment.NewTextAttachment(frame.TextTypeText, "hello", "greeting", "text/plain")
	wifi := attachment.NewWifiCredentialsAttachment("home", frame.SecurityTypeWPAPSK, "secret", false)
	container := attachment.NewContainer([]attachment.TextAttachment{text}, nil, []attachment.WifiCredentialsAttachment{wifi})
	f := &trackerFixture{clock: task.NewFakeClock(), textID: text.ID(), wifiID: wifi.ID()}
	f.tracker = NewTracker(f.clock, container, map[int64]int64{
		text.ID(): textPayloadID,
		wifi.ID(): wifiPayloadID,
	}, TrackerCallbacks{
		OnUpdate:          func(m transfer.Metadata) { f.updates = append(f.updates, m) },
		OnProgress:        func(p float32) { f.progress = append(f.progress, p) },
		OnPayloadComplete: func(id int64) { f.completed = append(f.completed, id) },
	})
	require.EqualValues(t, 11, f.tracker.TotalSize())
	return f
}

func TestTrackerThrottlesProgress(t *testing.T) {
	f := newTrackerFixture(t)

	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: textPayloadID, Status: StatusInProgress, TotalBytes: 5, BytesTransferred: 2})
	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: textPayloadID, Status: StatusInProgress, TotalBytes: 5, BytesTransferred: 3})
	require.Len(t, f.updates, 1)
	assert.Equal(t, transfer.StatusInProgress, f.updates[0].Status)
	assert.EqualValues(t, 2, f.updates[0].TransferredBytes)

	f.clock.FastForward(ProgressUpdateInterval)
	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: textPayloadID, Status: StatusInProgress, TotalBytes: 5, BytesTransferred: 4})
	require.Len(t, f.updates, 2)
	assert.EqualValues(t, 4, f.updates[1].TransferredBytes)
	assert.Len(t, f.progress, 2)
}

func TestTrackerCompletesOnceAllPayloadsSucceed(t *testing.T) {
	f := newTrackerFixture(t)

	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: textPayloadID, Status: StatusSuccess, TotalBytes: 5, BytesTransferred: 5})
	assert.Equal(t, []int64{textPayloadID}, f.completed)
	assert.False(t, f.tracker.Finished())

	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: wifiPayloadID, Status: StatusSuccess, TotalBytes: 6, BytesTransferred: 6})
	require.True(t, f.tracker.Finished())
	last := f.updates[len(f.updates)-1]
	assert.Equal(t, transfer.StatusComplete, last.Status)
	assert.Equal(t, float64(100), last.Progress)
	assert.Equal(t, []int64{textPayloadID}, f.completed)

	n := len(f.updates)
	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: wifiPayloadID, Status: StatusFailure})
	assert.Len(t, f.updates, n)
}

func TestTrackerFailureAndCancelAreFinal(t *testing.T) {
	f := newTrackerFixture(t)
	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: wifiPayloadID, Status: StatusFailure})
	require.Len(t, f.updates, 1)
	assert.Equal(t, transfer.StatusFailed, f.updates[0].Status)

	g := newTrackerFixture(t)
	g.tracker.OnStatusUpdate(TransferUpdate{PayloadID: textPayloadID, Status: StatusCanceled})
	require.Len(t, g.updates, 1)
	assert.Equal(t, transfer.StatusCancelled, g.updates[0].Status)
	g.tracker.OnStatusUpdate(TransferUpdate{PayloadID: wifiPayloadID, Status: StatusCanceled})
	assert.Len(t, g.updates, 1)
}

func TestTrackerIgnoresUnknownPayload(t *testing.T) {
	f := newTrackerFixture(t)
	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: 999, Status: StatusFailure})
	assert.Empty(t, f.updates)
	assert.False(t, f.tracker.Finished())
}

func TestTrackerAdoptsTransportSize(t *testing.T) {
	f := newTrackerFixture(t)
	f.tracker.OnStatusUpdate(TransferUpdate{PayloadID: textPayloadID, Status: StatusInProgress, TotalBytes: 15, BytesTransferred: 1})
	assert.EqualValues(t, 21, f.tracker.TotalSize())
	require.Len(t, f.updates, 1)
	assert.EqualValues(t, 21, f.updates[0].TotalBytes)
}

func TestHandleDropsUpdatesAfterRelease(t *testing.T) {
	f := newTrackerFixture(t)
	h := NewHandle(task.NewInlineRunner(f.clock), f.tracker)

	h.OnStatusUpdate(TransferUpdate{PayloadID: textPayloadID, Status: StatusInProgress, TotalBytes: 5, BytesTransferred: 1})
	require.Len(t, f.updates, 1)

	h.Release()
	assert.Nil(t, h.Tracker())
	h.OnStatusUpdate(TransferUpdate{PayloadID: textPayloadID, Status: StatusFailure})
	assert.Len(t, f.updates, 1)
}

func TestFakeConnectionsManagerRecords(t *testing.T) {
	m := NewFakeConnectionsManager()
	var hooked []int64
	m.OnSend = func(_ string, p Payload, _ StatusListener) { hooked = append(hooked, p.ID) }

	m.Send("ABCD", NewBytesPayload(1, []byte("x")), nil)
	m.RegisterPayloadStatusListener(2, nil)
	m.Cancel(1)

	require.Len(t, m.Sent(), 1)
	assert.Equal(t, "ABCD", m.Sent()[0].EndpointID)
	assert.Equal(t, []int64{1}, hooked)
	assert.Equal(t, []int64{1}, m.Cancelled())
}
