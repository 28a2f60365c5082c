package share

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/sharesession/attachment"
	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/transfer"
	"github.com/moyoez/sharesession/types"
)

const testTimeout = 15 * time.Second

type receiver struct {
	addr     string
	dir      string
	received chan ReceivedShare
	notes    *notifications
	service  *Service
}

// startReceiver serves on a loopback port until the test ends.
func startReceiver(t *testing.T, opts Options) *receiver {
	t.Helper()
	r := &receiver{
		dir:      t.TempDir(),
		received: make(chan ReceivedShare, 1),
		notes:    &notifications{},
	}
	opts.DownloadFolder = r.dir
	opts.OnReceived = func(share ReceivedShare) { r.received <- share }
	r.service = NewService(opts, NewRegistry(time.Minute, r.notes), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r.addr = ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- r.service.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-served:
			assert.NoError(t, err)
		case <-time.After(testTimeout):
			t.Error("receiver did not shut down")
		}
	})
	return r
}

func (r *receiver) next(t *testing.T) ReceivedShare {
	t.Helper()
	select {
	case share := <-r.received:
		return share
	case <-time.After(testTimeout):
		t.Fatal("nothing received")
		return ReceivedShare{}
	}
}

func send(t *testing.T, opts Options, addr string, c *attachment.Container) (transfer.Metadata, *Service, error) {
	t.Helper()
	sender := NewService(opts, NewRegistry(time.Minute, nil), nil)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	m, err := sender.Send(ctx, addr, c, false)
	return m, sender, err
}

func TestSendOverLoopback(t *testing.T) {
	r := startReceiver(t, Options{DeviceName: "receiver", AutoAccept: true, AllowUnverifiedPeers: true})

	content := bytes.Repeat([]byte("sharesession "), 20000)
	src := filepath.Join(t.TempDir(), "photo.bin")
	require.NoError(t, os.WriteFile(src, content, 0o644))

	c := attachment.NewContainer(
		[]attachment.TextAttachment{attachment.NewTextAttachment(frame.TextTypeText, "hello over tcp", "greeting", "text/plain")},
		[]attachment.FileAttachment{attachment.NewFileAttachment(src, "")},
		[]attachment.WifiCredentialsAttachment{attachment.NewWifiCredentialsAttachment("HomeNet", frame.SecurityTypeWPAPSK, "hunter22", false)},
	)
	m, sender, err := send(t, Options{DeviceName: "sender", AllowUnverifiedPeers: true, CancellationOptimization: true}, r.addr, c)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusComplete, m.Status)
	assert.Len(t, m.Token, 4)
	assert.Empty(t, sender.Registry().List())

	got := r.next(t)
	require.Equal(t, transfer.StatusComplete, got.Metadata.Status)
	assert.Equal(t, m.Token, got.Metadata.Token)
	require.NotNil(t, got.Container)

	texts := got.Container.TextAttachments()
	require.Len(t, texts, 1)
	assert.Equal(t, "hello over tcp", texts[0].Body())

	files := got.Container.FileAttachments()
	require.Len(t, files, 1)
	assert.Equal(t, r.dir, filepath.Dir(files[0].FilePath()))
	assert.Equal(t, "photo.bin", filepath.Base(files[0].FilePath()))
	onDisk, err := os.ReadFile(files[0].FilePath())
	require.NoError(t, err)
	assert.Equal(t, content, onDisk)

	wifis := got.Container.WifiCredentialsAttachments()
	require.Len(t, wifis, 1)
	assert.Equal(t, "HomeNet", wifis[0].SSID())
	assert.Equal(t, "hunter22", wifis[0].Password())

	assert.Contains(t, r.notes.kinds(), types.NotifyTypeTextReceived)
	assert.Contains(t, r.notes.kinds(), types.NotifyTypeSessionFinished)
}

func TestSendRejectedWithoutAutoAccept(t *testing.T) {
	r := startReceiver(t, Options{AllowUnverifiedPeers: true})

	c := attachment.NewContainer([]attachment.TextAttachment{attachment.NewTextAttachment(frame.TextTypeText, "hi", "", "text/plain")}, nil, nil)
	m, _, err := send(t, Options{AllowUnverifiedPeers: true}, r.addr, c)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusRejected, m.Status)

	got := r.next(t)
	assert.Equal(t, transfer.StatusRejected, got.Metadata.Status)
	assert.NotContains(t, r.notes.kinds(), types.NotifyTypeTextReceived)
}

func TestSendWithMatchingPins(t *testing.T) {
	r := startReceiver(t, Options{AutoAccept: true, Pin: "2468"})

	c := attachment.NewContainer([]attachment.TextAttachment{attachment.NewTextAttachment(frame.TextTypeURL, "https://example.com", "", "text/plain")}, nil, nil)
	m, _, err := send(t, Options{Pin: "2468"}, r.addr, c)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusComplete, m.Status)
	assert.Equal(t, "https://example.com", r.next(t).Container.TextAttachments()[0].Body())
}

func TestSendWithMismatchedPins(t *testing.T) {
	r := startReceiver(t, Options{AutoAccept: true, Pin: "1111"})

	c := attachment.NewContainer([]attachment.TextAttachment{attachment.NewTextAttachment(frame.TextTypeText, "secret", "", "text/plain")}, nil, nil)
	m, _, err := send(t, Options{Pin: "2222", AllowUnverifiedPeers: true}, r.addr, c)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusPairedKeyVerificationFailed, m.Status)
	assert.Equal(t, transfer.StatusPairedKeyVerificationFailed, r.next(t).Metadata.Status)
}

func TestSendUnverifiedRefused(t *testing.T) {
	r := startReceiver(t, Options{AutoAccept: true, AllowUnverifiedPeers: true})

	c := attachment.NewContainer([]attachment.TextAttachment{attachment.NewTextAttachment(frame.TextTypeText, "x", "", "text/plain")}, nil, nil)
	m, _, err := send(t, Options{}, r.addr, c)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusPairedKeyVerificationFailed, m.Status)
	r.next(t)
}

func TestSendNothing(t *testing.T) {
	m, _, err := send(t, Options{}, "127.0.0.1:1", attachment.NewContainer(nil, nil, nil))
	assert.ErrorIs(t, err, ErrNothingToSend)
	assert.Equal(t, transfer.StatusMissingPayloads, m.Status)

	_, _, err = send(t, Options{}, "127.0.0.1:1", nil)
	assert.ErrorIs(t, err, ErrNothingToSend)
}

func TestSendMissingFile(t *testing.T) {
	c := attachment.NewContainer(nil, []attachment.FileAttachment{attachment.NewFileAttachment(filepath.Join(t.TempDir(), "gone.txt"), "")}, nil)
	m, _, err := send(t, Options{}, "127.0.0.1:1", c)
	assert.Error(t, err)
	assert.Equal(t, transfer.StatusMediaUnavailable, m.Status)
}

func TestSendUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := attachment.NewContainer([]attachment.TextAttachment{attachment.NewTextAttachment(frame.TextTypeText, "x", "", "text/plain")}, nil, nil)
	m, _, err := send(t, Options{}, addr, c)
	assert.Error(t, err)
	assert.Equal(t, transfer.StatusFailedToInitiateOutgoingConnection, m.Status)

	probing := NewService(Options{ProbeBeforeDial: true, ProbeTimeout: time.Second}, nil, nil)
	probed := ""
	probing.probe = func(addr string, timeout time.Duration) bool {
		probed = addr
		return false
	}
	m, err = probing.Send(context.Background(), addr, c, false)
	assert.ErrorIs(t, err, ErrPeerUnreachable)
	assert.Equal(t, addr, probed)
	assert.Equal(t, transfer.StatusFailedToInitiateOutgoingConnection, m.Status)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "a.txt", safeFileName("a.txt", 1))
	assert.Equal(t, "passwd", safeFileName("../../etc/passwd", 1))
	assert.Equal(t, "payload-7", safeFileName("", 7))
	assert.Equal(t, "payload-7", safeFileName("..", 7))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&types.AppConfig{Alias: "desk", AutoAccept: true, Pin: "1234", AcceptTimeout: time.Minute})
	assert.Equal(t, "desk", opts.DeviceName)
	assert.True(t, opts.AutoAccept)
	assert.Equal(t, "1234", opts.Pin)
	assert.Equal(t, time.Minute, opts.AcceptTimeout)
	assert.Equal(t, DefaultProbeTimeout, opts.ProbeTimeout)
}
