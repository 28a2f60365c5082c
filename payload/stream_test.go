package payload

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/sharesession/connection"
)

type chanListener struct {
	updates chan TransferUpdate
}

func newChanListener() *chanListener {
	return &chanListener{updates: make(chan TransferUpdate, 64)}
}

func (l *chanListener) OnStatusUpdate(u TransferUpdate) {
	l.updates <- u
}

// waitFinal drains updates until a non in-progress one arrives.
func (l *chanListener) waitFinal(t *testing.T) TransferUpdate {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-l.updates:
			if u.Status != StatusInProgress {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for payload status")
			return TransferUpdate{}
		}
	}
}

func newManagerPair(t *testing.T) (*StreamManager, *StreamManager, string) {
	t.Helper()
	left, right := net.Pipe()
	a := connection.NewStreamConnection(left)
	b := connection.NewStreamConnection(right)
	dir := t.TempDir()
	sender := NewStreamManager(a, t.TempDir())
	receiver := NewStreamManager(b, dir)
	t.Cleanup(func() {
		sender.Close()
		receiver.Close()
		_ = a.Close()
		_ = b.Close()
	})
	return sender, receiver, dir
}

func TestStreamManagerBytesPayload(t *testing.T) {
	sender, receiver, _ := newManagerPair(t)
	incoming := newChanListener()
	receiver.RegisterPayloadStatusListener(7, incoming)

	outgoing := newChanListener()
	sender.Send("ABCD", NewBytesPayload(7, []byte("hello there")), outgoing)

	sent := outgoing.waitFinal(t)
	assert.Equal(t, StatusSuccess, sent.Status)
	assert.EqualValues(t, 11, sent.BytesTransferred)

	got := incoming.waitFinal(t)
	require.Equal(t, StatusSuccess, got.Status)
	p, ok := receiver.ReceivedPayload(7)
	require.True(t, ok)
	assert.Equal(t, ContentTypeBytes, p.Content.Type)
	assert.Equal(t, []byte("hello there"), p.Content.Bytes)
}

func TestStreamManagerEmptyPayload(t *testing.T) {
	sender, receiver, _ := newManagerPair(t)
	incoming := newChanListener()
	receiver.RegisterPayloadStatusListener(3, incoming)

	outgoing := newChanListener()
	sender.Send("ABCD", NewBytesPayload(3, nil), outgoing)

	assert.Equal(t, StatusSuccess, outgoing.waitFinal(t).Status)
	assert.Equal(t, StatusSuccess, incoming.waitFinal(t).Status)
}

func TestStreamManagerFilePayload(t *testing.T) {
	sender, receiver, dir := newManagerPair(t)

	content := bytes.Repeat([]byte("0123456789"), ChunkSize/4)
	src := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(src, content, 0o644))

	path, err := receiver.ExpectFile(9, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photo.jpg"), path)

	incoming := newChanListener()
	receiver.RegisterPayloadStatusListener(9, incoming)
	outgoing := newChanListener()
	sender.Send("ABCD", NewFilePayload(9, src, int64(len(content)), ""), outgoing)

	assert.Equal(t, StatusSuccess, outgoing.waitFinal(t).Status)
	got := incoming.waitFinal(t)
	require.Equal(t, StatusSuccess, got.Status)
	assert.EqualValues(t, len(content), got.BytesTransferred)

	p, ok := receiver.ReceivedPayload(9)
	require.True(t, ok)
	assert.Equal(t, path, p.Content.File.Path)
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, written)
}

func TestStreamManagerExpectFileAvoidsCollisions(t *testing.T) {
	_, receiver, dir := newManagerPair(t)
	first, err := receiver.ExpectFile(1, "notes.txt")
	require.NoError(t, err)
	second, err := receiver.ExpectFile(2, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes.txt"), first)
	assert.Equal(t, filepath.Join(dir, "notes-2.txt"), second)
}

func TestStreamManagerMissingFileFails(t *testing.T) {
	sender, _, _ := newManagerPair(t)
	outgoing := newChanListener()
	sender.Send("ABCD", NewFilePayload(4, filepath.Join(t.TempDir(), "gone.bin"), 10, ""), outgoing)
	assert.Equal(t, StatusFailure, outgoing.waitFinal(t).Status)
}

func TestStreamManagerCancelIncoming(t *testing.T) {
	_, receiver, dir := newManagerPair(t)
	path, err := receiver.ExpectFile(5, "big.bin")
	require.NoError(t, err)
	incoming := newChanListener()
	receiver.RegisterPayloadStatusListener(5, incoming)

	receiver.Cancel(5)
	assert.Equal(t, StatusCanceled, incoming.waitFinal(t).Status)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStreamManagerSendAfterClose(t *testing.T) {
	sender, _, _ := newManagerPair(t)
	sender.Close()
	outgoing := newChanListener()
	sender.Send("ABCD", NewBytesPayload(1, []byte("x")), outgoing)
	assert.Equal(t, StatusFailure, outgoing.waitFinal(t).Status)
}
