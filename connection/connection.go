// Package connection is the byte pipe a share session talks over.
package connection

import "errors"

var (
	ErrClosed         = errors.New("connection: closed")
	ErrRecordTooLarge = errors.New("connection: record too large")
)

// Connection is an open bidirectional pipe to one peer. Read is one-shot and
// asynchronous: the callback fires once with the next frame record, or with
// an error when the connection is gone.
type Connection interface {
	Read(callback func(data []byte, err error))
	Write(data []byte) error
	Close() error
	SetDisconnectListener(listener func())
}
