package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/types"
)

type Result int

const (
	ResultUnknown Result = iota
	ResultSuccess
	ResultFail
	ResultUnable
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFail:
		return "fail"
	case ResultUnable:
		return "unable"
	default:
		return "unknown"
	}
}

func resultFromWire(s frame.PairedKeyResultStatus) Result {
	switch s {
	case frame.PairedKeyResultSuccess:
		return ResultSuccess
	case frame.PairedKeyResultFail:
		return ResultFail
	case frame.PairedKeyResultUnable:
		return ResultUnable
	default:
		return ResultUnknown
	}
}

func (r Result) wire() frame.PairedKeyResultStatus {
	switch r {
	case ResultSuccess:
		return frame.PairedKeyResultSuccess
	case ResultFail:
		return frame.PairedKeyResultFail
	case ResultUnable:
		return frame.PairedKeyResultUnable
	default:
		return frame.PairedKeyResultUnknown
	}
}

// PairedKeyVerifier authenticates the peer. Run calls back exactly once with
// the outcome and the OS type the peer reported.
type PairedKeyVerifier interface {
	Run(callback func(Result, types.OSType))
}

// KeyOracle holds the secrets behind paired key verification.
type KeyOracle interface {
	Encryption(authToken []byte) (*frame.PairedKeyEncryptionFrame, error)
	Verify(authToken []byte, peer *frame.PairedKeyEncryptionFrame) Result
}

// FrameWriter is satisfied by ShareSession.
type FrameWriter interface {
	WriteFrame(v1 *frame.V1Frame) bool
}

// FrameKeyVerifier exchanges PAIRED_KEY_ENCRYPTION then PAIRED_KEY_RESULT
// frames with the peer. Both sides run it symmetrically.
type FrameKeyVerifier struct {
	frames    *frame.Reader
	writer    FrameWriter
	authToken []byte
	oracle    KeyOracle
	localOS   types.OSType
	timeout   time.Duration
}

func NewFrameKeyVerifier(frames *frame.Reader, writer FrameWriter, authToken []byte, oracle KeyOracle, localOS types.OSType, timeout time.Duration) *FrameKeyVerifier {
	return &FrameKeyVerifier{
		frames:    frames,
		writer:    writer,
		authToken: authToken,
		oracle:    oracle,
		localOS:   localOS,
		timeout:   timeout,
	}
}

func (v *FrameKeyVerifier) Run(callback func(Result, types.OSType)) {
	if v.frames == nil || v.writer == nil || v.oracle == nil {
		callback(ResultFail, types.OSTypeUnknown)
		return
	}
	encryption, err := v.oracle.Encryption(v.authToken)
	if err != nil {
		tool.DefaultLogger.Errorf("[KeyVerification] Failed to sign auth token: %v", err)
		callback(ResultFail, types.OSTypeUnknown)
		return
	}
	if !v.writer.WriteFrame(&frame.V1Frame{Type: frame.FrameTypePairedKeyEncryption, PairedKeyEncryption: encryption}) {
		callback(ResultFail, types.OSTypeUnknown)
		return
	}
	v.frames.ReadFrame(frame.FrameTypePairedKeyEncryption, func(f *frame.V1Frame) {
		if f == nil || f.PairedKeyEncryption == nil {
			tool.DefaultLogger.Warnf("[KeyVerification] No encryption frame from peer")
			callback(ResultFail, types.OSTypeUnknown)
			return
		}
		local := v.oracle.Verify(v.authToken, f.PairedKeyEncryption)
		if !v.writer.WriteFrame(&frame.V1Frame{
			Type:            frame.FrameTypePairedKeyResult,
			PairedKeyResult: &frame.PairedKeyResultFrame{Status: local.wire(), OSType: v.localOS},
		}) {
			callback(ResultFail, types.OSTypeUnknown)
			return
		}
		v.frames.ReadFrame(frame.FrameTypePairedKeyResult, func(f *frame.V1Frame) {
			if f == nil || f.PairedKeyResult == nil {
				tool.DefaultLogger.Warnf("[KeyVerification] No result frame from peer")
				callback(ResultFail, types.OSTypeUnknown)
				return
			}
			callback(combineResults(local, resultFromWire(f.PairedKeyResult.Status)), f.PairedKeyResult.OSType)
		}, v.timeout)
	}, v.timeout)
}

// combineResults merges our verdict with the peer's: any failure fails,
// success needs both sides.
func combineResults(local, remote Result) Result {
	switch {
	case local == ResultFail || remote == ResultFail:
		return ResultFail
	case local == ResultSuccess && remote == ResultSuccess:
		return ResultSuccess
	case local == ResultUnknown || remote == ResultUnknown:
		return ResultFail
	default:
		return ResultUnable
	}
}

const (
	pinKeyInfo     = "sharesession paired key"
	signedDataInfo = "signed data"
	secretIDLength = 6
)

// PinOracle proves knowledge of a shared PIN, bound to the connection's auth
// token. Without a PIN it can only answer Unable.
type PinOracle struct {
	Pin string
}

func (o PinOracle) key(authToken []byte) ([]byte, error) {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, []byte(o.Pin), authToken, []byte(pinKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %v", err)
	}
	return key, nil
}

func (o PinOracle) sign(key, authToken []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signedDataInfo))
	mac.Write(authToken)
	return mac.Sum(nil)
}

func (o PinOracle) Encryption(authToken []byte) (*frame.PairedKeyEncryptionFrame, error) {
	if o.Pin == "" {
		return &frame.PairedKeyEncryptionFrame{}, nil
	}
	key, err := o.key(authToken)
	if err != nil {
		return nil, err
	}
	id := sha256.Sum256(key)
	return &frame.PairedKeyEncryptionFrame{
		SignedData:   o.sign(key, authToken),
		SecretIDHash: id[:secretIDLength],
	}, nil
}

func (o PinOracle) Verify(authToken []byte, peer *frame.PairedKeyEncryptionFrame) Result {
	if peer == nil || o.Pin == "" || len(peer.SignedData) == 0 {
		return ResultUnable
	}
	key, err := o.key(authToken)
	if err != nil {
		return ResultFail
	}
	if !hmac.Equal(peer.SignedData, o.sign(key, authToken)) {
		return ResultFail
	}
	return ResultSuccess
}
