// Package frame holds the control frames two devices exchange over a share
// connection and their protobuf wire encoding.
package frame

import "github.com/moyoez/sharesession/types"

type Version int32

const (
	VersionUnknown Version = 0
	VersionV1      Version = 1
)

// Frame is the outer envelope written on the connection.
type Frame struct {
	Version Version
	V1      *V1Frame
}

// V1Frame is a tagged union; Type says which body is set. CANCEL carries no
// body.
type V1Frame struct {
	Type                FrameType
	Introduction        *IntroductionFrame
	ConnectionResponse  *ConnectionResponseFrame
	PairedKeyEncryption *PairedKeyEncryptionFrame
	PairedKeyResult     *PairedKeyResultFrame
	ProgressUpdate      *ProgressUpdateFrame
}

type IntroductionFrame struct {
	FileMetadata            []FileMetadata
	TextMetadata            []TextMetadata
	RequiredPackage         string
	WifiCredentialsMetadata []WifiCredentialsMetadata
	StartTransfer           bool
}

// PayloadCount is the number of payloads the introduction announces.
func (f *IntroductionFrame) PayloadCount() int {
	if f == nil {
		return 0
	}
	return len(f.FileMetadata) + len(f.TextMetadata) + len(f.WifiCredentialsMetadata)
}

type FileMetadata struct {
	Name         string
	Type         FileType
	PayloadID    int64
	Size         int64
	MimeType     string
	ID           int64
	ParentFolder string
}

type TextMetadata struct {
	TextTitle string
	Type      TextType
	PayloadID int64
	Size      int64
	ID        int64
}

type WifiCredentialsMetadata struct {
	SSID         string
	SecurityType SecurityType
	PayloadID    int64
	ID           int64
}

type ConnectionResponseFrame struct {
	Status ResponseStatus
}

type PairedKeyEncryptionFrame struct {
	SignedData         []byte
	SecretIDHash       []byte
	OptionalSignedData []byte
}

type PairedKeyResultFrame struct {
	Status PairedKeyResultStatus
	OSType types.OSType
}

// ProgressUpdateFrame announces aggregate progress. Progress is nil on the
// frame that only signals the start of the transfer.
type ProgressUpdateFrame struct {
	Progress      *float32
	StartTransfer bool
}

// WifiCredentials is the body of a wifi credentials payload.
type WifiCredentials struct {
	Password   string
	HiddenSSID bool
}

func NewIntroduction(intro *IntroductionFrame) *V1Frame {
	return &V1Frame{Type: FrameTypeIntroduction, Introduction: intro}
}

func NewConnectionResponse(status ResponseStatus) *V1Frame {
	return &V1Frame{Type: FrameTypeResponse, ConnectionResponse: &ConnectionResponseFrame{Status: status}}
}

func NewStartTransfer() *V1Frame {
	return &V1Frame{Type: FrameTypeProgressUpdate, ProgressUpdate: &ProgressUpdateFrame{StartTransfer: true}}
}

func NewProgressUpdate(progress float32) *V1Frame {
	return &V1Frame{Type: FrameTypeProgressUpdate, ProgressUpdate: &ProgressUpdateFrame{Progress: &progress}}
}

func NewCancel() *V1Frame {
	return &V1Frame{Type: FrameTypeCancel}
}
