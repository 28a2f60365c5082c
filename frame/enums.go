package frame

import "strings"

type FrameType int32

const (
	FrameTypeUnknown FrameType = iota
	FrameTypeIntroduction
	FrameTypeResponse
	FrameTypePairedKeyEncryption
	FrameTypePairedKeyResult
	FrameTypeCertificateInfo
	FrameTypeCancel
	FrameTypeProgressUpdate
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeIntroduction:
		return "INTRODUCTION"
	case FrameTypeResponse:
		return "RESPONSE"
	case FrameTypePairedKeyEncryption:
		return "PAIRED_KEY_ENCRYPTION"
	case FrameTypePairedKeyResult:
		return "PAIRED_KEY_RESULT"
	case FrameTypeCertificateInfo:
		return "CERTIFICATE_INFO"
	case FrameTypeCancel:
		return "CANCEL"
	case FrameTypeProgressUpdate:
		return "PROGRESS_UPDATE"
	default:
		return "UNKNOWN_FRAME_TYPE"
	}
}

type ResponseStatus int32

const (
	ResponseUnknown ResponseStatus = iota
	ResponseAccept
	ResponseReject
	ResponseNotEnoughSpace
	ResponseUnsupportedAttachmentType
	ResponseTimedOut
)

func (s ResponseStatus) String() string {
	switch s {
	case ResponseAccept:
		return "ACCEPT"
	case ResponseReject:
		return "REJECT"
	case ResponseNotEnoughSpace:
		return "NOT_ENOUGH_SPACE"
	case ResponseUnsupportedAttachmentType:
		return "UNSUPPORTED_ATTACHMENT_TYPE"
	case ResponseTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

type PairedKeyResultStatus int32

const (
	PairedKeyResultUnknown PairedKeyResultStatus = iota
	PairedKeyResultSuccess
	PairedKeyResultFail
	PairedKeyResultUnable
)

type FileType int32

const (
	FileTypeUnknown FileType = iota
	FileTypeImage
	FileTypeVideo
	FileTypeApp
	FileTypeAudio
	FileTypeDocument
)

// FileTypeForMime buckets a MIME type into the coarse wire file type.
func FileTypeForMime(mimeType string) FileType {
	major, _, _ := strings.Cut(strings.ToLower(mimeType), "/")
	switch {
	case major == "image":
		return FileTypeImage
	case major == "video":
		return FileTypeVideo
	case major == "audio":
		return FileTypeAudio
	case mimeType == "application/vnd.android.package-archive":
		return FileTypeApp
	case major == "text", strings.HasPrefix(mimeType, "application/pdf"),
		strings.Contains(mimeType, "document"), strings.Contains(mimeType, "msword"):
		return FileTypeDocument
	default:
		return FileTypeUnknown
	}
}

type TextType int32

const (
	TextTypeUnknown TextType = iota
	TextTypeText
	TextTypeURL
	TextTypeAddress
	TextTypePhoneNumber
)

type SecurityType int32

const (
	SecurityTypeUnknown SecurityType = iota
	SecurityTypeOpen
	SecurityTypeWPAPSK
	SecurityTypeWEP
	SecurityTypeSAE
)
