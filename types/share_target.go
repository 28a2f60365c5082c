package types

// OSType is the operating system a peer reports during key verification.
// Values match the wire enum.
type OSType int32

const (
	OSTypeUnknown OSType = iota
	OSTypeAndroid
	OSTypeChromeOS
	OSTypeIOS
	OSTypeWindows
	OSTypeMacOS
	OSTypeLinux
)

func (o OSType) String() string {
	switch o {
	case OSTypeAndroid:
		return "android"
	case OSTypeChromeOS:
		return "chromeos"
	case OSTypeIOS:
		return "ios"
	case OSTypeWindows:
		return "windows"
	case OSTypeMacOS:
		return "macos"
	case OSTypeLinux:
		return "linux"
	default:
		return "unknown"
	}
}

// ShareTarget describes the remote device a session talks to.
type ShareTarget struct {
	ID           int64  `json:"id"`
	DeviceName   string `json:"deviceName"`
	DeviceType   string `json:"deviceType,omitempty"`
	IsIncoming   bool   `json:"isIncoming"`
	ForSelfShare bool   `json:"forSelfShare,omitempty"`
}
