// Package attachment models what a user shares: text snippets, files and
// wifi credentials.
package attachment

import (
	"path/filepath"

	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/tool"
)

type Family int

const (
	FamilyText Family = iota + 1
	FamilyFile
	FamilyWifiCredentials
)

func (f Family) String() string {
	switch f {
	case FamilyText:
		return "text"
	case FamilyFile:
		return "file"
	case FamilyWifiCredentials:
		return "wifi_credentials"
	default:
		return "unknown"
	}
}

// Attachment is implemented by TextAttachment, FileAttachment and
// WifiCredentialsAttachment only.
type Attachment interface {
	ID() int64
	Size() int64
	Family() Family
}

type TextAttachment struct {
	id       int64
	textType frame.TextType
	body     string
	title    string
	mimeType string
}

func NewTextAttachment(textType frame.TextType, body, title, mimeType string) TextAttachment {
	return TextAttachment{
		id:       tool.GenerateID(),
		textType: textType,
		body:     body,
		title:    title,
		mimeType: mimeType,
	}
}

func (a TextAttachment) ID() int64            { return a.id }
func (a TextAttachment) Size() int64          { return int64(len(a.body)) }
func (a TextAttachment) Family() Family       { return FamilyText }
func (a TextAttachment) Type() frame.TextType { return a.textType }
func (a TextAttachment) Body() string         { return a.body }
func (a TextAttachment) Title() string        { return a.title }
func (a TextAttachment) MimeType() string     { return a.mimeType }

type FileAttachment struct {
	id           int64
	size         int64
	filePath     string
	parentFolder string
	fileName     string
	mimeType     string
	fileType     frame.FileType
}

// NewFileAttachment describes a local file. The size stays zero until the
// file is resolved on disk.
func NewFileAttachment(filePath, parentFolder string) FileAttachment {
	mimeType := tool.MimeTypeForPath(filePath)
	return FileAttachment{
		id:           tool.GenerateID(),
		filePath:     filePath,
		parentFolder: parentFolder,
		fileName:     filepath.Base(filePath),
		mimeType:     mimeType,
		fileType:     frame.FileTypeForMime(mimeType),
	}
}

func (a FileAttachment) ID() int64            { return a.id }
func (a FileAttachment) Size() int64          { return a.size }
func (a FileAttachment) Family() Family       { return FamilyFile }
func (a FileAttachment) FilePath() string     { return a.filePath }
func (a FileAttachment) ParentFolder() string { return a.parentFolder }
func (a FileAttachment) FileName() string     { return a.fileName }
func (a FileAttachment) MimeType() string     { return a.mimeType }
func (a FileAttachment) Type() frame.FileType { return a.fileType }

type WifiCredentialsAttachment struct {
	id           int64
	ssid         string
	securityType frame.SecurityType
	password     string
	hidden       bool
}

func NewWifiCredentialsAttachment(ssid string, securityType frame.SecurityType, password string, hidden bool) WifiCredentialsAttachment {
	return WifiCredentialsAttachment{
		id:           tool.GenerateID(),
		ssid:         ssid,
		securityType: securityType,
		password:     password,
		hidden:       hidden,
	}
}

func (a WifiCredentialsAttachment) ID() int64                        { return a.id }
func (a WifiCredentialsAttachment) Size() int64                      { return int64(len(a.password)) }
func (a WifiCredentialsAttachment) Family() Family                   { return FamilyWifiCredentials }
func (a WifiCredentialsAttachment) SSID() string                     { return a.ssid }
func (a WifiCredentialsAttachment) SecurityType() frame.SecurityType { return a.securityType }
func (a WifiCredentialsAttachment) Password() string                 { return a.password }
func (a WifiCredentialsAttachment) IsHidden() bool                   { return a.hidden }
