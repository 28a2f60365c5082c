// Package payload is the transport-facing side of a share: payload
// descriptors, the transport contract and progress aggregation.
package payload

type ContentType int

const (
	ContentTypeUnknown ContentType = iota
	ContentTypeBytes
	ContentTypeFile
)

type FileContent struct {
	Path         string
	Size         int64
	ParentFolder string
}

type Content struct {
	Type  ContentType
	Bytes []byte
	File  FileContent
}

// Payload is one unit the transport moves. It does not know which
// attachment it carries; the session keeps that mapping.
type Payload struct {
	ID      int64
	Content Content
}

func NewBytesPayload(id int64, data []byte) Payload {
	return Payload{
		ID:      id,
		Content: Content{Type: ContentTypeBytes, Bytes: append([]byte(nil), data...)},
	}
}

func NewFilePayload(id int64, path string, size int64, parentFolder string) Payload {
	return Payload{
		ID: id,
		Content: Content{
			Type: ContentTypeFile,
			File: FileContent{Path: path, Size: size, ParentFolder: parentFolder},
		},
	}
}

func (p Payload) Size() int64 {
	switch p.Content.Type {
	case ContentTypeBytes:
		return int64(len(p.Content.Bytes))
	case ContentTypeFile:
		return p.Content.File.Size
	default:
		return 0
	}
}
