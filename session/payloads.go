package session

import (
	"github.com/moyoez/sharesession/frame"
	"github.com/moyoez/sharesession/payload"
	"github.com/moyoez/sharesession/tool"
	"github.com/moyoez/sharesession/types"
)

// GetFilePaths lists the file attachment paths in declaration order.
func (s *OutgoingShareSession) GetFilePaths() []string {
	return s.container.FilePaths()
}

func (s *OutgoingShareSession) FilePayloads() []payload.Payload { return s.filePayloads }
func (s *OutgoingShareSession) TextPayloads() []payload.Payload { return s.textPayloads }
func (s *OutgoingShareSession) WifiCredentialsPayloads() []payload.Payload {
	return s.wifiPayloads
}

// CreateFilePayloads needs one resolved info per file attachment, in
// attachment order. On a count mismatch nothing is built.
func (s *OutgoingShareSession) CreateFilePayloads(infos []types.FileInfo) bool {
	files := s.container.FileAttachments()
	if len(infos) != len(files) {
		s.logger.Warnf("[OutgoingShareSession] Got %d file infos for %d file attachments", len(infos), len(files))
		return false
	}
	for i, info := range infos {
		s.container.SetFileSize(i, info.Size)
		p := payload.NewFilePayload(tool.GenerateID(), info.Path, info.Size, files[i].ParentFolder())
		s.attachmentPayloadMap[files[i].ID()] = p.ID
		s.filePayloads = append(s.filePayloads, p)
	}
	return true
}

func (s *OutgoingShareSession) CreateTextPayloads() {
	for _, t := range s.container.TextAttachments() {
		p := payload.NewBytesPayload(tool.GenerateID(), []byte(t.Body()))
		s.attachmentPayloadMap[t.ID()] = p.ID
		s.textPayloads = append(s.textPayloads, p)
	}
}

func (s *OutgoingShareSession) CreateWifiCredentialsPayloads() {
	for _, w := range s.container.WifiCredentialsAttachments() {
		data := frame.MarshalWifiCredentials(frame.WifiCredentials{
			Password:   w.Password(),
			HiddenSSID: w.IsHidden(),
		})
		p := payload.NewBytesPayload(tool.GenerateID(), data)
		s.attachmentPayloadMap[w.ID()] = p.ID
		s.wifiPayloads = append(s.wifiPayloads, p)
	}
}

func (s *OutgoingShareSession) payloadCount() int {
	return len(s.filePayloads) + len(s.textPayloads) + len(s.wifiPayloads)
}

func (s *OutgoingShareSession) introduction() *frame.IntroductionFrame {
	intro := &frame.IntroductionFrame{StartTransfer: true}
	for _, f := range s.container.FileAttachments() {
		payloadID, ok := s.attachmentPayloadMap[f.ID()]
		if !ok {
			s.logger.Warnf("[OutgoingShareSession] File attachment %d has no payload", f.ID())
			continue
		}
		intro.FileMetadata = append(intro.FileMetadata, frame.FileMetadata{
			Name:         f.FileName(),
			Type:         f.Type(),
			PayloadID:    payloadID,
			Size:         f.Size(),
			MimeType:     f.MimeType(),
			ID:           f.ID(),
			ParentFolder: f.ParentFolder(),
		})
	}
	for _, t := range s.container.TextAttachments() {
		payloadID, ok := s.attachmentPayloadMap[t.ID()]
		if !ok {
			s.logger.Warnf("[OutgoingShareSession] Text attachment %d has no payload", t.ID())
			continue
		}
		intro.TextMetadata = append(intro.TextMetadata, frame.TextMetadata{
			TextTitle: t.Title(),
			Type:      t.Type(),
			PayloadID: payloadID,
			Size:      t.Size(),
			ID:        t.ID(),
		})
	}
	for _, w := range s.container.WifiCredentialsAttachments() {
		payloadID, ok := s.attachmentPayloadMap[w.ID()]
		if !ok {
			s.logger.Warnf("[OutgoingShareSession] Wifi attachment %d has no payload", w.ID())
			continue
		}
		intro.WifiCredentialsMetadata = append(intro.WifiCredentialsMetadata, frame.WifiCredentialsMetadata{
			SSID:         w.SSID(),
			SecurityType: w.SecurityType(),
			PayloadID:    payloadID,
			ID:           w.ID(),
		})
	}
	return intro
}
