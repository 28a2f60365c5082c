package attachment

import "github.com/moyoez/sharesession/frame"

// Container holds the attachments of one share in declaration order. Only
// file sizes (and, on the receiving side, text bodies and file paths) change
// after construction.
type Container struct {
	texts []TextAttachment
	files []FileAttachment
	wifis []WifiCredentialsAttachment
}

func NewContainer(texts []TextAttachment, files []FileAttachment, wifis []WifiCredentialsAttachment) *Container {
	return &Container{
		texts: append([]TextAttachment(nil), texts...),
		files: append([]FileAttachment(nil), files...),
		wifis: append([]WifiCredentialsAttachment(nil), wifis...),
	}
}

func (c *Container) TextAttachments() []TextAttachment { return c.texts }
func (c *Container) FileAttachments() []FileAttachment { return c.files }
func (c *Container) WifiCredentialsAttachments() []WifiCredentialsAttachment {
	return c.wifis
}

func (c *Container) Count() int {
	return len(c.texts) + len(c.files) + len(c.wifis)
}

func (c *Container) Empty() bool {
	return c.Count() == 0
}

func (c *Container) TotalSize() int64 {
	var total int64
	for _, a := range c.All() {
		total += a.Size()
	}
	return total
}

// All lists every attachment: files, then texts, then wifi credentials.
func (c *Container) All() []Attachment {
	all := make([]Attachment, 0, c.Count())
	for _, f := range c.files {
		all = append(all, f)
	}
	for _, t := range c.texts {
		all = append(all, t)
	}
	for _, w := range c.wifis {
		all = append(all, w)
	}
	return all
}

// Get finds an attachment by id.
func (c *Container) Get(id int64) (Attachment, bool) {
	for _, a := range c.All() {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// FilePaths lists file attachment paths in declaration order.
func (c *Container) FilePaths() []string {
	paths := make([]string, 0, len(c.files))
	for _, f := range c.files {
		paths = append(paths, f.filePath)
	}
	return paths
}

func (c *Container) SetFileSize(index int, size int64) bool {
	if index < 0 || index >= len(c.files) {
		return false
	}
	c.files[index].size = size
	return true
}

// SetFilePath records where a received file landed.
func (c *Container) SetFilePath(index int, path string) bool {
	if index < 0 || index >= len(c.files) {
		return false
	}
	c.files[index].filePath = path
	return true
}

// SetTextBody fills in a received text once its payload arrived.
func (c *Container) SetTextBody(index int, body string) bool {
	if index < 0 || index >= len(c.texts) {
		return false
	}
	c.texts[index].body = body
	return true
}

// SetWifiPassword fills in received wifi credentials.
func (c *Container) SetWifiPassword(index int, password string, hidden bool) bool {
	if index < 0 || index >= len(c.wifis) {
		return false
	}
	c.wifis[index].password = password
	c.wifis[index].hidden = hidden
	return true
}

// FromIntroduction rebuilds attachments announced by a peer, keeping the
// peer's attachment ids. Text bodies, file paths and wifi passwords are
// empty until the payloads arrive.
func FromIntroduction(intro *frame.IntroductionFrame) *Container {
	c := &Container{}
	if intro == nil {
		return c
	}
	for _, m := range intro.FileMetadata {
		c.files = append(c.files, FileAttachment{
			id:           m.ID,
			size:         m.Size,
			parentFolder: m.ParentFolder,
			fileName:     m.Name,
			mimeType:     m.MimeType,
			fileType:     m.Type,
		})
	}
	for _, m := range intro.TextMetadata {
		c.texts = append(c.texts, TextAttachment{
			id:       m.ID,
			textType: m.Type,
			title:    m.TextTitle,
		})
	}
	for _, m := range intro.WifiCredentialsMetadata {
		c.wifis = append(c.wifis, WifiCredentialsAttachment{
			id:           m.ID,
			ssid:         m.SSID,
			securityType: m.SecurityType,
		})
	}
	return c
}
