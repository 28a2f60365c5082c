package attachment

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/moyoez/sharesession/frame"
)

// Builder collects attachments for one outgoing share. The CLI and the
// local API both go through it.
type Builder struct {
	texts []TextAttachment
	files []FileAttachment
	wifis []WifiCredentialsAttachment
}

// AddText adds a text snippet. Bodies that parse as an http(s) URL are
// sent as URLs. Empty bodies are skipped.
func (b *Builder) AddText(body, title string) *Builder {
	if body == "" {
		return b
	}
	textType := frame.TextTypeText
	if u, err := url.ParseRequestURI(strings.TrimSpace(body)); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		textType = frame.TextTypeURL
	}
	b.texts = append(b.texts, NewTextAttachment(textType, body, title, "text/plain"))
	return b
}

func (b *Builder) AddFile(path string) *Builder {
	if path == "" {
		return b
	}
	b.files = append(b.files, NewFileAttachment(path, filepath.Dir(path)))
	return b
}

// AddWifi adds a network's credentials; an empty password means an open
// network.
func (b *Builder) AddWifi(ssid, password string, hidden bool) *Builder {
	if ssid == "" {
		return b
	}
	security := frame.SecurityTypeWPAPSK
	if password == "" {
		security = frame.SecurityTypeOpen
	}
	b.wifis = append(b.wifis, NewWifiCredentialsAttachment(ssid, security, password, hidden))
	return b
}

func (b *Builder) Build() *Container {
	return NewContainer(b.texts, b.files, b.wifis)
}
