package types

// FileInfo is a declared file attachment resolved against the local disk.
type FileInfo struct {
	Size int64  `json:"size"`
	Path string `json:"path"`
}
