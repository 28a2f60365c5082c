package tool

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/moyoez/sharesession/types"
)

var ErrFileCountMismatch = errors.New("resolved file count does not match")

// ResolveFileInfos stats every path and returns its on-disk size, in order.
// Opening files is slow, so callers run this off the session runner.
func ResolveFileInfos(paths []string) ([]types.FileInfo, error) {
	infos := make([]types.FileInfo, 0, len(paths))
	for _, p := range paths {
		fileInfo, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if fileInfo.IsDir() {
			return nil, fmt.Errorf("path is a directory, not a file: %s", p)
		}
		infos = append(infos, types.FileInfo{Size: fileInfo.Size(), Path: p})
	}
	if len(infos) != len(paths) {
		return nil, ErrFileCountMismatch
	}
	return infos, nil
}

// MimeTypeForPath detects the MIME type from the file extension.
func MimeTypeForPath(filePath string) string {
	fileType := mime.TypeByExtension(filepath.Ext(filePath))
	if fileType == "" {
		return "application/octet-stream"
	}
	return fileType
}
