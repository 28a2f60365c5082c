package tool

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateID returns a random positive 64-bit id. Attachment, payload and
// session ids all come from here.
func GenerateID() int64 {
	u := uuid.New()
	id := int64(binary.BigEndian.Uint64(u[:8]) & 0x7fffffffffffffff)
	if id == 0 {
		return 1
	}
	return id
}

// GenerateEndpointID returns a four character endpoint id such as "A3F9".
func GenerateEndpointID() string {
	return strings.ToUpper(strings.ReplaceAll(GenerateRandomUUID(), "-", "")[:4])
}
