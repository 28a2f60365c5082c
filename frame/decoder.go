package frame

import "fmt"

// Decoder turns raw connection reads into frames.
type Decoder interface {
	DecodeFrame(data []byte) (*Frame, error)
}

// DefaultDecoder accepts version 1 frames only.
type DefaultDecoder struct{}

func (DefaultDecoder) DecodeFrame(data []byte) (*Frame, error) {
	f, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if f.Version != VersionV1 || f.V1 == nil {
		return nil, fmt.Errorf("%w: %v (version %d)", ErrMalformed, errMissingV1Body, f.Version)
	}
	return f, nil
}
