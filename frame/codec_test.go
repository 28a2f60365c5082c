package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/moyoez/sharesession/types"
)

// TestIntroductionRoundTrip checks every metadata field survives and order is kept.
func TestIntroductionRoundTrip(t *testing.T) {
	intro := &IntroductionFrame{
		FileMetadata: []FileMetadata{
			{Name: "someFileName.jpg", Type: FileTypeImage, PayloadID: 11, Size: 12355, MimeType: "image/jpeg", ID: 1, ParentFolder: "/usr/local/parent"},
			{Name: "someFileName2.jpg", Type: FileTypeImage, PayloadID: 12, Size: 1, MimeType: "image/jpeg", ID: 2},
		},
		TextMetadata: []TextMetadata{
			{TextTitle: "Some text title", Type: TextTypeURL, PayloadID: 21, Size: 18, ID: 3},
			{TextTitle: "Some text title 2", Type: TextTypeAddress, PayloadID: 22, Size: 20, ID: 4},
		},
		WifiCredentialsMetadata: []WifiCredentialsMetadata{
			{SSID: "GoogleGuest", SecurityType: SecurityTypeWPAPSK, PayloadID: 31, ID: 5},
		},
		StartTransfer: true,
	}

	decoded, err := DefaultDecoder{}.DecodeFrame(EncodeV1(NewIntroduction(intro)))
	require.NoError(t, err)
	assert.Equal(t, VersionV1, decoded.Version)
	require.NotNil(t, decoded.V1)
	assert.Equal(t, FrameTypeIntroduction, decoded.V1.Type)
	assert.Equal(t, intro, decoded.V1.Introduction)
	assert.Equal(t, 5, decoded.V1.Introduction.PayloadCount())
}

// TestConnectionResponseRoundTrip checks each response status decodes back.
func TestConnectionResponseRoundTrip(t *testing.T) {
	for _, status := range []ResponseStatus{
		ResponseUnknown, ResponseAccept, ResponseReject, ResponseNotEnoughSpace,
		ResponseUnsupportedAttachmentType, ResponseTimedOut,
	} {
		f, err := Unmarshal(EncodeV1(NewConnectionResponse(status)))
		require.NoError(t, err, status.String())
		require.NotNil(t, f.V1.ConnectionResponse, status.String())
		assert.Equal(t, status, f.V1.ConnectionResponse.Status)
		assert.Equal(t, FrameTypeResponse, f.V1.Type)
	}
}

// TestProgressUpdateRoundTrip checks the optional progress value keeps its presence.
func TestProgressUpdateRoundTrip(t *testing.T) {
	f, err := Unmarshal(EncodeV1(NewStartTransfer()))
	require.NoError(t, err)
	require.NotNil(t, f.V1.ProgressUpdate)
	assert.True(t, f.V1.ProgressUpdate.StartTransfer)
	assert.Nil(t, f.V1.ProgressUpdate.Progress)

	f, err = Unmarshal(EncodeV1(NewProgressUpdate(42.5)))
	require.NoError(t, err)
	require.NotNil(t, f.V1.ProgressUpdate.Progress)
	assert.Equal(t, float32(42.5), *f.V1.ProgressUpdate.Progress)
	assert.False(t, f.V1.ProgressUpdate.StartTransfer)
}

// TestPairedKeyFramesRoundTrip checks both key verification frames.
func TestPairedKeyFramesRoundTrip(t *testing.T) {
	enc := &V1Frame{
		Type:                FrameTypePairedKeyEncryption,
		PairedKeyEncryption: &PairedKeyEncryptionFrame{SignedData: []byte{1, 2, 3}, SecretIDHash: []byte{9, 8}},
	}
	f, err := Unmarshal(EncodeV1(enc))
	require.NoError(t, err)
	assert.Equal(t, enc.PairedKeyEncryption, f.V1.PairedKeyEncryption)

	res := &V1Frame{
		Type:            FrameTypePairedKeyResult,
		PairedKeyResult: &PairedKeyResultFrame{Status: PairedKeyResultSuccess, OSType: types.OSTypeWindows},
	}
	f, err = Unmarshal(EncodeV1(res))
	require.NoError(t, err)
	assert.Equal(t, res.PairedKeyResult, f.V1.PairedKeyResult)
}

// TestCancelFrameHasNoBody checks CANCEL decodes with only its type set.
func TestCancelFrameHasNoBody(t *testing.T) {
	f, err := DefaultDecoder{}.DecodeFrame(EncodeV1(NewCancel()))
	require.NoError(t, err)
	assert.Equal(t, &V1Frame{Type: FrameTypeCancel}, f.V1)
}

// TestWifiCredentialsEncoding checks the payload body form of wifi credentials.
func TestWifiCredentialsEncoding(t *testing.T) {
	data := MarshalWifiCredentials(WifiCredentials{Password: "somepassword", HiddenSSID: true})
	creds, err := UnmarshalWifiCredentials(data)
	require.NoError(t, err)
	assert.Equal(t, "somepassword", creds.Password)
	assert.True(t, creds.HiddenSSID)

	creds, err = UnmarshalWifiCredentials(MarshalWifiCredentials(WifiCredentials{Password: "x"}))
	require.NoError(t, err)
	assert.False(t, creds.HiddenSSID)
}

// TestUnknownFieldsAreSkipped checks fields from newer peers do not break decoding.
func TestUnknownFieldsAreSkipped(t *testing.T) {
	body := NewConnectionResponse(ResponseAccept).appendTo(nil)
	body = protowire.AppendTag(body, 99, protowire.BytesType)
	body = protowire.AppendString(body, "future")
	body = protowire.AppendTag(body, 100, protowire.Fixed64Type)
	body = protowire.AppendFixed64(body, 7)

	var data []byte
	data = protowire.AppendTag(data, frameVersionField, protowire.VarintType)
	data = protowire.AppendVarint(data, uint64(VersionV1))
	data = protowire.AppendTag(data, frameV1Field, protowire.BytesType)
	data = protowire.AppendBytes(data, body)

	f, err := DefaultDecoder{}.DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, ResponseAccept, f.V1.ConnectionResponse.Status)
}

// TestMalformedInput checks truncated and mistyped input is rejected.
func TestMalformedInput(t *testing.T) {
	full := EncodeV1(NewIntroduction(&IntroductionFrame{
		TextMetadata: []TextMetadata{{TextTitle: "title", PayloadID: 1, ID: 2}},
	}))
	_, err := Unmarshal(full[:len(full)-3])
	assert.ErrorIs(t, err, ErrMalformed)

	var wrongType []byte
	wrongType = protowire.AppendTag(wrongType, frameVersionField, protowire.BytesType)
	wrongType = protowire.AppendString(wrongType, "v1")
	_, err = Unmarshal(wrongType)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DefaultDecoder{}.DecodeFrame(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

// TestFileTypeForMime checks mime buckets.
func TestFileTypeForMime(t *testing.T) {
	assert.Equal(t, FileTypeImage, FileTypeForMime("image/jpeg"))
	assert.Equal(t, FileTypeVideo, FileTypeForMime("video/mp4"))
	assert.Equal(t, FileTypeAudio, FileTypeForMime("audio/mpeg"))
	assert.Equal(t, FileTypeApp, FileTypeForMime("application/vnd.android.package-archive"))
	assert.Equal(t, FileTypeDocument, FileTypeForMime("application/pdf"))
	assert.Equal(t, FileTypeUnknown, FileTypeForMime("application/octet-stream"))
}
