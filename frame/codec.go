package frame

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/moyoez/sharesession/types"
)

var (
	ErrMalformed     = errors.New("frame: malformed")
	errWireType      = errors.New("unexpected wire type")
	errMissingV1Body = errors.New("missing v1 frame")
)

// Field numbers of the wire messages.
const (
	frameVersionField protowire.Number = 1
	frameV1Field      protowire.Number = 2

	v1TypeField                protowire.Number = 1
	v1IntroductionField        protowire.Number = 2
	v1ConnectionResponseField  protowire.Number = 3
	v1PairedKeyEncryptionField protowire.Number = 4
	v1PairedKeyResultField     protowire.Number = 5
	v1ProgressUpdateField      protowire.Number = 7

	introFileMetadataField    protowire.Number = 1
	introTextMetadataField    protowire.Number = 2
	introRequiredPackageField protowire.Number = 3
	introWifiMetadataField    protowire.Number = 4
	introStartTransferField   protowire.Number = 6

	fileNameField         protowire.Number = 1
	fileTypeField         protowire.Number = 2
	filePayloadIDField    protowire.Number = 3
	fileSizeField         protowire.Number = 4
	fileMimeTypeField     protowire.Number = 5
	fileIDField           protowire.Number = 6
	fileParentFolderField protowire.Number = 7

	textTitleField     protowire.Number = 2
	textTypeField      protowire.Number = 3
	textPayloadIDField protowire.Number = 4
	textSizeField      protowire.Number = 5
	textIDField        protowire.Number = 6

	wifiSSIDField         protowire.Number = 2
	wifiSecurityTypeField protowire.Number = 3
	wifiPayloadIDField    protowire.Number = 4
	wifiIDField           protowire.Number = 5

	responseStatusField protowire.Number = 1

	pkeSignedDataField         protowire.Number = 1
	pkeSecretIDHashField       protowire.Number = 2
	pkeOptionalSignedDataField protowire.Number = 3

	pkrStatusField protowire.Number = 1
	pkrOSTypeField protowire.Number = 2

	progressValueField         protowire.Number = 1
	progressStartTransferField protowire.Number = 2

	credentialsPasswordField   protowire.Number = 1
	credentialsHiddenSSIDField protowire.Number = 2
)

// Marshal encodes a frame. Zero scalars are omitted; set sub-messages are
// always written, even when empty.
func Marshal(f *Frame) []byte {
	if f == nil {
		return nil
	}
	var b []byte
	b = appendVarint(b, frameVersionField, uint64(f.Version))
	if f.V1 != nil {
		b = appendMessage(b, frameV1Field, f.V1.appendTo(nil))
	}
	return b
}

// EncodeV1 wraps v1 in a version 1 envelope and encodes it.
func EncodeV1(v1 *V1Frame) []byte {
	return Marshal(&Frame{Version: VersionV1, V1: v1})
}

func Unmarshal(data []byte) (*Frame, error) {
	f := &Frame{}
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case frameVersionField:
			f.Version = Version(r.varint(typ))
		case frameV1Field:
			f.V1 = &V1Frame{}
			r.message(typ, f.V1.unmarshal)
		default:
			r.skip(num, typ)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return f, nil
}

func MarshalWifiCredentials(c WifiCredentials) []byte {
	var b []byte
	b = appendString(b, credentialsPasswordField, c.Password)
	b = appendBool(b, credentialsHiddenSSIDField, c.HiddenSSID)
	return b
}

func UnmarshalWifiCredentials(data []byte) (WifiCredentials, error) {
	var c WifiCredentials
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case credentialsPasswordField:
			c.Password = string(r.bytes(typ))
		case credentialsHiddenSSIDField:
			c.HiddenSSID = r.varint(typ) != 0
		default:
			r.skip(num, typ)
		}
	}
	return c, r.err
}

func (f *V1Frame) appendTo(b []byte) []byte {
	b = appendVarint(b, v1TypeField, uint64(f.Type))
	if f.Introduction != nil {
		b = appendMessage(b, v1IntroductionField, f.Introduction.appendTo(nil))
	}
	if f.ConnectionResponse != nil {
		b = appendMessage(b, v1ConnectionResponseField, f.ConnectionResponse.appendTo(nil))
	}
	if f.PairedKeyEncryption != nil {
		b = appendMessage(b, v1PairedKeyEncryptionField, f.PairedKeyEncryption.appendTo(nil))
	}
	if f.PairedKeyResult != nil {
		b = appendMessage(b, v1PairedKeyResultField, f.PairedKeyResult.appendTo(nil))
	}
	if f.ProgressUpdate != nil {
		b = appendMessage(b, v1ProgressUpdateField, f.ProgressUpdate.appendTo(nil))
	}
	return b
}

func (f *V1Frame) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case v1TypeField:
			f.Type = FrameType(r.varint(typ))
		case v1IntroductionField:
			f.Introduction = &IntroductionFrame{}
			r.message(typ, f.Introduction.unmarshal)
		case v1ConnectionResponseField:
			f.ConnectionResponse = &ConnectionResponseFrame{}
			r.message(typ, f.ConnectionResponse.unmarshal)
		case v1PairedKeyEncryptionField:
			f.PairedKeyEncryption = &PairedKeyEncryptionFrame{}
			r.message(typ, f.PairedKeyEncryption.unmarshal)
		case v1PairedKeyResultField:
			f.PairedKeyResult = &PairedKeyResultFrame{}
			r.message(typ, f.PairedKeyResult.unmarshal)
		case v1ProgressUpdateField:
			f.ProgressUpdate = &ProgressUpdateFrame{}
			r.message(typ, f.ProgressUpdate.unmarshal)
		default:
			r.skip(num, typ)
		}
	}
	return r.err
}

func (f *IntroductionFrame) appendTo(b []byte) []byte {
	for i := range f.FileMetadata {
		b = appendMessage(b, introFileMetadataField, f.FileMetadata[i].appendTo(nil))
	}
	for i := range f.TextMetadata {
		b = appendMessage(b, introTextMetadataField, f.TextMetadata[i].appendTo(nil))
	}
	b = appendString(b, introRequiredPackageField, f.RequiredPackage)
	for i := range f.WifiCredentialsMetadata {
		b = appendMessage(b, introWifiMetadataField, f.WifiCredentialsMetadata[i].appendTo(nil))
	}
	b = appendBool(b, introStartTransferField, f.StartTransfer)
	return b
}

func (f *IntroductionFrame) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case introFileMetadataField:
			var m FileMetadata
			r.message(typ, m.unmarshal)
			f.FileMetadata = append(f.FileMetadata, m)
		case introTextMetadataField:
			var m TextMetadata
			r.message(typ, m.unmarshal)
			f.TextMetadata = append(f.TextMetadata, m)
		case introRequiredPackageField:
			f.RequiredPackage = string(r.bytes(typ))
		case introWifiMetadataField:
			var m WifiCredentialsMetadata
			r.message(typ, m.unmarshal)
			f.WifiCredentialsMetadata = append(f.WifiCredentialsMetadata, m)
		case introStartTransferField:
			f.StartTransfer = r.varint(typ) != 0
		default:
			r.skip(num, typ)
		}
	}
	return r.err
}

func (m *FileMetadata) appendTo(b []byte) []byte {
	b = appendString(b, fileNameField, m.Name)
	b = appendVarint(b, fileTypeField, uint64(m.Type))
	b = appendVarint(b, filePayloadIDField, uint64(m.PayloadID))
	b = appendVarint(b, fileSizeField, uint64(m.Size))
	b = appendString(b, fileMimeTypeField, m.MimeType)
	b = appendVarint(b, fileIDField, uint64(m.ID))
	b = appendString(b, fileParentFolderField, m.ParentFolder)
	return b
}

func (m *FileMetadata) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case fileNameField:
			m.Name = string(r.bytes(typ))
		case fileTypeField:
			m.Type = FileType(r.varint(typ))
		case filePayloadIDField:
			m.PayloadID = int64(r.varint(typ))
		case fileSizeField:
			m.Size = int64(r.varint(typ))
		case fileMimeTypeField:
			m.MimeType = string(r.bytes(typ))
		case fileIDField:
			m.ID = int64(r.varint(typ))
		case fileParentFolderField:
			m.ParentFolder = string(r.bytes(typ))
		default:
			r.skip(num, typ)
		}
	}
	return r.err
}

func (m *TextMetadata) appendTo(b []byte) []byte {
	b = appendString(b, textTitleField, m.TextTitle)
	b = appendVarint(b, textTypeField, uint64(m.Type))
	b = appendVarint(b, textPayloadIDField, uint64(m.PayloadID))
	b = appendVarint(b, textSizeField, uint64(m.Size))
	b = appendVarint(b, textIDField, uint64(m.ID))
	return b
}

func (m *TextMetadata) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case textTitleField:
			m.TextTitle = string(r.bytes(typ))
		case textTypeField:
			m.Type = TextType(r.varint(typ))
		case textPayloadIDField:
			m.PayloadID = int64(r.varint(typ))
		case textSizeField:
			m.Size = int64(r.varint(typ))
		case textIDField:
			m.ID = int64(r.varint(typ))
		default:
			r.skip(num, typ)
		}
	}
	return r.err
}

func (m *WifiCredentialsMetadata) appendTo(b []byte) []byte {
	b = appendString(b, wifiSSIDField, m.SSID)
	b = appendVarint(b, wifiSecurityTypeField, uint64(m.SecurityType))
	b = appendVarint(b, wifiPayloadIDField, uint64(m.PayloadID))
	b = appendVarint(b, wifiIDField, uint64(m.ID))
	return b
}

func (m *WifiCredentialsMetadata) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case wifiSSIDField:
			m.SSID = string(r.bytes(typ))
		case wifiSecurityTypeField:
			m.SecurityType = SecurityType(r.varint(typ))
		case wifiPayloadIDField:
			m.PayloadID = int64(r.varint(typ))
		case wifiIDField:
			m.ID = int64(r.varint(typ))
		default:
			r.skip(num, typ)
		}
	}
	return r.err
}

func (f *ConnectionResponseFrame) appendTo(b []byte) []byte {
	return appendVarint(b, responseStatusField, uint64(f.Status))
}

func (f *ConnectionResponseFrame) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		if num == responseStatusField {
			f.Status = ResponseStatus(r.varint(typ))
			continue
		}
		r.skip(num, typ)
	}
	return r.err
}

func (f *PairedKeyEncryptionFrame) appendTo(b []byte) []byte {
	b = appendBytes(b, pkeSignedDataField, f.SignedData)
	b = appendBytes(b, pkeSecretIDHashField, f.SecretIDHash)
	b = appendBytes(b, pkeOptionalSignedDataField, f.OptionalSignedData)
	return b
}

func (f *PairedKeyEncryptionFrame) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case pkeSignedDataField:
			f.SignedData = cloneBytes(r.bytes(typ))
		case pkeSecretIDHashField:
			f.SecretIDHash = cloneBytes(r.bytes(typ))
		case pkeOptionalSignedDataField:
			f.OptionalSignedData = cloneBytes(r.bytes(typ))
		default:
			r.skip(num, typ)
		}
	}
	return r.err
}

func (f *PairedKeyResultFrame) appendTo(b []byte) []byte {
	b = appendVarint(b, pkrStatusField, uint64(f.Status))
	b = appendVarint(b, pkrOSTypeField, uint64(f.OSType))
	return b
}

func (f *PairedKeyResultFrame) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case pkrStatusField:
			f.Status = PairedKeyResultStatus(r.varint(typ))
		case pkrOSTypeField:
			f.OSType = types.OSType(r.varint(typ))
		default:
			r.skip(num, typ)
		}
	}
	return r.err
}

func (f *ProgressUpdateFrame) appendTo(b []byte) []byte {
	if f.Progress != nil {
		b = protowire.AppendTag(b, progressValueField, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(*f.Progress))
	}
	b = appendBool(b, progressStartTransferField, f.StartTransfer)
	return b
}

func (f *ProgressUpdateFrame) unmarshal(data []byte) error {
	r := fieldReader{b: data}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case progressValueField:
			v := math.Float32frombits(r.fixed32(typ))
			f.Progress = &v
		case progressStartTransferField:
			f.StartTransfer = r.varint(typ) != 0
		default:
			r.skip(num, typ)
		}
	}
	return r.err
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// fieldReader walks the fields of one encoded message. The first error
// sticks and ends the walk.
type fieldReader struct {
	b   []byte
	err error
}

func (r *fieldReader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func (r *fieldReader) next() (protowire.Number, protowire.Type, bool) {
	if r.err != nil || len(r.b) == 0 {
		return 0, 0, false
	}
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return 0, 0, false
	}
	r.b = r.b[n:]
	return num, typ, true
}

func (r *fieldReader) varint(typ protowire.Type) uint64 {
	if typ != protowire.VarintType {
		r.fail(errWireType)
		return 0
	}
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *fieldReader) fixed32(typ protowire.Type) uint32 {
	if typ != protowire.Fixed32Type {
		r.fail(errWireType)
		return 0
	}
	v, n := protowire.ConsumeFixed32(r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *fieldReader) bytes(typ protowire.Type) []byte {
	if typ != protowire.BytesType {
		r.fail(errWireType)
		return nil
	}
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return nil
	}
	r.b = r.b[n:]
	return v
}

func (r *fieldReader) message(typ protowire.Type, decode func([]byte) error) {
	body := r.bytes(typ)
	if r.err != nil {
		return
	}
	if err := decode(body); err != nil && r.err == nil {
		r.err = err
	}
}

func (r *fieldReader) skip(num protowire.Number, typ protowire.Type) {
	n := protowire.ConsumeFieldValue(num, typ, r.b)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return
	}
	r.b = r.b[n:]
}
