// Package record encodes and decodes the (name, message) record stored in a
// program account. The layout is produced by an on-ledger program and must be
// matched byte for byte:
//
//	u32 LE  name length (L1)
//	[L1]    name, UTF-8
//	u32 LE  message length (L2)
//	[L2]    message, UTF-8
//
// Any bytes after the message are ignored; account slots are fixed size and
// zero padded by the program.
package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

const lengthPrefixSize = 4

// Record is one decoded account entry.
type Record struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// EncodingError is returned when a field is too large for its u32 length prefix.
type EncodingError struct {
	Field string
	Size  uint64
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("record: %s is %d bytes, exceeds u32 length prefix", e.Field, e.Size)
}

// CorruptRecordError is returned for truncated or malformed payloads.
type CorruptRecordError struct {
	Offset int
	Reason string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("record: corrupt payload at offset %d: %s", e.Offset, e.Reason)
}

// EncodedLen returns the size of the encoded record.
func EncodedLen(name, message string) int {
	return 2*lengthPrefixSize + len(name) + len(message)
}

// Encode serializes name and message into the on-ledger layout.
func Encode(name, message string) ([]byte, error) {
	if err := checkFieldLen("name", uint64(len(name))); err != nil {
		return nil, err
	}
	if err := checkFieldLen("message", uint64(len(message))); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, EncodedLen(name, message))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(name)))
	buf = append(buf, name...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(message)))
	buf = append(buf, message...)
	return buf, nil
}

func checkFieldLen(field string, n uint64) error {
	if n > math.MaxUint32 {
		return &EncodingError{Field: field, Size: n}
	}
	return nil
}

// Decode parses a record blob. An empty blob is an absent record and yields
// (nil, nil); it is not an error.
func Decode(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, nil
	}

	p := newBinaryParser(data)
	name, err := readString(p, "name")
	if err != nil {
		return nil, err
	}
	message, err := readString(p, "message")
	if err != nil {
		return nil, err
	}
	return &Record{Name: name, Message: message}, nil
}

func readString(p *binaryParser, field string) (string, error) {
	start := p.Offset()
	n, err := p.ReadUint32()
	if err != nil {
		return "", &CorruptRecordError{Offset: start, Reason: field + " length prefix truncated"}
	}
	if uint64(n) > uint64(p.Remaining()) {
		return "", &CorruptRecordError{
			Offset: start,
			Reason: fmt.Sprintf("%s length %d exceeds remaining %d bytes", field, n, p.Remaining()),
		}
	}
	b, err := p.ReadBytes(int(n))
	if err != nil {
		return "", &CorruptRecordError{Offset: start, Reason: err.Error()}
	}
	if !utf8.Valid(b) {
		return "", &CorruptRecordError{Offset: start + lengthPrefixSize, Reason: field + " is not valid UTF-8"}
	}
	return string(b), nil
}

// DecodeAccount strips the program's account header of headerLen bytes and
// decodes the record behind it. Empty account data is absent.
func DecodeAccount(data []byte, headerLen int) (*Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < headerLen {
		return nil, &CorruptRecordError{Offset: 0, Reason: "account shorter than header"}
	}
	return Decode(data[headerLen:])
}

// EncodeAccount prepends a headerLen byte account header to the encoded
// record. The first header byte is the initialized flag.
func EncodeAccount(name, message string, headerLen int) ([]byte, error) {
	rec, err := Encode(name, message)
	if err != nil {
		return nil, err
	}
	out := make([]byte, headerLen, headerLen+len(rec))
	if headerLen > 0 {
		out[0] = 1
	}
	return append(out, rec...), nil
}
