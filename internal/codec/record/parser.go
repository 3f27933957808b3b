package record

import (
	"encoding/binary"
	"errors"
)

// ErrParserOutOfBound is returned when a read runs past the end of the buffer.
var ErrParserOutOfBound = errors.New("parser out of bounds")

// binaryParser walks a record blob front to back. It never panics on short
// input, every read is bounds checked against the remaining bytes.
type binaryParser struct {
	data []byte
	pos  int
}

func newBinaryParser(data []byte) *binaryParser {
	return &binaryParser{data: data}
}

// ReadBytes returns the next n bytes without copying.
func (p *binaryParser) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(p.data)-p.pos {
		return nil, ErrParserOutOfBound
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

// ReadUint32 reads a little-endian u32.
func (p *binaryParser) ReadUint32() (uint32, error) {
	b, err := p.ReadBytes(lengthPrefixSize)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Remaining reports how many unread bytes are left.
func (p *binaryParser) Remaining() int {
	return len(p.data) - p.pos
}

// Offset is the current read position.
func (p *binaryParser) Offset() int {
	return p.pos
}
