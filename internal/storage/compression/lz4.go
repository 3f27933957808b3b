package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4"
)

// NoCompressor stores data as is.
type NoCompressor struct{}

func (NoCompressor) Name() string { return "none" }

func (NoCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte{}, data...), nil
}

func (NoCompressor) Decompress(data []byte) ([]byte, error) {
	return append([]byte{}, data...), nil
}

// LZ4Compressor frames an LZ4 block behind the uncompressed length:
//
//	[u32 LE raw length][block]
//
// Input that does not shrink is stored raw, recognisable by a block as long
// as the raw length.
type LZ4Compressor struct{}

const lz4HeaderSize = 4

func (LZ4Compressor) Name() string { return "lz4" }

func (LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if uint64(len(data)) > 0xffffffff {
		return nil, fmt.Errorf("lz4: input of %d bytes too large", len(data))
	}

	out := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out, uint32(len(data)))
	if len(data) == 0 {
		return out[:lz4HeaderSize], nil
	}

	n, err := lz4.CompressBlock(data, out[lz4HeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if n == 0 || n >= len(data) {
		n = copy(out[lz4HeaderSize:], data)
	}
	return out[:lz4HeaderSize+n], nil
}

// maxExpansion bounds the ratio of an lz4 block: each sequence token can
// expand to at most 255 bytes per input byte.
const maxExpansion = 255

func (LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) < lz4HeaderSize {
		return nil, fmt.Errorf("lz4: frame of %d bytes is shorter than its header", len(data))
	}
	size := int(binary.LittleEndian.Uint32(data))
	block := data[lz4HeaderSize:]

	if len(block) == size {
		return append([]byte{}, block...), nil
	}

	if size > maxExpansion*len(block) {
		return nil, fmt.Errorf("lz4: header size %d exceeds what a %d byte block can hold", size, len(block))
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(block, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("lz4: decompressed %d bytes, header says %d", n, size)
	}
	return out, nil
}
