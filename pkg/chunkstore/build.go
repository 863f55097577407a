package chunkstore

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zstd"
)

// Builder accumulates chunk text in the order chunks are created (their
// index becomes their ChunkID) and emits the on-disk Chunk Store blob.
type Builder struct {
	level  zstd.EncoderLevel
	chunks []string
}

// NewBuilder creates a Chunk Store builder at the given Zstd level.
func NewBuilder(compressionLevel int) *Builder {
	return &Builder{level: zstd.EncoderLevelFromZstd(compressionLevel)}
}

// Add appends a chunk, returning the ChunkID it will be assigned.
func (b *Builder) Add(text string) uint32 {
	id := uint32(len(b.chunks))
	b.chunks = append(b.chunks, text)
	return id
}

// Build serializes the accumulated chunks into the Chunk Store blob format.
func (b *Builder) Build() ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(b.level))
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	type slotOut struct {
		byteOffset uint32
		compLen    uint32
		rawLen     uint32
	}
	slots := make([]slotOut, len(b.chunks))
	var compressedRegion bytes.Buffer

	for i, text := range b.chunks {
		raw := []byte(text)
		compressed := enc.EncodeAll(raw, nil)
		slots[i] = slotOut{
			byteOffset: uint32(compressedRegion.Len()),
			compLen:    uint32(len(compressed)),
			rawLen:     uint32(len(raw)),
		}
		compressedRegion.Write(compressed)
	}

	var out bytes.Buffer
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(slots)))
	out.Write(n[:])
	for _, s := range slots {
		var rec [16]byte
		binary.LittleEndian.PutUint32(rec[0:4], s.byteOffset)
		binary.LittleEndian.PutUint32(rec[4:8], s.compLen)
		binary.LittleEndian.PutUint32(rec[8:12], s.rawLen)
		out.Write(rec[:])
	}
	out.Write(compressedRegion.Bytes())
	return out.Bytes(), nil
}

// Len reports how many chunks have been added.
func (b *Builder) Len() int { return len(b.chunks) }
