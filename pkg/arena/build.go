package arena

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zstd"
)

// DefaultFrameSize is the default pre-compression byte budget per frame
// (spec.md §4.2's "fixed-size Zstd frames").
const DefaultFrameSize = 64 << 10

// Builder accumulates strings in the order they are interned (their index
// becomes their StrID) and emits the on-disk Arena blob described in
// Open's format.
type Builder struct {
	frameSize int
	level     zstd.EncoderLevel

	strings []string
}

// NewBuilder creates an Arena builder. frameSize <= 0 uses DefaultFrameSize.
func NewBuilder(frameSize int, compressionLevel int) *Builder {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	return &Builder{
		frameSize: frameSize,
		level:     zstd.EncoderLevelFromZstd(compressionLevel),
	}
}

// Add appends a string, returning the StrID it will be assigned.
func (b *Builder) Add(s string) uint32 {
	id := uint32(len(b.strings))
	b.strings = append(b.strings, s)
	return id
}

// Build serializes the accumulated strings into the Arena blob format.
func (b *Builder) Build() ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(b.level))
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	type frameOut struct {
		byteOffset uint32
		compLen    uint32
		rawLen     uint32
	}
	var frames []frameOut
	var compressedFrames bytes.Buffer
	slots := make([]stringSlot, len(b.strings))

	var cur bytes.Buffer
	frameID := uint32(0)
	flush := func() error {
		if cur.Len() == 0 {
			return nil
		}
		raw := cur.Bytes()
		compressed := enc.EncodeAll(raw, nil)
		frames = append(frames, frameOut{
			byteOffset: uint32(compressedFrames.Len()),
			compLen:    uint32(len(compressed)),
			rawLen:     uint32(len(raw)),
		})
		compressedFrames.Write(compressed)
		cur.Reset()
		frameID++
		return nil
	}

	for i, s := range b.strings {
		if cur.Len()+len(s) > b.frameSize && cur.Len() > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		slots[i] = stringSlot{
			frameID: frameID,
			offset:  uint32(cur.Len()),
			length:  uint32(len(s)),
		}
		cur.WriteString(s)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(slots)))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(frames)))
	out.Write(hdr[:])

	for _, f := range frames {
		var rec [16]byte
		binary.LittleEndian.PutUint32(rec[0:4], f.byteOffset)
		binary.LittleEndian.PutUint32(rec[4:8], f.compLen)
		binary.LittleEndian.PutUint32(rec[8:12], f.rawLen)
		out.Write(rec[:])
	}
	for _, s := range slots {
		var rec [12]byte
		binary.LittleEndian.PutUint32(rec[0:4], s.frameID)
		binary.LittleEndian.PutUint32(rec[4:8], s.offset)
		binary.LittleEndian.PutUint32(rec[8:12], s.length)
		out.Write(rec[:])
	}
	out.Write(compressedFrames.Bytes())

	return out.Bytes(), nil
}

// Len reports how many strings have been added.
func (b *Builder) Len() int { return len(b.strings) }
