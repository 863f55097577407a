package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/opengloss/ogls/pkg/model"
)

// Write serializes entries (entries[i].ID must equal model.LexemeID(i)),
// concatenates the already-built Arena and Chunk Store sub-blobs, and
// returns the whole thing Zstd-compressed at compressionLevel — the single
// "opengloss_data.archive.zst" blob spec.md §6 describes.
func Write(entries []*model.Entry, arenaBlob, chunkBlob []byte, compressionLevel int) ([]byte, error) {
	var entriesBuf bytes.Buffer
	offsets := make([]uint64, len(entries))
	for i, e := range entries {
		if e.ID != model.LexemeID(i) {
			return nil, fmt.Errorf("archive: entries must be in LexemeID order (entries[%d].ID=%d)", i, e.ID)
		}
		offsets[i] = uint64(entriesBuf.Len())
		encodeEntry(&entriesBuf, e)
	}

	var offsetsBuf bytes.Buffer
	for _, off := range offsets {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], off)
		offsetsBuf.Write(b[:])
	}

	offsetsTableOffset := uint64(HeaderSize + entriesBuf.Len())
	arenaOffset := offsetsTableOffset + uint64(offsetsBuf.Len())
	chunkOffset := arenaOffset + uint64(len(arenaBlob))

	var out bytes.Buffer
	out.Write(Magic[:])
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], Version)
	out.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(len(entries)))
	out.Write(u32[:])
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], offsetsTableOffset)
	out.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], arenaOffset)
	out.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], chunkOffset)
	out.Write(u64[:])

	out.Write(entriesBuf.Bytes())
	out.Write(offsetsBuf.Bytes())
	out.Write(arenaBlob)
	out.Write(chunkBlob)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	if err != nil {
		return nil, fmt.Errorf("archive: building encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(out.Bytes(), nil), nil
}
