package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/opengloss/ogls/pkg/model"
)

// cursor is a small forward-only reader over a byte slice, used to decode
// one EntryRecord without any unsafe pointer arithmetic — the idiomatic Go
// substitute for the position-independent packed record spec.md §4.4
// describes, per SPEC_FULL.md §5.4.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) u8() (uint8, error) {
	if c.off+1 > len(c.b) {
		return 0, fmt.Errorf("archive: truncated record")
	}
	v := c.b[c.off]
	c.off++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if c.off+2 > len(c.b) {
		return 0, fmt.Errorf("archive: truncated record")
	}
	v := binary.LittleEndian.Uint16(c.b[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if c.off+4 > len(c.b) {
		return 0, fmt.Errorf("archive: truncated record")
	}
	v := binary.LittleEndian.Uint32(c.b[c.off:])
	c.off += 4
	return v, nil
}

const (
	flagHasEntryText      = 1 << 0
	flagHasEncyclopedia   = 1 << 1
	flagHasEtymology      = 1 << 2
	flagHasStopwordReason = 1 << 3
	flagIsStopword        = 1 << 4
)

// decodeEntry decodes one EntryRecord starting at b[0]. It returns the
// decoded entry and the number of bytes consumed.
func decodeEntry(b []byte) (*model.Entry, int, error) {
	c := &cursor{b: b}
	e := &model.Entry{}

	id, err := c.u32()
	if err != nil {
		return nil, 0, err
	}
	e.ID = model.LexemeID(id)

	ext, err := c.u32()
	if err != nil {
		return nil, 0, err
	}
	e.ExternalID = model.StrID(ext)

	word, err := c.u32()
	if err != nil {
		return nil, 0, err
	}
	e.Word = model.StrID(word)

	flags, err := c.u8()
	if err != nil {
		return nil, 0, err
	}
	e.IsStopword = flags&flagIsStopword != 0

	if flags&flagHasEntryText != 0 {
		v, err := c.u32()
		if err != nil {
			return nil, 0, err
		}
		ct := model.ChunkID(v)
		e.EntryText = &ct
	}
	if flags&flagHasEncyclopedia != 0 {
		v, err := c.u32()
		if err != nil {
			return nil, 0, err
		}
		ct := model.ChunkID(v)
		e.Encyclopedia = &ct
	}
	if flags&flagHasEtymology != 0 {
		v, err := c.u32()
		if err != nil {
			return nil, 0, err
		}
		sid := model.StrID(v)
		e.Etymology = &sid
	}
	if flags&flagHasStopwordReason != 0 {
		v, err := c.u32()
		if err != nil {
			return nil, 0, err
		}
		sid := model.StrID(v)
		e.StopwordReason = &sid
	}

	posIDs, err := readStrIDList(c)
	if err != nil {
		return nil, 0, err
	}
	e.PartsOfSpeech = posIDs

	cognateIDs, err := readStrIDList(c)
	if err != nil {
		return nil, 0, err
	}
	e.Cognates = cognateIDs

	senseCount, err := c.u16()
	if err != nil {
		return nil, 0, err
	}
	e.Senses = make([]model.Sense, senseCount)
	for i := range e.Senses {
		s, err := decodeSense(c)
		if err != nil {
			return nil, 0, err
		}
		e.Senses[i] = s
	}

	e.Synonyms, err = readLexemeIDList(c)
	if err != nil {
		return nil, 0, err
	}
	e.Antonyms, err = readLexemeIDList(c)
	if err != nil {
		return nil, 0, err
	}
	e.Hypernyms, err = readLexemeIDList(c)
	if err != nil {
		return nil, 0, err
	}
	e.Hyponyms, err = readLexemeIDList(c)
	if err != nil {
		return nil, 0, err
	}

	return e, c.off, nil
}

func decodeSense(c *cursor) (model.Sense, error) {
	var s model.Sense
	def, err := c.u32()
	if err != nil {
		return s, err
	}
	s.Definition = model.StrID(def)

	hasPOS, err := c.u8()
	if err != nil {
		return s, err
	}
	if hasPOS != 0 {
		v, err := c.u32()
		if err != nil {
			return s, err
		}
		sid := model.StrID(v)
		s.PartOfSpeech = &sid
	}

	exIDs, err := readStrIDList(c)
	if err != nil {
		return s, err
	}
	s.Examples = exIDs

	s.Synonyms, err = readLexemeIDList(c)
	if err != nil {
		return s, err
	}
	s.Antonyms, err = readLexemeIDList(c)
	if err != nil {
		return s, err
	}
	return s, nil
}

func readStrIDList(c *cursor) ([]model.StrID, error) {
	n, err := c.u16()
	if err != nil {
		return nil, err
	}
	out := make([]model.StrID, n)
	for i := range out {
		v, err := c.u32()
		if err != nil {
			return nil, err
		}
		out[i] = model.StrID(v)
	}
	return out, nil
}

func readLexemeIDList(c *cursor) ([]model.LexemeID, error) {
	n, err := c.u32()
	if err != nil {
		return nil, err
	}
	out := make([]model.LexemeID, n)
	for i := range out {
		v, err := c.u32()
		if err != nil {
			return nil, err
		}
		out[i] = model.LexemeID(v)
	}
	return out, nil
}

// encodeEntry writes one EntryRecord in the format decodeEntry reads.
func encodeEntry(buf *bytes.Buffer, e *model.Entry) {
	writeU32(buf, uint32(e.ID))
	writeU32(buf, uint32(e.ExternalID))
	writeU32(buf, uint32(e.Word))

	var flags uint8
	if e.IsStopword {
		flags |= flagIsStopword
	}
	if e.EntryText != nil {
		flags |= flagHasEntryText
	}
	if e.Encyclopedia != nil {
		flags |= flagHasEncyclopedia
	}
	if e.Etymology != nil {
		flags |= flagHasEtymology
	}
	if e.StopwordReason != nil {
		flags |= flagHasStopwordReason
	}
	buf.WriteByte(flags)

	if e.EntryText != nil {
		writeU32(buf, uint32(*e.EntryText))
	}
	if e.Encyclopedia != nil {
		writeU32(buf, uint32(*e.Encyclopedia))
	}
	if e.Etymology != nil {
		writeU32(buf, uint32(*e.Etymology))
	}
	if e.StopwordReason != nil {
		writeU32(buf, uint32(*e.StopwordReason))
	}

	writeStrIDList(buf, e.PartsOfSpeech)
	writeStrIDList(buf, e.Cognates)

	writeU16(buf, uint16(len(e.Senses)))
	for _, s := range e.Senses {
		encodeSense(buf, s)
	}

	writeLexemeIDList(buf, e.Synonyms)
	writeLexemeIDList(buf, e.Antonyms)
	writeLexemeIDList(buf, e.Hypernyms)
	writeLexemeIDList(buf, e.Hyponyms)
}

func encodeSense(buf *bytes.Buffer, s model.Sense) {
	writeU32(buf, uint32(s.Definition))
	if s.PartOfSpeech != nil {
		buf.WriteByte(1)
		writeU32(buf, uint32(*s.PartOfSpeech))
	} else {
		buf.WriteByte(0)
	}
	writeStrIDList(buf, s.Examples)
	writeLexemeIDList(buf, s.Synonyms)
	writeLexemeIDList(buf, s.Antonyms)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeStrIDList(buf *bytes.Buffer, ids []model.StrID) {
	writeU16(buf, uint16(len(ids)))
	for _, id := range ids {
		writeU32(buf, uint32(id))
	}
}

func writeLexemeIDList(buf *bytes.Buffer, ids []model.LexemeID) {
	writeU32(buf, uint32(len(ids)))
	for _, id := range ids {
		writeU32(buf, uint32(id))
	}
}
