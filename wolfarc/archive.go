// Package wolfarc reads and writes Wolf RPG Editor archive containers and
// implements the binary format adapter for Wolf RPG projects.
//
// Archive layout: a 4-byte magic ("DX\x00\x00"), a little-endian uint32
// entry count, then one index record per entry (uint32 name length,
// Shift-JIS name bytes, uint32 size, uint32 offset), followed by the entry
// payloads. Payloads may or may not be zlib- or xz-compressed; the reader
// probes and falls back to the raw bytes.
package wolfarc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/textenc"
)

// Magic is the 4-byte archive signature.
var Magic = []byte{'D', 'X', 0x00, 0x00}

// Entry is one file stored in an archive.
type Entry struct {
	// Name is the stored file name, decoded from Shift-JIS.
	Name string
	// Size is the stored payload size in bytes.
	Size uint32
	// Offset is the payload position from the start of the archive.
	Offset uint32
}

// Compression identifies how an entry payload was stored.
type Compression int

const (
	// CompressionNone means the payload was stored raw.
	CompressionNone Compression = iota
	// CompressionZlib means the payload was a zlib stream.
	CompressionZlib
	// CompressionXZ means the payload was an xz stream.
	CompressionXZ
)

// ParseIndex verifies the magic and reads the entry table.
func ParseIndex(data []byte) ([]Entry, error) {
	if len(data) < len(Magic)+4 {
		return nil, fmt.Errorf("archive truncated: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], Magic) {
		return nil, fmt.Errorf("bad archive magic %x", data[:4])
	}

	r := bytes.NewReader(data[4:])
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}

	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("entry %d: reading name length: %w", i, err)
		}
		if nameLen > uint32(r.Len()) {
			return nil, fmt.Errorf("entry %d: name length %d exceeds remaining data", i, nameLen)
		}
		nameRaw := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameRaw); err != nil {
			return nil, fmt.Errorf("entry %d: reading name: %w", i, err)
		}
		name, err := textenc.Decode(nameRaw, []string{textenc.UTF8, textenc.ShiftJIS})
		if err != nil {
			return nil, err
		}

		var e Entry
		if err := binary.Read(r, binary.LittleEndian, &e.Size); err != nil {
			return nil, fmt.Errorf("entry %d: reading size: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &e.Offset); err != nil {
			return nil, fmt.Errorf("entry %d: reading offset: %w", i, err)
		}
		e.Name = name.Text

		if uint64(e.Offset)+uint64(e.Size) > uint64(len(data)) {
			return nil, fmt.Errorf("entry %d (%s): payload [%d:%d] outside archive of %d bytes",
				i, e.Name, e.Offset, e.Offset+e.Size, len(data))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadEntry returns the payload of e, decompressed when the stored bytes
// are a zlib or xz stream, raw otherwise.
func ReadEntry(data []byte, e Entry) ([]byte, Compression, error) {
	if uint64(e.Offset)+uint64(e.Size) > uint64(len(data)) {
		return nil, CompressionNone, fmt.Errorf("entry %s: payload outside archive", e.Name)
	}
	raw := data[e.Offset : e.Offset+e.Size]

	if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		decoded, err := io.ReadAll(zr)
		zr.Close()
		if err == nil {
			return decoded, CompressionZlib, nil
		}
	}
	if xr, err := xz.NewReader(bytes.NewReader(raw)); err == nil {
		if decoded, err := io.ReadAll(xr); err == nil {
			return decoded, CompressionXZ, nil
		}
	}
	// Not a recognizable stream: the entry was stored raw.
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, CompressionNone, nil
}

// EntryData pairs a name with payload bytes for archive writing.
type EntryData struct {
	Name        string
	Data        []byte
	Compression Compression
}

// Write serializes entries into a new archive: magic, count, index with
// recomputed offsets, then each payload. Entries marked CompressionZlib are
// recompressed; xz payloads are written raw (the reader accepts either).
func Write(entries []EntryData) ([]byte, error) {
	type stored struct {
		nameRaw []byte
		payload []byte
	}
	storedEntries := make([]stored, len(entries))

	headerSize := len(Magic) + 4
	for i, e := range entries {
		nameRaw, err := textenc.Encode(e.Name, textenc.ShiftJIS)
		if err != nil {
			return nil, fmt.Errorf("encoding entry name %q: %w", e.Name, err)
		}
		payload := e.Data
		if e.Compression == CompressionZlib {
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			if _, err := zw.Write(e.Data); err != nil {
				return nil, fmt.Errorf("compressing entry %q: %w", e.Name, err)
			}
			if err := zw.Close(); err != nil {
				return nil, fmt.Errorf("compressing entry %q: %w", e.Name, err)
			}
			payload = buf.Bytes()
		}
		storedEntries[i] = stored{nameRaw: nameRaw, payload: payload}
		headerSize += 4 + len(nameRaw) + 8
	}

	var buf bytes.Buffer
	buf.Write(Magic)
	binary.Write(&buf, binary.LittleEndian, uint32(len(entries)))

	offset := uint32(headerSize)
	for _, se := range storedEntries {
		binary.Write(&buf, binary.LittleEndian, uint32(len(se.nameRaw)))
		buf.Write(se.nameRaw)
		binary.Write(&buf, binary.LittleEndian, uint32(len(se.payload)))
		binary.Write(&buf, binary.LittleEndian, offset)
		offset += uint32(len(se.payload))
	}
	for _, se := range storedEntries {
		buf.Write(se.payload)
	}
	return buf.Bytes(), nil
}
