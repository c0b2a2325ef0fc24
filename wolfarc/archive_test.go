package wolfarc

import (
	"bytes"
	"testing"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/textenc"
)

func sjis(t *testing.T, text string) []byte {
	t.Helper()
	raw, err := textenc.Encode(text, textenc.ShiftJIS)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return raw
}

func TestWriteParseRoundTrip(t *testing.T) {
	entries := []EntryData{
		{Name: "データ.dat", Data: sjis(t, "こんにちは、勇者よ。"), Compression: CompressionZlib},
		{Name: "config.bin", Data: []byte{0x00, 0x01, 0xFE, 0xFF}, Compression: CompressionNone},
	}
	archive, err := Write(entries)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	index, err := ParseIndex(archive)
	if err != nil {
		t.Fatalf("ParseIndex() error: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("got %d entries, want 2", len(index))
	}
	if index[0].Name != "データ.dat" {
		t.Fatalf("entry 0 name = %q, want Shift-JIS name decoded", index[0].Name)
	}
	if index[1].Name != "config.bin" {
		t.Fatalf("entry 1 name = %q", index[1].Name)
	}

	payload, compression, err := ReadEntry(archive, index[0])
	if err != nil {
		t.Fatalf("ReadEntry(0) error: %v", err)
	}
	if compression != CompressionZlib {
		t.Fatalf("entry 0 compression = %v, want zlib", compression)
	}
	if !bytes.Equal(payload, sjis(t, "こんにちは、勇者よ。")) {
		t.Fatal("entry 0 payload does not round-trip")
	}

	payload, compression, err = ReadEntry(archive, index[1])
	if err != nil {
		t.Fatalf("ReadEntry(1) error: %v", err)
	}
	if compression != CompressionNone {
		t.Fatalf("entry 1 compression = %v, want none", compression)
	}
	if !bytes.Equal(payload, []byte{0x00, 0x01, 0xFE, 0xFF}) {
		t.Fatalf("entry 1 payload = %v", payload)
	}
}

func TestParseIndexBadMagic(t *testing.T) {
	archive, err := Write([]EntryData{{Name: "a", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	archive[0] = 'Z'
	if _, err := ParseIndex(archive); err == nil {
		t.Fatal("expected error for corrupted magic")
	}
}

func TestParseIndexTruncated(t *testing.T) {
	archive, err := Write([]EntryData{{Name: "a", Data: []byte("payload")}})
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	for _, cut := range []int{0, 3, 6, 10, len(archive) - 3} {
		if _, err := ParseIndex(archive[:cut]); err == nil {
			t.Fatalf("ParseIndex() accepted archive truncated to %d bytes", cut)
		}
	}
}

func TestParseIndexRejectsOversizedNameLength(t *testing.T) {
	// Magic + count=1 + a name length far beyond the data.
	archive := append([]byte{}, Magic...)
	archive = append(archive, 1, 0, 0, 0)
	archive = append(archive, 0xFF, 0xFF, 0xFF, 0x7F)
	if _, err := ParseIndex(archive); err == nil {
		t.Fatal("expected error for name length exceeding remaining data")
	}
}

func TestReadEntryOutOfBounds(t *testing.T) {
	archive, err := Write([]EntryData{{Name: "a", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	bogus := Entry{Name: "a", Size: 100, Offset: uint32(len(archive))}
	if _, _, err := ReadEntry(archive, bogus); err == nil {
		t.Fatal("expected error for payload outside the archive")
	}
}
