package wolfarc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/textenc"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/unit"
)

func writeArchive(t *testing.T, entries []EntryData) string {
	t.Helper()
	archive, err := Write(entries)
	if err != nil {
		t.Fatalf("building archive: %v", err)
	}
	path := filepath.Join(t.TempDir(), "Data.wolf")
	if err := os.WriteFile(path, archive, 0644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

func TestExtractArchiveDeduplicates(t *testing.T) {
	a := New(0)
	path := writeArchive(t, []EntryData{
		{Name: "ev1.dat", Data: sjis(t, "こんにちは、勇者よ。\x00はい\x00OK")},
		{Name: "ev2.dat", Data: sjis(t, "はい\x00いいえ"), Compression: CompressionZlib},
	})

	units, err := a.Extract(path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	var texts []string
	for _, u := range units {
		texts = append(texts, u.Text)
	}
	// はい appears in both entries but yields one unit; OK has no Japanese.
	want := []string{"こんにちは、勇者よ。", "はい", "いいえ"}
	if len(texts) != len(want) {
		t.Fatalf("Extract() texts = %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("unit %d = %q, want %q", i, texts[i], want[i])
		}
	}
	if !strings.HasPrefix(units[0].LocationKey, "entry:ev1.dat:") {
		t.Fatalf("location key = %q, want entry-prefixed", units[0].LocationKey)
	}
}

func TestLooksLikeDialogue(t *testing.T) {
	if looksLikeDialogue("あ") {
		t.Fatal("single rune accepted")
	}
	if looksLikeDialogue("hello") {
		t.Fatal("ASCII-only run accepted")
	}
	if looksLikeDialogue("画像.png") {
		t.Fatal("asset reference accepted")
	}
	if !looksLikeDialogue("こんにちは") {
		t.Fatal("plain dialogue rejected")
	}
}

func TestApplyReplacesWithinSlack(t *testing.T) {
	a := New(DefaultSlack)
	path := writeArchive(t, []EntryData{
		{Name: "ev1.dat", Data: sjis(t, "こんにちは、勇者よ。\x00はい"), Compression: CompressionZlib},
	})

	artifact, err := a.Apply(path, map[string]string{
		"こんにちは、勇者よ。": "Hello, hero.",
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	index, err := ParseIndex(artifact)
	if err != nil {
		t.Fatalf("ParseIndex() error: %v", err)
	}
	payload, compression, err := ReadEntry(artifact, index[0])
	if err != nil {
		t.Fatalf("ReadEntry() error: %v", err)
	}
	// The touched entry keeps its zlib storage.
	if compression != CompressionZlib {
		t.Fatalf("compression = %v, want zlib preserved", compression)
	}
	if !bytes.Contains(payload, []byte("Hello, hero.")) {
		t.Fatal("translated bytes missing from payload")
	}
	if bytes.Contains(payload, sjis(t, "こんにちは、勇者よ。")) {
		t.Fatal("original bytes still present after substitution")
	}
	if !bytes.Contains(payload, sjis(t, "はい")) {
		t.Fatal("untranslated neighbor text lost")
	}
}

func TestApplySkipsOversizedTranslation(t *testing.T) {
	a := New(DefaultSlack)
	var skipped []string
	a.OnSkip = func(file, text, reason string) {
		skipped = append(skipped, text+": "+reason)
	}
	// はい is 4 bytes in Shift-JIS; the replacement is 25 bytes, well past
	// the 10-byte slack.
	path := writeArchive(t, []EntryData{
		{Name: "ev1.dat", Data: sjis(t, "はい\x00いいえ")},
	})

	artifact, err := a.Apply(path, map[string]string{
		"はい": "This translation is long.",
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if len(skipped) != 1 || !strings.Contains(skipped[0], "slack") {
		t.Fatalf("OnSkip calls = %v, want one oversized report", skipped)
	}
	index, err := ParseIndex(artifact)
	if err != nil {
		t.Fatalf("ParseIndex() error: %v", err)
	}
	payload, _, err := ReadEntry(artifact, index[0])
	if err != nil {
		t.Fatalf("ReadEntry() error: %v", err)
	}
	if !bytes.Contains(payload, sjis(t, "はい")) {
		t.Fatal("oversized substitution should leave the original bytes")
	}
	if bytes.Contains(payload, []byte("This translation is long.")) {
		t.Fatal("oversized translation was written anyway")
	}
}

func TestApplyPreservesUntouchedEntryBytes(t *testing.T) {
	a := New(0)
	binary := []byte{0x12, 0x34, 0x00, 0xAB, 0xCD}
	path := writeArchive(t, []EntryData{
		{Name: "ev1.dat", Data: sjis(t, "はい")},
		{Name: "graph.bin", Data: binary},
	})

	artifact, err := a.Apply(path, map[string]string{"はい": "Yes"})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	index, err := ParseIndex(artifact)
	if err != nil {
		t.Fatalf("ParseIndex() error: %v", err)
	}
	stored := artifact[index[1].Offset : index[1].Offset+index[1].Size]
	if !bytes.Equal(stored, binary) {
		t.Fatalf("untouched entry bytes = %v, want %v", stored, binary)
	}
}

func TestExtractAndApplyLooseTextFile(t *testing.T) {
	a := New(0)
	root := t.TempDir()
	dataDir := filepath.Join(root, "Data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dataDir, "dialog.txt")
	if err := os.WriteFile(path, sjis(t, "こんにちは、勇者よ。"), 0644); err != nil {
		t.Fatalf("writing text file: %v", err)
	}

	units, err := a.Extract(path)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(units) != 1 || units[0].Text != "こんにちは、勇者よ。" {
		t.Fatalf("Extract() = %v", units)
	}
	if !strings.HasPrefix(units[0].LocationKey, "text:") {
		t.Fatalf("location key = %q, want text-prefixed", units[0].LocationKey)
	}

	artifact, err := a.Apply(path, map[string]string{"こんにちは、勇者よ。": "Hello, hero."})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	res, err := textenc.Decode(artifact, nil)
	if err != nil {
		t.Fatalf("decoding artifact: %v", err)
	}
	if res.Text != "Hello, hero." {
		t.Fatalf("artifact text = %q", res.Text)
	}
}

func TestExtractReportsDegradedLooseFile(t *testing.T) {
	a := New(0)
	var degraded []string
	a.OnDegraded = func(err *unit.EncodingError) {
		degraded = append(degraded, err.Path)
	}

	root := t.TempDir()
	dataDir := filepath.Join(root, "Data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// 0xFF is not a valid lead byte in any candidate encoding, so the file
	// only decodes through the lossy fallback.
	path := filepath.Join(dataDir, "story.txt")
	raw := append([]byte{0xff}, sjis(t, "こんにちは、勇者よ。")...)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("writing text file: %v", err)
	}

	if _, err := a.Extract(path); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(degraded) != 1 || degraded[0] != path {
		t.Fatalf("degraded reports = %v, want one for %s", degraded, path)
	}
}

func TestDetect(t *testing.T) {
	a := New(0)
	root := t.TempDir()
	if a.Detect(root) {
		t.Fatal("Detect() matched an empty directory")
	}

	// A single .wolf archive anywhere is decisive.
	sub := filepath.Join(root, "Data")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "BasicData.wolf"), Magic, 0644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	if !a.Detect(root) {
		t.Fatal("Detect() missed a .wolf archive")
	}
}

func TestDetectIndicatorFiles(t *testing.T) {
	a := New(0)
	root := t.TempDir()
	for _, name := range []string{"Game.exe", "Config.exe"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte{0}, 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if a.Detect(root) {
		t.Fatal("Detect() matched with only two indicators")
	}
	if err := os.MkdirAll(filepath.Join(root, "BGM"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !a.Detect(root) {
		t.Fatal("Detect() missed three indicators")
	}
}

func TestFiles(t *testing.T) {
	a := New(0)
	root := t.TempDir()
	dataDir := filepath.Join(root, "Data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	archive, err := Write([]EntryData{{Name: "a", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("building archive: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "BasicData.wolf"), archive, 0644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "dialog.txt"), sjis(t, "こんにちは"), 0644); err != nil {
		t.Fatalf("writing text: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "version.txt"), []byte("1.0.0"), 0644); err != nil {
		t.Fatalf("writing version: %v", err)
	}

	files, err := a.Files(root)
	if err != nil {
		t.Fatalf("Files() error: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	want := []string{"BasicData.wolf", "dialog.txt"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("Files() = %v, want %v", names, want)
	}
}
