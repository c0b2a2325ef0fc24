package wolfarc

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/textenc"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/unit"
)

// DefaultSlack is the byte margin allowed when a translated sequence is
// longer than the original it replaces inside an archive entry.
const DefaultSlack = 10

// runPattern matches a contiguous run of script text anchored on a Japanese
// character. Runs are the candidate units inside binary entries.
var runPattern = regexp.MustCompile(`[\p{Hiragana}\p{Katakana}\p{Han}][\p{Hiragana}\p{Katakana}\p{Han}\p{Latin}0-9ー々〆「」『』、。・！？…～（）　 ]*`)

// fileLikePattern rejects strings that look like asset references rather
// than dialogue.
var fileLikePattern = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|bmp|gif|ogg|wav|mp3|mid|txt|dat|wolf|mps|ttf)\b`)

// Adapter is the Wolf RPG Editor binary-container format adapter. It covers
// .wolf archives plus the loose Shift-JIS text files under Data/.
type Adapter struct {
	// Slack is the extra byte budget for in-entry substitutions.
	Slack int
	// OnSkip is called when a substitution is dropped (oversized
	// translation, undecodable entry). Nil disables reporting.
	OnSkip func(file, text, reason string)
	// OnDegraded is called when no candidate encoding decodes a loose
	// text file cleanly and the lossy fallback was used. Archive entries
	// are exempt: a binary payload never decodes cleanly as a whole, only
	// the script runs inside it do. Nil disables reporting.
	OnDegraded func(err *unit.EncodingError)
}

// New creates the adapter with the given slack; slack <= 0 selects
// DefaultSlack.
func New(slack int) *Adapter {
	if slack <= 0 {
		slack = DefaultSlack
	}
	return &Adapter{Slack: slack}
}

func (a *Adapter) ID() string   { return "wolf" }
func (a *Adapter) Name() string { return "Wolf RPG Editor" }

// Positional is false: reinsertion is whole-document search and replace, so
// duplicate source strings collapse into one map entry that affects every
// occurrence.
func (a *Adapter) Positional() bool { return false }

// Detect requires either a .wolf archive, or at least three of the
// characteristic top-level files and directories of a Wolf RPG game.
func (a *Adapter) Detect(root string) bool {
	indicators := []string{"Game.exe", "Game.dat", "Config.exe", "Data", "BGM", "Picture", "Sound"}
	found := 0
	for _, ind := range indicators {
		if _, err := os.Stat(filepath.Join(root, ind)); err == nil {
			found++
			if found >= 3 {
				return true
			}
		}
	}
	wolf := false
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".wolf") {
			wolf = true
			return fs.SkipAll
		}
		return nil
	})
	return wolf
}

// Files enumerates .wolf archives anywhere under root plus Data/*.txt files
// containing Japanese text.
func (a *Adapter) Files(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if strings.EqualFold(filepath.Ext(path), ".wolf") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	txts, err := filepath.Glob(filepath.Join(root, "Data", "*.txt"))
	if err != nil {
		return nil, err
	}
	for _, path := range txts {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		res, err := textenc.Decode(raw, nil)
		if err == nil && unit.ContainsJapanese(res.Text) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Extract decodes printable runs per archive entry (or per text file) and
// filters them through the dialogue heuristic. Duplicate strings are
// deduplicated; the location key records the first occurrence.
func (a *Adapter) Extract(path string) ([]unit.Unit, error) {
	if isArchive(path) {
		return a.extractArchive(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := textenc.Decode(raw, nil)
	if err != nil {
		return nil, err
	}
	if res.Degraded {
		a.degraded(path)
	}
	return a.extractRuns(res.Text, path, "text"), nil
}

func (a *Adapter) extractArchive(path string) ([]unit.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := ParseIndex(data)
	if err != nil {
		return nil, &unit.ExtractionError{Path: path, Err: err}
	}
	var units []unit.Unit
	seen := make(map[string]bool)
	for _, e := range entries {
		payload, _, err := ReadEntry(data, e)
		if err != nil {
			return nil, &unit.ExtractionError{Path: path, Err: err}
		}
		res, err := textenc.Decode(payload, nil)
		if err != nil {
			return nil, err
		}
		for _, u := range a.extractRuns(res.Text, path, "entry:"+e.Name) {
			if seen[u.Text] {
				continue
			}
			seen[u.Text] = true
			units = append(units, u)
		}
	}
	return units, nil
}

// extractRuns scans decoded text for dialogue-looking runs.
func (a *Adapter) extractRuns(text, path, keyPrefix string) []unit.Unit {
	var units []unit.Unit
	seen := make(map[string]bool)
	for i, loc := range runPattern.FindAllStringIndex(text, -1) {
		run := strings.TrimRight(text[loc[0]:loc[1]], " 　")
		if !looksLikeDialogue(run) || seen[run] {
			continue
		}
		seen[run] = true
		units = append(units, unit.Unit{
			Text:        run,
			LocationKey: keyPrefix + ":" + strconv.Itoa(i),
			Category:    unit.CategoryDialogue,
			SourceFile:  path,
		})
	}
	return units
}

// looksLikeDialogue filters system tokens out of candidate runs: minimum
// length, a Japanese character requirement, and no asset-file references.
func looksLikeDialogue(s string) bool {
	if utf8.RuneCountInString(s) < 2 {
		return false
	}
	if !unit.ContainsJapanese(s) {
		return false
	}
	if fileLikePattern.MatchString(s) {
		return false
	}
	return true
}

// Apply substitutes translations by literal byte match. Inside archive
// entries substitution is length-bounded: a translated sequence longer than
// the original plus Slack is skipped and reported, never truncated,
// because fixed-size binary regions have no relocation mechanism.
func (a *Adapter) Apply(path string, translations map[string]string) ([]byte, error) {
	if isArchive(path) {
		return a.applyArchive(path, translations)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := textenc.Decode(raw, nil)
	if err != nil {
		return nil, err
	}
	if res.Degraded {
		a.degraded(path)
	}
	text := res.Text
	for _, original := range byLengthDesc(translations) {
		text = strings.ReplaceAll(text, original, translations[original])
	}
	return textenc.Encode(text, res.Encoding)
}

func (a *Adapter) applyArchive(path string, translations map[string]string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	index, err := ParseIndex(data)
	if err != nil {
		return nil, &unit.ExtractionError{Path: path, Err: err}
	}

	ordered := byLengthDesc(translations)
	out := make([]EntryData, 0, len(index))
	for _, e := range index {
		payload, compression, err := ReadEntry(data, e)
		if err != nil {
			return nil, &unit.ExtractionError{Path: path, Err: err}
		}
		res, err := textenc.Decode(payload, nil)
		if err != nil {
			return nil, err
		}
		patched := payload
		changed := false
		for _, original := range ordered {
			origBytes, err := textenc.Encode(original, res.Encoding)
			if err != nil || !bytes.Contains(patched, origBytes) {
				continue
			}
			transBytes, err := textenc.Encode(translations[original], res.Encoding)
			if err != nil {
				continue
			}
			if len(transBytes) > len(origBytes)+a.Slack {
				a.skip(path, original, "translated bytes exceed original plus slack")
				continue
			}
			patched = bytes.ReplaceAll(patched, origBytes, transBytes)
			changed = true
		}
		ed := EntryData{Name: e.Name, Data: patched}
		if changed {
			ed.Compression = compression
		} else {
			// Untouched entries keep their stored bytes exactly.
			ed.Data = data[e.Offset : e.Offset+e.Size]
			ed.Compression = CompressionNone
		}
		out = append(out, ed)
	}
	return Write(out)
}

func (a *Adapter) skip(file, text, reason string) {
	if a.OnSkip != nil {
		a.OnSkip(file, text, reason)
	}
}

func (a *Adapter) degraded(path string) {
	if a.OnDegraded != nil {
		a.OnDegraded(&unit.EncodingError{Path: path})
	}
}

func isArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wolf")
}

// byLengthDesc orders the map keys longest first so a short fragment never
// matches inside a longer untranslated string that contains it.
func byLengthDesc(translations map[string]string) []string {
	keys := make([]string, 0, len(translations))
	for k := range translations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
