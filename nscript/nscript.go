// Package nscript implements the line-oriented format adapter for
// NScripter games: numbered script files (0.txt, 00.txt, ...) and .nscript
// sources, usually Shift-JIS encoded.
//
// Extraction runs an ordered pattern list per line: the speaker-tag pattern
// first, then ranked command patterns, then a bare Japanese line. The first
// matching pattern wins so a line is never counted twice. Units are
// positional: duplicate source strings are not deduplicated because two
// identical lines occupy different, non-interchangeable slots.
package nscript

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/textenc"
	"github.com/Baconana-chan/BaconanaMTLTool-sub000/unit"
)

// linePattern is one recognizer in the ranked list. The first capture group
// is the translatable text.
type linePattern struct {
	re  *regexp.Regexp
	cat unit.Category
}

// patterns in rank order. The speaker tag comes first so a name line is
// never misread as dialogue.
var patterns = []linePattern{
	{regexp.MustCompile(`^【(.+?)】`), unit.CategoryName},

	{regexp.MustCompile(`^\s*(?:text|mes|say)\s+"([^"]+)"`), unit.CategoryDialogue},
	{regexp.MustCompile(`^\s*(?:menu|choice|select)\s+"([^"]+)"`), unit.CategoryChoice},
	{regexp.MustCompile(`^\s*(?:name|setname)\s+"([^"]+)"`), unit.CategoryName},
	{regexp.MustCompile(`^\s*(?:caption|window|print|puttext|drawtext)\s+"([^"]+)"`), unit.CategoryUI},
	{regexp.MustCompile(`"([^"]+)"`), unit.CategoryDialogue},

	// Bare Japanese line (classic NScripter dialogue has no command at all).
	{regexp.MustCompile(`^([^;\s][^\n]*)$`), unit.CategoryDialogue},
}

// Adapter is the NScripter format adapter.
type Adapter struct {
	// OnDegraded is called when no candidate encoding decodes a script
	// cleanly and the lossy fallback was used. Nil disables reporting.
	OnDegraded func(err *unit.EncodingError)
}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) ID() string   { return "nscripter" }
func (a *Adapter) Name() string { return "NScripter" }

// Positional is true: Apply expects translations keyed by LocationKey in
// the same index order Extract produced them.
func (a *Adapter) Positional() bool { return true }

// Detect looks for NScripter marker files or several numbered script files.
func (a *Adapter) Detect(root string) bool {
	markers := []string{
		"nscript.dat", "nscript.exe", "nscripter.exe", "onscripter.exe",
		"arc.nsa", "0.txt", "00.txt",
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(root, m)); err == nil {
			return true
		}
	}
	numbered := 0
	for i := 0; i < 100; i++ {
		if _, err := os.Stat(filepath.Join(root, fmt.Sprintf("%d.txt", i))); err == nil {
			numbered++
			if numbered >= 3 {
				return true
			}
		}
	}
	matches, _ := filepath.Glob(filepath.Join(root, "*.nscript"))
	return len(matches) > 0
}

// Files enumerates script files under root: *.txt containing Japanese text
// plus every *.nscript.
func (a *Adapter) Files(root string) ([]string, error) {
	var files []string
	txts, err := filepath.Glob(filepath.Join(root, "*.txt"))
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
	scripts, err := filepath.Glob(filepath.Join(root, "*.nscript"))
	if err != nil {
		return nil, err
	}
	files = append(files, scripts...)
	sort.Strings(files)
	return files, nil
}

// Extract returns one unit per matching line, keyed "line:{n}" with n
// 1-based, in file order.
func (a *Adapter) Extract(path string) ([]unit.Unit, error) {
	text, _, err := a.decode(path)
	if err != nil {
		return nil, err
	}
	var units []unit.Unit
	for i, line := range strings.Split(text, "\n") {
		matched, cat, ok := firstMatch(strings.TrimSuffix(line, "\r"))
		if !ok {
			continue
		}
		units = append(units, unit.Unit{
			Text:        matched,
			LocationKey: "line:" + strconv.Itoa(i+1),
			Category:    cat,
			SourceFile:  path,
		})
	}
	return units, nil
}

// Apply substitutes each translation into its own line. Substitutions run
// longest-original-first so a short fragment can never match inside a
// longer untranslated string that contains it; replacement is literal, so
// regex metacharacters in the original text are inert.
func (a *Adapter) Apply(path string, translations map[string]string) ([]byte, error) {
	text, enc, err := a.decode(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(text, "\n")

	type subst struct {
		lineIdx  int
		original string
		replaced string
	}
	var pending []subst
	for key, translated := range translations {
		n, err := parseLineKey(key)
		if err != nil || n < 1 || n > len(lines) {
			continue
		}
		original, _, ok := firstMatch(strings.TrimSuffix(lines[n-1], "\r"))
		if !ok {
			continue
		}
		pending = append(pending, subst{lineIdx: n - 1, original: original, replaced: translated})
	}
	sort.Slice(pending, func(i, j int) bool {
		if len(pending[i].original) != len(pending[j].original) {
			return len(pending[i].original) > len(pending[j].original)
		}
		return pending[i].lineIdx < pending[j].lineIdx
	})
	for _, s := range pending {
		lines[s.lineIdx] = strings.Replace(lines[s.lineIdx], s.original, s.replaced, 1)
	}

	return textenc.Encode(strings.Join(lines, "\n"), enc)
}

func (a *Adapter) decode(path string) (string, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	res, err := textenc.Decode(raw, nil)
	if err != nil {
		return "", "", err
	}
	if res.Degraded && a.OnDegraded != nil {
		a.OnDegraded(&unit.EncodingError{Path: path})
	}
	return res.Text, res.Encoding, nil
}

// firstMatch returns the first pattern capture with Japanese text on the
// line, or ok=false when no pattern applies.
func firstMatch(line string) (string, unit.Category, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ";") {
		return "", "", false
	}
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(line)
		if len(m) > 1 && unit.ContainsJapanese(m[1]) {
			return m[1], p.cat, true
		}
	}
	return "", "", false
}

func parseLineKey(key string) (int, error) {
	rest, ok := strings.CutPrefix(key, "line:")
	if !ok {
		return 0, fmt.Errorf("not a line key: %q", key)
	}
	return strconv.Atoi(rest)
}
