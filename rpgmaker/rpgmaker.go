// Package rpgmaker implements the tree-structured format adapter for
// RPG Maker MV/MZ projects: JSON data files under data/ whose event command
// lists carry dialogue, choices, and names in numbered command codes.
//
// A string is translatable when its container key is in the field
// allow-list, or when it is a parameter of an event command whose code is
// in the caller-configured enabled set. The enabled set is an explicit
// include-list: codes are opted in individually because some categories
// (scripts, comments) are expensive or risky to translate.
package rpgmaker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/unit"
)

// translatableFields is the allow-list of container keys for non-event data.
var translatableFields = map[string]bool{
	"name": true, "nickname": true, "description": true, "message": true,
	"note": true, "text": true, "title": true, "displayname": true,
	"content": true, "label": true, "tooltip": true,
}

// systemFiles are data files that hold engine configuration rather than
// story content and are excluded from enumeration.
var systemFiles = map[string]bool{
	"System.json": true, "Tilesets.json": true, "Animations.json": true,
	"States.json": true, "Skills.json": true, "Items.json": true,
	"Weapons.json": true, "Armors.json": true, "Enemies.json": true,
	"Troops.json": true, "Classes.json": true, "Actors.json": true,
}

// Adapter is the RPG Maker MV/MZ format adapter.
type Adapter struct {
	enabled map[int]bool
}

// New creates the adapter with the given enabled event codes. An empty set
// falls back to the recommended main-dialogue codes.
func New(enabledCodes []int) (*Adapter, error) {
	if len(enabledCodes) == 0 {
		enabledCodes = RecommendedCodes()
	}
	enabled := make(map[int]bool, len(enabledCodes))
	for _, code := range enabledCodes {
		if _, ok := catalog[code]; !ok {
			return nil, fmt.Errorf("unknown event code %d", code)
		}
		enabled[code] = true
	}
	return &Adapter{enabled: enabled}, nil
}

func (a *Adapter) ID() string   { return "rpgmaker" }
func (a *Adapter) Name() string { return "RPG Maker MV/MZ" }

// Positional is false: extraction deduplicates by value and Apply replaces
// by exact text lookup, so one map entry covers every occurrence.
func (a *Adapter) Positional() bool { return false }

// EnabledCodes returns the enabled set sorted by code number.
func (a *Adapter) EnabledCodes() []int {
	codes := make([]int, 0, len(a.enabled))
	for code := range a.enabled {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Detect checks for the characteristic data/ directory: System.json, or at
// least two well-known data files.
func (a *Adapter) Detect(root string) bool {
	dataDir := filepath.Join(root, "data")
	if _, err := os.Stat(dataDir); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(dataDir, "System.json")); err == nil {
		return true
	}
	known := []string{"Map001.json", "CommonEvents.json", "Actors.json", "Classes.json"}
	found := 0
	for _, name := range known {
		if _, err := os.Stat(filepath.Join(dataDir, name)); err == nil {
			found++
			if found >= 2 {
				return true
			}
		}
	}
	return false
}

// Files enumerates data/*.json excluding engine configuration files.
func (a *Adapter) Files(root string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "data", "*.json"))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, path := range matches {
		if systemFiles[filepath.Base(path)] {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// Extract walks the JSON tree and returns deduplicated units in walk order.
// Map keys are visited in sorted order so repeated calls on the same file
// produce the same unit sequence.
func (a *Adapter) Extract(path string) ([]unit.Unit, error) {
	data, err := a.load(path)
	if err != nil {
		return nil, err
	}
	w := &walker{adapter: a, path: path, seen: make(map[string]bool)}
	w.extract(data, "$")
	return w.units, nil
}

// Apply performs the mirrored walk, replacing allow-listed strings and
// enabled-code parameters by exact map lookup. Structurally unknown nodes
// pass through unchanged, as does every string absent from translations.
func (a *Adapter) Apply(path string, translations map[string]string) ([]byte, error) {
	data, err := a.load(path)
	if err != nil {
		return nil, err
	}
	out := a.applyNode(data, translations)
	artifact, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", path, err)
	}
	return append(artifact, '\n'), nil
}

func (a *Adapter) load(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &unit.ExtractionError{Path: path, Err: err}
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// Extraction walk
// ---------------------------------------------------------------------------

type walker struct {
	adapter *Adapter
	path    string
	seen    map[string]bool
	units   []unit.Unit
}

func (w *walker) add(text, loc string, cat unit.Category) {
	if !unit.ContainsJapanese(text) || w.seen[text] {
		return
	}
	w.seen[text] = true
	w.units = append(w.units, unit.Unit{
		Text:        text,
		LocationKey: loc,
		Category:    cat,
		SourceFile:  w.path,
	})
}

func (w *walker) extract(node any, loc string) {
	switch v := node.(type) {
	case map[string]any:
		if list, ok := v["list"].([]any); ok {
			w.extractEventList(list, loc+".list")
		}
		for _, key := range sortedKeys(v) {
			if key == "list" {
				continue
			}
			childLoc := loc + "." + key
			if translatableFields[strings.ToLower(key)] {
				if s, ok := v[key].(string); ok {
					w.add(s, childLoc, fieldCategory(key))
					continue
				}
			}
			w.extract(v[key], childLoc)
		}
	case []any:
		for i, item := range v {
			w.extract(item, fmt.Sprintf("%s[%d]", loc, i))
		}
	}
}

// extractEventList handles event command lists: only parameters of enabled
// codes are visited, and a disabled command contributes nothing.
func (w *walker) extractEventList(list []any, loc string) {
	for i, item := range list {
		cmd, ok := item.(map[string]any)
		if !ok {
			continue
		}
		code := commandCode(cmd)
		if !w.adapter.enabled[code] {
			continue
		}
		params, _ := cmd["parameters"].([]any)
		cat := codeCategory(code)
		for j, p := range params {
			paramLoc := fmt.Sprintf("%s[%d].parameters[%d]", loc, i, j)
			switch pv := p.(type) {
			case string:
				w.add(pv, paramLoc, cat)
			case []any:
				for k, sub := range pv {
					if s, ok := sub.(string); ok {
						w.add(s, fmt.Sprintf("%s[%d]", paramLoc, k), cat)
					}
				}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Reinsertion walk
// ---------------------------------------------------------------------------

func (a *Adapter) applyNode(node any, translations map[string]string) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			switch {
			case key == "list":
				if list, ok := val.([]any); ok {
					out[key] = a.applyEventList(list, translations)
				} else {
					out[key] = a.applyNode(val, translations)
				}
			case translatableFields[strings.ToLower(key)]:
				if s, ok := val.(string); ok {
					out[key] = lookup(translations, s)
				} else {
					out[key] = a.applyNode(val, translations)
				}
			default:
				out[key] = a.applyNode(val, translations)
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = a.applyNode(item, translations)
		}
		return out
	default:
		return node
	}
}

func (a *Adapter) applyEventList(list []any, translations map[string]string) []any {
	out := make([]any, len(list))
	for i, item := range list {
		cmd, ok := item.(map[string]any)
		if !ok || !a.enabled[commandCode(cmd)] {
			out[i] = item
			continue
		}
		newCmd := make(map[string]any, len(cmd))
		for k, v := range cmd {
			newCmd[k] = v
		}
		if params, ok := cmd["parameters"].([]any); ok {
			newParams := make([]any, len(params))
			for j, p := range params {
				switch pv := p.(type) {
				case string:
					newParams[j] = lookup(translations, pv)
				case []any:
					subList := make([]any, len(pv))
					for k, sub := range pv {
						if s, ok := sub.(string); ok {
							subList[k] = lookup(translations, s)
						} else {
							subList[k] = sub
						}
					}
					newParams[j] = subList
				default:
					newParams[j] = p
				}
			}
			newCmd["parameters"] = newParams
		}
		out[i] = newCmd
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func lookup(translations map[string]string, s string) string {
	if t, ok := translations[s]; ok {
		return t
	}
	return s
}

func commandCode(cmd map[string]any) int {
	f, ok := cmd["code"].(float64)
	if !ok {
		return 0
	}
	return int(f)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fieldCategory(key string) unit.Category {
	switch strings.ToLower(key) {
	case "name", "nickname":
		return unit.CategoryName
	case "title", "displayname", "label", "tooltip":
		return unit.CategoryUI
	default:
		return unit.CategoryDialogue
	}
}

func codeCategory(code int) unit.Category {
	switch code {
	case 102:
		return unit.CategoryChoice
	case 101, 320, 324:
		return unit.CategoryName
	default:
		return unit.CategoryDialogue
	}
}
