// Package unit defines the shared data model for translatable text
// extracted from game-script artifacts, and the error taxonomy used by
// format adapters and the translation engine.
package unit

import (
	"fmt"
	"regexp"
)

// Category classifies a translatable string by its role in the game.
type Category string

const (
	// CategoryDialogue is spoken or narrated text.
	CategoryDialogue Category = "dialogue"
	// CategoryName is a character, item, or place name.
	CategoryName Category = "name"
	// CategoryUI is interface text (menus, labels, tooltips).
	CategoryUI Category = "ui"
	// CategoryChoice is a player choice option.
	CategoryChoice Category = "choice"
)

// Unit is one translatable string together with the information an
// adapter needs to put its translation back.
type Unit struct {
	// Text is the source string.
	Text string
	// LocationKey is an adapter-defined descriptor of where the string
	// lives in its source artifact (tree path, line number, byte offset).
	// It is opaque to everything except the adapter that produced it.
	LocationKey string
	// Category classifies the string.
	Category Category
	// SourceFile is the file the string was extracted from.
	SourceFile string
}

// japanesePattern matches hiragana, katakana, and CJK ideographs.
var japanesePattern = regexp.MustCompile(`[\x{3040}-\x{309f}\x{30a0}-\x{30ff}\x{4e00}-\x{9faf}]`)

// ContainsJapanese reports whether s contains at least one Japanese character.
// All adapters use this as the gate for "worth translating".
func ContainsJapanese(s string) bool {
	return japanesePattern.MatchString(s)
}

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// EncodingError indicates that no candidate encoding decoded a file cleanly
// and the result was produced in lossy mode.
type EncodingError struct {
	Path string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("no candidate encoding decoded %s cleanly, used lossy fallback", e.Path)
}

// ExtractionError indicates malformed input that an adapter could not parse.
// The file is skipped; the original is left untouched.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("cannot extract from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ReinsertionError indicates a translation could not be written back for a
// unit. The original text is kept; the file is never failed for this.
type ReinsertionError struct {
	Path        string
	LocationKey string
	Reason      string
}

func (e *ReinsertionError) Error() string {
	return fmt.Sprintf("cannot reinsert translation at %s (%s): %s", e.Path, e.LocationKey, e.Reason)
}
