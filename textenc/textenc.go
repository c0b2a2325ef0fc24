// Package textenc resolves the text encoding of raw script bytes by trying
// an ordered list of candidate encodings, and encodes translated text back
// with the same encoding so untouched regions keep their original bytes.
//
// Japanese game engines ship files in UTF-8, Shift-JIS (CP932), or EUC-JP
// with no reliable marker, so decoding is trial-based: the first candidate
// that decodes without replacement characters wins.
package textenc

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifiers accepted as decode candidates.
const (
	UTF8     = "utf-8"
	ShiftJIS = "shift-jis"
	EUCJP    = "euc-jp"
)

// DefaultCandidates is the candidate order for Japanese game scripts:
// the universal encoding first, then the two legacy double-byte encodings.
var DefaultCandidates = []string{UTF8, ShiftJIS, EUCJP}

// Result is the outcome of a Decode call.
type Result struct {
	// Text is the decoded content.
	Text string
	// Encoding is the identifier of the candidate that succeeded.
	// Apply paths must encode with the same identifier on write-back.
	Encoding string
	// Degraded is true when no candidate decoded cleanly and Text was
	// produced by lossy UTF-8 decoding.
	Degraded bool
}

func codec(name string) (encoding.Encoding, error) {
	switch name {
	case UTF8:
		return unicode.UTF8, nil
	case ShiftJIS:
		return japanese.ShiftJIS, nil
	case EUCJP:
		return japanese.EUCJP, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

// Decode tries each candidate encoding in order and returns the first that
// decodes data without loss. If every candidate fails, it falls back to
// lossy UTF-8 and marks the result degraded. Decode never fails; unknown
// candidate names are the only error.
func Decode(data []byte, candidates []string) (Result, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	for _, name := range candidates {
		enc, err := codec(name)
		if err != nil {
			return Result{}, err
		}
		text, ok := tryDecode(data, name, enc)
		if ok {
			return Result{Text: text, Encoding: name}, nil
		}
	}
	return Result{
		Text:     strings.ToValidUTF8(string(data), string(utf8.RuneError)),
		Encoding: UTF8,
		Degraded: true,
	}, nil
}

// tryDecode decodes data and reports whether the decode was clean.
// A decode is clean when it introduces no replacement characters that the
// input did not already legitimately contain.
func tryDecode(data []byte, name string, enc encoding.Encoding) (string, bool) {
	if name == UTF8 {
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	text := string(decoded)
	if strings.ContainsRune(text, utf8.RuneError) {
		return "", false
	}
	return text, true
}

// Encode converts text back to bytes in the named encoding. Runes the
// target encoding cannot represent are replaced rather than failing the
// whole write, so a single exotic character never loses a file.
func Encode(text string, name string) ([]byte, error) {
	enc, err := codec(name)
	if err != nil {
		return nil, err
	}
	if name == UTF8 {
		return []byte(text), nil
	}
	return encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(text))
}
