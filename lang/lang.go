// Package lang resolves language codes to the English names used in the
// translation prompt, so mtl.yaml accepts "ru" as well as "Russian".
package lang

import "strings"

// registry maps canonical codes to English language names. Locale variants
// not listed here fall back to their base language in Resolve.
var registry = map[string]string{
	"ar":      "Arabic",
	"cs":      "Czech",
	"de":      "German",
	"en":      "English",
	"es":      "Spanish",
	"es-MX":   "Latin American Spanish",
	"fi":      "Finnish",
	"fr":      "French",
	"hu":      "Hungarian",
	"id":      "Indonesian",
	"it":      "Italian",
	"ja":      "Japanese",
	"ko":      "Korean",
	"nl":      "Dutch",
	"pl":      "Polish",
	"pt":      "Portuguese",
	"pt-BR":   "Brazilian Portuguese",
	"ru":      "Russian",
	"sv":      "Swedish",
	"th":      "Thai",
	"tr":      "Turkish",
	"uk":      "Ukrainian",
	"vi":      "Vietnamese",
	"zh":      "Chinese",
	"zh-Hans": "Simplified Chinese",
	"zh-Hant": "Traditional Chinese",
}

// Resolve returns the English name for a language code, trying the exact
// locale first and then the base language. Inputs that are not recognized
// codes come back unchanged, so full names like "Russian" pass through.
func Resolve(code string) string {
	normalized := normalize(code)
	if name, ok := registry[normalized]; ok {
		return name
	}
	if base, _, found := strings.Cut(normalized, "-"); found {
		if name, ok := registry[base]; ok {
			return name
		}
	}
	return code
}

// normalize canonicalizes separator and case: "pt_br" -> "pt-BR",
// "zh-hant" -> "zh-Hant".
func normalize(code string) string {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	base, rest, found := strings.Cut(code, "-")
	base = strings.ToLower(base)
	if !found {
		return base
	}
	switch len(rest) {
	case 2:
		rest = strings.ToUpper(rest)
	default:
		rest = strings.ToUpper(rest[:1]) + strings.ToLower(rest[1:])
	}
	return base + "-" + rest
}
