package rpgmaker

import "sort"

// EventCode describes one RPG Maker event command code and what translating
// it costs. Operators opt codes in individually; nothing outside the enabled
// set is ever touched.
type EventCode struct {
	Code        int
	Name        string
	Description string
	Category    string
	CostLevel   string
	Recommended bool
}

// Event command categories.
const (
	CategoryMainDialogue = "main_dialogue"
	CategoryOptional     = "optional"
	CategoryVariables    = "variables"
	CategoryOther        = "other"
)

var catalog = map[int]EventCode{
	401: {401, "Show Text", "Main dialogue text display", CategoryMainDialogue, "low", true},
	405: {405, "Show Text (Scrolling)", "Scrolling text display", CategoryMainDialogue, "low", true},
	102: {102, "Show Choices", "Player choice options", CategoryMainDialogue, "low", true},

	101: {101, "Character Names", "Character name display", CategoryOptional, "low", false},
	408: {408, "Comments (Extended)", "Developer comments, high translation cost", CategoryOptional, "high", false},

	122: {122, "Control Variables", "Variable control with text", CategoryVariables, "medium", false},

	355: {355, "Scripts", "Script commands", CategoryOther, "medium", false},
	356: {356, "Plugin Commands", "Plugin command text", CategoryOther, "medium", false},
	357: {357, "Picture Text", "Text displayed on pictures", CategoryOther, "medium", false},
	657: {657, "Picture Text Extended", "Extended picture text", CategoryOther, "medium", false},
	320: {320, "Change Name Input", "Name input prompts", CategoryOther, "low", false},
	324: {324, "Change Nickname", "Character nickname changes", CategoryOther, "low", false},
	111: {111, "Conditional Branch", "Conditional branch text", CategoryOther, "medium", false},
	108: {108, "Comments", "Comment text", CategoryOther, "high", false},
}

// Catalog returns all known event codes sorted by code number.
func Catalog() []EventCode {
	codes := make([]EventCode, 0, len(catalog))
	for _, c := range catalog {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].Code < codes[j].Code })
	return codes
}

// CodeInfo returns metadata for one event code.
func CodeInfo(code int) (EventCode, bool) {
	c, ok := catalog[code]
	return c, ok
}

// RecommendedCodes returns the default enabled set: main dialogue only.
func RecommendedCodes() []int {
	var codes []int
	for code, c := range catalog {
		if c.Recommended {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}
