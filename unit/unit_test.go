package unit

import "testing"

func TestContainsJapanese(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"こんにちは", true},
		{"カタカナ", true},
		{"漢字", true},
		{"mixed こんにちは text", true},
		{"hello world", false},
		{"", false},
		{"12345 !?", false},
	}
	for _, tc := range tests {
		if got := ContainsJapanese(tc.text); got != tc.want {
			t.Fatalf("ContainsJapanese(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
