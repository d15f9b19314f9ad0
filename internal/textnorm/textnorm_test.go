package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Hello World", "hello world"},
		{"  Hello   World  ", "hello world"},
		{"Don’t Stop", "don't stop"},
		{"Don`t Stop", "don't stop"},
		{"안녕 (Hello)", "안녕 hello"},
		{"Love [Remix] — 2024", "love remix 2024"},
		{"A-B–C—D", "a b c d"},
		{"ＡＢＣ", "abc"}, // fullwidth compatibility forms
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeNoSpace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Hello World", "helloworld"},
		{"안녕 (Hello)", "안녕hello"},
		{"How Can I", "howcani"},
	}
	for _, tt := range tests {
		if got := NormalizeNoSpace(tt.in); got != tt.want {
			t.Errorf("NormalizeNoSpace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
