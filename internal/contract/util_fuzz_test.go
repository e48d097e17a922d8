package contract

import (
	"testing"
	"unicode/utf8"

	"github.com/huangsam/propensity/schema"
)

// FuzzTruncateText checks that truncation never grows the text or breaks UTF-8.
func FuzzTruncateText(f *testing.F) {
	f.Add("123 Main St", 5)
	f.Add("", 0)
	f.Add("Calle Señora 1", 8)
	f.Add("abc", -1)

	f.Fuzz(func(t *testing.T, text string, width int) {
		out := TruncateText(text, width)
		if utf8.ValidString(text) && !utf8.ValidString(out) {
			t.Fatalf("invalid utf-8 from %q", text)
		}
		if utf8.RuneCountInString(out) > utf8.RuneCountInString(text) {
			t.Fatalf("truncation grew %q to %q", text, out)
		}
	})
}

// FuzzParseGeoLevels checks that parsing never panics and only returns valid levels.
func FuzzParseGeoLevels(f *testing.F) {
	f.Add("state,zip")
	f.Add("")
	f.Add(",,,")
	f.Add("REGION, county , neighborhood")

	f.Fuzz(func(t *testing.T, s string) {
		levels, err := ParseGeoLevels(s)
		if err != nil {
			return
		}
		for _, level := range levels {
			if _, ok := schema.ValidGeoLevels[level]; !ok {
				t.Fatalf("invalid level %q from %q", level, s)
			}
		}
	})
}
