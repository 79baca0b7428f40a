package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n ", ""},
		{"latin", "  Ibn   TAYMIYYAH ", "ibn taymiyyah"},
		{"alef with hamza above", "أحمد", "احمد"},
		{"alef with hamza below", "إحمد", "احمد"},
		{"alef with madda", "آمنة", "امنه"},
		{"alef wasla", "ٱلله", "الله"},
		{"taa marbuta", "تيمية", "تيميه"},
		{"alef maksura", "مصطفى", "مصطفي"},
		{"waw with hamza", "مؤمن", "مومن"},
		{"yeh with hamza", "مسائل", "مسايل"},
		{"standalone hamza", "علماء", "علما"},
		{"harakat", "مُحَمَّدٌ", "محمد"},
		{"tatweel", "مـــحمد", "محمد"},
		{"superscript alef", "هٰذا", "هذا"},
		{"decomposed hamza", "\u0627\u0654\u062d\u0645\u062f", "احمد"},
		{"mixed script", "  Sahih   البُخاري ", "sahih البخاري"},
		{"non-breaking space", "ابن\u00a0تيمية", "ابن تيميه"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestText_AlefVariantsCollapse(t *testing.T) {
	want := Text("احمد")
	assert.Equal(t, want, Text("أحمد"))
	assert.Equal(t, want, Text("إحمد"))
	assert.Equal(t, want, Text("آحمد"))
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"ابن تيمية",
		"  مُحَمَّدُ  بْنُ   إِسْمَاعِيلَ ",
		"Kitāb al-Umm",
		"İstanbul",
		"أَ",
		"ــ",
		"أ",
		"Ａｂｃ ق",
	}

	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ابن تيميه|author", Key("ابن تيمية", "author"))
	assert.Equal(t, Key("ابن تيميه", "author"), Key(" ابن  تيمية ", "Author"))
	assert.NotEqual(t, Key("ابن تيمية", "author"), Key("ابن تيمية", "editor"))
}
