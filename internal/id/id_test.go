package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	got, err := Generate("book")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "book-"))
	assert.Len(t, got, len("book-")+nanoLength)
	assert.True(t, Valid(got))
	assert.True(t, HasPrefix(got, "book"))
	assert.False(t, HasPrefix(got, "person"))
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		got := MustGenerate("person")
		require.False(t, seen[got], "duplicate id %s", got)
		seen[got] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"person-V1StGXR8_Z5jdHi6B-myT", true},
		{"book-abcdefghijklmnopqrstu", true},
		{"ابن تيمية", false},
		{"person-short", false},
		{"V1StGXR8_Z5jdHi6B-myT", false},
		{"Person-V1StGXR8_Z5jdHi6B-myT", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.input))
		})
	}
}
