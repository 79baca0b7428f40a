package id

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// nanoLength is the default NanoID length used by Generate.
const nanoLength = 21

// idPattern matches the full "prefix-nanoid" shape produced by Generate.
var idPattern = regexp.MustCompile(`^[a-z]+-[A-Za-z0-9_-]{21}$`)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "book-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New(nanoLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Valid reports whether s has the shape of an ID produced by Generate.
//
// Callers use it to tell a bare reference apart from a bare name, so a
// stored ID is never mistaken for a new entity called "person-V1St...".
func Valid(s string) bool {
	return idPattern.MatchString(s)
}

// HasPrefix reports whether s is a valid ID carrying the given prefix.
func HasPrefix(s, prefix string) bool {
	return Valid(s) && len(s) == len(prefix)+1+nanoLength && s[:len(prefix)+1] == prefix+"-"
}
