package credentials

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlphabetExcludesConfusableGlyphs(t *testing.T) {
	for _, r := range "0O1Il5S8B" {
		assert.NotContains(t, Alphabet, string(r))
	}
}

func TestNewPair(t *testing.T) {
	g := NewGenerator()

	username, password := g.NewPair()
	assert.Len(t, username, UsernameLength)
	assert.Len(t, password, PasswordLength)

	for _, s := range []string{username, password} {
		for _, r := range s {
			assert.True(t, strings.ContainsRune(Alphabet, r),
				"credential %q contains %q outside the alphabet", s, r)
		}
	}
}

func TestPairsAreNotRepeated(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		u := g.NewUsername()
		assert.False(t, seen[u], "username %q generated twice", u)
		seen[u] = true
	}
}
