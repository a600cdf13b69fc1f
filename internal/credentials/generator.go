package credentials

import (
	"crypto/rand"
	"math/big"
)

// Alphabet excludes visually confusable glyphs (0/O, 1/I/l, 5/S, 8/B) since
// customers retype these credentials into set-top boxes and apps. These are
// ordinary support credentials for panel logins, not security material.
const Alphabet = "abcdefghijkmnpqrtuvwxyzACDEFGHJKLMNPQRTUVWXY234679"

const (
	UsernameLength = 10
	PasswordLength = 12
)

// Generator produces panel login credential pairs.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// NewUsername returns a fresh username of the standard length.
func (g *Generator) NewUsername() string {
	return randomString(UsernameLength)
}

// NewPassword returns a fresh password of the standard length.
func (g *Generator) NewPassword() string {
	return randomString(PasswordLength)
}

// NewPair returns a username/password pair.
func (g *Generator) NewPair() (string, string) {
	return g.NewUsername(), g.NewPassword()
}

func randomString(length int) string {
	max := big.NewInt(int64(len(Alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; there is no useful recovery.
			panic("credentials: entropy source unavailable: " + err.Error())
		}
		out[i] = Alphabet[n.Int64()]
	}
	return string(out)
}
