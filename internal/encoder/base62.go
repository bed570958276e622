package encoder

import (
	"crypto/rand"
	"math/big"
)

// Alphabet is the 62-character set short codes are drawn from
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength is the length of generated codes when none is configured
const DefaultLength = 6

var base = big.NewInt(int64(len(Alphabet)))

// Generator produces random base62 short codes.
// It does not check uniqueness; the store's unique constraint does.
type Generator struct {
	length int
}

// NewGenerator creates a generator for codes of the given length
func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Length returns the code length
func (g *Generator) Length() int {
	return g.length
}

// Generate draws each character uniformly from Alphabet
func (g *Generator) Generate() (string, error) {
	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}

// IsBase62 reports whether s is non-empty and uses only Alphabet characters
func IsBase62(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if indexOf(s[i]) < 0 {
			return false
		}
	}
	return true
}

func indexOf(char byte) int {
	switch {
	case char >= '0' && char <= '9':
		return int(char - '0')
	case char >= 'a' && char <= 'z':
		return int(char-'a') + 10
	case char >= 'A' && char <= 'Z':
		return int(char-'A') + 36
	}
	return -1
}
