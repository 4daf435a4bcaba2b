// Package shortcode generates the short codes URLs are published under.
// Codes use the base62 alphabet so they are safe in any URL path segment.
package shortcode

import (
	"errors"
	"math"
	"strings"
)

// Alphabet is the set of characters a short code is made of.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = uint64(len(Alphabet))

var (
	// ErrInvalidCharacter is returned when a code contains a character outside the alphabet.
	ErrInvalidCharacter = errors.New("invalid character in base62 string")
	// ErrOverflow is returned when a decoded code does not fit into uint64.
	ErrOverflow = errors.New("decoded value exceeds uint64 range")
)

var charToValue = func() map[byte]uint64 {
	m := make(map[byte]uint64, base)
	for i := 0; i < len(Alphabet); i++ {
		m[Alphabet[i]] = uint64(i)
	}
	return m
}()

// Encode returns the base62 representation of num.
func Encode(num uint64) string {
	if num == 0 {
		return Alphabet[:1]
	}

	buf := make([]byte, 0, 11)
	for num > 0 {
		buf = append(buf, Alphabet[num%base])
		num /= base
	}

	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf)
}

// Decode parses a base62 string produced by Encode. Leading zero digits
// added by Pad are accepted.
func Decode(s string) (uint64, error) {
	var num uint64

	for i := 0; i < len(s); i++ {
		v, ok := charToValue[s[i]]
		if !ok {
			return 0, ErrInvalidCharacter
		}

		if num > (math.MaxUint64-v)/base {
			return 0, ErrOverflow
		}

		num = num*base + v
	}

	return num, nil
}

// IsValid reports whether s is a non-empty string over the alphabet.
func IsValid(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if _, ok := charToValue[s[i]]; !ok {
			return false
		}
	}

	return true
}

// Pad left-pads encoded with the zero digit up to length.
func Pad(encoded string, length int) string {
	if len(encoded) >= length {
		return encoded
	}
	return strings.Repeat(Alphabet[:1], length-len(encoded)) + encoded
}
