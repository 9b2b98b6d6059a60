package license

import (
	"crypto/rand"
	"regexp"
	"strings"
)

const (
	keyAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyGroups    = 4
	keyGroupSize = 4
	keySeparator = "-"
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{4}(-[A-Z0-9]{4}){3}$`)

// NewKey generates a license key: four groups of four characters from
// A-Z0-9, e.g. "7KQ2-M9XA-11BC-DD0F".
func NewKey() string {
	buf := make([]byte, keyGroups*keyGroupSize)
	if _, err := rand.Read(buf); err != nil {
		panic("license: crypto/rand unavailable: " + err.Error())
	}

	groups := make([]string, keyGroups)
	for g := 0; g < keyGroups; g++ {
		chars := make([]byte, keyGroupSize)
		for i := 0; i < keyGroupSize; i++ {
			chars[i] = keyAlphabet[int(buf[g*keyGroupSize+i])%len(keyAlphabet)]
		}
		groups[g] = string(chars)
	}

	return strings.Join(groups, keySeparator)
}

// ValidKey reports whether s has the license key shape.
func ValidKey(s string) bool {
	return keyPattern.MatchString(s)
}

// NormalizeKey uppercases a user-supplied key and trims whitespace.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
