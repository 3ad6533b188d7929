package registration

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"regexp"

	goerrors "github.com/goliatone/go-errors"
)

// KeyGenerator produces an activation key bound to a username. Output must
// match ActivationKeyPattern.
type KeyGenerator func(username string) (string, error)

// ActivationKeyPattern is the wire format every activation key satisfies:
// 40 lowercase hexadecimal characters.
const ActivationKeyPattern = `^[a-f0-9]{40}$`

var activationKeyRe = regexp.MustCompile(ActivationKeyPattern)

// IsActivationKey reports whether s is a well-formed activation key.
// Malformed keys are rejected before any store lookup happens.
func IsActivationKey(s string) bool {
	return activationKeyRe.MatchString(s)
}

// GenerateActivationKey derives a 40-hex-character activation key for
// username. A random salt is drawn, hashed, and its first five hex digits
// are mixed into the digest together with the username. The salt mixing is
// kept for compatibility with the historical scheme; unpredictability comes
// from the crypto/rand draw.
func GenerateActivationKey(username string) (string, error) {
	salt, err := randomDigest()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate activation key salt")
	}

	sum := sha1.Sum([]byte(salt[:5] + username))
	return hex.EncodeToString(sum[:]), nil
}

// RandomActivationKey returns a CSPRNG-derived 160-bit key formatted as 40
// lowercase hex digits. It satisfies the same format contract as
// GenerateActivationKey and is preferable when no username binding is wanted.
func RandomActivationKey() (string, error) {
	var buf [20]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate activation key")
	}
	return hex.EncodeToString(buf[:]), nil
}

func randomDigest() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	sum := sha1.Sum(buf[:])
	return hex.EncodeToString(sum[:]), nil
}
