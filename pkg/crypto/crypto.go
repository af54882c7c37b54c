package crypto

import (
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/sha3"
)

// Alphanumeric is the alphabet used for opaque tokens.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// rejectAbove is the largest multiple of len(Alphanumeric) that fits in a byte; bytes at or
// above it are discarded to keep the distribution uniform.
const rejectAbove = 256 - 256%len(Alphanumeric)

var errInvalidLength = errors.New("crypto: length must be positive")

// RandomString returns n characters drawn uniformly from Alphanumeric using crypto/rand.
func RandomString(n int) (string, error) {
	return drawAlphanumeric(rand.Reader, n)
}

// DigestString derives n alphanumeric characters from seed through SHAKE256. The output is
// deterministic for a given seed.
func DigestString(seed []byte, n int) (string, error) {
	shake := sha3.NewShake256()
	if _, err := shake.Write(seed); err != nil {
		return "", err
	}
	return drawAlphanumeric(shake, n)
}

// RandomDigest hashes size bytes of fresh entropy into n alphanumeric characters.
func RandomDigest(size, n int) (string, error) {
	if size <= 0 {
		return "", errInvalidLength
	}
	seed := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return "", err
	}
	return DigestString(seed, n)
}

// IsAlphanumeric reports whether value only contains characters from Alphanumeric.
func IsAlphanumeric(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func drawAlphanumeric(src io.Reader, n int) (string, error) {
	if n <= 0 {
		return "", errInvalidLength
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+8)
	for len(out) < n {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, Alphanumeric[int(b)%len(Alphanumeric)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
