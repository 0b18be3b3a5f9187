package docstore

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// idMaxMultiple is the largest multiple of len(idAlphabet) not exceeding 256.
// Bytes at or above it are rejected and redrawn so every alphabet character
// has exactly equal probability; naively reducing mod len(idAlphabet) would
// favor the first 256%62 characters.
const idMaxMultiple = 256 - (256 % len(idAlphabet))

// randomID draws a 20-character alphanumeric id from a cryptographic RNG,
// matching the document id format produced for auto-generated ids.
func randomID() (string, error) {
	buf := make([]byte, 20)
	scratch := make([]byte, 1)
	for i := range buf {
		for {
			if _, err := rand.Read(scratch); err != nil {
				return "", err
			}
			if b := scratch[0]; int(b) < idMaxMultiple {
				buf[i] = idAlphabet[int(b)%len(idAlphabet)]
				break
			}
		}
	}
	return string(buf), nil
}

// UUIDIDStrategy is an alternate id function for [WithIDStrategy] that mints
// RFC 4122 UUIDs instead of the default 20-character alphanumeric id, for
// callers that need ids interoperable with other systems.
func UUIDIDStrategy() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
