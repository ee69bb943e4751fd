// Package id provides sortable ID generation utilities.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Crockford's Base32 alphabet (excludes I, L, O, U to avoid confusion).
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	timeChars   = 10
	randomChars = 16
	ulidLen     = timeChars + randomChars
)

// NewULID generates a ULID (Universally Unique Lexicographically Sortable
// Identifier): a 26-character string encoding a 48-bit millisecond timestamp
// followed by 80 bits of randomness. IDs generated later sort after IDs
// generated earlier, which keeps correlation IDs greppable in time order.
func NewULID() string {
	var out [ulidLen]byte

	// Timestamp part: 48 bits consumed 5 at a time, least significant last.
	ms := uint64(time.Now().UnixMilli())
	for i := timeChars - 1; i >= 0; i-- {
		out[i] = alphabet[ms&0x1F]
		ms >>= 5
	}

	// Random part: 80 bits read as a bit stream, 5 bits per character.
	var entropy [10]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		// Degraded fallback keeps IDs unique enough for correlation use.
		binary.BigEndian.PutUint64(entropy[:8], uint64(time.Now().UnixNano()))
	}

	var acc uint64
	bits := 0
	next := 0
	for i := timeChars; i < ulidLen; i++ {
		for bits < 5 {
			acc = acc<<8 | uint64(entropy[next])
			next++
			bits += 8
		}
		bits -= 5
		out[i] = alphabet[(acc>>uint(bits))&0x1F]
	}

	return string(out[:])
}
