// Package area packs a (depth, x, y) dungeon cell into a single integer key.
//
// The key layout is depth in bits 0-7, x in bits 8-15, y in bits 16-23, so
// every valid key fits in 24 bits. The type is 64-bit wide anyway: contract-side
// identifiers that travel next to area keys can exceed 2^53, and the decimal
// string form must round-trip them without precision loss.
package area

import (
	"errors"
	"fmt"
	"strconv"
)

// Key is a packed (depth, x, y) cell identifier.
type Key uint64

// MaxCoord is the largest value any single coordinate component may take.
const MaxCoord = 255

// maxKey is one past the largest encodable key.
const maxKey Key = 1 << 24

// ErrInvalidCoordinate reports a coordinate outside [0, MaxCoord]. Callers at
// the input boundary must clamp or reject before encoding; hitting this error
// from interior code is a bug, not a data problem.
var ErrInvalidCoordinate = errors.New("area: coordinate out of range [0,255]")

// ErrInvalidKey reports a key that is not a valid packed cell identifier.
var ErrInvalidKey = errors.New("area: invalid key")

// Encode packs depth, x and y into a Key.
func Encode(depth, x, y int) (Key, error) {
	if depth < 0 || depth > MaxCoord {
		return 0, fmt.Errorf("%w: depth=%d", ErrInvalidCoordinate, depth)
	}
	if x < 0 || x > MaxCoord {
		return 0, fmt.Errorf("%w: x=%d", ErrInvalidCoordinate, x)
	}
	if y < 0 || y > MaxCoord {
		return 0, fmt.Errorf("%w: y=%d", ErrInvalidCoordinate, y)
	}
	return Key(depth) | Key(x)<<8 | Key(y)<<16, nil
}

// Decode unpacks a key into its depth, x and y components. Pure bit
// extraction; bits above 23 are ignored.
func Decode(k Key) (depth, x, y int) {
	return int(k & 0xff), int(k >> 8 & 0xff), int(k >> 16 & 0xff)
}

// Valid reports whether k is an encodable cell key.
func Valid(k Key) bool {
	return k < maxKey
}

// FromInt converts an externally supplied integer into a Key, rejecting
// negative values.
func FromInt(v int64) (Key, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: negative value %d", ErrInvalidKey, v)
	}
	return Key(v), nil
}

// ParseKey parses the decimal-string storage form of a key. The string form is
// the canonical serialization: it survives any JSON number precision limits.
func ParseKey(s string) (Key, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key(v), nil
}

// String returns the decimal storage form.
func (k Key) String() string {
	return strconv.FormatUint(uint64(k), 10)
}

// Depth returns the depth component.
func (k Key) Depth() int { d, _, _ := Decode(k); return d }

// X returns the x component.
func (k Key) X() int { _, x, _ := Decode(k); return x }

// Y returns the y component.
func (k Key) Y() int { _, _, y := Decode(k); return y }
