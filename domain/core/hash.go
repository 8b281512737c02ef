package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a deterministic content hash. It is used for change
// detection between successive snapshots of mutable state, not for
// cryptographic security.
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	StateHash Hash
	GridHash  Hash
)

func NewStateHash(data []byte) StateHash { return StateHash(NewHash(data)) }
func NewGridHash(data []byte) GridHash   { return GridHash(NewHash(data)) }

func (h StateHash) String() string { return Hash(h).String() }
func (h GridHash) String() string  { return Hash(h).String() }

// ComputeStateHash hashes a flat key/value view of mutable state. Keys are
// sorted so the same logical state always produces the same hash regardless
// of map iteration order.
func ComputeStateHash(fields map[string]interface{}) StateHash {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("%v", fields[key]))
	}

	return NewStateHash([]byte(data.String()))
}
