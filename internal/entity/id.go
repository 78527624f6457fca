// Package entity names logical build artifacts. Producers and consumers
// rendezvous on entity ids, not on filenames.
package entity

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ID identifies a named build artifact, such as "header:foo.h" or
// "object:foo.o". It is a fixed-size digest of the canonical name, so it is
// comparable and usable as a map key.
type ID struct {
	digest [16]byte
}

// NewID derives the id for a canonical entity name.
func NewID(name string) ID {
	sum := blake3.Sum256([]byte(name))
	var id ID
	copy(id.digest[:], sum[:16])
	return id
}

// String returns the hex form of the digest.
func (id ID) String() string {
	return hex.EncodeToString(id.digest[:])
}

// IsZero reports whether id is the zero value, which never names an entity.
func (id ID) IsZero() bool {
	return id == ID{}
}
