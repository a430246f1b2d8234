// Package assetid maps asset paths to 32-bit identities.
//
// Identities for the assets listed in ids.yaml are generated as constants,
// so engine code can switch on them without hashing at runtime. Of computes
// the same value for any path.
package assetid

import (
	"fmt"

	"github.com/assetsum/assetsum/internal/crc"
)

//go:generate go run ../../cmd/assetsum gen ids -i ids.yaml -o ids_gen.go

// ID is the CRC-32 of an asset path.
type ID uint32

// Of returns the identity of path.
func Of(path string) ID {
	return ID(crc.String(path))
}

// Path returns the path of a generated identity.
func Path(id ID) (string, bool) {
	return lookup(id)
}

// Known returns the paths that have generated identities.
func Known() []string {
	out := make([]string, len(knownPaths))
	copy(out, knownPaths)
	return out
}

func (id ID) String() string {
	return fmt.Sprintf("%08x", uint32(id))
}
