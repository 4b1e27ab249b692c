package resources

import (
	"fmt"

	"github.com/google/uuid"
)

// MemoryScheme prefixes the path of assets that live only in memory.
const MemoryScheme = "mem://"

// Key names one logical asset. Two keys are the same asset iff they are equal.
type Key struct {
	Kind string
	Path string
}

func NewKey(kind, path string) Key {
	return Key{Kind: kind, Path: path}
}

// AnonymousKey returns a fresh key for an asset that has no file behind it.
// The bytes must be made available to the despatcher's source under Path.
func AnonymousKey(kind string) Key {
	return Key{Kind: kind, Path: MemoryScheme + uuid.NewString()}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.Path)
}
