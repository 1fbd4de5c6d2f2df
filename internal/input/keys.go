// Package input turns raw key state into per-frame snapshots.
package input

import (
	"fmt"
	"strings"
)

// Key identifies one of the directional keys the controller reads.
type Key uint8

const (
	KeyW Key = iota
	KeyA
	KeyS
	KeyD
	KeyArrowUp
	KeyArrowLeft
	KeyArrowDown
	KeyArrowRight
	keyCount
)

var keyNames = [keyCount]string{"W", "A", "S", "D", "Up", "Left", "Down", "Right"}

// String returns the short key name used in input scripts.
func (k Key) String() string {
	if k >= keyCount {
		return fmt.Sprintf("Key(%d)", uint8(k))
	}
	return keyNames[k]
}

// ParseKey resolves a key name case-insensitively.
func ParseKey(name string) (Key, error) {
	trimmed := strings.TrimSpace(name)
	for idx, candidate := range keyNames {
		if strings.EqualFold(candidate, trimmed) {
			return Key(idx), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// KeySet is a bitmask of held keys.
type KeySet uint16

// NewKeySet builds a set containing keys.
func NewKeySet(keys ...Key) KeySet {
	var set KeySet
	for _, key := range keys {
		set = set.With(key)
	}
	return set
}

// With returns the set including key.
func (s KeySet) With(key Key) KeySet {
	if key >= keyCount {
		return s
	}
	return s | 1<<key
}

// Has reports whether key is in the set.
func (s KeySet) Has(key Key) bool {
	if key >= keyCount {
		return false
	}
	return s&(1<<key) != 0
}

// Keys lists the members of the set in declaration order.
func (s KeySet) Keys() []Key {
	var keys []Key
	for key := Key(0); key < keyCount; key++ {
		if s.Has(key) {
			keys = append(keys, key)
		}
	}
	return keys
}
