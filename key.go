package argstore

import (
	"fmt"
	"sort"
)

// DefaultWildcardMarker is the text that stands for Wildcard at untyped
// boundaries (dispatch input, snapshot files, CLI arguments).
const DefaultWildcardMarker = "_"

// Key identifies the record a value is grouped under: either the wildcard
// baseline or a concrete function name. The zero value is Named("").
type Key struct {
	name     string
	wildcard bool
}

// Wildcard is the key whose record is merged beneath every function lookup.
var Wildcard = Key{wildcard: true}

// Named returns the key for a concrete function. Named("_") is a regular
// function key and never aliases Wildcard.
func Named(function string) Key {
	return Key{name: function}
}

// ParseKey maps boundary text onto a Key, treating marker as the wildcard
// sentinel. An empty marker falls back to DefaultWildcardMarker.
func ParseKey(text, marker string) Key {
	if marker == "" {
		marker = DefaultWildcardMarker
	}
	if text == marker {
		return Wildcard
	}
	return Named(text)
}

// IsWildcard reports whether k is the wildcard key.
func (k Key) IsWildcard() bool {
	return k.wildcard
}

// Name returns the function name, or an empty string for Wildcard.
func (k Key) Name() string {
	if k.wildcard {
		return ""
	}
	return k.name
}

// Format renders k for an untyped boundary using marker for Wildcard.
func (k Key) Format(marker string) string {
	if !k.wildcard {
		return k.name
	}
	if marker == "" {
		return DefaultWildcardMarker
	}
	return marker
}

func (k Key) String() string {
	if k.wildcard {
		return "<wildcard>"
	}
	return fmt.Sprintf("%q", k.name)
}

// sortKeys orders keys with Wildcard first and functions alphabetically.
func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].wildcard != keys[j].wildcard {
			return keys[i].wildcard
		}
		return keys[i].name < keys[j].name
	})
}
