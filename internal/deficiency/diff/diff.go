// Package diff reconciles keyed collections by source inspection item id.
// Record ids differ between collections (deficient item ids vs inspection
// item ids), so matching is on ItemID, never on map keys.
package diff

import (
	"slices"
)

// Keyed is a record that names its source inspection item.
type Keyed interface {
	ItemID() string
}

// FindMissing returns the keys of source whose item has no counterpart in
// target. Records without an item id are always missing.
func FindMissing[S, T Keyed](source map[string]S, target map[string]T) []string {
	var missing []string
	for _, key := range sortedKeys(source) {
		if !containsItem(target, source[key].ItemID()) {
			missing = append(missing, key)
		}
	}
	return missing
}

// FindMatching returns the keys of current whose item also appears in
// expected. It is the complement of FindMissing(current, expected).
func FindMatching[S, T Keyed](current map[string]S, expected map[string]T) []string {
	var matching []string
	for _, key := range sortedKeys(current) {
		if containsItem(expected, current[key].ItemID()) {
			matching = append(matching, key)
		}
	}
	return matching
}

func containsItem[T Keyed](records map[string]T, itemID string) bool {
	if itemID == "" {
		return false
	}
	for _, record := range records {
		if record.ItemID() == itemID {
			return true
		}
	}
	return false
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
