// Package sliceutil provides generic slice manipulation utilities.
package sliceutil

// Deduplicate removes duplicate items from a slice while preserving order.
// The keyFunc extracts a unique key from each item for comparison.
// Only the first occurrence of each key is kept.
//
// Example:
//
//	asked := []string{"q1", "q2", "q1"}
//	unique := sliceutil.Deduplicate(asked, func(s string) string { return s })
//	// Result: ["q1", "q2"]
func Deduplicate[T any, K comparable](items []T, keyFunc func(T) K) []T {
	if len(items) == 0 {
		return items
	}

	seen := make(map[K]bool, len(items))
	result := make([]T, 0, len(items))

	for _, item := range items {
		key := keyFunc(item)
		if !seen[key] {
			seen[key] = true
			result = append(result, item)
		}
	}

	return result
}

// UnionStrings merges overlay into base, keeping base order and appending
// overlay entries not yet present. The backbone of fact-list merging, where
// list union must be associative and idempotent.
func UnionStrings(base, overlay []string) []string {
	if len(overlay) == 0 {
		return Deduplicate(base, func(s string) string { return s })
	}
	merged := make([]string, 0, len(base)+len(overlay))
	merged = append(merged, base...)
	merged = append(merged, overlay...)
	return Deduplicate(merged, func(s string) string { return s })
}
