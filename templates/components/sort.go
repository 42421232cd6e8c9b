package components

import (
	"sort"

	"github.com/samber/lo"
)

// SortedKeys returns the keys of m in order, for stable markup
func SortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
