package exec

import "sort"

// sortedKeys returns m's keys in sorted order so rendered argv (env
// prefixes, -e flags) is deterministic and stable across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
