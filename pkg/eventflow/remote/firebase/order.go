package firebase

import (
	"math"
	"sort"
	"strconv"
)

// sortKeys orders child keys the way the database orders children by
// default: keys that parse as 32-bit integers come first in numeric order,
// followed by the remaining keys in lexicographic order.
func sortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aIsInt := parseIntKey(keys[i])
		b, bIsInt := parseIntKey(keys[j])

		switch {
		case aIsInt && bIsInt:
			if a == b {
				return len(keys[i]) < len(keys[j])
			}
			return a < b
		case aIsInt:
			return true
		case bIsInt:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

func parseIntKey(key string) (int64, bool) {
	if len(key) == 0 || key[0] == '+' || (len(key) > 1 && key[0] == '0') || key == "-0" {
		return 0, false
	}
	if len(key) > 1 && key[0] == '-' && key[1] == '0' {
		return 0, false
	}

	v, err := strconv.ParseInt(key, 10, 64)
	if err != nil || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return v, true
}
