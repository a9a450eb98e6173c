package util

import (
	"sort"
	"strconv"
	"unicode"
)

// SortInterfaceNames sorts interface names so that numeric suffixes compare
// as numbers: "2" < "10", "Ethernet2" < "Ethernet10".
func SortInterfaceNames(names []string) []string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.SliceStable(sorted, func(i, j int) bool {
		return InterfaceLess(sorted[i], sorted[j])
	})
	return sorted
}

// InterfaceLess orders interface names by alphabetic prefix, then numeric suffix.
func InterfaceLess(a, b string) bool {
	pa, na, oka := splitNumericSuffix(a)
	pb, nb, okb := splitNumericSuffix(b)
	if pa != pb || !oka || !okb {
		return a < b
	}
	return na < nb
}

func splitNumericSuffix(name string) (string, int, bool) {
	i := len(name)
	for i > 0 && unicode.IsDigit(rune(name[i-1])) {
		i--
	}
	if i == len(name) {
		return name, 0, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], n, true
}
