package result

import (
	"cmp"
	"slices"
)

// FieldMatch returns Pass when measured equals expected, else FieldMismatch.
func FieldMatch[T comparable](ref Ref, field string, expected, measured T) Result {
	if expected == measured {
		return Pass(ref, field, measured)
	}
	return FieldMismatch(ref, field, expected, measured)
}

// SortedSet returns the distinct items in ascending order.
func SortedSet[T cmp.Ordered](items []T) []T {
	out := slices.Clone(items)
	slices.Sort(out)
	return slices.Compact(out)
}

// SameMembers reports set equality, ignoring order and duplicates.
func SameMembers[T cmp.Ordered](a, b []T) bool {
	return slices.Equal(SortedSet(a), SortedSet(b))
}

// Difference returns the members of a not in b, sorted.
func Difference[T cmp.Ordered](a, b []T) []T {
	bs := SortedSet(b)
	var out []T
	for _, v := range SortedSet(a) {
		if _, found := slices.BinarySearch(bs, v); !found {
			out = append(out, v)
		}
	}
	return out
}

// ExclusiveList compares a device-wide measured set to the designed set.
// Missing and extra members are reported as separate results; Pass only when
// neither exists.
func ExclusiveList[T cmp.Ordered](ref Ref, field string, expected, measured []T) Results {
	exp := SortedSet(expected)
	var rs Results
	if missing := Difference(expected, measured); len(missing) > 0 {
		rs = append(rs, MissingMembers(ref, field, exp, missing))
	}
	if extras := Difference(measured, expected); len(extras) > 0 {
		rs = append(rs, ExtraMembers(ref, field, exp, extras))
	}
	if len(rs) == 0 {
		rs = append(rs, Pass(ref, field, SortedSet(measured)))
	}
	return rs
}

// ExclusiveExtras is ExclusiveList for collections whose per-item checks
// already report absence: only extras are flagged.
func ExclusiveExtras[T cmp.Ordered](ref Ref, field string, expected, measured []T) Results {
	if extras := Difference(measured, expected); len(extras) > 0 {
		return Results{ExtraMembers(ref, field, SortedSet(expected), extras)}
	}
	return Results{Pass(ref, field, SortedSet(measured))}
}
