// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package slice complements the standard [slices] package with the generic
Map and Filter helpers used when shaping configuration and enum lists.
*/
package slice

import "strings"

// Map maps a slice of type T to a slice of type U using the provided transformation function.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}

	return result
}

// Filter returns only the elements for which predicate is true.
func Filter[T any](input []T, predicate func(T) bool) []T {
	var result []T
	for _, v := range input {
		if predicate(v) {
			result = append(result, v)
		}
	}

	return result
}

// SplitList parses a comma-separated list into trimmed, non-empty entries.
func SplitList(value string) []string {
	if value == "" {
		return nil
	}
	return Filter(Map(strings.Split(value, ","), strings.TrimSpace), func(s string) bool {
		return s != ""
	})
}
