package store

import (
	"reflect"
	"sort"
)

// Matches reports whether fields satisfy every filter. A nil filter value
// matches a missing field as well as an explicit null.
func Matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if f.Value == nil {
			if ok && v != nil {
				return false
			}
			continue
		}
		want, err := NormalizeValue(f.Value)
		if err != nil || !ok || !reflect.DeepEqual(v, want) {
			return false
		}
	}
	return true
}

// SortRecords orders records in place by o. Missing values sort first, and
// ties keep id order so results are stable across calls.
func SortRecords(records []Record, o Order) {
	sort.SliceStable(records, func(i, j int) bool {
		if o.Field == "" {
			return records[i].ID < records[j].ID
		}
		c := compare(records[i].Fields[o.Field], records[j].Fields[o.Field])
		if c == 0 {
			return records[i].ID < records[j].ID
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	})
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64, int, int64:
		return 2
	case string:
		return 3
	}
	return 4
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	if ra == 2 {
		x, y := number(a), number(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}
