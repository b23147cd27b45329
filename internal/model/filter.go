package model

import (
	"slices"
	"time"
)

// Filter selects transactions. Zero values leave a dimension unconstrained;
// From and To are inclusive calendar dates.
type Filter struct {
	From          time.Time
	To            time.Time
	CategoryIDs   []int64
	Uncategorized bool
	Recurrence    *bool
	Vital         *bool
	Savings       *bool
}

// Empty reports whether the date range can never match, i.e. From is after To.
func (f Filter) Empty() bool {
	return !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To)
}

// Match reports whether t satisfies every constraint of f. Store
// implementations that cannot push a filter down use it directly.
func (f Filter) Match(t Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if f.Uncategorized && t.Categorized() {
		return false
	}
	if len(f.CategoryIDs) > 0 && !slices.Contains(f.CategoryIDs, t.CategoryID) {
		return false
	}
	if f.Recurrence != nil && t.Recurrence != *f.Recurrence {
		return false
	}
	if f.Vital != nil && t.Vital != *f.Vital {
		return false
	}
	if f.Savings != nil && t.Savings != *f.Savings {
		return false
	}
	return true
}

// Bool returns a pointer to v, for the optional flag fields of Filter.
func Bool(v bool) *bool {
	return &v
}
