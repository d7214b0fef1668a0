package client

import (
	"net/url"
	"sort"
)

// FilterSet is an immutable set of active list filters. A key is never
// present with an empty value; With deletes the key instead. Immutability
// matters because a NavigationSnapshot may retain an older set while the
// live view keeps editing its own.
type FilterSet struct {
	m map[string]string
}

// NewFilterSet returns the empty filter set.
func NewFilterSet() FilterSet {
	return FilterSet{}
}

// With returns a copy with key set to value. An empty value removes the
// key.
func (f FilterSet) With(key, value string) FilterSet {
	next := make(map[string]string, len(f.m)+1)
	for k, v := range f.m {
		next[k] = v
	}
	if value == "" {
		delete(next, key)
	} else {
		next[key] = value
	}
	return FilterSet{m: next}
}

// Get returns the value for key, or "" when the key is unconstrained.
func (f FilterSet) Get(key string) string {
	return f.m[key]
}

// Len returns the number of active filters.
func (f FilterSet) Len() int {
	return len(f.m)
}

// Keys returns the active filter keys in sorted order.
func (f FilterSet) Keys() []string {
	keys := make([]string, 0, len(f.m))
	for k := range f.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// apply copies the active filters into query parameters.
func (f FilterSet) apply(q url.Values) {
	for k, v := range f.m {
		q.Set(k, v)
	}
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is the active sort field and direction.
type SortSpec struct {
	Field     string
	Direction SortDirection
}

// ChangeSort applies the sort flip rule: selecting the field already
// sorted descending flips to ascending; selecting any other field starts
// it descending.
func ChangeSort(current SortSpec, field string) SortSpec {
	if field == current.Field && current.Direction == SortDesc {
		return SortSpec{Field: field, Direction: SortAsc}
	}
	return SortSpec{Field: field, Direction: SortDesc}
}

// PageState tracks the current page against the known result size.
type PageState struct {
	Page       int
	PageSize   int
	TotalCount int
}

// TotalPages derives the page count; an empty result still has one page.
func (p PageState) TotalPages() int {
	if p.TotalCount <= 0 || p.PageSize <= 0 {
		return 1
	}
	pages := (p.TotalCount + p.PageSize - 1) / p.PageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Offset is the fetch offset for the current page.
func (p PageState) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// WithPage returns the state moved to page n, clamped into
// [1, TotalPages].
func (p PageState) WithPage(n int) PageState {
	if n < 1 {
		n = 1
	}
	if max := p.TotalPages(); n > max {
		n = max
	}
	p.Page = n
	return p
}

// NavigationSnapshot captures the list view's state when navigating into
// a detail view. It is applied exactly once on return and then discarded,
// so a later unrelated navigation cannot resurrect stale state.
type NavigationSnapshot struct {
	Filters      FilterSet
	Sort         SortSpec
	Page         int
	ScrollOffset int

	used bool
}

// take marks the snapshot consumed and reports whether it was still
// fresh.
func (s *NavigationSnapshot) take() bool {
	if s == nil || s.used {
		return false
	}
	s.used = true
	return true
}
