package category

import "strings"

// Category names one residence tier on the wiki, e.g. "Farmer".
type Category string

// Residences is the default category list in fetch order.
var Residences = []Category{
	"Farmer",
	"Worker",
	"Artisan",
	"Engineer",
	"Investor",
	"Scholar",
	"Jornalero",
	"Explorer",
	"Technician",
	"Shepherd",
	"Elder",
}

// Set is an immutable, ordered collection of categories. Iteration order is
// the order given to NewSet, so it is stable from run to run.
type Set struct {
	order []Category
	index map[Category]struct{}
}

// NewSet builds a Set, dropping blanks and duplicates while keeping the first
// occurrence's position.
func NewSet(cats ...Category) Set {
	s := Set{index: make(map[Category]struct{}, len(cats))}
	for _, c := range cats {
		c = Category(strings.TrimSpace(string(c)))
		if c == "" {
			continue
		}
		if _, ok := s.index[c]; ok {
			continue
		}
		s.index[c] = struct{}{}
		s.order = append(s.order, c)
	}
	return s
}

// Parse builds a Set from plain strings, e.g. a comma-split flag value.
func Parse(names []string) Set {
	cats := make([]Category, 0, len(names))
	for _, n := range names {
		cats = append(cats, Category(n))
	}
	return NewSet(cats...)
}

// Default returns the residence set.
func Default() Set { return NewSet(Residences...) }

// Contains reports membership. Matching is exact and case-sensitive.
func (s Set) Contains(c Category) bool {
	_, ok := s.index[c]
	return ok
}

// All returns a copy of the categories in order.
func (s Set) All() []Category {
	return append([]Category(nil), s.order...)
}

// Len returns the number of categories.
func (s Set) Len() int { return len(s.order) }

// Strings returns the category names in order.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s.order))
	for _, c := range s.order {
		out = append(out, string(c))
	}
	return out
}
