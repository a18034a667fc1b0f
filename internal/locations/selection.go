package locations

import (
	"slices"

	"github.com/cesargomez89/quarry/internal/constants"
	"github.com/cesargomez89/quarry/internal/domain"
)

// Level selects either every child at one level of the catalog or an explicit
// subset of codes (or city names at the city level).
type Level struct {
	all   bool
	codes []string
}

func All() Level {
	return Level{all: true}
}

func Subset(codes ...string) Level {
	return Level{codes: codes}
}

// ParseLevel maps the wire form, where ["ALL"] means every child, to a Level.
func ParseLevel(values []string) Level {
	if slices.Contains(values, constants.SelectAll) {
		return All()
	}
	return Subset(values...)
}

func (l Level) IsAll() bool {
	return l.all
}

func (l Level) Codes() []string {
	return l.codes
}

// Values returns the wire form of the level.
func (l Level) Values() []string {
	if l.all {
		return []string{constants.SelectAll}
	}
	return l.codes
}

func (l Level) empty() bool {
	return !l.all && len(l.codes) == 0
}

// pick returns the candidates kept by the level, preserving catalog order.
func (l Level) pick(candidates []string) []string {
	if l.all {
		return candidates
	}
	out := make([]string, 0, len(l.codes))
	for _, cand := range candidates {
		if slices.Contains(l.codes, cand) {
			out = append(out, cand)
		}
	}
	return out
}

type Selection struct {
	Countries Level
	Provinces Level
	Cities    Level
}

// Expand resolves a selection into concrete city tuples in catalog order.
// Codes that do not resolve are dropped.
func (c *Catalog) Expand(sel Selection) []domain.LocationTuple {
	var out []domain.LocationTuple
	c.walk(sel, func(t domain.LocationTuple) {
		out = append(out, t)
	})
	return out
}

// Estimate counts the tuples Expand would return without allocating them.
func (c *Catalog) Estimate(sel Selection) int {
	n := 0
	c.walk(sel, func(domain.LocationTuple) {
		n++
	})
	return n
}

// widen resolves an empty level against the full catalog when a level below
// it is ALL. A subset that names only unknown codes is not empty.
func (sel Selection) widen() Selection {
	if sel.Provinces.empty() && sel.Cities.all {
		sel.Provinces = All()
	}
	if sel.Countries.empty() && (sel.Provinces.all || sel.Cities.all) {
		sel.Countries = All()
	}
	return sel
}

func (c *Catalog) walk(sel Selection, visit func(domain.LocationTuple)) {
	sel = sel.widen()
	countryCodes := make([]string, len(c.countries))
	for i, ct := range c.countries {
		countryCodes[i] = ct.Code
	}

	for _, cc := range sel.Countries.pick(countryCodes) {
		country, _ := c.Country(cc)

		provinceCodes := make([]string, len(country.Provinces))
		for i, p := range country.Provinces {
			provinceCodes[i] = p.Code
		}

		for _, pc := range sel.Provinces.pick(provinceCodes) {
			for _, city := range sel.Cities.pick(c.Cities(cc, pc)) {
				visit(domain.LocationTuple{City: city, Province: pc, Country: cc})
			}
		}
	}
}
