// Package shoparea holds the static catalog of bookable shop areas.
package shoparea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Separator joins a parent area and a sub-area into the canonical booking name.
const Separator = " - "

var (
	ErrUnknownArea     = errors.New("unknown shop area")
	ErrSubAreaRequired = errors.New("shop area requires a sub-area")
	ErrUnknownSubArea  = errors.New("unknown sub-area")
)

// Area is a bookable resource. Parent areas carry SubAreas and are not bookable themselves.
type Area struct {
	Name          string
	Category      string
	Capacity      int
	MemberRate    decimal.Decimal
	NonMemberRate decimal.Decimal
	SubAreas      []Area
}

// HasSubAreas reports whether the area must be booked through a sub-area.
func (a Area) HasSubAreas() bool {
	return len(a.SubAreas) > 0
}

// Category groups areas for display.
type Category struct {
	Name  string
	Areas []Area
}

// Catalog is an immutable index of areas keyed by canonical name.
// INVARIANT: leaves contains only bookable areas; parents are reachable through Categories only
type Catalog struct {
	categories []Category
	parents    map[string]Area
	leaves     map[string]Area
}

// NewCatalog builds the catalog indices.
// PRE: area names are unique; every leaf has capacity > 0 and non-negative rates
// POST: Returns a catalog whose leaf names are "Parent - Sub" for sub-areas
func NewCatalog(categories []Category) (*Catalog, error) {
	c := &Catalog{
		parents: make(map[string]Area),
		leaves:  make(map[string]Area),
	}
	for _, cat := range categories {
		copied := Category{Name: cat.Name}
		for _, a := range cat.Areas {
			a.Category = cat.Name
			if a.HasSubAreas() {
				if _, dup := c.parents[a.Name]; dup {
					return nil, fmt.Errorf("duplicate area %q", a.Name)
				}
				subs := make([]Area, 0, len(a.SubAreas))
				for _, sub := range a.SubAreas {
					leaf := sub
					leaf.Name = a.Name + Separator + sub.Name
					leaf.Category = cat.Name
					if err := c.addLeaf(leaf); err != nil {
						return nil, err
					}
					subs = append(subs, sub)
				}
				a.SubAreas = subs
				c.parents[a.Name] = a
			} else if err := c.addLeaf(a); err != nil {
				return nil, err
			}
			copied.Areas = append(copied.Areas, a)
		}
		c.categories = append(c.categories, copied)
	}
	return c, nil
}

func (c *Catalog) addLeaf(a Area) error {
	if _, dup := c.leaves[a.Name]; dup {
		return fmt.Errorf("duplicate area %q", a.Name)
	}
	if a.Capacity <= 0 {
		return fmt.Errorf("area %q: capacity must be positive", a.Name)
	}
	if a.MemberRate.IsNegative() || a.NonMemberRate.IsNegative() {
		return fmt.Errorf("area %q: rates must be non-negative", a.Name)
	}
	c.leaves[a.Name] = a
	return nil
}

// Resolve maps a (parent, sub) selection to the canonical bookable area.
// A canonical "Parent - Sub" name passed as area with an empty sub also resolves.
func (c *Catalog) Resolve(area, sub string) (Area, error) {
	area = strings.TrimSpace(area)
	sub = strings.TrimSpace(sub)
	if sub == "" {
		if leaf, ok := c.leaves[area]; ok {
			return leaf, nil
		}
		if _, ok := c.parents[area]; ok {
			return Area{}, fmt.Errorf("%w: %s", ErrSubAreaRequired, area)
		}
		return Area{}, fmt.Errorf("%w: %s", ErrUnknownArea, area)
	}
	if _, ok := c.parents[area]; !ok {
		return Area{}, fmt.Errorf("%w: %s", ErrUnknownArea, area)
	}
	leaf, ok := c.leaves[area+Separator+sub]
	if !ok {
		return Area{}, fmt.Errorf("%w: %s", ErrUnknownSubArea, sub)
	}
	return leaf, nil
}

// Lookup returns a bookable area by canonical name.
func (c *Catalog) Lookup(name string) (Area, bool) {
	a, ok := c.leaves[name]
	return a, ok
}

// Categories returns a copy of the grouped catalog for display.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = Category{Name: cat.Name, Areas: append([]Area(nil), cat.Areas...)}
	}
	return out
}

// LeafNames lists all canonical bookable names in catalog order.
func (c *Catalog) LeafNames() []string {
	var names []string
	for _, cat := range c.categories {
		for _, a := range cat.Areas {
			if !a.HasSubAreas() {
				names = append(names, a.Name)
				continue
			}
			for _, sub := range a.SubAreas {
				names = append(names, a.Name+Separator+sub.Name)
			}
		}
	}
	return names
}
