package shoparea

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Category names
const (
	CategoryTextilesTech = "Textiles & Tech"
	CategoryWoodMetal    = "Wood & Metal"
)

func area(name string, capacity int, member, nonMember int64) Area {
	return Area{
		Name:          name,
		Capacity:      capacity,
		MemberRate:    decimal.NewFromInt(member),
		NonMemberRate: decimal.NewFromInt(nonMember),
	}
}

func parent(name string, subs ...Area) Area {
	return Area{Name: name, SubAreas: subs}
}

// DefaultCategories is the makerspace floor plan.
func DefaultCategories() []Category {
	return []Category{
		{Name: CategoryTextilesTech, Areas: []Area{
			area("3D Printer", 2, 12, 24),
			area("Boss Laser", 1, 24, 48),
			area("Cricut Machine", 1, 12, 24),
			area("Fused Glass", 4, 12, 24),
			area("Glass Studio", 2, 12, 24),
			area("Glowforge", 1, 12, 24),
			area("Glowforge Proficiency Test", 1, 0, 0),
			area("Jewelry Bench", 2, 12, 24),
			area("Leather", 2, 12, 24),
			area("Sewing Space", 1, 12, 24),
		}},
		{Name: CategoryWoodMetal, Areas: []Area{
			area("Auto Bay", 1, 12, 24),
			area("Bridgeport Mill", 1, 12, 24),
			area("CNC Plasma", 1, 24, 48),
			area("Forge", 3, 18, 36),
			parent("Metal Lathes",
				area("Grizzly Mill", 1, 12, 24),
				area("Metal Lathe", 1, 12, 24),
				area("Small Metal Lathe", 1, 12, 24),
			),
			area("Metal Shop", 3, 12, 24),
			parent("Wood Lathe",
				area("Mini Jet", 1, 12, 24),
				area("Non-Powermatic", 2, 12, 24),
				area("Powermatic", 1, 12, 24),
			),
			area("Wood Planer", 1, 12, 24),
			area("Woodshop", 3, 12, 24),
			area("Xcarve CNC", 1, 12, 24),
		}},
	}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog built from DefaultCategories.
// INVARIANT: built once; panics only if the static data is inconsistent
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog(DefaultCategories())
		if err != nil {
			panic("shoparea: invalid default catalog: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
