package certrule

import (
	"fmt"
	"sync"
)

var (
	glassClasses   = []string{"Stained Glass 101", "Flower Bouquets", "Intro to Fused Glass", "Fused Glass 102"}
	jewelryClasses = []string{"Metal Cuff or Bangle", "Intro to Jewelry Soldering", "Intro to Metalsmithing", "Bezel Setting"}
)

const (
	glassMessage   = "Complete any glass class (Stained Glass 101, Flower Bouquets, Intro to Fused Glass, or Fused Glass 102) to earn this certification."
	jewelryMessage = "Complete any jewelry class (Metal Cuff or Bangle, Intro to Jewelry Soldering, Intro to Metalsmithing, or Bezel Setting) to earn this certification."
	privateMessage = "Request private instruction to earn this certification."
)

func byClass(area, typ, class string) Requirement {
	return Requirement{
		Area:              area,
		Type:              typ,
		Method:            MethodClass,
		QualifyingClasses: []string{class},
		Message:           fmt.Sprintf("Complete %q to earn this certification.", class),
	}
}

func private(area string) Requirement {
	return Requirement{Area: area, Type: TypeArea, Method: MethodPrivateInstruction, Message: privateMessage}
}

// DefaultRequirements is the certification rule table for the shop.
func DefaultRequirements() []Requirement {
	return []Requirement{
		byClass("3D Printer", TypeArea, "Intro to 3D Printing"),
		byClass("Boss Laser", TypeArea, "Intro to Boss Laser"),
		byClass("CNC Plasma", TypeArea, "Plasma CNC Workshop"),
		byClass("Forge", TypeArea, "Blacksmithing 101"),
		{Area: "Fused Glass", Type: TypeArea, Method: MethodClass, QualifyingClasses: glassClasses, Message: glassMessage},
		{Area: "Glass Studio", Type: TypeArea, Method: MethodClass, QualifyingClasses: glassClasses, Message: glassMessage},
		{
			Area:    "Glowforge",
			Type:    TypeArea,
			Method:  MethodSelfDirected,
			Message: "Pass the self-directed Glowforge proficiency test to earn this certification.",
		},
		{Area: "Jewelry Bench", Type: TypeArea, Method: MethodClass, QualifyingClasses: jewelryClasses, Message: jewelryMessage},
		private("Metal Lathes - Grizzly Mill"),
		private("Metal Lathes - Metal Lathe"),
		private("Metal Lathes - Small Metal Lathe"),
		private("Sewing Space"),
		byClass("Wood Lathe - Mini Jet", TypeArea, "Wood Turning 101"),
		byClass("Wood Lathe - Non-Powermatic", TypeArea, "Wood Turning 101"),
		byClass("Wood Lathe - Powermatic", TypeArea, "Wood Turning 202: Intermediate Bowl Techniques"),
		byClass("Xcarve CNC", TypeArea, "Intro to Wood Carving"),
		byClass("Lapidary", TypeArea, "Intro to Lapidary"),

		{
			Area:    "Router Table",
			Type:    TypeTool,
			Method:  MethodSelfDirected,
			Message: "Pass the self-directed Router Table proficiency test.",
		},
		byClass("Table Saw", TypeTool, "Woodshop Basics One - Table Saw, Chop Saw, and Band Saw"),
		byClass("MIG Welder", TypeTool, "Intro to MIG Welding"),
		{
			Area:              "TIG Welder",
			Type:              TypeTool,
			Method:            MethodClass,
			QualifyingClasses: []string{"Intro to TIG Welding: Steel", "Intro to TIG Welding: Aluminum"},
			Message:           `Complete "Intro to TIG Welding: Steel" or "Intro to TIG Welding: Aluminum" to earn this certification.`,
		},
	}
}

// DefaultGroups is the display grouping used by the admin dropdown and member view.
func DefaultGroups() []Group {
	return []Group{
		{Name: "Woodshop", Areas: []string{"Table Saw", "Router Table", "Xcarve CNC", "Wood Lathe - Mini Jet", "Wood Lathe - Non-Powermatic", "Wood Lathe - Powermatic"}},
		{Name: "Metal Shop", Areas: []string{"MIG Welder", "TIG Welder", "CNC Plasma", "Metal Lathes - Grizzly Mill", "Metal Lathes - Metal Lathe", "Metal Lathes - Small Metal Lathe"}},
		{Name: "Forge", Areas: []string{"Forge"}},
		{Name: "Glass", Areas: []string{"Fused Glass", "Glass Studio"}},
		{Name: "Lasers & 3D Printing", Areas: []string{"Boss Laser", "Glowforge", "3D Printer"}},
		{Name: "Jewelry", Areas: []string{"Jewelry Bench"}},
		{Name: "Textiles", Areas: []string{"Sewing Space"}},
		{Name: "Lapidary", Areas: []string{"Lapidary"}},
	}
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the process-wide rule table, built on first use.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := NewTable(DefaultRequirements(), DefaultGroups())
		if err != nil {
			panic("certrule: invalid default table: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}
