// Package certrule holds the certification requirement table and its derived indices.
package certrule

import (
	"errors"
	"fmt"
)

// Enforcement types
const (
	TypeArea = "area" // blocks booking
	TypeTool = "tool" // informational only
)

// Qualifying methods
const (
	MethodClass              = "class"
	MethodPrivateInstruction = "private_instruction"
	MethodSelfDirected       = "self_directed"
)

var (
	ErrInvalidType   = errors.New("requirement type must be area or tool")
	ErrInvalidMethod = errors.New("requirement method must be class, private_instruction, or self_directed")
	ErrNoClasses     = errors.New("class requirements must list at least one qualifying class")
	ErrEmptyMessage  = errors.New("requirement message cannot be empty")
)

// Requirement describes how a shop area certification is earned.
type Requirement struct {
	Area              string   `json:"area"`
	Type              string   `json:"type"`
	Method            string   `json:"method"`
	QualifyingClasses []string `json:"qualifyingClasses"`
	Message           string   `json:"message"`
}

// Validate checks a single requirement.
// PRE: none
// POST: Returns nil if the requirement is internally consistent
func (r Requirement) Validate() error {
	if r.Area == "" {
		return errors.New("requirement area cannot be empty")
	}
	if r.Type != TypeArea && r.Type != TypeTool {
		return ErrInvalidType
	}
	switch r.Method {
	case MethodClass:
		if len(r.QualifyingClasses) == 0 {
			return ErrNoClasses
		}
	case MethodPrivateInstruction, MethodSelfDirected:
	default:
		return ErrInvalidMethod
	}
	if r.Message == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Blocks reports whether the requirement gates booking.
func (r Requirement) Blocks() bool {
	return r.Type == TypeArea
}

// Group is a display grouping of certifiable areas.
type Group struct {
	Name  string   `json:"name"`
	Areas []string `json:"areas"`
}

// Table is the immutable requirement table with a class -> areas reverse index.
// INVARIANT: byClass is derived from byArea in NewTable and never mutated afterwards
type Table struct {
	order   []string
	byArea  map[string]Requirement
	byClass map[string][]string
	groups  []Group
}

// NewTable validates requirements and groups and builds the reverse index.
// PRE: area names unique; every group member has a requirement
// POST: Returns a read-only table safe for concurrent use
func NewTable(reqs []Requirement, groups []Group) (*Table, error) {
	t := &Table{
		byArea:  make(map[string]Requirement, len(reqs)),
		byClass: make(map[string][]string),
	}
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("requirement %q: %w", r.Area, err)
		}
		if _, dup := t.byArea[r.Area]; dup {
			return nil, fmt.Errorf("duplicate requirement for %q", r.Area)
		}
		r.QualifyingClasses = append([]string(nil), r.QualifyingClasses...)
		t.byArea[r.Area] = r
		t.order = append(t.order, r.Area)
		for _, class := range r.QualifyingClasses {
			t.byClass[class] = append(t.byClass[class], r.Area)
		}
	}
	for _, g := range groups {
		for _, a := range g.Areas {
			if _, ok := t.byArea[a]; !ok {
				return nil, fmt.Errorf("group %q lists %q with no requirement", g.Name, a)
			}
		}
		t.groups = append(t.groups, Group{Name: g.Name, Areas: append([]string(nil), g.Areas...)})
	}
	return t, nil
}

// Requirement returns the requirement for an area, if any.
func (t *Table) Requirement(area string) (Requirement, bool) {
	r, ok := t.byArea[area]
	if !ok {
		return Requirement{}, false
	}
	r.QualifyingClasses = append([]string(nil), r.QualifyingClasses...)
	return r, true
}

// AreasForClass returns the areas certified by completing the class, in table order.
func (t *Table) AreasForClass(title string) []string {
	return append([]string(nil), t.byClass[title]...)
}

// Areas lists every certifiable area in table order.
func (t *Table) Areas() []string {
	return append([]string(nil), t.order...)
}

// Requirements lists every requirement in table order.
func (t *Table) Requirements() []Requirement {
	out := make([]Requirement, 0, len(t.order))
	for _, a := range t.order {
		r, _ := t.Requirement(a)
		out = append(out, r)
	}
	return out
}

// Groups returns the grouped listing.
func (t *Table) Groups() []Group {
	out := make([]Group, len(t.groups))
	for i, g := range t.groups {
		out[i] = Group{Name: g.Name, Areas: append([]string(nil), g.Areas...)}
	}
	return out
}
