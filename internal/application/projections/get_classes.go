package projections

import (
	"context"

	"makerspace/internal/adapters/storage/class"
	"makerspace/internal/domain/certrule"
	domainClass "makerspace/internal/domain/class"
)

// ClassLister lists offerings and their rosters.
type ClassLister interface {
	ClassStore
	List(ctx context.Context, filter class.ListFilter) ([]domainClass.Offering, error)
}

// ClassSummary is a listing row with live enrollment counts.
type ClassSummary struct {
	domainClass.Offering
	Enrolled       int      `json:"enrolled"`
	SpotsLeft      int      `json:"spotsLeft"`
	CertifiesAreas []string `json:"certifiesAreas,omitempty"`
}

// ClassListDeps holds dependencies for QueryClasses.
type ClassListDeps struct {
	ClassStore ClassLister
	Rules      *certrule.Table
}

// QueryClasses lists offerings, optionally only those taught by instructorID.
// POST: SpotsLeft = MaxCapacity - Enrolled, floored at zero
func QueryClasses(ctx context.Context, instructorID string, deps ClassListDeps) ([]ClassSummary, error) {
	offerings, err := deps.ClassStore.List(ctx, class.ListFilter{InstructorID: instructorID})
	if err != nil {
		return nil, err
	}
	out := make([]ClassSummary, 0, len(offerings))
	for _, o := range offerings {
		s, err := summarizeClass(ctx, o, deps)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func summarizeClass(ctx context.Context, o domainClass.Offering, deps ClassListDeps) (ClassSummary, error) {
	roster, err := deps.ClassStore.ListEnrollments(ctx, o.ID)
	if err != nil {
		return ClassSummary{}, err
	}
	s := ClassSummary{Offering: o, Enrolled: len(roster), SpotsLeft: max(o.MaxCapacity-len(roster), 0)}
	if deps.Rules != nil {
		s.CertifiesAreas = deps.Rules.AreasForClass(o.Title)
	}
	return s, nil
}

// QueryClass returns one offering with its live enrollment count.
// PRE: id exists
func QueryClass(ctx context.Context, id string, deps ClassListDeps) (ClassSummary, error) {
	o, err := deps.ClassStore.GetByID(ctx, id)
	if err != nil {
		return ClassSummary{}, err
	}
	return summarizeClass(ctx, o, deps)
}
