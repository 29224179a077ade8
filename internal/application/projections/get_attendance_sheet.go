package projections

import (
	"context"

	"makerspace/internal/domain/certrule"
	"makerspace/internal/domain/class"
)

// AttendanceSheetDeps holds dependencies for QueryAttendanceSheet.
type AttendanceSheetDeps struct {
	ClassStore      ClassStore
	AttendanceStore AttendanceStore
	Rules           *certrule.Table
}

// StudentRow is one student's attendance across every session.
type StudentRow struct {
	Student      class.Enrollment `json:"student"`
	Present      map[string]bool  `json:"present"` // session date -> present
	PresentCount int              `json:"presentCount"`
	Complete     bool             `json:"complete"`
}

// AttendanceSheet is the students x sessions grid for one class.
type AttendanceSheet struct {
	Class          class.Offering `json:"class"`
	Sessions       []string       `json:"sessions"`
	CertifiesAreas []string       `json:"certifiesAreas"`
	Students       []StudentRow   `json:"students"`
}

// QueryAttendanceSheet builds the attendance grid.
// PRE: classID exists
// POST: every enrolled student has a row; PresentCount counts only the class's session dates
func QueryAttendanceSheet(ctx context.Context, classID string, deps AttendanceSheetDeps) (AttendanceSheet, error) {
	o, err := deps.ClassStore.GetByID(ctx, classID)
	if err != nil {
		return AttendanceSheet{}, err
	}
	students, err := deps.ClassStore.ListEnrollments(ctx, classID)
	if err != nil {
		return AttendanceSheet{}, err
	}
	records, err := deps.AttendanceStore.ListByClass(ctx, classID)
	if err != nil {
		return AttendanceSheet{}, err
	}

	sheet := AttendanceSheet{
		Class:          o,
		CertifiesAreas: deps.Rules.AreasForClass(o.Title),
		Students:       make([]StudentRow, 0, len(students)),
	}
	for _, s := range o.Sessions {
		sheet.Sessions = append(sheet.Sessions, s.Date)
	}

	byStudent := make(map[string]map[string]bool, len(students))
	for _, r := range records {
		if byStudent[r.EnrolledStudentID] == nil {
			byStudent[r.EnrolledStudentID] = map[string]bool{}
		}
		byStudent[r.EnrolledStudentID][r.SessionDate] = r.Present
	}
	for _, st := range students {
		row := StudentRow{Student: st, Present: map[string]bool{}}
		for _, date := range sheet.Sessions {
			if byStudent[st.ID][date] {
				row.Present[date] = true
				row.PresentCount++
			}
		}
		row.Complete = row.PresentCount >= o.TotalSessions()
		sheet.Students = append(sheet.Students, row)
	}
	return sheet, nil
}
