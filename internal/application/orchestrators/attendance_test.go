package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"makerspace/internal/adapters/events"
	"makerspace/internal/domain/account"
	"makerspace/internal/domain/certification"
	"makerspace/internal/domain/certrule"
	"makerspace/internal/domain/class"
	"makerspace/internal/domain/event"
)

type attendanceFixture struct {
	deps       MarkAttendanceDeps
	classes    *fakeClasses
	attendance *fakeAttendance
	certs      *fakeCertifications
	audit      *fakeAudit
	events     *events.Recorder
}

var blacksmithingDates = []string{"2026-11-06", "2026-11-13", "2026-11-20"}

func newAttendanceFixture() *attendanceFixture {
	f := &attendanceFixture{
		classes:    newFakeClasses(),
		attendance: newFakeAttendance(),
		certs:      newFakeCertifications(),
		audit:      &fakeAudit{},
		events:     &events.Recorder{},
	}
	var sessions []class.Session
	for _, d := range blacksmithingDates {
		sessions = append(sessions, class.Session{Date: d, StartTime: "18:00", EndTime: "21:00"})
	}
	f.classes.offerings["cls-forge"] = class.Offering{
		ID: "cls-forge", Title: "Blacksmithing 101", InstructorID: "inst1", Sessions: sessions, MaxCapacity: 6,
	}
	f.classes.offerings["cls-knit"] = class.Offering{
		ID: "cls-knit", Title: "Knitting Circle", InstructorID: "inst1", Sessions: sessions[:1], MaxCapacity: 6,
	}
	f.classes.enrollments["st1"] = class.Enrollment{ID: "st1", ClassID: "cls-forge", UserID: "u1", Name: "Sam"}
	f.classes.enrollments["st2"] = class.Enrollment{ID: "st2", ClassID: "cls-forge", Name: "Guest Only"}
	f.classes.enrollments["st3"] = class.Enrollment{ID: "st3", ClassID: "cls-knit", UserID: "u1", Name: "Sam"}

	f.deps = MarkAttendanceDeps{
		Classes:        f.classes,
		Attendance:     f.attendance,
		Certifications: f.certs,
		Rules:          certrule.Default(),
		Audit:          f.audit,
		Events:         f.events,
		Now:            clock,
		GenerateID:     sequentialIDs("id"),
	}
	return f
}

var instructor = Actor{ID: "inst1", UserType: account.TypeMember, IsInstructor: true}

func mark(t *testing.T, f *attendanceFixture, studentID, date string, present bool) MarkAttendanceResult {
	t.Helper()
	classID := f.classes.enrollments[studentID].ClassID
	res, err := ExecuteMarkAttendance(context.Background(), MarkAttendanceInput{
		Actor: instructor, ClassID: classID, EnrolledStudentID: studentID, SessionDate: date, Present: present,
	}, f.deps)
	if err != nil {
		t.Fatalf("mark %s %s: %v", studentID, date, err)
	}
	return res
}

func TestMarkAttendance_GrantsExactlyAtCompletion(t *testing.T) {
	f := newAttendanceFixture()

	for i, d := range blacksmithingDates[:2] {
		res := mark(t, f, "st1", d, true)
		if res.AutoGrant.Status != AutoGrantIncomplete || res.AutoGrant.PresentCount != i+1 || res.AutoGrant.TotalSessions != 3 {
			t.Errorf("session %d outcome = %+v", i, res.AutoGrant)
		}
	}
	if f.certs.holds("u1", "Forge") {
		t.Fatal("granted before the final session")
	}

	res := mark(t, f, "st1", blacksmithingDates[2], true)
	if res.AutoGrant.Status != AutoGrantGranted || len(res.AutoGrant.Granted) != 1 || res.AutoGrant.Granted[0] != "Forge" {
		t.Fatalf("final outcome = %+v", res.AutoGrant)
	}
	held := f.certs.byUser["u1"]["Forge"]
	if held.GrantedBy != "inst1" || held.Source != certification.SourceAttendance {
		t.Errorf("certification = %+v", held)
	}
	if len(f.audit.events) != 1 {
		t.Errorf("audit events = %d, want 1", len(f.audit.events))
	}
	if got := f.events.Types(); len(got) != 1 || got[0] != event.TypeCertificationGranted {
		t.Errorf("events = %v", got)
	}

	// Re-marking a present student changes nothing.
	res = mark(t, f, "st1", blacksmithingDates[2], true)
	if res.AutoGrant.Status != AutoGrantNotTriggered {
		t.Errorf("repeat outcome = %+v", res.AutoGrant)
	}
	if len(f.certs.byUser["u1"]) != 1 || len(f.audit.events) != 1 {
		t.Error("repeat check-in created a duplicate grant")
	}

	// Absent then present again re-runs the workflow against the held grant.
	mark(t, f, "st1", blacksmithingDates[2], false)
	res = mark(t, f, "st1", blacksmithingDates[2], true)
	if res.AutoGrant.Status != AutoGrantGranted || len(res.AutoGrant.Granted) != 0 || len(res.AutoGrant.AlreadyHeld) != 1 {
		t.Errorf("re-present outcome = %+v", res.AutoGrant)
	}
	if len(f.audit.events) != 1 {
		t.Errorf("audit events = %d, want 1", len(f.audit.events))
	}
}

func TestMarkAttendance_RevokedGrantStaysRevokedOnRepeat(t *testing.T) {
	f := newAttendanceFixture()
	for _, d := range blacksmithingDates {
		mark(t, f, "st1", d, true)
	}
	if !f.certs.holds("u1", "Forge") {
		t.Fatal("Forge not granted at completion")
	}
	delete(f.certs.byUser["u1"], "Forge")

	res := mark(t, f, "st1", blacksmithingDates[2], true)
	if res.AutoGrant.Status != AutoGrantNotTriggered {
		t.Errorf("outcome = %+v", res.AutoGrant)
	}
	if f.certs.holds("u1", "Forge") {
		t.Error("re-saving a present mark re-granted a revoked certification")
	}
}

func TestMarkAttendance_CountsOnlyCurrentSessions(t *testing.T) {
	f := newAttendanceFixture()
	mark(t, f, "st1", blacksmithingDates[0], true)
	mark(t, f, "st1", blacksmithingDates[1], true)

	// The admin replaces the schedule; 11-13 is dropped and 11-27 added.
	o := f.classes.offerings["cls-forge"]
	o.Sessions = []class.Session{
		{Date: blacksmithingDates[0], StartTime: "18:00", EndTime: "21:00"},
		{Date: "2026-11-27", StartTime: "18:00", EndTime: "21:00"},
	}
	f.classes.offerings["cls-forge"] = o

	mark(t, f, "st1", blacksmithingDates[0], false)
	res := mark(t, f, "st1", blacksmithingDates[0], true)
	if res.AutoGrant.Status != AutoGrantIncomplete || res.AutoGrant.PresentCount != 1 || res.AutoGrant.TotalSessions != 2 {
		t.Fatalf("outcome after schedule edit = %+v", res.AutoGrant)
	}
	if f.certs.holds("u1", "Forge") {
		t.Fatal("granted without attending 2026-11-27")
	}

	res = mark(t, f, "st1", "2026-11-27", true)
	if res.AutoGrant.Status != AutoGrantGranted || res.AutoGrant.PresentCount != 2 {
		t.Errorf("final outcome = %+v", res.AutoGrant)
	}
}

func TestMarkAttendance_CheckedInAtOnlyOnTransition(t *testing.T) {
	f := newAttendanceFixture()
	first := mark(t, f, "st1", blacksmithingDates[0], true)
	if !first.Record.CheckedInAt.Equal(fixedNow) {
		t.Fatalf("CheckedInAt = %v", first.Record.CheckedInAt)
	}

	later := fixedNow.Add(time.Hour)
	f.deps.Now = func() time.Time { return later }
	again := mark(t, f, "st1", blacksmithingDates[0], true)
	if !again.Record.CheckedInAt.Equal(fixedNow) {
		t.Errorf("CheckedInAt moved on repeat present: %v", again.Record.CheckedInAt)
	}
	if again.Record.ID != first.Record.ID {
		t.Error("upsert should keep the record id")
	}
	if again.AutoGrant.Status != AutoGrantNotTriggered {
		t.Errorf("repeat present ran auto-grant: %+v", again.AutoGrant)
	}

	off := mark(t, f, "st1", blacksmithingDates[0], false)
	if off.Record.Present || off.AutoGrant.Status != AutoGrantNotTriggered {
		t.Errorf("absent outcome = %+v / %+v", off.Record, off.AutoGrant)
	}
	if len(f.attendance.records) != 1 {
		t.Errorf("records = %d, want 1", len(f.attendance.records))
	}
}

func TestMarkAttendance_OutcomeStatuses(t *testing.T) {
	t.Run("no mapped areas", func(t *testing.T) {
		f := newAttendanceFixture()
		res := mark(t, f, "st3", blacksmithingDates[0], true)
		if res.AutoGrant.Status != AutoGrantNoMappedArea {
			t.Errorf("status = %q", res.AutoGrant.Status)
		}
	})

	t.Run("name-only enrollment", func(t *testing.T) {
		f := newAttendanceFixture()
		for _, d := range blacksmithingDates {
			res := mark(t, f, "st2", d, true)
			if res.AutoGrant.Status != AutoGrantNoLinkedUser {
				t.Errorf("status = %q", res.AutoGrant.Status)
			}
		}
	})

	t.Run("grant failure does not fail check-in", func(t *testing.T) {
		f := newAttendanceFixture()
		f.certs.grantErr = errors.New("disk full")
		var res MarkAttendanceResult
		for _, d := range blacksmithingDates {
			res = mark(t, f, "st1", d, true)
		}
		if res.AutoGrant.Status != AutoGrantFailed || res.AutoGrant.Err == "" {
			t.Errorf("outcome = %+v", res.AutoGrant)
		}
		if !res.Record.Present {
			t.Error("attendance should still be recorded")
		}
	})

	t.Run("count failure does not fail check-in", func(t *testing.T) {
		f := newAttendanceFixture()
		f.attendance.countErr = errors.New("locked")
		res := mark(t, f, "st1", blacksmithingDates[0], true)
		if res.AutoGrant.Status != AutoGrantFailed {
			t.Errorf("status = %q", res.AutoGrant.Status)
		}
	})
}

func TestMarkAttendance_Rejections(t *testing.T) {
	f := newAttendanceFixture()
	tests := []struct {
		name  string
		input MarkAttendanceInput
		want  error
	}{
		{"not instructor", MarkAttendanceInput{Actor: Actor{ID: "u9", UserType: account.TypeMember}, ClassID: "cls-forge", EnrolledStudentID: "st1", SessionDate: blacksmithingDates[0], Present: true}, ErrForbidden},
		{"unknown class", MarkAttendanceInput{Actor: instructor, ClassID: "nope", EnrolledStudentID: "st1", SessionDate: blacksmithingDates[0]}, ErrNotFound},
		{"date not a session", MarkAttendanceInput{Actor: instructor, ClassID: "cls-forge", EnrolledStudentID: "st1", SessionDate: "2026-11-07"}, ErrValidation},
		{"student of another class", MarkAttendanceInput{Actor: instructor, ClassID: "cls-forge", EnrolledStudentID: "st3", SessionDate: blacksmithingDates[0]}, ErrValidation},
		{"unknown student", MarkAttendanceInput{Actor: instructor, ClassID: "cls-forge", EnrolledStudentID: "st9", SessionDate: blacksmithingDates[0]}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteMarkAttendance(context.Background(), tt.input, f.deps)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	admin := Actor{ID: "a1", UserType: account.TypeAdmin}
	if _, err := ExecuteMarkAttendance(context.Background(), MarkAttendanceInput{
		Actor: admin, ClassID: "cls-forge", EnrolledStudentID: "st1", SessionDate: blacksmithingDates[0], Present: true,
	}, f.deps); err != nil {
		t.Errorf("admin mark: %v", err)
	}
}

// TestForgeScenarioEndToEnd books, completes the qualifying class, and books again.
func TestForgeScenarioEndToEnd(t *testing.T) {
	af := newAttendanceFixture()
	bf := newBookingFixture(user("u1", account.TypeNonMember))
	bf.deps.Certifications = af.certs

	input := CreateBookingInput{Actor: Actor{ID: "u1", UserType: account.TypeNonMember}, Date: friday, TimeSlot: twoPM, ShopArea: "Forge"}
	if _, err := ExecuteCreateBooking(context.Background(), input, bf.deps); !errors.Is(err, ErrForbidden) {
		t.Fatalf("before class: %v", err)
	}
	for _, d := range blacksmithingDates {
		mark(t, af, "st1", d, true)
	}
	if _, err := ExecuteCreateBooking(context.Background(), input, bf.deps); err != nil {
		t.Fatalf("after class: %v", err)
	}
}
