package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"makerspace/internal/adapters/events"
	"makerspace/internal/domain/attendance"
	"makerspace/internal/domain/certification"
	"makerspace/internal/domain/certrule"
	"makerspace/internal/domain/class"
)

// AttendanceClassStore loads the class and enrollment being marked.
type AttendanceClassStore interface {
	GetByID(ctx context.Context, id string) (class.Offering, error)
	GetEnrollment(ctx context.Context, id string) (class.Enrollment, error)
}

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	Get(ctx context.Context, classID, enrolledStudentID, sessionDate string) (attendance.Record, error)
	Upsert(ctx context.Context, r attendance.Record) (attendance.Record, error)
	CountPresent(ctx context.Context, classID, enrolledStudentID string, sessionDates []string) (int, error)
}

// MarkAttendanceDeps holds dependencies for marking attendance.
type MarkAttendanceDeps struct {
	Classes        AttendanceClassStore
	Attendance     AttendanceStore
	Certifications CertificationGranter
	Rules          *certrule.Table
	Audit          AuditRecorder
	Events         events.Publisher
	Now            func() time.Time
	GenerateID     func() string
}

// MarkAttendanceInput identifies one student at one session.
type MarkAttendanceInput struct {
	Actor             Actor
	ClassID           string
	EnrolledStudentID string
	SessionDate       string
	Present           bool
}

// Auto-grant outcome statuses.
const (
	AutoGrantNotTriggered = "not_triggered"
	AutoGrantNoMappedArea = "no_mapped_areas"
	AutoGrantNoLinkedUser = "no_linked_user"
	AutoGrantIncomplete   = "incomplete"
	AutoGrantGranted      = "granted"
	AutoGrantFailed       = "failed"
)

// AutoGrantOutcome reports what the completion workflow did for one check-in.
// It is returned beside the attendance record and never as an error.
type AutoGrantOutcome struct {
	Status        string   `json:"status"`
	Granted       []string `json:"granted,omitempty"`
	AlreadyHeld   []string `json:"alreadyHeld,omitempty"`
	PresentCount  int      `json:"presentCount"`
	TotalSessions int      `json:"totalSessions"`
	Err           string   `json:"error,omitempty"`
}

// MarkAttendanceResult pairs the stored record with the auto-grant outcome.
type MarkAttendanceResult struct {
	Record    attendance.Record `json:"record"`
	AutoGrant AutoGrantOutcome  `json:"autoGrant"`
}

// ExecuteMarkAttendance upserts one attendance record and, when the student
// becomes present, grants every certification mapped from the class title once
// all sessions are attended.
// PRE: actor is admin or the class instructor
// POST: record stored; CheckedInAt set and auto-grant run only on the false to true transition
// INVARIANT: auto-grant problems are reported in AutoGrant and never returned as err
func ExecuteMarkAttendance(ctx context.Context, input MarkAttendanceInput, deps MarkAttendanceDeps) (MarkAttendanceResult, error) {
	offering, err := deps.Classes.GetByID(ctx, input.ClassID)
	if err != nil {
		return MarkAttendanceResult{}, notFound(err, "class")
	}
	if !input.Actor.IsAdmin() && !offering.IsTaughtBy(input.Actor.ID) {
		return MarkAttendanceResult{}, ErrForbidden
	}
	date := strings.TrimSpace(input.SessionDate)
	if !offering.HasSession(date) {
		return MarkAttendanceResult{}, invalid(class.ErrUnknownSession)
	}
	student, err := deps.Classes.GetEnrollment(ctx, input.EnrolledStudentID)
	if err != nil {
		return MarkAttendanceResult{}, notFound(err, "enrolled student")
	}
	if student.ClassID != offering.ID {
		return MarkAttendanceResult{}, invalidf("student is not enrolled in this class")
	}

	rec, err := deps.Attendance.Get(ctx, offering.ID, student.ID, date)
	if errors.Is(err, sql.ErrNoRows) {
		rec = attendance.Record{
			ID:                deps.GenerateID(),
			ClassID:           offering.ID,
			EnrolledStudentID: student.ID,
			SessionDate:       date,
		}
	} else if err != nil {
		return MarkAttendanceResult{}, err
	}

	wasPresent := rec.Present
	now := deps.Now()
	rec.Mark(input.Present, input.Actor.ID, now)
	if err := rec.Validate(); err != nil {
		return MarkAttendanceResult{}, invalid(err)
	}
	stored, err := deps.Attendance.Upsert(ctx, rec)
	if err != nil {
		return MarkAttendanceResult{}, err
	}
	slog.Info("attendance_event", "event", "marked", "class_id", offering.ID, "student_id", student.ID,
		"session_date", date, "present", stored.Present, "actor_id", input.Actor.ID)

	result := MarkAttendanceResult{Record: stored, AutoGrant: AutoGrantOutcome{Status: AutoGrantNotTriggered}}
	if !wasPresent && stored.Present {
		result.AutoGrant = runAutoGrant(ctx, offering, student, input.Actor.ID, now, deps)
	}
	return result, nil
}

// runAutoGrant grants the class's mapped certifications when the student has
// attended every current session. Rows for dates dropped from the class do not count. Failures end up in the outcome, logged at ERROR.
func runAutoGrant(ctx context.Context, offering class.Offering, student class.Enrollment, actorID string, now time.Time, deps MarkAttendanceDeps) AutoGrantOutcome {
	out := AutoGrantOutcome{TotalSessions: offering.TotalSessions()}

	areas := deps.Rules.AreasForClass(offering.Title)
	if len(areas) == 0 {
		out.Status = AutoGrantNoMappedArea
		return out
	}
	if !student.HasLinkedUser() {
		out.Status = AutoGrantNoLinkedUser
		return out
	}

	present, err := deps.Attendance.CountPresent(ctx, offering.ID, student.ID, offering.SessionDates())
	if err != nil {
		slog.Error("auto_grant", "event", "count_failed", "class_id", offering.ID, "student_id", student.ID, "error", err)
		out.Status = AutoGrantFailed
		out.Err = err.Error()
		return out
	}
	out.PresentCount = present
	if present < out.TotalSessions {
		out.Status = AutoGrantIncomplete
		return out
	}

	var failures []string
	for _, area := range areas {
		c := certification.Certification{
			ID:        deps.GenerateID(),
			UserID:    student.UserID,
			ShopArea:  area,
			GrantedBy: actorID,
			Source:    certification.SourceAttendance,
			GrantedAt: now,
		}
		created, err := grantOne(ctx, c, deps.Certifications, deps.Audit, deps.Events)
		switch {
		case err != nil:
			slog.Error("auto_grant", "event", "grant_failed", "user_id", student.UserID, "shop_area", area, "error", err)
			failures = append(failures, area+": "+err.Error())
		case created:
			out.Granted = append(out.Granted, area)
		default:
			out.AlreadyHeld = append(out.AlreadyHeld, area)
		}
	}

	out.Status = AutoGrantGranted
	if len(failures) > 0 {
		out.Status = AutoGrantFailed
		out.Err = strings.Join(failures, "; ")
	}
	slog.Info("auto_grant", "event", out.Status, "class_title", offering.Title, "user_id", student.UserID,
		"granted", out.Granted, "already_held", out.AlreadyHeld, "present", present, "total", out.TotalSessions)
	return out
}
