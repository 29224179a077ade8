package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"makerspace/internal/domain/class"
)

// ClassStore defines the class persistence used by the class orchestrators.
type ClassStore interface {
	GetByID(ctx context.Context, id string) (class.Offering, error)
	Save(ctx context.Context, o class.Offering) error
	Delete(ctx context.Context, id string) error
	EnrollIfCapacity(ctx context.Context, e class.Enrollment, maxCapacity int) error
	GetEnrollment(ctx context.Context, id string) (class.Enrollment, error)
	DeleteEnrollment(ctx context.Context, classID, id string) error
}

// ClassDeps holds dependencies for class and enrollment operations.
type ClassDeps struct {
	Classes    ClassStore
	Accounts   AccountGetter
	Now        func() time.Time
	GenerateID func() string
}

// SaveClassInput creates a class when ID is empty, otherwise replaces it.
type SaveClassInput struct {
	Actor    Actor
	Offering class.Offering
}

// ExecuteSaveClass validates and stores a class offering.
// PRE: actor is admin
// POST: sessions are stored in date order; CreatedAt is preserved on update
func ExecuteSaveClass(ctx context.Context, input SaveClassInput, deps ClassDeps) (class.Offering, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return class.Offering{}, err
	}
	o := input.Offering
	if o.ID == "" {
		o.ID = deps.GenerateID()
		o.CreatedAt = deps.Now()
	} else {
		existing, err := deps.Classes.GetByID(ctx, o.ID)
		if err != nil {
			return class.Offering{}, notFound(err, "class")
		}
		o.CreatedAt = existing.CreatedAt
	}
	if err := o.Validate(); err != nil {
		return class.Offering{}, invalid(err)
	}
	if o.InstructorID != "" {
		inst, err := deps.Accounts.GetByID(ctx, o.InstructorID)
		if errors.Is(err, sql.ErrNoRows) {
			return class.Offering{}, invalidf("instructor %q does not exist", o.InstructorID)
		} else if err != nil {
			return class.Offering{}, err
		}
		if !inst.CanTeach() {
			return class.Offering{}, invalidf("%s is not an instructor", inst.Name)
		}
	}
	if err := deps.Classes.Save(ctx, o); err != nil {
		return class.Offering{}, err
	}
	slog.Info("class_event", "event", "saved", "class_id", o.ID, "title", o.Title, "sessions", o.TotalSessions(), "actor_id", input.Actor.ID)
	return o, nil
}

// ExecuteDeleteClass removes a class with its enrollments and attendance.
// PRE: actor is admin
func ExecuteDeleteClass(ctx context.Context, actor Actor, id string, deps ClassDeps) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := deps.Classes.Delete(ctx, id); err != nil {
		return notFound(err, "class")
	}
	slog.Info("class_event", "event", "deleted", "class_id", id, "actor_id", actor.ID)
	return nil
}

// EnrollInput enrolls a student. Self-enrollment leaves UserID and Name empty.
// Staff may enroll a registered UserID or a name-only student.
type EnrollInput struct {
	Actor   Actor
	ClassID string
	UserID  string
	Name    string
	Email   string
}

// canManageClass reports whether the actor is admin or the class instructor.
func canManageClass(a Actor, o class.Offering) bool {
	return a.IsAdmin() || o.IsTaughtBy(a.ID)
}

// ExecuteEnroll adds a student to a class.
// PRE: actor is authenticated; enrolling someone else requires admin or the class instructor
// POST: enrollment stored, or class.ErrAlreadyEnrolled / class.ErrClassFull with nothing written
func ExecuteEnroll(ctx context.Context, input EnrollInput, deps ClassDeps) (class.Enrollment, error) {
	o, err := deps.Classes.GetByID(ctx, input.ClassID)
	if err != nil {
		return class.Enrollment{}, notFound(err, "class")
	}

	self := input.UserID == "" && strings.TrimSpace(input.Name) == ""
	if self {
		input.UserID = input.Actor.ID
	} else if input.UserID != input.Actor.ID && !canManageClass(input.Actor, o) {
		return class.Enrollment{}, ErrForbidden
	}

	e := class.Enrollment{
		ID:         deps.GenerateID(),
		ClassID:    o.ID,
		UserID:     input.UserID,
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.TrimSpace(input.Email),
		EnrolledAt: deps.Now(),
	}
	if e.UserID != "" {
		acct, err := deps.Accounts.GetByID(ctx, e.UserID)
		if err != nil {
			return class.Enrollment{}, notFound(err, "user")
		}
		e.Name, e.Email = acct.Name, acct.Email
	}
	if err := e.Validate(); err != nil {
		return class.Enrollment{}, invalid(err)
	}
	if err := deps.Classes.EnrollIfCapacity(ctx, e, o.MaxCapacity); err != nil {
		if errors.Is(err, class.ErrClassFull) || errors.Is(err, class.ErrAlreadyEnrolled) {
			slog.Info("class_event", "event", "enroll_rejected", "class_id", o.ID, "user_id", e.UserID, "reason", err.Error())
		}
		return class.Enrollment{}, err
	}
	slog.Info("class_event", "event", "enrolled", "class_id", o.ID, "student_id", e.ID, "user_id", e.UserID, "actor_id", input.Actor.ID)
	return e, nil
}

// ExecuteRemoveStudent removes an enrollment and its attendance.
// PRE: actor is admin, the class instructor, or the enrolled user
func ExecuteRemoveStudent(ctx context.Context, actor Actor, classID, studentID string, deps ClassDeps) error {
	o, err := deps.Classes.GetByID(ctx, classID)
	if err != nil {
		return notFound(err, "class")
	}
	e, err := deps.Classes.GetEnrollment(ctx, studentID)
	if err != nil {
		return notFound(err, "enrolled student")
	}
	if e.ClassID != o.ID {
		return fmt.Errorf("enrolled student %w", ErrNotFound)
	}
	if !canManageClass(actor, o) && (e.UserID == "" || e.UserID != actor.ID) {
		return ErrForbidden
	}
	if err := deps.Classes.DeleteEnrollment(ctx, o.ID, e.ID); err != nil {
		return notFound(err, "enrolled student")
	}
	slog.Info("class_event", "event", "unenrolled", "class_id", o.ID, "student_id", e.ID, "actor_id", actor.ID)
	return nil
}
