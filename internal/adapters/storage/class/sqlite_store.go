package class

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"makerspace/internal/adapters/storage"
	domain "makerspace/internal/domain/class"
)

const (
	offeringColumns   = "id, title, description, instructor_id, sessions, max_capacity, price, created_at"
	enrollmentColumns = "id, class_id, user_id, name, email, enrolled_at"
)

// SQLiteStore implements Store using SQLite.
// Sessions are stored as a JSON array in the class_offering row.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new class store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Offering by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Offering, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+offeringColumns+" FROM class_offering WHERE id = ?", id)
	o, err := scanOffering(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offering{}, fmt.Errorf("class not found: %w", err)
	}
	return o, err
}

// Save persists an Offering (insert or update).
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Offering) error {
	sessions, err := json.Marshal(entity.Sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	updates := []string{
		"title=excluded.title",
		"description=excluded.description",
		"instructor_id=excluded.instructor_id",
		"sessions=excluded.sessions",
		"max_capacity=excluded.max_capacity",
		"price=excluded.price",
	}
	query := fmt.Sprintf(
		"INSERT INTO class_offering (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET %s",
		offeringColumns, strings.Join(updates, ", "),
	)
	_, err = s.db.ExecContext(ctx, query,
		entity.ID,
		entity.Title,
		entity.Description,
		storage.NullString(entity.InstructorID),
		string(sessions),
		entity.MaxCapacity,
		entity.Price.StringFixed(2),
		storage.FormatTime(entity.CreatedAt),
	)
	return err
}

// Delete removes an Offering; enrollments and attendance cascade.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM class_offering WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("class not found: %w", sql.ErrNoRows)
	}
	return nil
}

// List retrieves offerings ordered by title.
// PRE: Limit 0 means no limit
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Offering, error) {
	query := "SELECT " + offeringColumns + " FROM class_offering"
	var args []any
	if filter.InstructorID != "" {
		query += " WHERE instructor_id = ?"
		args = append(args, filter.InstructorID)
	}
	query += " ORDER BY title COLLATE NOCASE, created_at"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Offering
	for rows.Next() {
		o, err := scanOffering(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, o)
	}
	return results, rows.Err()
}

// EnrollIfCapacity inserts an enrollment in one conditional statement.
// PRE: e has been validated; maxCapacity > 0
// POST: row written, or ErrClassFull / ErrAlreadyEnrolled with no write
func (s *SQLiteStore) EnrollIfCapacity(ctx context.Context, e domain.Enrollment, maxCapacity int) error {
	query := `INSERT INTO enrolled_student (` + enrollmentColumns + `)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM enrolled_student WHERE class_id = ?) < ?
		AND NOT EXISTS (SELECT 1 FROM enrolled_student WHERE class_id = ? AND user_id = ?)`
	res, err := s.db.ExecContext(ctx, query,
		e.ID, e.ClassID, storage.NullString(e.UserID), e.Name, e.Email, storage.FormatTime(e.EnrolledAt),
		e.ClassID, maxCapacity,
		e.ClassID, e.UserID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if e.UserID != "" {
		var dup int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM enrolled_student WHERE class_id = ? AND user_id = ?", e.ClassID, e.UserID).Scan(&dup); err != nil {
			return err
		}
		if dup > 0 {
			return domain.ErrAlreadyEnrolled
		}
	}
	return domain.ErrClassFull
}

// GetEnrollment retrieves one enrolled student.
func (s *SQLiteStore) GetEnrollment(ctx context.Context, id string) (domain.Enrollment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+enrollmentColumns+" FROM enrolled_student WHERE id = ?", id)
	e, err := scanEnrollment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Enrollment{}, fmt.Errorf("enrolled student not found: %w", err)
	}
	return e, err
}

// ListEnrollments returns a class roster in enrollment order.
func (s *SQLiteStore) ListEnrollments(ctx context.Context, classID string) ([]domain.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+enrollmentColumns+" FROM enrolled_student WHERE class_id = ? ORDER BY enrolled_at, name", classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// DeleteEnrollment removes a student from a class; their attendance cascades.
func (s *SQLiteStore) DeleteEnrollment(ctx context.Context, classID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM enrolled_student WHERE id = ? AND class_id = ?", id, classID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("enrolled student not found: %w", sql.ErrNoRows)
	}
	return nil
}

func scanOffering(scan func(dest ...any) error) (domain.Offering, error) {
	var o domain.Offering
	var instructorID sql.NullString
	var sessions, price, createdAt string
	if err := scan(&o.ID, &o.Title, &o.Description, &instructorID, &sessions, &o.MaxCapacity, &price, &createdAt); err != nil {
		return domain.Offering{}, err
	}
	o.InstructorID = instructorID.String
	if err := json.Unmarshal([]byte(sessions), &o.Sessions); err != nil {
		return domain.Offering{}, fmt.Errorf("class %s: decode sessions: %w", o.ID, err)
	}
	var err error
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Offering{}, fmt.Errorf("class %s: bad price %q: %w", o.ID, price, err)
	}
	o.CreatedAt, _ = storage.ParseTime(createdAt)
	return o, nil
}

func scanEnrollment(scan func(dest ...any) error) (domain.Enrollment, error) {
	var e domain.Enrollment
	var userID sql.NullString
	var enrolledAt string
	if err := scan(&e.ID, &e.ClassID, &userID, &e.Name, &e.Email, &enrolledAt); err != nil {
		return domain.Enrollment{}, err
	}
	e.UserID = userID.String
	e.EnrolledAt, _ = storage.ParseTime(enrolledAt)
	return e, nil
}
