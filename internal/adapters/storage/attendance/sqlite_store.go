package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"makerspace/internal/adapters/storage"
	domain "makerspace/internal/domain/attendance"
)

const recordColumns = "id, class_id, enrolled_student_id, session_date, present, checked_in_at, marked_by, updated_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves one attendance record by its natural key.
// PRE: all key parts are non-empty
// POST: Returns the record or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) Get(ctx context.Context, classID, enrolledStudentID, sessionDate string) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM attendance WHERE class_id = ? AND enrolled_student_id = ? AND session_date = ?",
		classID, enrolledStudentID, sessionDate)
	r, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("attendance not found: %w", err)
	}
	return r, err
}

// Upsert inserts or updates the record for (class, student, session date).
// PRE: r has been validated
// POST: exactly one row exists for the key; the original row id is kept on update
func (s *SQLiteStore) Upsert(ctx context.Context, r domain.Record) (domain.Record, error) {
	updates := []string{
		"present=excluded.present",
		"checked_in_at=excluded.checked_in_at",
		"marked_by=excluded.marked_by",
		"updated_at=excluded.updated_at",
	}
	query := fmt.Sprintf(
		"INSERT INTO attendance (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(class_id, enrolled_student_id, session_date) DO UPDATE SET %s",
		recordColumns, strings.Join(updates, ", "),
	)
	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.ClassID,
		r.EnrolledStudentID,
		r.SessionDate,
		r.Present,
		storage.NullTime(r.CheckedInAt),
		r.MarkedBy,
		storage.FormatTime(r.UpdatedAt),
	)
	if err != nil {
		return domain.Record{}, err
	}
	return s.Get(ctx, r.ClassID, r.EnrolledStudentID, r.SessionDate)
}

// ListByClass returns every record for a class ordered by session then student.
func (s *SQLiteStore) ListByClass(ctx context.Context, classID string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM attendance WHERE class_id = ? ORDER BY session_date, enrolled_student_id", classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountPresent is recomputed from rows on every call; there is no cached counter.
func (s *SQLiteStore) CountPresent(ctx context.Context, classID, enrolledStudentID string, sessionDates []string) (int, error) {
	if len(sessionDates) == 0 {
		return 0, nil
	}
	args := []any{classID, enrolledStudentID}
	for _, d := range sessionDates {
		args = append(args, d)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sessionDates)), ", ")
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance WHERE class_id = ? AND enrolled_student_id = ? AND present = 1 AND session_date IN ("+placeholders+")",
		args...).Scan(&n)
	return n, err
}

func scanRecord(scan func(dest ...any) error) (domain.Record, error) {
	var r domain.Record
	var checkedIn sql.NullString
	var updatedAt string
	err := scan(&r.ID, &r.ClassID, &r.EnrolledStudentID, &r.SessionDate, &r.Present, &checkedIn, &r.MarkedBy, &updatedAt)
	if err != nil {
		return domain.Record{}, err
	}
	if checkedIn.Valid {
		if r.CheckedInAt, err = storage.ParseTime(checkedIn.String); err != nil {
			return domain.Record{}, fmt.Errorf("failed to parse checked_in_at: %w", err)
		}
	}
	r.UpdatedAt, _ = storage.ParseTime(updatedAt)
	return r, nil
}
