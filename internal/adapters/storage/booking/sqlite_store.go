package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"makerspace/internal/adapters/storage"
	domain "makerspace/internal/domain/booking"
)

const bookingColumns = "id, user_id, name, email, user_type, date, time_slot, shop_area, rate_charged, rate_label, booked_by_admin, admin_id, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new booking store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Booking by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM booking WHERE id = ?", id)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, fmt.Errorf("booking not found: %w", err)
	}
	return b, err
}

// CreateIfCapacity inserts the booking in one statement so that the count and the
// insert cannot interleave with a competing writer.
// PRE: b has been validated; capacity > 0
// POST: row written, or ErrSlotFull / ErrAlreadyBooked with no write
func (s *SQLiteStore) CreateIfCapacity(ctx context.Context, b domain.Booking, capacity int) error {
	query := `INSERT INTO booking (` + bookingColumns + `)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM booking WHERE shop_area = ? AND date = ? AND time_slot = ?) < ?
		AND NOT EXISTS (SELECT 1 FROM booking WHERE user_id = ? AND shop_area = ? AND date = ? AND time_slot = ?)`

	res, err := s.db.ExecContext(ctx, query,
		b.ID,
		storage.NullString(b.UserID),
		b.Name,
		b.Email,
		b.UserType,
		b.Date,
		b.TimeSlot,
		b.ShopArea,
		b.RateCharged.StringFixed(2),
		b.RateLabel,
		b.BookedByAdmin,
		storage.NullString(b.AdminID),
		storage.FormatTime(b.CreatedAt),
		b.ShopArea, b.Date, b.TimeSlot, capacity,
		b.UserID, b.ShopArea, b.Date, b.TimeSlot,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	return s.conflictReason(ctx, "", b.UserID, b.ShopArea, b.Date, b.TimeSlot)
}

// RescheduleIfCapacity updates date and slot only; the booking's own row is not counted.
// PRE: capacity > 0
// POST: row updated, or ErrSlotFull / ErrAlreadyBooked / not found with no write
func (s *SQLiteStore) RescheduleIfCapacity(ctx context.Context, id, date, timeSlot string, capacity int) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	query := `UPDATE booking SET date = ?, time_slot = ?
		WHERE id = ?
		AND (SELECT COUNT(*) FROM booking WHERE shop_area = ? AND date = ? AND time_slot = ? AND id != ?) < ?
		AND NOT EXISTS (SELECT 1 FROM booking WHERE user_id = ? AND shop_area = ? AND date = ? AND time_slot = ? AND id != ?)`
	res, err := s.db.ExecContext(ctx, query,
		date, timeSlot, id,
		current.ShopArea, date, timeSlot, id, capacity,
		current.UserID, current.ShopArea, date, timeSlot, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	return s.conflictReason(ctx, id, current.UserID, current.ShopArea, date, timeSlot)
}

// conflictReason explains a zero-row conditional write.
func (s *SQLiteStore) conflictReason(ctx context.Context, excludeID, userID, area, date, slot string) error {
	if userID != "" {
		var dup int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM booking WHERE user_id = ? AND shop_area = ? AND date = ? AND time_slot = ? AND id != ?",
			userID, area, date, slot, excludeID).Scan(&dup)
		if err != nil {
			return err
		}
		if dup > 0 {
			return domain.ErrAlreadyBooked
		}
	}
	return domain.ErrSlotFull
}

// Delete removes a Booking.
// PRE: id is non-empty
// POST: returns an error wrapping sql.ErrNoRows if nothing was deleted
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM booking WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking not found: %w", sql.ErrNoRows)
	}
	return nil
}

// CountBySlot counts bookings holding one area, date and slot.
func (s *SQLiteStore) CountBySlot(ctx context.Context, shopArea, date, timeSlot string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM booking WHERE shop_area = ? AND date = ? AND time_slot = ?",
		shopArea, date, timeSlot).Scan(&n)
	return n, err
}

// CountsByDay groups one area's bookings on a date by slot label.
func (s *SQLiteStore) CountsByDay(ctx context.Context, shopArea, date string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT time_slot, COUNT(*) FROM booking WHERE shop_area = ? AND date = ? GROUP BY time_slot",
		shopArea, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slot string
		var n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, err
		}
		counts[slot] = n
	}
	return counts, rows.Err()
}

// List retrieves bookings ordered by date then creation.
// PRE: Limit 0 means no limit
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Booking, error) {
	var conds []string
	var args []any
	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Date != "" {
		conds = append(conds, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.ShopArea != "" {
		conds = append(conds, "shop_area = ?")
		args = append(args, filter.ShopArea)
	}

	query := "SELECT " + bookingColumns + " FROM booking"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

func scanBooking(scan func(dest ...any) error) (domain.Booking, error) {
	var b domain.Booking
	var userID, adminID sql.NullString
	var rate, createdAt string
	err := scan(
		&b.ID,
		&userID,
		&b.Name,
		&b.Email,
		&b.UserType,
		&b.Date,
		&b.TimeSlot,
		&b.ShopArea,
		&rate,
		&b.RateLabel,
		&b.BookedByAdmin,
		&adminID,
		&createdAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	b.UserID = userID.String
	b.AdminID = adminID.String
	if b.RateCharged, err = decimal.NewFromString(rate); err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s: bad rate %q: %w", b.ID, rate, err)
	}
	b.CreatedAt, _ = storage.ParseTime(createdAt)
	return b, nil
}
