package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"makerspace/internal/adapters/storage"
	domain "makerspace/internal/domain/account"
)

const accountColumns = "id, name, email, password_hash, user_type, is_instructor, address, phone, birth_date, emergency_contact_name, emergency_contact_phone, created_at, failed_logins, locked_until"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE id = ?", id)
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByEmail retrieves an Account by normalised email.
// PRE: email is non-empty
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE email = ?", domain.NormalizeEmail(email))
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update); created_at is never overwritten
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	fields := strings.Split(accountColumns, ", ")
	placeholders := make([]string, len(fields))
	var updates []string
	for i, f := range fields {
		placeholders[i] = "?"
		if f != "id" && f != "created_at" {
			updates = append(updates, f+"=excluded."+f)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO account (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		accountColumns,
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	p := entity.Profile
	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.Name,
		domain.NormalizeEmail(entity.Email),
		entity.PasswordHash,
		entity.UserType,
		entity.IsInstructor,
		p.Address,
		p.Phone,
		p.BirthDate,
		p.EmergencyContactName,
		p.EmergencyContactPhone,
		storage.FormatTime(entity.CreatedAt),
		entity.FailedLogins,
		storage.NullTime(entity.LockedUntil),
	)
	return err
}

// Delete removes an Account; bookings, certifications and purchases cascade.
// PRE: id is non-empty
// POST: returns an error wrapping sql.ErrNoRows if nothing was deleted
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	return nil
}

func whereClause(filter ListFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.UserType != "" {
		conds = append(conds, "user_type = ?")
		args = append(args, filter.UserType)
	}
	if filter.InstructorOnly {
		conds = append(conds, "is_instructor = 1")
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		conds = append(conds, "(name LIKE ? OR email LIKE ?)")
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var sortColumns = map[string]string{
	"name":    "name COLLATE NOCASE",
	"email":   "email",
	"created": "created_at",
	"type":    "user_type",
}

// List retrieves Accounts based on the filter.
// PRE: filter has valid parameters; Limit 0 means no limit
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	where, args := whereClause(filter)

	order := "name COLLATE NOCASE ASC"
	key, dir := strings.TrimPrefix(filter.Sort, "-"), "ASC"
	if strings.HasPrefix(filter.Sort, "-") {
		dir = "DESC"
	}
	if col, ok := sortColumns[key]; ok {
		order = col + " " + dir
	}

	query := "SELECT " + accountColumns + " FROM account" + where + " ORDER BY " + order
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of accounts matching the filter, ignoring paging.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := whereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account"+where, args...).Scan(&count)
	return count, err
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	p := &entity.Profile
	err := scan(
		&entity.ID,
		&entity.Name,
		&entity.Email,
		&entity.PasswordHash,
		&entity.UserType,
		&entity.IsInstructor,
		&p.Address,
		&p.Phone,
		&p.BirthDate,
		&p.EmergencyContactName,
		&p.EmergencyContactPhone,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	if lockedUntil.Valid {
		entity.LockedUntil, _ = storage.ParseTime(lockedUntil.String)
	}
	return entity, nil
}
