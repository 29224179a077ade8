package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"makerspace/internal/adapters/storage"
	domain "makerspace/internal/domain/purchase"
)

const purchaseColumns = "id, user_id, description, amount, type, status, due_date, paid_at, created_by, created_at"

// SQLiteStore implements Store using SQLite.
// Amounts are stored as fixed two-decimal text.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new purchase store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Purchase by its ID.
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Purchase, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+purchaseColumns+" FROM purchase WHERE id = ?", id)
	p, err := scanPurchase(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Purchase{}, fmt.Errorf("purchase not found: %w", err)
	}
	return p, err
}

// Save persists a Purchase (insert or update).
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Purchase) error {
	updates := []string{
		"description=excluded.description",
		"amount=excluded.amount",
		"type=excluded.type",
		"status=excluded.status",
		"due_date=excluded.due_date",
		"paid_at=excluded.paid_at",
	}
	query := fmt.Sprintf(
		"INSERT INTO purchase (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET %s",
		purchaseColumns, strings.Join(updates, ", "),
	)
	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		entity.UserID,
		entity.Description,
		entity.Amount.StringFixed(2),
		entity.Type,
		entity.Status,
		storage.NullString(entity.DueDate),
		storage.NullTime(entity.PaidAt),
		entity.CreatedBy,
		storage.FormatTime(entity.CreatedAt),
	)
	return err
}

// Delete removes one of a user's purchases.
func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM purchase WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("purchase not found: %w", sql.ErrNoRows)
	}
	return nil
}

// ListByUser returns a user's purchases, newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]domain.Purchase, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+purchaseColumns+" FROM purchase WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func scanPurchase(scan func(dest ...any) error) (domain.Purchase, error) {
	var p domain.Purchase
	var amount, createdAt string
	var dueDate, paidAt sql.NullString
	err := scan(&p.ID, &p.UserID, &p.Description, &amount, &p.Type, &p.Status, &dueDate, &paidAt, &p.CreatedBy, &createdAt)
	if err != nil {
		return domain.Purchase{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Purchase{}, fmt.Errorf("purchase %s: bad amount %q: %w", p.ID, amount, err)
	}
	p.DueDate = dueDate.String
	if paidAt.Valid {
		p.PaidAt, _ = storage.ParseTime(paidAt.String)
	}
	p.CreatedAt, _ = storage.ParseTime(createdAt)
	return p, nil
}
