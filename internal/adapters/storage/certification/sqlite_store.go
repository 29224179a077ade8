package certification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"makerspace/internal/adapters/storage"
	domain "makerspace/internal/domain/certification"
)

const certColumns = "id, user_id, shop_area, granted_by, source, granted_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new certification store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Grant inserts a certification, relying on UNIQUE(user_id, shop_area) for idempotence.
// PRE: c has been validated
// POST: at most one row per (user, area); concurrent duplicate grants are silent no-ops
func (s *SQLiteStore) Grant(ctx context.Context, c domain.Certification) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO certification ("+certColumns+") VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(user_id, shop_area) DO NOTHING",
		c.ID, c.UserID, c.ShopArea, c.GrantedBy, c.Source, storage.FormatTime(c.GrantedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByUser returns a user's certifications ordered by area name.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]domain.Certification, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+certColumns+" FROM certification WHERE user_id = ? ORDER BY shop_area", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Certification
	for rows.Next() {
		c, err := scanCertification(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Delete removes one certification belonging to userID and returns it.
func (s *SQLiteStore) Delete(ctx context.Context, userID, id string) (domain.Certification, error) {
	row := s.db.QueryRowContext(ctx,
		"DELETE FROM certification WHERE id = ? AND user_id = ? RETURNING "+certColumns, id, userID)
	c, err := scanCertification(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Certification{}, fmt.Errorf("certification not found: %w", err)
	}
	return c, err
}

func scanCertification(scan func(dest ...any) error) (domain.Certification, error) {
	var c domain.Certification
	var grantedAt string
	if err := scan(&c.ID, &c.UserID, &c.ShopArea, &c.GrantedBy, &c.Source, &grantedAt); err != nil {
		return domain.Certification{}, err
	}
	c.GrantedAt, _ = storage.ParseTime(grantedAt)
	return c, nil
}
