package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirbyniko/statehouse/internal/model"
)

// BillStore handles database operations for bills and event-bill links
type BillStore struct {
	db *sql.DB
}

// NewBillStore creates a new BillStore
func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

// UpsertBill inserts or merges a bill keyed by (state, bill_number). Incoming
// null fields never clobber stored non-null values. Sets b.ID on return.
func (s *BillStore) UpsertBill(ctx context.Context, b *model.Bill) error {
	query := `
		INSERT INTO bills (state, bill_number, title, description, url, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (state, bill_number) DO UPDATE SET
			title = COALESCE(EXCLUDED.title, bills.title),
			description = COALESCE(EXCLUDED.description, bills.description),
			url = COALESCE(EXCLUDED.url, bills.url),
			status = COALESCE(EXCLUDED.status, bills.status)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		b.State,
		b.BillNumber,
		b.Title,
		b.Description,
		b.URL,
		b.Status,
	).Scan(&b.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert bill %s %s: %w", b.State, b.BillNumber, err)
	}

	return nil
}

// LinkEventBill creates a link between an event and a bill; duplicate
// links are ignored
func (s *BillStore) LinkEventBill(ctx context.Context, eventID, billID int) error {
	query := `
		INSERT INTO event_bills (event_id, bill_id)
		VALUES ($1, $2)
		ON CONFLICT (event_id, bill_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, eventID, billID); err != nil {
		return fmt.Errorf("failed to link event %d to bill %d: %w", eventID, billID, err)
	}

	return nil
}

// GetByIdentity retrieves a bill by its (state, bill_number) key.
// Returns nil when no row exists.
func (s *BillStore) GetByIdentity(ctx context.Context, state, billNumber string) (*model.Bill, error) {
	query := `
		SELECT id, state, bill_number, title, description, url, status
		FROM bills
		WHERE state = $1 AND bill_number = $2
	`

	var b model.Bill
	err := s.db.QueryRowContext(ctx, query, state, billNumber).Scan(
		&b.ID,
		&b.State,
		&b.BillNumber,
		&b.Title,
		&b.Description,
		&b.URL,
		&b.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %s %s: %w", state, billNumber, err)
	}

	return &b, nil
}

// GetBillsForEvent retrieves all bills linked to an event
func (s *BillStore) GetBillsForEvent(ctx context.Context, eventID int) ([]model.Bill, error) {
	query := `
		SELECT b.id, b.state, b.bill_number, b.title, b.description, b.url, b.status
		FROM bills b
		INNER JOIN event_bills eb ON b.id = eb.bill_id
		WHERE eb.event_id = $1
		ORDER BY b.state, b.bill_number
	`

	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bills for event %d: %w", eventID, err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		var b model.Bill
		err := rows.Scan(
			&b.ID,
			&b.State,
			&b.BillNumber,
			&b.Title,
			&b.Description,
			&b.URL,
			&b.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}

	return bills, rows.Err()
}
