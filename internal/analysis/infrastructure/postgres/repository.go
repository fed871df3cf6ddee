package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	analysis "optifactura/internal/analysis/domain"
	tariffs "optifactura/internal/tariffs/domain"
)

// Repository persists analysis outcomes and serves the consumption
// history. Stored analyses double as history: each saved bill becomes a
// record for the next one's consumption check.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts a stored analysis.
func (r *Repository) Save(ctx context.Context, stored *analysis.StoredAnalysis) error {
	if r == nil || r.db == nil {
		return errors.New("analysis repo: nil db")
	}
	if stored == nil {
		return errors.New("analysis repo: nil analysis")
	}
	if stored.UserID == "" {
		return errors.New("analysis repo: empty user id")
	}
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(stored.Result)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO bill_analyses (
	id, user_id, provider, service, stratum, consumption, total_amount,
	unit_price, result, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10
)`, stored.ID, stored.UserID, string(stored.Provider), string(stored.Service),
		stored.Stratum, stored.Consumption, stored.TotalAmount, stored.UnitPrice,
		payload, stored.CreatedAt)
	return err
}

// Get loads a stored analysis by id.
func (r *Repository) Get(ctx context.Context, id string) (*analysis.StoredAnalysis, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("analysis repo: nil db")
	}
	if id == "" {
		return nil, errors.New("analysis repo: empty id")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, provider, service, stratum, consumption, total_amount,
	unit_price, result, created_at
FROM bill_analyses
WHERE id = $1
LIMIT 1`, id)

	var stored analysis.StoredAnalysis
	var provider, service string
	var payload []byte
	if err := row.Scan(&stored.ID, &stored.UserID, &provider, &service,
		&stored.Stratum, &stored.Consumption, &stored.TotalAmount,
		&stored.UnitPrice, &payload, &stored.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	stored.Provider = tariffs.Provider(provider)
	stored.Service = tariffs.Service(service)
	if err := json.Unmarshal(payload, &stored.Result); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Recent returns a user's prior bills for a provider, newest first.
func (r *Repository) Recent(ctx context.Context, userID string, provider tariffs.Provider, limit int) ([]analysis.HistoricalConsumptionRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("analysis repo: nil db")
	}
	if userID == "" {
		return nil, errors.New("analysis repo: empty user id")
	}
	if limit <= 0 || limit > analysis.HistoryWindow {
		limit = analysis.HistoryWindow
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT created_at, consumption, total_amount, unit_price
FROM bill_analyses
WHERE user_id = $1 AND provider = $2
ORDER BY created_at DESC
LIMIT $3`, userID, string(provider), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []analysis.HistoricalConsumptionRecord
	for rows.Next() {
		var record analysis.HistoricalConsumptionRecord
		if err := rows.Scan(&record.BillingDate, &record.Consumption, &record.TotalAmount, &record.UnitPrice); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
