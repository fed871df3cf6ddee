package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	tariffs "optifactura/internal/tariffs/domain"
)

const defaultTariffsTable = "reference_tariffs"

// CatalogRepository is the Postgres reference-tariff catalog. Writes are
// append-and-supersede: the active record for a key is closed and the
// new one inserted in one transaction.
type CatalogRepository struct {
	db    *sql.DB
	table string
}

// CatalogOption configures the repository.
type CatalogOption func(*CatalogRepository)

// WithTariffsTable overrides the tariffs table name.
func WithTariffsTable(table string) CatalogOption {
	return func(r *CatalogRepository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewCatalogRepository constructs a repository.
func NewCatalogRepository(db *sql.DB, opts ...CatalogOption) *CatalogRepository {
	r := &CatalogRepository{db: db, table: defaultTariffsTable}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Current returns the active records for a provider/service.
func (r *CatalogRepository) Current(ctx context.Context, provider tariffs.Provider, service tariffs.Service) ([]tariffs.ReferenceTariff, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff catalog: nil db")
	}
	if !provider.Valid() || !service.Valid() {
		return nil, errors.New("tariff catalog: invalid key")
	}
	query := fmt.Sprintf(`
SELECT provider, service, stratum, unit_price, fixed_charge, subsidy_percent,
	unit, currency, effective_from, effective_to, approximate, source_update_id
FROM %s
WHERE provider = $1 AND service = $2 AND effective_to IS NULL
ORDER BY stratum ASC`, r.table)
	rows, err := r.db.QueryContext(ctx, query, string(provider), string(service))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []tariffs.ReferenceTariff
	for rows.Next() {
		record, err := scanTariff(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Replace closes the active record for each incoming key and inserts the
// new records, all in one transaction.
func (r *CatalogRepository) Replace(ctx context.Context, records []tariffs.ReferenceTariff, closedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("tariff catalog: nil db")
	}
	if len(records) == 0 {
		return nil
	}
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Serialize racing ingests for the same provider (a manual trigger
	// against the scheduled cycle); without this, two transactions can
	// each supersede and insert, leaving two current rows for one key.
	for _, lockKey := range replaceLockKeys(records) {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return err
		}
	}

	for _, record := range records {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s
SET effective_to = $1
WHERE provider = $2 AND service = $3 AND stratum = $4 AND effective_to IS NULL`, r.table),
			closedAt, string(record.Provider), string(record.Service), record.Stratum); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (
	provider, service, stratum, unit_price, fixed_charge, subsidy_percent,
	unit, currency, effective_from, effective_to, approximate, source_update_id
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, NULL, $10, $11
)`, r.table),
			string(record.Provider), string(record.Service), record.Stratum,
			record.UnitPrice, record.FixedCharge, record.SubsidyOrContributionPercent,
			string(record.Unit), record.Currency, record.EffectiveFrom,
			record.Approximate, record.SourceUpdateID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// replaceLockKeys returns the distinct provider/service lock keys for a
// batch, sorted so concurrent multi-provider replaces take locks in the
// same order.
func replaceLockKeys(records []tariffs.ReferenceTariff) []string {
	seen := make(map[string]struct{}, 1)
	var keys []string
	for _, record := range records {
		key := string(record.Provider) + "/" + string(record.Service)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// History returns all records for a key, newest first.
func (r *CatalogRepository) History(ctx context.Context, key tariffs.TariffKey, limit int) ([]tariffs.ReferenceTariff, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff catalog: nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT provider, service, stratum, unit_price, fixed_charge, subsidy_percent,
	unit, currency, effective_from, effective_to, approximate, source_update_id
FROM %s
WHERE provider = $1 AND service = $2 AND stratum = $3
ORDER BY effective_from DESC
LIMIT $4`, r.table)
	rows, err := r.db.QueryContext(ctx, query, string(key.Provider), string(key.Service), key.Stratum, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []tariffs.ReferenceTariff
	for rows.Next() {
		record, err := scanTariff(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanTariff(rows *sql.Rows) (tariffs.ReferenceTariff, error) {
	var record tariffs.ReferenceTariff
	var provider, service, unit string
	var effectiveTo sql.NullTime
	if err := rows.Scan(&provider, &service, &record.Stratum, &record.UnitPrice,
		&record.FixedCharge, &record.SubsidyOrContributionPercent, &unit,
		&record.Currency, &record.EffectiveFrom, &effectiveTo,
		&record.Approximate, &record.SourceUpdateID); err != nil {
		return tariffs.ReferenceTariff{}, err
	}
	record.Provider = tariffs.Provider(provider)
	record.Service = tariffs.Service(service)
	record.Unit = tariffs.Unit(unit)
	if effectiveTo.Valid {
		closed := effectiveTo.Time
		record.EffectiveTo = &closed
	}
	return record, nil
}
