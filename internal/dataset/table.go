package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/partforge/partsearch/internal/schema"
)

// tableLockPath guards the first-batch CREATE TABLE against a race between
// concurrent ingestion workers that might observe the table as absent
// simultaneously; cheap in the common case since the table is created once.
func tableLockPath(lockDir string, fileID int64) string {
	return filepath.Join(lockDir, fmt.Sprintf("ds_%d.create.lock", fileID))
}

// EnsureTable creates ds_<file_id> if it does not already exist, guarded by
// a cross-process file lock so two workers racing on the first batch of the
// same file don't both attempt CREATE TABLE.
func (s *Store) EnsureTable(ctx context.Context, lockDir string, fileID int64) error {
	fl := flock.New(tableLockPath(lockDir, fileID))
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire table-create lock: %w", err)
	}
	defer fl.Unlock()

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		primary_buyer          TEXT NOT NULL DEFAULT '',
		item_description       TEXT NOT NULL DEFAULT '',
		quantity               INTEGER NOT NULL DEFAULT 0,
		unit_of_measure        TEXT NOT NULL DEFAULT '',
		unit_price             REAL NOT NULL DEFAULT 0,
		secondary_buyer        TEXT NOT NULL DEFAULT '',
		primary_buyer_contact  TEXT NOT NULL DEFAULT '',
		primary_buyer_email    TEXT NOT NULL DEFAULT '',
		part_number            TEXT NOT NULL DEFAULT ''
	)`, TableName(fileID))

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create dataset table: %w", err)
	}
	return nil
}

// CreateIndexes builds the B-tree and description-search indexes described
// in §4.5. Failure to create any single index is logged by the caller and
// treated as non-fatal; CreateIndexes attempts every statement and returns
// one error per index that failed (nil when all succeed).
func (s *Store) CreateIndexes(ctx context.Context, fileID int64) []error {
	table := TableName(fileID)
	statements := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_part_number ON %s(part_number)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_quantity ON %s(quantity)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_unit_price ON %s(unit_price)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_description_lower ON %s(LOWER(item_description))`, table, table),
	}

	var errs []error
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// RowCount returns the current row count of a dataset table, used on
// ingester startup to determine the resume offset.
func (s *Store) RowCount(ctx context.Context, fileID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, TableName(fileID))).Scan(&count)
	if err != nil {
		if isNoSuchTable(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func isNoSuchTable(err error) bool {
	return err != nil && containsNoSuchTable(err.Error())
}

func containsNoSuchTable(msg string) bool {
	for i := 0; i+13 <= len(msg); i++ {
		if msg[i:i+13] == "no such table" {
			return true
		}
	}
	return false
}

// InsertBatch inserts rows into ds_<file_id> inside a single transaction.
// It either fully succeeds or returns an error with nothing committed,
// letting the batch ingester's split-on-failure logic retry smaller
// sub-batches.
func (s *Store) InsertBatch(ctx context.Context, fileID int64, rows []schema.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (primary_buyer, item_description, quantity, unit_of_measure, unit_price,
			secondary_buyer, primary_buyer_contact, primary_buyer_email, part_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, TableName(fileID)))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.PrimaryBuyer, r.ItemDescription, r.Quantity, r.UnitOfMeasure, r.UnitPrice,
			r.SecondaryBuyer, r.PrimaryBuyerContact, r.PrimaryBuyerEmail, r.PartNumber,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Row is one physical row of a dataset table, read back for index-sync.
type Row struct {
	RowID           int64
	PartNumber      string
	ItemDescription string
	Quantity        int64
	UnitPrice       float64
	PrimaryBuyer    string
}

// RowsPage reads one page of a dataset's rows ordered by id, used by the
// index-sync batch loop to paginate ds_<file_id> without loading it whole.
func (s *Store) RowsPage(ctx context.Context, fileID int64, afterID int64, limit int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, part_number, item_description, quantity, unit_price, primary_buyer
		 FROM %s WHERE id > ? ORDER BY id LIMIT ?`, TableName(fileID)), afterID, limit)
	if err != nil {
		if isNoSuchTable(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.RowID, &r.PartNumber, &r.ItemDescription, &r.Quantity, &r.UnitPrice, &r.PrimaryBuyer); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopPartNumbers returns up to limit of the most frequent non-empty
// part_number values in the dataset table, used to warm the result cache
// after ingestion.
func (s *Store) TopPartNumbers(ctx context.Context, fileID int64, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT part_number FROM %s WHERE part_number <> '' GROUP BY part_number ORDER BY COUNT(*) DESC LIMIT ?`,
		TableName(fileID)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
