package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yorutsuke/ledgersync/internal/common"
	"github.com/yorutsuke/ledgersync/internal/dbx"
	"github.com/yorutsuke/ledgersync/internal/models"
)

const (
	dateLayout = "2006-01-02"

	recordColumns = `id, owner_id, linked_asset_id, remote_asset_key, kind, category,
		amount, currency, description, counterparty_name,
		occurred_on, created_at, updated_at, status, confidence, version, dirty`
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX

	// now stamps UpdatedAt on mutations; replaceable in tests.
	now func() time.Time
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func fmtDate(t time.Time) string { return t.UTC().Format(dateLayout) }
func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		r          models.Record
		occurredOn string
		createdAt  string
		updatedAt  string
		confidence sql.NullFloat64
		dirty      int
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.LinkedAssetID, &r.RemoteAssetKey,
		&r.Kind, &r.Category, &r.Amount, &r.Currency, &r.Description, &r.CounterpartyName,
		&occurredOn, &createdAt, &updatedAt, &r.Status, &confidence, &r.Version, &dirty); err != nil {
		return nil, err
	}

	var err error
	if r.OccurredOn, err = time.Parse(dateLayout, occurredOn); err != nil {
		return nil, fmt.Errorf("failed to parse occurred_on: %w", err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if confidence.Valid {
		r.Confidence = &confidence.Float64
	}
	r.Dirty = dirty != 0
	return &r, nil
}

func recordArgs(r *models.Record) []any {
	var confidence any
	if r.Confidence != nil {
		confidence = *r.Confidence
	}
	dirty := 0
	if r.Dirty {
		dirty = 1
	}
	return []any{r.ID, r.OwnerID, r.LinkedAssetID, r.RemoteAssetKey, r.Kind, r.Category,
		r.Amount, r.Currency, r.Description, r.CounterpartyName,
		fmtDate(r.OccurredOn), fmtTime(r.CreatedAt), fmtTime(r.UpdatedAt),
		r.Status, confidence, r.Version, dirty}
}

// filterClause builds the WHERE tail and args for f, scoped to ownerID.
func filterClause(ownerID string, f Filter) (string, []any) {
	clauses := []string{"owner_id = ?"}
	args := []any{ownerID}

	switch {
	case f.Status != "":
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	case !f.IncludeDeleted:
		clauses = append(clauses, "status != ?")
		args = append(args, models.StatusDeleted)
	}

	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "occurred_on >= ?")
		args = append(args, fmtDate(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "occurred_on <= ?")
		args = append(args, fmtDate(f.To))
	}

	return strings.Join(clauses, " AND "), args
}

// List returns the owner's records matching f, newest occurrence first.
func (s *SQLiteRepository) List(ctx context.Context, ownerID string, f Filter) ([]*models.Record, error) {
	where, args := filterClause(ownerID, f)
	query := fmt.Sprintf(`SELECT %s FROM records WHERE %s ORDER BY occurred_on DESC, created_at DESC, id`,
		recordColumns, where)
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Count mirrors List's filters minus pagination.
func (s *SQLiteRepository) Count(ctx context.Context, ownerID string, f Filter) (int, error) {
	where, args := filterClause(ownerID, f)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM records WHERE %s`, where)

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// GetByID returns a single record regardless of status.
func (s *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM records WHERE id = ?`, recordColumns)
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return r, nil
}

// Insert creates a record, failing if the id already exists.
func (s *SQLiteRepository) Insert(ctx context.Context, r *models.Record) error {
	query := fmt.Sprintf(`INSERT INTO records (%s) VALUES (%s) ON CONFLICT(id) DO NOTHING`,
		recordColumns, placeholders(17))
	res, err := s.db.ExecContext(ctx, query, recordArgs(r)...)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorAlreadyExists
	}
	return nil
}

// Upsert overwrites all fields for the id, inserting if absent. The row is
// written exactly as given, dirty flag included, so remote-originated writes
// never look locally modified.
func (s *SQLiteRepository) Upsert(ctx context.Context, r *models.Record) error {
	query := fmt.Sprintf(`INSERT INTO records (%s) VALUES (%s)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			linked_asset_id = excluded.linked_asset_id,
			remote_asset_key = excluded.remote_asset_key,
			kind = excluded.kind,
			category = excluded.category,
			amount = excluded.amount,
			currency = excluded.currency,
			description = excluded.description,
			counterparty_name = excluded.counterparty_name,
			occurred_on = excluded.occurred_on,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			status = excluded.status,
			confidence = excluded.confidence,
			version = excluded.version,
			dirty = excluded.dirty`,
		recordColumns, placeholders(17))
	if _, err := s.db.ExecContext(ctx, query, recordArgs(r)...); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// SoftDelete marks a record deleted. Deleted is terminal: a second call is
// rejected with ErrorRecordDeleted.
func (s *SQLiteRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE records SET status = ?, updated_at = ?, dirty = 1 WHERE id = ? AND status != ?`
	res, err := s.db.ExecContext(ctx, query, models.StatusDeleted, fmtTime(s.now()), id, models.StatusDeleted)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return s.checkMutated(ctx, res, id)
}

// Confirm marks a record confirmed.
func (s *SQLiteRepository) Confirm(ctx context.Context, id string) error {
	query := `UPDATE records SET status = ?, updated_at = ?, dirty = 1 WHERE id = ? AND status != ?`
	res, err := s.db.ExecContext(ctx, query, models.StatusConfirmed, fmtTime(s.now()), id, models.StatusDeleted)
	if err != nil {
		return fmt.Errorf("failed to confirm record: %w", err)
	}
	return s.checkMutated(ctx, res, id)
}

// Update applies only the fields present in p. An empty patch returns nil
// without touching the row.
func (s *SQLiteRepository) Update(ctx context.Context, id string, p models.Patch) error {
	if p.IsEmpty() {
		return nil
	}

	sets := []string{"updated_at = ?", "dirty = 1"}
	args := []any{fmtTime(s.now())}

	add := func(column string, v any) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}
	if p.LinkedAssetID != nil {
		add("linked_asset_id", *p.LinkedAssetID)
	}
	if p.RemoteAssetKey != nil {
		add("remote_asset_key", *p.RemoteAssetKey)
	}
	if p.Kind != nil {
		add("kind", *p.Kind)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Amount != nil {
		add("amount", *p.Amount)
	}
	if p.Currency != nil {
		add("currency", *p.Currency)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.CounterpartyName != nil {
		add("counterparty_name", *p.CounterpartyName)
	}
	if p.OccurredOn != nil {
		add("occurred_on", fmtDate(*p.OccurredOn))
	}
	if p.Confidence != nil {
		add("confidence", *p.Confidence)
	}

	query := fmt.Sprintf(`UPDATE records SET %s WHERE id = ? AND status != ?`, strings.Join(sets, ", "))
	args = append(args, id, models.StatusDeleted)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return s.checkMutated(ctx, res, id)
}

// checkMutated distinguishes a missing row from a tombstone when an update
// matched nothing.
func (s *SQLiteRepository) checkMutated(ctx context.Context, res sql.Result, id string) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 1 {
		return nil
	}

	var status models.Status
	err = s.db.QueryRowContext(ctx, `SELECT status FROM records WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to select record status: %w", err)
	}
	if status == models.StatusDeleted {
		return common.ErrorRecordDeleted
	}
	return common.ErrorNotFound
}

// ListDirty returns the owner's records awaiting push, oldest change first.
func (s *SQLiteRepository) ListDirty(ctx context.Context, ownerID string) ([]*models.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM records WHERE owner_id = ? AND dirty = 1 ORDER BY updated_at, id`,
		recordColumns)
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ClearDirty lowers the dirty flag for ids. Unknown or already-clean ids are
// ignored, which makes the call safely repeatable.
func (s *SQLiteRepository) ClearDirty(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE records SET dirty = 0 WHERE id IN (%s)`, placeholders(len(ids)))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear dirty flags: %w", err)
	}
	return nil
}

// BulkUpsert applies sequential idempotent upserts.
func (s *SQLiteRepository) BulkUpsert(ctx context.Context, records []*models.Record) error {
	for _, r := range records {
		if err := s.Upsert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll hard-purges the owner's rows. Test/dev tooling only.
func (s *SQLiteRepository) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge records: %w", err)
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
