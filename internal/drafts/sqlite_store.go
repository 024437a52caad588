package drafts

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/HISP-Uganda/entrysync/internal/events"
	"github.com/HISP-Uganda/entrysync/internal/models"
)

// SQLiteStore implements the draft queue on an embedded SQLite database.
// One database file per account keeps accounts isolated by addressing.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore opens (or creates) the draft database at dbPath.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, &models.StorageError{Op: "open", Err: err}
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "draft_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, &models.StorageError{Op: "initialize", Err: err}
	}

	return store, nil
}

// initialize creates the schema.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS drafts (
        dataset_id TEXT NOT NULL,
        period TEXT NOT NULL,
        org_unit TEXT NOT NULL,
        attribute_option_combo TEXT NOT NULL,
        data_element TEXT NOT NULL,
        category_option_combo TEXT NOT NULL,
        value TEXT,
        comment TEXT,
        last_modified TIMESTAMP NOT NULL,
        PRIMARY KEY (dataset_id, period, org_unit, attribute_option_combo,
                     data_element, category_option_combo)
    );

    CREATE INDEX IF NOT EXISTS idx_drafts_instance
        ON drafts(dataset_id, period, org_unit, attribute_option_combo);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Upsert inserts or replaces a draft by its natural key.
func (s *SQLiteStore) Upsert(draft models.Draft) error {
	if err := draft.Validate(); err != nil {
		return fmt.Errorf("invalid draft: %w", err)
	}

	_, err := s.db.Exec(`
        INSERT INTO drafts (dataset_id, period, org_unit, attribute_option_combo,
                            data_element, category_option_combo, value, comment, last_modified)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(dataset_id, period, org_unit, attribute_option_combo,
                    data_element, category_option_combo) DO UPDATE SET
            value = excluded.value,
            comment = excluded.comment,
            last_modified = excluded.last_modified
    `, draft.DatasetID, draft.Period, draft.OrgUnit, draft.AttributeOptionCombo,
		draft.DataElement, draft.CategoryOptionCombo,
		nullString(draft.Value), nullString(draft.Comment), draft.LastModified)

	if err != nil {
		return &models.StorageError{Op: "upsert", Err: err}
	}

	return nil
}

// ListAll returns every queued draft, oldest edit first.
func (s *SQLiteStore) ListAll() ([]models.Draft, error) {
	return s.query(`
        SELECT dataset_id, period, org_unit, attribute_option_combo,
               data_element, category_option_combo, value, comment, last_modified
        FROM drafts
        ORDER BY last_modified ASC
    `)
}

// ListForInstance returns drafts inside one form instance scope.
func (s *SQLiteStore) ListForInstance(scope models.InstanceScope) ([]models.Draft, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scope: %w", err)
	}

	return s.query(`
        SELECT dataset_id, period, org_unit, attribute_option_combo,
               data_element, category_option_combo, value, comment, last_modified
        FROM drafts
        WHERE dataset_id = ? AND period = ? AND org_unit = ? AND attribute_option_combo = ?
        ORDER BY last_modified ASC
    `, scope.DatasetID, scope.Period, scope.OrgUnit, scope.AttributeOptionCombo)
}

// Delete removes one draft by natural key.
func (s *SQLiteStore) Delete(key models.DraftKey) error {
	res, err := s.db.Exec(`
        DELETE FROM drafts
        WHERE dataset_id = ? AND period = ? AND org_unit = ? AND attribute_option_combo = ?
          AND data_element = ? AND category_option_combo = ?
    `, key.DatasetID, key.Period, key.OrgUnit, key.AttributeOptionCombo,
		key.DataElement, key.CategoryOptionCombo)

	if err != nil {
		return &models.StorageError{Op: "delete", Err: err}
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDraftNotFound
	}

	return nil
}

// DeleteAll drains the queue without uploading.
func (s *SQLiteStore) DeleteAll() error {
	if _, err := s.db.Exec("DELETE FROM drafts"); err != nil {
		return &models.StorageError{Op: "delete all", Err: err}
	}
	return nil
}

// Count returns the number of queued drafts.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM drafts").Scan(&n); err != nil {
		return 0, &models.StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(q string, args ...interface{}) ([]models.Draft, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, &models.StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	var drafts []models.Draft
	for rows.Next() {
		var d models.Draft
		var value, comment sql.NullString

		err := rows.Scan(&d.DatasetID, &d.Period, &d.OrgUnit, &d.AttributeOptionCombo,
			&d.DataElement, &d.CategoryOptionCombo, &value, &comment, &d.LastModified)
		if err != nil {
			return nil, &models.StorageError{Op: "scan", Err: err}
		}

		if value.Valid {
			d.Value = &value.String
		}
		if comment.Valid {
			d.Comment = &comment.String
		}

		drafts = append(drafts, d)
	}

	if err := rows.Err(); err != nil {
		return nil, &models.StorageError{Op: "iterate", Err: err}
	}

	return drafts, nil
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
