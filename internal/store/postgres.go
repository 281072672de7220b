package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps every collection in a single jsonb table.
// All read-modify-write primitives are single UPDATE statements so they
// are atomic without explicit transactions.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a Store backed by the given database.
// Call Migrate once at startup before serving traffic.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the documents table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT        NOT NULL,
			key        TEXT        NOT NULL,
			doc        JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// fieldPattern restricts jsonb field names that get interpolated into SQL.
// Field names come from code constants, never from user input; this is a
// guard against programming mistakes.
var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkField(field string) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var doc []byte
	err := s.db.GetContext(ctx, &doc,
		`SELECT doc FROM documents WHERE collection = $1 AND key = $2`, collection, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, doc) VALUES ($1, $2, $3)
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, collection, key, data)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal patch %s/%s: %w", collection, key, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET doc = doc || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND key = $2
	`, collection, key, patch)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2`, collection, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, q Query) ([]json.RawMessage, error) {
	sqlStr := `SELECT doc FROM documents WHERE collection = $1`
	args := []any{collection}

	if q.Field != "" {
		if err := checkField(q.Field); err != nil {
			return nil, err
		}
		args = append(args, jsonText(q.Value))
		sqlStr += fmt.Sprintf(` AND doc->>'%s' = $%d`, q.Field, len(args))
	}
	if q.OrderBy != "" {
		if err := checkField(q.OrderBy); err != nil {
			return nil, err
		}
		// jsonb comparison orders numbers numerically, which is what the
		// counter-style fields here need.
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		sqlStr += fmt.Sprintf(` ORDER BY doc->'%s' %s`, q.OrderBy, dir)
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sqlStr += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return docs, nil
}

func (s *PostgresStore) Increment(ctx context.Context, collection, key, field string, delta int64) (int64, error) {
	if err := checkField(field); err != nil {
		return 0, err
	}
	var next int64
	err := s.db.GetContext(ctx, &next, fmt.Sprintf(`
		INSERT INTO documents (collection, key, doc)
		VALUES ($1, $2, jsonb_build_object('%[1]s', $3::bigint))
		ON CONFLICT (collection, key) DO UPDATE SET
			doc = jsonb_set(documents.doc, '{%[1]s}',
				to_jsonb(COALESCE((documents.doc->>'%[1]s')::bigint, 0) + $3::bigint), true),
			updated_at = now()
		RETURNING (doc->>'%[1]s')::bigint
	`, field), collection, key, delta)
	if err != nil {
		return 0, fmt.Errorf("increment %s/%s.%s: %w", collection, key, field, err)
	}
	return next, nil
}

func (s *PostgresStore) ArrayAppend(ctx context.Context, collection, key, field string, value any) error {
	if err := checkField(field); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal append value: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO documents (collection, key, doc)
		VALUES ($1, $2, jsonb_build_object('%[1]s', jsonb_build_array($3::jsonb)))
		ON CONFLICT (collection, key) DO UPDATE SET
			doc = jsonb_set(documents.doc, '{%[1]s}',
				COALESCE(documents.doc->'%[1]s', '[]'::jsonb) || jsonb_build_array($3::jsonb), true),
			updated_at = now()
	`, field), collection, key, data)
	if err != nil {
		return fmt.Errorf("array append %s/%s.%s: %w", collection, key, field, err)
	}
	return nil
}

func (s *PostgresStore) ArrayUnion(ctx context.Context, collection, key, field string, value any) (bool, error) {
	if err := checkField(field); err != nil {
		return false, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("marshal union value: %w", err)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE documents SET
			doc = jsonb_set(doc, '{%[1]s}',
				COALESCE(doc->'%[1]s', '[]'::jsonb) || jsonb_build_array($3::jsonb), true),
			updated_at = now()
		WHERE collection = $1 AND key = $2
		  AND NOT (COALESCE(doc->'%[1]s', '[]'::jsonb) @> jsonb_build_array($3::jsonb))
	`, field), collection, key, data)
	if err != nil {
		return false, fmt.Errorf("array union %s/%s.%s: %w", collection, key, field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("array union %s/%s.%s: %w", collection, key, field, err)
	}
	if n == 0 {
		// Either the value is already present or the document is missing.
		if _, err := s.Get(ctx, collection, key); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) ArrayRemove(ctx context.Context, collection, key, field string, value any) error {
	if err := checkField(field); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal remove value: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE documents SET
			doc = jsonb_set(doc, '{%[1]s}', (
				SELECT COALESCE(jsonb_agg(e), '[]'::jsonb)
				FROM jsonb_array_elements(COALESCE(doc->'%[1]s', '[]'::jsonb)) e
				WHERE e <> $3::jsonb
			), true),
			updated_at = now()
		WHERE collection = $1 AND key = $2
	`, field), collection, key, data)
	if err != nil {
		return fmt.Errorf("array remove %s/%s.%s: %w", collection, key, field, err)
	}
	return nil
}

func (s *PostgresStore) UpdateIf(ctx context.Context, collection, key, condField string, condValue any, fields map[string]any) (bool, error) {
	if err := checkField(condField); err != nil {
		return false, err
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return false, fmt.Errorf("marshal patch %s/%s: %w", collection, key, err)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE documents SET doc = doc || $4::jsonb, updated_at = now()
		WHERE collection = $1 AND key = $2 AND doc->>'%s' = $3
	`, condField), collection, key, jsonText(condValue), patch)
	if err != nil {
		return false, fmt.Errorf("update-if %s/%s: %w", collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update-if %s/%s: %w", collection, key, err)
	}
	return n > 0, nil
}

func (s *PostgresStore) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// jsonText renders a filter value the way doc->>field renders it.
func jsonText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
