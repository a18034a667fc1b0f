package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cesargomez89/quarry/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// SQLite stores every collection in a single table and filters with json_extract.
type SQLite struct {
	db *sqlx.DB
}

// sqlitePragmas are part of the DSN so that every pooled connection gets
// them, not just the one a PRAGMA statement happens to run on.
const sqlitePragmas = "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)"

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}

func NewSQLite(dsn string, indexes ...Index) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// SQLite allows one writer. A single connection makes the worker and
	// HTTP handlers wait their turn instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	for _, idx := range indexes {
		if err := checkField(idx.Field); err != nil {
			db.Close()
			return nil, err
		}
		stmt := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_documents_%s ON documents(collection, json_extract(data, '$.%s'))",
			idx.Field, idx.Field,
		)
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index on %s: %w", idx.Field, err)
		}
	}

	return &SQLite{db: db}, nil
}

const upsertDocument = `
	INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
`

func (s *SQLite) Put(ctx context.Context, collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertDocument, collection, id, string(data), time.Now().UTC()); err != nil {
		return persistenceError("put "+collection, 0, err)
	}
	return nil
}

func (s *SQLite) BatchPut(ctx context.Context, collection string, docs []Doc, maxBatch int) (int, error) {
	written := 0
	for _, chunk := range chunks(docs, maxBatch) {
		err := s.runInTx(ctx, func(tx *sqlx.Tx) error {
			now := time.Now().UTC()
			for _, d := range chunk {
				data, err := json.Marshal(d.Data)
				if err != nil {
					return fmt.Errorf("encode %s/%s: %w", collection, d.ID, err)
				}
				if _, err := tx.ExecContext(ctx, upsertDocument, collection, d.ID, string(data), now); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return written, persistenceError("batch put "+collection, written, err)
		}
		written += len(chunk)
	}
	return written, nil
}

func (s *SQLite) Get(ctx context.Context, collection, id string, dest any) error {
	var data string
	err := s.db.GetContext(ctx, &data, "SELECT data FROM documents WHERE collection = ? AND id = ?", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal([]byte(data), dest)
}

func (s *SQLite) Query(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error) {
	var (
		where strings.Builder
		args  = []any{collection}
	)
	where.WriteString("collection = ?")

	fields := make([]string, 0, len(filter))
	for f := range filter {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		if err := checkField(f); err != nil {
			return nil, err
		}
		fmt.Fprintf(&where, " AND json_extract(data, '$.%s') = ?", f)
		args = append(args, sqliteValue(filter[f]))
	}

	var rows []string
	query := "SELECT data FROM documents WHERE " + where.String() + " ORDER BY id"
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = json.RawMessage(r)
	}
	return out, nil
}

func (s *SQLite) Delete(ctx context.Context, collection string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM documents WHERE collection = ? AND id IN (?)", collection, ids)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return persistenceError("delete "+collection, 0, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) runInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// json_extract returns JSON booleans as integers.
func sqliteValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
