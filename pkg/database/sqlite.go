package database

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// storageJSON encodes documents by their bson tags so a SQLite row holds the
// same field names a MongoDB document would.
var storageJSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	TagKey:                 "bson",
}.Froze()

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const memoryPath = ":memory:"

// SQLiteStore keeps every collection as a table of (id, JSON body) rows.
type SQLiteStore struct {
	DB *sql.DB
	mu sync.Mutex
	// tables already created in this process
	ready map[string]bool
}

func EnsureDataDir(path string) error {
	if path == memoryPath {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := EnsureDataDir(path); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == memoryPath {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{DB: db, ready: make(map[string]bool)}, nil
}

func (s *SQLiteStore) Collection(name string) Collection {
	return &sqliteCollection{store: s, name: name}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLiteStore) Close(_ context.Context) error {
	return s.DB.Close()
}

func (s *SQLiteStore) ensureTable(ctx context.Context, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready[name] {
		return nil
	}

	_, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
			id   TEXT PRIMARY KEY,
			body TEXT NOT NULL
		)
	`, name))
	if err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	s.ready[name] = true
	return nil
}

type sqliteCollection struct {
	store *SQLiteStore
	name  string
}

func (c *sqliteCollection) Name() string { return c.name }

func (c *sqliteCollection) Insert(ctx context.Context, id primitive.ObjectID, doc any) error {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return err
	}
	body, err := storageJSON.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", c.name, id.Hex(), err)
	}

	_, err = c.store.DB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %q (id, body) VALUES (?, ?)`, c.name),
		id.Hex(), string(body))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s %s: %w", c.name, id.Hex(), ErrDuplicateKey)
		}
		return fmt.Errorf("insert %s %s: %w", c.name, id.Hex(), err)
	}
	return nil
}

func (c *sqliteCollection) FindAll(ctx context.Context, out any) error {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return err
	}

	rows, err := c.store.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT body FROM %q ORDER BY rowid`, c.name))
	if err != nil {
		return fmt.Errorf("find %s: %w", c.name, err)
	}
	defer rows.Close()

	// decode all rows in one pass by assembling a JSON array
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return fmt.Errorf("scan %s: %w", c.name, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(body)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows %s: %w", c.name, err)
	}
	buf.WriteByte(']')

	if err := storageJSON.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("decode %s: %w", c.name, err)
	}
	return nil
}

func (c *sqliteCollection) FindByID(ctx context.Context, id primitive.ObjectID, out any) error {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return err
	}
	row := c.store.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT body FROM %q WHERE id = ?`, c.name), id.Hex())
	return c.decodeRow(row, out)
}

func (c *sqliteCollection) FindOne(ctx context.Context, field string, value any, out any) error {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return err
	}
	if !identRe.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	if oid, ok := value.(primitive.ObjectID); ok {
		value = oid.Hex()
	}

	row := c.store.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT body FROM %q WHERE json_extract(body, ?) = ? ORDER BY rowid LIMIT 1`, c.name),
		"$."+field, value)
	return c.decodeRow(row, out)
}

func (c *sqliteCollection) decodeRow(row *sql.Row, out any) error {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("find one %s: %w", c.name, err)
	}
	if err := storageJSON.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode %s: %w", c.name, err)
	}
	return nil
}

func (c *sqliteCollection) Replace(ctx context.Context, id primitive.ObjectID, doc any) error {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return err
	}
	body, err := storageJSON.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", c.name, id.Hex(), err)
	}

	res, err := c.store.DB.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %q SET body = ? WHERE id = ?`, c.name),
		string(body), id.Hex())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("replace %s %s: %w", c.name, id.Hex(), ErrDuplicateKey)
		}
		return fmt.Errorf("replace %s %s: %w", c.name, id.Hex(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace %s rows: %w", c.name, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *sqliteCollection) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return err
	}
	res, err := c.store.DB.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, c.name), id.Hex())
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.name, id.Hex(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows: %w", c.name, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *sqliteCollection) EnsureUniqueIndex(ctx context.Context, field string) error {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return err
	}
	if !identRe.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}

	// index expressions cannot take bound parameters
	_, err := c.store.DB.ExecContext(ctx, fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %q ON %q (json_extract(body, '$.%s'))`,
		c.name+"_"+field+"_unique", c.name, field))
	if err != nil {
		return fmt.Errorf("create unique index %s.%s: %w", c.name, field, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
