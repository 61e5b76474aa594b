package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kode4food/waypoint/pkg/api"
)

// SQLite is a Store keeping JSON documents in a SQLite database
type SQLite struct {
	db *sql.DB
}

const sqliteDriver = "sqlite"

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and prepares its
// schema. ":memory:" yields a private in-memory database
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	s, err := NewSQLite(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite prepares the schema in an open database
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS graphs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		doc BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		graph_id TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		doc BLOB NOT NULL
	)`,
}

func (s *SQLite) initSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) PutGraph(ctx context.Context, g *api.Graph) error {
	if g.ID == "" {
		return ErrMissingID
	}
	data, err := encodeGraph(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graphs (id, created_at, doc) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at, doc = excluded.doc`,
		string(g.ID), unixNano(g.CreatedAt), data,
	)
	return err
}

func (s *SQLite) GetGraph(ctx context.Context, id api.GraphID) (*api.Graph, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM graphs WHERE id = ?`, string(id),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrGraphNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeGraph(data)
}

func (s *SQLite) ListGraphs(ctx context.Context) ([]*api.Graph, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM graphs ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []*api.Graph
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		g, err := decodeGraph(data)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func (s *SQLite) DeleteGraph(ctx context.Context, id api.GraphID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM graphs WHERE id = ?`, string(id),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return api.ErrGraphNotFound
	}
	return nil
}

func (s *SQLite) PutRun(ctx context.Context, r *api.Run) error {
	if r.ID == "" {
		return ErrMissingID
	}
	data, err := encodeRun(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, graph_id, status, started_at, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			graph_id = excluded.graph_id, status = excluded.status,
			started_at = excluded.started_at, doc = excluded.doc`,
		string(r.ID), string(r.GraphID), string(r.Status),
		unixNano(r.StartedAt), data,
	)
	return err
}

func (s *SQLite) GetRun(ctx context.Context, id api.RunID) (*api.Run, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM runs WHERE id = ?`, string(id),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRun(data)
}

func (s *SQLite) ListRuns(ctx context.Context) ([]*api.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM runs ORDER BY started_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []*api.Run
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		r, err := decodeRun(data)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
