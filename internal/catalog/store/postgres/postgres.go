// Package postgres persists the catalog in PostgreSQL. Each record is stored as
// a JSONB document next to the columns used for lookups and ordering.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"complyhub/internal/hierarchy"
	"complyhub/pkg/platform/sentinel"
	"complyhub/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Open connects with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the catalog tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply catalog schema: %w", err)
	}
	return nil
}

// Store bundles the catalog record stores over one database handle.
type Store struct {
	db *sql.DB

	Standards    *StandardStore
	Categories   *CategoryStore
	Domains      *DomainStore
	Requirements *RequirementStore
	Controls     *ControlStore
	Questions    *QuestionStore
	Tools        *ToolStore
	Zones        *ZoneStore
	Certs        *CertificationStore
}

func New(db *sql.DB) *Store {
	s := &Store{db: db}
	s.Standards = &StandardStore{s: s}
	s.Categories = &CategoryStore{s: s}
	s.Domains = &DomainStore{s: s}
	s.Requirements = &RequirementStore{s: s}
	s.Controls = &ControlStore{s: s}
	s.Questions = &QuestionStore{s: s}
	s.Tools = &ToolStore{s: s}
	s.Zones = &ZoneStore{s: s}
	s.Certs = &CertificationStore{s: s}
	return s
}

// RunInTx runs fn inside a transaction carried on the context. Nested calls
// join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, s.db, fn)
}

func (s *Store) exec(ctx context.Context) tx.Executor {
	return tx.Use(ctx, s.db)
}

// mapErr turns driver errors into store sentinels.
func mapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, sentinel.ErrAlreadyUsed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// column is one indexed value stored beside the document.
type column struct {
	name  string
	value any
}

func insertDoc(ctx context.Context, s *Store, table string, key string, doc any, cols ...column) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	names := []string{"id", "doc"}
	args := []any{key, body}
	for _, c := range cols {
		names = append(names, c.name)
		args = append(args, c.value)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(names, ", "), placeholders(len(args)))
	_, err = s.exec(ctx).ExecContext(ctx, query, args...)
	return mapErr(err, "insert "+table)
}

func updateDoc(ctx context.Context, s *Store, table string, key string, doc any, cols ...column) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	sets := []string{"doc = $2"}
	args := []any{key, body}
	for _, c := range cols {
		args = append(args, c.value)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.name, len(args)))
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, table, strings.Join(sets, ", "))
	res, err := s.exec(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err, "update "+table)
	}
	return requireRow(res)
}

func findDoc[V any](ctx context.Context, s *Store, table, key string, forUpdate bool) (*V, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table)
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var body []byte
	if err := s.exec(ctx).QueryRowContext(ctx, query, key).Scan(&body); err != nil {
		return nil, mapErr(err, "find "+table)
	}
	var v V
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", table, err)
	}
	return &v, nil
}

// listDocs returns the documents matching where, oldest first.
func listDocs[V any](ctx context.Context, s *Store, table, where string, args ...any) ([]*V, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s`, table)
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY created_at, id`
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "list "+table)
	}
	defer rows.Close()

	var out []*V
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		v := new(V)
		if err := json.Unmarshal(body, v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// setPositions writes every position or none of them.
func setPositions[K hierarchy.Key](ctx context.Context, s *Store, table string, positions map[K]hierarchy.Position) error {
	if len(positions) == 0 {
		return nil
	}
	return s.RunInTx(ctx, func(ctx context.Context) error {
		query := fmt.Sprintf(`
			UPDATE %s SET
				doc = jsonb_set(doc, '{position}', $2::jsonb),
				parent_left = $3, parent_right = $4, path_level = $5, parent_path = $6
			WHERE id = $1`, table)
		for key, pos := range positions {
			body, err := json.Marshal(pos)
			if err != nil {
				return fmt.Errorf("encode position: %w", err)
			}
			res, err := s.exec(ctx).ExecContext(ctx, query, key.String(), body, pos.Left, pos.Right, pos.Level, pos.Path)
			if err != nil {
				return mapErr(err, "update positions "+table)
			}
			if err := requireRow(res); err != nil {
				return err
			}
		}
		return nil
	})
}

func setStatistics(ctx context.Context, s *Store, table, key string, stats any) error {
	body, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	query := fmt.Sprintf(`UPDATE %s SET doc = jsonb_set(doc, '{statistics}', $2::jsonb) WHERE id = $1`, table)
	res, err := s.exec(ctx).ExecContext(ctx, query, key, body)
	if err != nil {
		return mapErr(err, "update statistics "+table)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}
