// Package tracestore persists a compact per-turn trace row to SQLite for
// offline golden-trace comparison and the `tuicore trace replay`
// subcommand. It is dev/regression tooling, not application-state
// persistence: nothing in internal/app depends on a tracestore being
// present, and a turn proceeds identically whether or not one is wired.
package tracestore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/tuicore/internal/tracing"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store writes turn trace rows to a SQLite database at a configured path.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open tracestore: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracestore: %w", err)
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migration source: %w", err)
	}
	target, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", target)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Row is one turn's persisted trace record.
type Row struct {
	TurnID        string
	CommitMS      float64
	LayoutMS      float64
	RenderMS      float64
	DrawlistBytes int
	DamageRects   int
	Err           string
}

// Insert persists one turn trace row.
func (s *Store) Insert(ctx context.Context, r Row) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turn_traces (turn_id, commit_ms, layout_ms, render_ms, drawlist_bytes, damage_rects, err)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.TurnID, r.CommitMS, r.LayoutMS, r.RenderMS, r.DrawlistBytes, r.DamageRects, r.Err,
	)
	return err
}

// Replay loads every persisted row in insertion order, for `trace replay`.
func (s *Store) Replay(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_id, commit_ms, layout_ms, render_ms, drawlist_bytes, damage_rects, err
		 FROM turn_traces ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.TurnID, &r.CommitMS, &r.LayoutMS, &r.RenderMS, &r.DrawlistBytes, &r.DamageRects, &r.Err); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sink adapts a Store into a tracing.TraceSink, accumulating phase timings
// per in-flight turn (keyed by context) and flushing one Row on EndTurn.
type Sink struct {
	db *Store
}

// NewSink returns a tracing.TraceSink that persists one Row per turn to db.
func NewSink(db *Store) *Sink {
	return &Sink{db: db}
}

type turnAccumKey struct{}

type turnAccum struct {
	turnID string
	row    Row
}

func (s *Sink) BeginTurn(ctx context.Context) (context.Context, string) {
	acc := &turnAccum{turnID: uuid.NewString()}
	acc.row.TurnID = acc.turnID
	return contextWithAccum(ctx, acc), acc.turnID
}

func (s *Sink) EndTurn(ctx context.Context, err error) {
	acc := accumFrom(ctx)
	if acc == nil {
		return
	}
	if err != nil {
		acc.row.Err = err.Error()
	}
	_ = s.db.Insert(context.Background(), acc.row)
}

func (s *Sink) BeginPhase(ctx context.Context, phase tracing.Phase) context.Context {
	return ctx
}

func (s *Sink) EndPhase(ctx context.Context, phase tracing.Phase, attrs map[string]any, err error) {
	acc := accumFrom(ctx)
	if acc == nil {
		return
	}
	ms, _ := attrs["duration_ms"].(float64)
	switch phase {
	case tracing.PhaseCommit:
		acc.row.CommitMS = ms
	case tracing.PhaseLayout:
		acc.row.LayoutMS = ms
	case tracing.PhaseRender:
		acc.row.RenderMS = ms
		if b, ok := attrs["drawlist_bytes"].(int); ok {
			acc.row.DrawlistBytes = b
		}
		if d, ok := attrs["damage_rects"].(int); ok {
			acc.row.DamageRects = d
		}
	}
}

func contextWithAccum(ctx context.Context, acc *turnAccum) context.Context {
	return context.WithValue(ctx, turnAccumKey{}, acc)
}

func accumFrom(ctx context.Context) *turnAccum {
	acc, _ := ctx.Value(turnAccumKey{}).(*turnAccum)
	return acc
}
