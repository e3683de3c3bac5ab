package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/teemow/pillminder/internal/prescription"
)

// ErrNotFound is returned when no prescription matches the owner and id.
var ErrNotFound = errors.New("prescription not found")

// Record is a saved prescription.
type Record struct {
	ID           string                    `json:"id"`
	Owner        string                    `json:"-"`
	Prescription prescription.Prescription `json:"prescription"`
	CreatedAt    time.Time                 `json:"createdAt"`
}

// row is the database shape of a Record. Dose times are stored
// comma-joined in their original order.
type row struct {
	ID          string    `db:"id"`
	Owner       string    `db:"owner"`
	DrugName    string    `db:"drug_name"`
	Dose        string    `db:"dose"`
	Days        int       `db:"days"`
	TimesPerDay int       `db:"times_per_day"`
	Times       string    `db:"times"`
	StartDate   string    `db:"start_date"`
	TimeZone    string    `db:"time_zone"`
	Notes       string    `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
}

const columns = `id, owner, drug_name, dose, days, times_per_day, times, start_date, time_zone, notes, created_at`

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS prescriptions (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		drug_name TEXT NOT NULL,
		dose TEXT NOT NULL DEFAULT '',
		days INTEGER NOT NULL,
		times_per_day INTEGER NOT NULL,
		times TEXT NOT NULL,
		start_date TEXT NOT NULL,
		time_zone TEXT NOT NULL DEFAULT 'UTC',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prescriptions_owner ON prescriptions(owner)`,
}

// Store is a SQLite-backed prescription store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create validates p (after filling defaults) and saves it for owner.
func (s *Store) Create(ctx context.Context, owner string, p prescription.Prescription) (*Record, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:           uuid.NewString(),
		Owner:        owner,
		Prescription: p,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}

	query := `INSERT INTO prescriptions (` + columns + `)
		VALUES (:id, :owner, :drug_name, :dose, :days, :times_per_day, :times, :start_date, :time_zone, :notes, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, query, toRow(rec)); err != nil {
		return nil, fmt.Errorf("failed to insert prescription: %w", err)
	}
	return rec, nil
}

// Get returns owner's prescription with the given id.
func (s *Store) Get(ctx context.Context, owner, id string) (*Record, error) {
	var r row
	query := `SELECT ` + columns + ` FROM prescriptions WHERE id = ? AND owner = ?`
	if err := s.db.GetContext(ctx, &r, query, id, owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prescription %s: %w", id, err)
	}
	return r.toRecord(), nil
}

// List returns owner's prescriptions, oldest first.
func (s *Store) List(ctx context.Context, owner string) ([]Record, error) {
	query := `SELECT ` + columns + ` FROM prescriptions WHERE owner = ? ORDER BY created_at ASC, id ASC`
	return s.selectRecords(ctx, query, owner)
}

// ListAll returns every saved prescription across owners.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	query := `SELECT ` + columns + ` FROM prescriptions ORDER BY owner ASC, created_at ASC, id ASC`
	return s.selectRecords(ctx, query)
}

// Delete removes owner's prescription with the given id.
func (s *Store) Delete(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prescriptions WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete prescription %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete prescription %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) selectRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, *r.toRecord())
	}
	return records, nil
}

func toRow(rec *Record) row {
	p := rec.Prescription
	return row{
		ID:          rec.ID,
		Owner:       rec.Owner,
		DrugName:    p.DrugName,
		Dose:        p.Dose,
		Days:        p.Days,
		TimesPerDay: p.TimesPerDay,
		Times:       strings.Join(p.Times, ","),
		StartDate:   p.StartDate,
		TimeZone:    p.TimeZone,
		Notes:       p.Notes,
		CreatedAt:   rec.CreatedAt,
	}
}

func (r row) toRecord() *Record {
	var times []string
	if r.Times != "" {
		times = strings.Split(r.Times, ",")
	}
	return &Record{
		ID:    r.ID,
		Owner: r.Owner,
		Prescription: prescription.Prescription{
			DrugName:    r.DrugName,
			Dose:        r.Dose,
			Days:        r.Days,
			TimesPerDay: r.TimesPerDay,
			Times:       times,
			StartDate:   r.StartDate,
			TimeZone:    r.TimeZone,
			Notes:       r.Notes,
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
}
