package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/byggekatalog/internal/store"
)

// Snapshot is a previously loaded catalog payload. Payload holds the
// normalized product array exactly as it was loaded.
type Snapshot struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	ProductCount int       `json:"product_count"`
	Payload      []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SnapshotRepository persists catalog snapshots for the cache tier.
type SnapshotRepository interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, source string, payload []byte, productCount int) (*Snapshot, error)

	// Latest returns the most recent snapshot, or ErrNotFound.
	Latest(ctx context.Context) (*Snapshot, error)

	// List returns snapshot metadata without payloads.
	List(ctx context.Context, opts ListOptions) (*ListResult[Snapshot], error)

	// Prune deletes all but the newest keep snapshots and reports how many
	// were removed.
	Prune(ctx context.Context, keep int) (int64, error)
}

// Compile-time interface guard.
var _ SnapshotRepository = (*SQLiteSnapshotRepository)(nil)

// SQLiteSnapshotRepository implements SnapshotRepository using SQLite.
type SQLiteSnapshotRepository struct {
	db  *sql.DB
	now func() time.Time
}

// SnapshotOption configures a SQLiteSnapshotRepository.
type SnapshotOption func(*SQLiteSnapshotRepository)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) SnapshotOption {
	return func(r *SQLiteSnapshotRepository) { r.now = now }
}

// NewSQLiteSnapshotRepository creates a SnapshotRepository and runs the
// catalog snapshot migrations.
func NewSQLiteSnapshotRepository(ctx context.Context, s store.Store, opts ...SnapshotOption) (*SQLiteSnapshotRepository, error) {
	if err := s.Migrate(ctx, "catalog", snapshotMigrations); err != nil {
		return nil, fmt.Errorf("catalog snapshot migrations: %w", err)
	}
	r := &SQLiteSnapshotRepository{db: s.DB(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *SQLiteSnapshotRepository) Save(ctx context.Context, source string, payload []byte, productCount int) (*Snapshot, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	snap := &Snapshot{
		ID:           uuid.New().String(),
		Source:       source,
		ProductCount: productCount,
		Payload:      append([]byte(nil), payload...),
		CreatedAt:    r.now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO catalog_snapshots (id, source, product_count, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.Source, snap.ProductCount, snap.Payload, snap.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

func (r *SQLiteSnapshotRepository) Latest(ctx context.Context) (*Snapshot, error) {
	var s Snapshot
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, product_count, payload, created_at
		 FROM catalog_snapshots
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT 1`,
	).Scan(&s.ID, &s.Source, &s.ProductCount, &s.Payload, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &s, nil
}

// snapshotSortColumns whitelists sortable columns.
var snapshotSortColumns = map[string]string{
	"created_at":    "created_at",
	"product_count": "product_count",
	"source":        "source",
}

func (r *SQLiteSnapshotRepository) List(ctx context.Context, opts ListOptions) (*ListResult[Snapshot], error) {
	opts = normalizeListOptions(opts)
	col, ok := snapshotSortColumns[opts.SortBy]
	if !ok {
		col = "created_at"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_snapshots`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}

	// col and SortOrder are whitelisted above.
	query := fmt.Sprintf(
		`SELECT id, source, product_count, created_at FROM catalog_snapshots
		 ORDER BY %s %s, rowid %s LIMIT ? OFFSET ?`, col, opts.SortOrder, opts.SortOrder)
	rows, err := r.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	items := make([]Snapshot, 0)
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.Source, &s.ProductCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return &ListResult[Snapshot]{Items: items, Total: total}, nil
}

func (r *SQLiteSnapshotRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM catalog_snapshots WHERE rowid NOT IN (
			SELECT rowid FROM catalog_snapshots ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return n, nil
}

var snapshotMigrations = []store.Migration{
	{
		Version:     1,
		Description: "create catalog_snapshots table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE catalog_snapshots (
					id            TEXT PRIMARY KEY,
					source        TEXT NOT NULL,
					product_count INTEGER NOT NULL DEFAULT 0,
					payload       BLOB NOT NULL,
					created_at    DATETIME NOT NULL
				)`)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`CREATE INDEX idx_catalog_snapshots_created ON catalog_snapshots(created_at)`)
			return err
		},
	},
}
