package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// ErrNoSnapshot is returned by Load when no snapshot exists for a scene.
var ErrNoSnapshot = errors.New("persist: no snapshot")

// Checksum returns the BLAKE2b-256 digest of a serialized scene.
func Checksum(body []byte) []byte {
	sum := blake2b.Sum256(body)
	return sum[:]
}

// SnapshotRow is one stored scene snapshot.
type SnapshotRow struct {
	Name     string
	Checksum []byte
	Body     []byte
	Entities int32
	SavedAt  time.Time
}

// Unchanged reports whether body matches the stored snapshot.
func (r *SnapshotRow) Unchanged(body []byte) bool {
	return bytes.Equal(r.Checksum, Checksum(body))
}

// SnapshotLogRow is one entry of the append-only snapshot history.
type SnapshotLogRow struct {
	ID       int64
	Checksum []byte
	Entities int32
	SavedAt  time.Time
}

// SnapshotRepo stores serialized scenes, one current snapshot per scene name.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save upserts the snapshot of a scene and appends to its history in one
// transaction. A body whose checksum matches the stored one is not written;
// saved reports whether a write happened.
func (r *SnapshotRepo) Save(ctx context.Context, name string, body []byte, entities int) (saved bool, err error) {
	sum := Checksum(body)

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO scene_snapshots (name, checksum, body, entities, saved_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (name) DO UPDATE
		 SET checksum = EXCLUDED.checksum, body = EXCLUDED.body,
		     entities = EXCLUDED.entities, saved_at = EXCLUDED.saved_at
		 WHERE scene_snapshots.checksum <> EXCLUDED.checksum`,
		name, sum, string(body), int32(entities),
	)
	if err != nil {
		return false, fmt.Errorf("snapshot upsert %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO scene_snapshot_log (name, checksum, entities) VALUES ($1, $2, $3)`,
		name, sum, int32(entities),
	); err != nil {
		return false, fmt.Errorf("snapshot log %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("snapshot commit %s: %w", name, err)
	}
	r.db.log.Debug("snapshot saved", zap.String("scene", name), zap.Int("entities", entities))
	return true, nil
}

// Load returns the current snapshot of a scene, or ErrNoSnapshot.
func (r *SnapshotRepo) Load(ctx context.Context, name string) (*SnapshotRow, error) {
	row := &SnapshotRow{}
	var body string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, checksum, body, entities, saved_at
		 FROM scene_snapshots WHERE name = $1`, name,
	).Scan(&row.Name, &row.Checksum, &body, &row.Entities, &row.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	row.Body = []byte(body)
	return row, nil
}

// List returns every stored snapshot without bodies, newest first.
func (r *SnapshotRepo) List(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, checksum, entities, saved_at
		 FROM scene_snapshots ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		if err := rows.Scan(&s.Name, &s.Checksum, &s.Entities, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// History returns up to limit log entries for a scene, newest first.
func (r *SnapshotRepo) History(ctx context.Context, name string, limit int) ([]SnapshotLogRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, checksum, entities, saved_at
		 FROM scene_snapshot_log WHERE name = $1
		 ORDER BY saved_at DESC, id DESC LIMIT $2`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot history %s: %w", name, err)
	}
	defer rows.Close()

	var out []SnapshotLogRow
	for rows.Next() {
		var l SnapshotLogRow
		if err := rows.Scan(&l.ID, &l.Checksum, &l.Entities, &l.SavedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete removes the current snapshot of a scene. History is kept.
func (r *SnapshotRepo) Delete(ctx context.Context, name string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM scene_snapshots WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}
