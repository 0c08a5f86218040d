package chains

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotRepository handles chain snapshot persistence in cache.db.
// Legs are stored as a single msgpack blob per snapshot; snapshots are
// write-once and looked up by symbol, newest first.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new chain snapshot repository.
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repository", "chain_snapshots").Logger(),
	}
}

// Save stores a snapshot and returns it with ID and CreatedAt populated.
func (r *SnapshotRepository) Save(snapshot ChainSnapshot) (ChainSnapshot, error) {
	if err := snapshot.Validate(); err != nil {
		return ChainSnapshot{}, err
	}

	legs, err := msgpack.Marshal(snapshot.Legs)
	if err != nil {
		return ChainSnapshot{}, fmt.Errorf("failed to encode legs for %s: %w", snapshot.Symbol, err)
	}

	snapshot.ID = uuid.NewString()
	snapshot.CreatedAt = time.Now().UTC()

	_, err = r.db.Exec(
		`INSERT INTO chain_snapshots (id, symbol, as_of, underlying, legs, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snapshot.ID,
		snapshot.Symbol,
		snapshot.AsOf.UTC().Unix(),
		snapshot.Underlying,
		legs,
		snapshot.CreatedAt.Unix(),
	)
	if err != nil {
		return ChainSnapshot{}, fmt.Errorf("failed to save chain snapshot for %s: %w", snapshot.Symbol, err)
	}

	r.log.Debug().
		Str("symbol", snapshot.Symbol).
		Int("legs", len(snapshot.Legs)).
		Msg("Chain snapshot saved")

	return snapshot, nil
}

// Latest returns the most recent snapshot for a symbol.
// Returns nil if no snapshot exists (not an error).
func (r *SnapshotRepository) Latest(symbol string) (*ChainSnapshot, error) {
	row := r.db.QueryRow(
		`SELECT id, symbol, as_of, underlying, legs, created_at
		 FROM chain_snapshots
		 WHERE symbol = ?
		 ORDER BY as_of DESC, created_at DESC
		 LIMIT 1`,
		symbol,
	)

	var (
		snapshot  ChainSnapshot
		asOf      int64
		legsBlob  []byte
		createdAt int64
	)
	err := row.Scan(&snapshot.ID, &snapshot.Symbol, &asOf, &snapshot.Underlying, &legsBlob, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest chain snapshot for %s: %w", symbol, err)
	}

	if err := msgpack.Unmarshal(legsBlob, &snapshot.Legs); err != nil {
		return nil, fmt.Errorf("failed to decode legs for %s: %w", symbol, err)
	}

	snapshot.AsOf = time.Unix(asOf, 0).UTC()
	snapshot.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &snapshot, nil
}

// PruneBefore removes snapshots whose as_of is older than the cutoff.
// Returns the number of snapshots removed.
func (r *SnapshotRepository) PruneBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM chain_snapshots WHERE as_of < ?`, cutoff.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune chain snapshots: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned chain snapshots: %w", err)
	}

	if removed > 0 {
		r.log.Info().Int64("removed", removed).Msg("Pruned old chain snapshots")
	}

	return removed, nil
}
