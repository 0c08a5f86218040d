package evaluation

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists evaluation results in journal.db.
// Verdicts are stored as a JSON column: they are read back only for display,
// never queried individually.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new evaluation repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "evaluations").Logger(),
	}
}

// Save stores an evaluation result.
func (r *Repository) Save(result ScoreResult) error {
	verdicts, err := json.Marshal(result.Verdicts)
	if err != nil {
		return fmt.Errorf("failed to encode verdicts for evaluation %s: %w", result.ID, err)
	}

	_, err = r.db.Exec(
		`INSERT INTO evaluations
		 (id, symbol, policy_id, short_strike, long_strike, expiration, final_score,
		  grade, compliance, tier, weight_coverage, composite_score, verdicts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.Symbol,
		result.PolicyID,
		result.ShortStrike,
		result.LongStrike,
		result.Expiration,
		result.FinalScore,
		result.Grade,
		result.Compliance,
		string(result.Tier),
		result.WeightCoverage,
		result.CompositeScore,
		string(verdicts),
		result.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation %s: %w", result.ID, err)
	}

	return nil
}

// Get loads one evaluation by id. Returns nil if not found (not an error).
func (r *Repository) Get(id string) (*ScoreResult, error) {
	row := r.db.QueryRow(selectColumns+` FROM evaluations WHERE id = ?`, id)

	result, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation %s: %w", id, err)
	}

	return result, nil
}

// List returns the most recent evaluations, optionally filtered by symbol.
func (r *Repository) List(symbol string, limit int) ([]ScoreResult, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if symbol != "" {
		rows, err = r.db.Query(
			selectColumns+` FROM evaluations WHERE symbol = ? ORDER BY created_at DESC, id LIMIT ?`,
			symbol, limit,
		)
	} else {
		rows, err = r.db.Query(
			selectColumns+` FROM evaluations ORDER BY created_at DESC, id LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var results []ScoreResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate evaluations: %w", err)
	}

	return results, nil
}

const selectColumns = `SELECT id, symbol, policy_id, short_strike, long_strike, expiration,
	final_score, grade, compliance, tier, weight_coverage, composite_score, verdicts, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (*ScoreResult, error) {
	var (
		result    ScoreResult
		tier      string
		verdicts  string
		createdAt int64
	)
	err := row.Scan(
		&result.ID, &result.Symbol, &result.PolicyID, &result.ShortStrike, &result.LongStrike,
		&result.Expiration, &result.FinalScore, &result.Grade, &result.Compliance, &tier,
		&result.WeightCoverage, &result.CompositeScore, &verdicts, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(verdicts), &result.Verdicts); err != nil {
		return nil, fmt.Errorf("failed to decode verdicts for evaluation %s: %w", result.ID, err)
	}

	result.Tier = Tier(tier)
	result.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &result, nil
}
