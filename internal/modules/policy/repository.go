package policy

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles policy persistence in policy.db.
// Rows are re-validated through the builder on load, so a hand-edited or
// corrupted row surfaces as an error instead of producing garbage scores.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new policy repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "policy").Logger(),
	}
}

// Create stores a new policy and its factors, returning it with IDs assigned.
func (r *Repository) Create(p Policy) (Policy, error) {
	// Run the policy through the builder so invalid definitions are
	// rejected before anything touches the database.
	validated, err := rebuild(p)
	if err != nil {
		return Policy{}, err
	}
	p = validated

	tx, err := r.db.Begin()
	if err != nil {
		return Policy{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	result, err := tx.Exec(
		`INSERT INTO policies (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		p.Name, p.Description, now.Unix(), now.Unix(),
	)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to insert policy %s: %w", p.Name, err)
	}

	policyID, err := result.LastInsertId()
	if err != nil {
		return Policy{}, fmt.Errorf("failed to get policy id: %w", err)
	}

	for i := range p.Factors {
		if err := insertFactor(tx, policyID, &p.Factors[i]); err != nil {
			return Policy{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Policy{}, fmt.Errorf("failed to commit policy %s: %w", p.Name, err)
	}

	p.ID = policyID
	p.CreatedAt = now
	p.UpdatedAt = now

	r.log.Info().Str("name", p.Name).Int64("id", p.ID).Int("factors", len(p.Factors)).Msg("Policy created")

	return p, nil
}

// Update replaces a policy's metadata and factor set.
func (r *Repository) Update(p Policy) (Policy, error) {
	if p.ID == 0 {
		return Policy{}, &ValidationError{Reason: "policy id is required for update"}
	}

	validated, err := rebuild(p)
	if err != nil {
		return Policy{}, err
	}
	validated.ID = p.ID
	p = validated

	tx, err := r.db.Begin()
	if err != nil {
		return Policy{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	result, err := tx.Exec(
		`UPDATE policies SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, now.Unix(), p.ID,
	)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to update policy %d: %w", p.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Policy{}, fmt.Errorf("failed to check update of policy %d: %w", p.ID, err)
	}
	if affected == 0 {
		return Policy{}, fmt.Errorf("policy %d not found", p.ID)
	}

	// Factor set is replaced wholesale; factor IDs are not stable across updates.
	if _, err := tx.Exec(`DELETE FROM policy_factors WHERE policy_id = ?`, p.ID); err != nil {
		return Policy{}, fmt.Errorf("failed to clear factors for policy %d: %w", p.ID, err)
	}

	for i := range p.Factors {
		if err := insertFactor(tx, p.ID, &p.Factors[i]); err != nil {
			return Policy{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Policy{}, fmt.Errorf("failed to commit policy %d: %w", p.ID, err)
	}

	p.UpdatedAt = now

	return p, nil
}

// Get loads a policy with its factors. Returns nil if not found (not an error).
func (r *Repository) Get(id int64) (*Policy, error) {
	row := r.db.QueryRow(
		`SELECT id, name, description, created_at, updated_at FROM policies WHERE id = ?`, id,
	)

	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy %d: %w", id, err)
	}

	factors, err := r.loadFactors(p.ID)
	if err != nil {
		return nil, err
	}
	p.Factors = factors

	// Re-validate on the way out.
	if _, err := rebuild(*p); err != nil {
		return nil, fmt.Errorf("policy %d failed validation on load: %w", id, err)
	}

	return p, nil
}

// List returns all policies with their factors, newest first.
func (r *Repository) List() ([]Policy, error) {
	rows, err := r.db.Query(
		`SELECT id, name, description, created_at, updated_at FROM policies ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policies: %w", err)
	}

	for i := range policies {
		factors, err := r.loadFactors(policies[i].ID)
		if err != nil {
			return nil, err
		}
		policies[i].Factors = factors
	}

	return policies, nil
}

// Delete removes a policy and its factors.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of policy %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("policy %d not found", id)
	}
	return nil
}

func (r *Repository) loadFactors(policyID int64) ([]PolicyFactor, error) {
	rows, err := r.db.Query(
		`SELECT id, factor_key, name, weight, rule, target, target_max, kind, enabled, display_order
		 FROM policy_factors
		 WHERE policy_id = ?
		 ORDER BY display_order, id`,
		policyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load factors for policy %d: %w", policyID, err)
	}
	defer rows.Close()

	var factors []PolicyFactor
	for rows.Next() {
		var (
			f         PolicyFactor
			targetMax sql.NullFloat64
			enabled   int
		)
		err := rows.Scan(&f.ID, &f.Key, &f.Name, &f.Weight, &f.Rule, &f.Target, &targetMax, &f.Kind, &enabled, &f.DisplayOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to scan factor for policy %d: %w", policyID, err)
		}
		if targetMax.Valid {
			v := targetMax.Float64
			f.TargetMax = &v
		}
		f.Enabled = enabled != 0
		factors = append(factors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate factors for policy %d: %w", policyID, err)
	}

	return factors, nil
}

func insertFactor(tx *sql.Tx, policyID int64, f *PolicyFactor) error {
	var targetMax interface{}
	if f.TargetMax != nil {
		targetMax = *f.TargetMax
	}

	enabled := 0
	if f.Enabled {
		enabled = 1
	}

	result, err := tx.Exec(
		`INSERT INTO policy_factors (policy_id, factor_key, name, weight, rule, target, target_max, kind, enabled, display_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		policyID, f.Key, f.Name, f.Weight, string(f.Rule), f.Target, targetMax, string(f.Kind), enabled, f.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to insert factor %s: %w", f.Key, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get factor id for %s: %w", f.Key, err)
	}
	f.ID = id

	return nil
}

// rebuild runs a policy through the builder to enforce all construction-time
// invariants, preserving IDs and timestamps of the input.
func rebuild(p Policy) (Policy, error) {
	b := NewBuilder(p.Name).Description(p.Description)
	for _, f := range p.Factors {
		b.AddFactor(f)
	}
	validated, err := b.Build()
	if err != nil {
		return Policy{}, err
	}
	validated.ID = p.ID
	validated.CreatedAt = p.CreatedAt
	validated.UpdatedAt = p.UpdatedAt
	return validated, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPolicy(row rowScanner) (*Policy, error) {
	var (
		p         Policy
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}
