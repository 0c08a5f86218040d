package evaluation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/candidates"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/policy"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/scoring"
)

// Options controls how a candidate evaluation is assembled.
type Options struct {
	// IncludeComposite folds the composite quality score into the weighted
	// average as one more factor with CompositeWeight.
	IncludeComposite bool    `json:"include_composite"`
	CompositeWeight  float64 `json:"composite_weight"`

	// Persist writes results to the journal.
	Persist bool `json:"persist"`
}

// BatchSummary carries distribution statistics over a batch's final scores,
// for the dashboard's at-a-glance view of a generation run.
type BatchSummary struct {
	Count      int          `json:"count"`
	Mean       float64      `json:"mean"`
	StdDev     float64      `json:"std_dev"`
	Min        float64      `json:"min"`
	Max        float64      `json:"max"`
	Median     float64      `json:"median"`
	Q1         float64      `json:"q1"`
	Q3         float64      `json:"q3"`
	TierCounts map[Tier]int `json:"tier_counts"`
}

// BatchResult is the outcome of evaluating a set of candidates. Failed
// candidates are reported per-candidate and never abort the batch.
type BatchResult struct {
	Results []ScoreResult `json:"results"`
	Errors  []string      `json:"errors"`
	Summary BatchSummary  `json:"summary"`
}

// Service orchestrates candidate evaluation: composite scoring, per-factor
// scoring, aggregation, journaling, and batch fan-out.
type Service struct {
	repo       *Repository
	workers    int
	thresholds SeverityThresholds
	log        zerolog.Logger
}

// NewService creates a new evaluation service. repo may be nil for callers
// that never persist.
func NewService(repo *Repository, workers int, thresholds SeverityThresholds, log zerolog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		repo:       repo,
		workers:    workers,
		thresholds: thresholds,
		log:        log.With().Str("module", "evaluation").Logger(),
	}
}

// EvaluateCandidate scores one candidate against a policy and the resolved
// factor observations, returning a fresh immutable ScoreResult.
func (s *Service) EvaluateCandidate(
	candidate candidates.CandidateSpread,
	pol policy.Policy,
	observations ObservationSet,
	opts Options,
) (ScoreResult, error) {
	composite, err := scoring.ScoreComposite(candidate)
	if err != nil {
		return ScoreResult{}, err
	}

	var extras []ExtraComponent
	if opts.IncludeComposite {
		weight := opts.CompositeWeight
		if weight < 0 {
			return ScoreResult{}, fmt.Errorf("evaluate %s: composite weight must be >= 0, got %g", candidate.Describe(), weight)
		}
		extras = append(extras, ExtraComponent{
			Key:    "composite_quality",
			Name:   "Composite quality",
			Score:  float64(composite),
			Weight: weight,
		})
	}

	aggregate, err := Aggregate(pol.EnabledFactors(), observations, extras, s.thresholds)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("evaluate %s: %w", candidate.Describe(), err)
	}

	result := ScoreResult{
		ID:             uuid.NewString(),
		Symbol:         candidate.Symbol,
		PolicyID:       pol.ID,
		ShortStrike:    candidate.Short.Strike,
		LongStrike:     candidate.Long.Strike,
		Expiration:     candidate.Short.Expiration.Format("2006-01-02"),
		FinalScore:     aggregate.FinalScore,
		Grade:          aggregate.Grade,
		Compliance:     aggregate.Compliance,
		Tier:           aggregate.Tier,
		WeightCoverage: aggregate.WeightCoverage,
		CompositeScore: composite,
		Verdicts:       aggregate.Verdicts,
		CreatedAt:      time.Now().UTC(),
	}

	if opts.Persist {
		if s.repo == nil {
			return ScoreResult{}, fmt.Errorf("evaluate %s: persistence requested but no repository configured", candidate.Describe())
		}
		if err := s.repo.Save(result); err != nil {
			return ScoreResult{}, err
		}
	}

	return result, nil
}

// EvaluateBatch fans candidate evaluations out over the worker pool.
// Candidates share one observation set (factor observations are resolved per
// symbol); the composite component is computed per candidate. One
// candidate's failure cannot corrupt another's result: failures are
// collected as per-candidate errors. Results keep the input order so
// repeated runs are byte-identical.
func (s *Service) EvaluateBatch(
	cands []candidates.CandidateSpread,
	pol policy.Policy,
	observations ObservationSet,
	opts Options,
) (BatchResult, error) {
	type indexed struct {
		index  int
		result ScoreResult
		err    error
	}

	// Persistence happens after the parallel phase to keep workers pure.
	workerOpts := opts
	workerOpts.Persist = false

	jobs := make(chan int)
	out := make(chan indexed, len(cands))

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result, err := s.EvaluateCandidate(cands[i], pol, observations, workerOpts)
				out <- indexed{index: i, result: result, err: err}
			}
		}()
	}

	start := time.Now()
	for i := range cands {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]ScoreResult, 0, len(cands))
	byIndex := make(map[int]indexed, len(cands))
	for item := range out {
		byIndex[item.index] = item
	}

	var errs []string
	for i := 0; i < len(cands); i++ {
		item := byIndex[i]
		if item.err != nil {
			errs = append(errs, item.err.Error())
			continue
		}
		results = append(results, item.result)
	}

	if opts.Persist && s.repo != nil {
		for i := range results {
			if err := s.repo.Save(results[i]); err != nil {
				return BatchResult{}, err
			}
		}
	}

	s.log.Info().
		Int("candidates", len(cands)).
		Int("scored", len(results)).
		Int("failed", len(errs)).
		Dur("elapsed", time.Since(start)).
		Msg("Batch evaluation completed")

	return BatchResult{
		Results: results,
		Errors:  errs,
		Summary: summarize(results),
	}, nil
}

// summarize computes distribution statistics over the batch's final scores.
func summarize(results []ScoreResult) BatchSummary {
	summary := BatchSummary{
		Count:      len(results),
		TierCounts: make(map[Tier]int),
	}
	if len(results) == 0 {
		return summary
	}

	scores := make([]float64, 0, len(results))
	for _, r := range results {
		scores = append(scores, r.FinalScore)
		summary.TierCounts[r.Tier]++
	}
	sort.Float64s(scores)

	summary.Mean = stat.Mean(scores, nil)
	if len(scores) > 1 {
		summary.StdDev = stat.StdDev(scores, nil)
	}
	summary.Min = scores[0]
	summary.Max = scores[len(scores)-1]
	summary.Median = stat.Quantile(0.5, stat.Empirical, scores, nil)
	summary.Q1 = stat.Quantile(0.25, stat.Empirical, scores, nil)
	summary.Q3 = stat.Quantile(0.75, stat.Empirical, scores, nil)

	return summary
}
