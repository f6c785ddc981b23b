// Package history keeps a SQLite ledger of searches: one row per run and
// one row per attempted algorithm.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mirzakinn/sales-prediction/automl"
	"github.com/mirzakinn/sales-prediction/metrics"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	dataset        TEXT NOT NULL,
	target         TEXT NOT NULL,
	features_json  TEXT NOT NULL,
	tier           TEXT NOT NULL,
	grid           TEXT NOT NULL,
	sampled        INTEGER NOT NULL,
	best_algorithm TEXT NOT NULL,
	best_params    TEXT NOT NULL,
	r2             REAL,
	rmse           REAL,
	mae            REAL,
	mse            REAL,
	accuracy       REAL,
	duration_ms    INTEGER NOT NULL,
	stop_reason    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	attempt     INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	algorithm   TEXT NOT NULL,
	status      TEXT NOT NULL,
	r2          REAL,
	rmse        REAL,
	mae         REAL,
	cv_mean     REAL,
	cv_std      REAL,
	params      TEXT NOT NULL,
	error       TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS trials_run ON trials(run_id, attempt);
`

// ErrNotFound is returned by GetRun for an unknown id.
var ErrNotFound = errors.New("run not found")

// Run is one stored search.
type Run struct {
	ID            string
	SessionID     string
	CreatedAt     time.Time
	Dataset       string
	Target        string
	Features      []string
	Tier          string
	Grid          string
	Sampled       bool
	BestAlgorithm string
	BestParams    string
	Metrics       metrics.Report
	Duration      time.Duration
	StopReason    string

	// Trials is filled by GetRun only, in attempt order.
	Trials []Trial
}

// Trial is one attempted algorithm of a run. Rank is the 1-based
// leaderboard position, or 0 when the trial was not ranked.
type Trial struct {
	Attempt   int
	Rank      int
	Algorithm string
	Status    string
	Metrics   metrics.Report
	CVMean    float64
	CVStd     float64
	Params    string
	Error     string
	Duration  time.Duration
}

// NewRun converts a search outcome into a storable run.
func NewRun(out *automl.SearchOutcome, dataset, target string, features []string) Run {
	run := Run{
		SessionID:  out.SessionID,
		CreatedAt:  out.StartedAt,
		Dataset:    dataset,
		Target:     target,
		Features:   append([]string(nil), features...),
		Tier:       out.Tier.String(),
		Grid:       string(out.Policy.Grid),
		Sampled:    out.Sampled,
		Duration:   out.Duration,
		StopReason: string(out.StopReason),
	}
	if out.Best != nil {
		run.BestAlgorithm = string(out.Best.Algorithm)
		run.BestParams = out.Best.Params.String()
		run.Metrics = out.Best.Metrics
	}
	rank := make(map[automl.Algorithm]int, len(out.Ranked))
	for i, r := range out.Ranked {
		rank[r.Algorithm] = i + 1
	}
	for i, a := range out.Attempts {
		t := Trial{
			Attempt:   i + 1,
			Rank:      rank[a.Algorithm],
			Algorithm: string(a.Algorithm),
			Status:    string(a.Status),
			Metrics:   a.Metrics,
			CVMean:    a.CVMean,
			CVStd:     a.CVStd,
			Error:     a.ErrorMessage(),
			Duration:  a.Duration,
		}
		if a.Params != nil {
			t.Params = a.Params.String()
		}
		run.Trials = append(run.Trials, t)
	}
	return run
}

// Store is a run ledger backed by SQLite.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory ledger.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open history db")
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA foreign_keys=ON", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "migrate history db")
		}
	}
	return &Store{db: db, logger: log.GetLoggerWithName("history").With(log.SourceKey, path)}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores run and its trials in one transaction and returns the
// run id, generating one when run.ID is empty.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	features, err := json.Marshal(run.Features)
	if err != nil {
		return "", errors.Wrap(err, "marshal features")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, session_id, created_at, dataset, target, features_json, tier, grid,
			sampled, best_algorithm, best_params, r2, rmse, mae, mse, accuracy, duration_ms, stop_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Dataset, run.Target,
		string(features), run.Tier, run.Grid, run.Sampled, run.BestAlgorithm, run.BestParams,
		nullable(run.Metrics.R2), nullable(run.Metrics.RMSE), nullable(run.Metrics.MAE), nullable(run.Metrics.MSE),
		nullable(run.Metrics.Accuracy), run.Duration.Milliseconds(), run.StopReason,
	)
	if err != nil {
		return "", errors.Wrap(err, "insert run")
	}

	for _, t := range run.Trials {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO trials (run_id, attempt, position, algorithm, status, r2, rmse, mae, cv_mean, cv_std,
				params, error, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, t.Attempt, t.Rank, t.Algorithm, t.Status, nullable(t.Metrics.R2), nullable(t.Metrics.RMSE),
			nullable(t.Metrics.MAE), nullable(t.CVMean), nullable(t.CVStd), t.Params, t.Error, t.Duration.Milliseconds(),
		)
		if err != nil {
			return "", errors.Wrapf(err, "insert trial %s", t.Algorithm)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit")
	}
	s.logger.Info("run recorded", "run_id", run.ID, log.SessionIDKey, run.SessionID, "trials", len(run.Trials))
	return run.ID, nil
}

const runColumns = `run_id, session_id, created_at, dataset, target, features_json, tier, grid, sampled,
	best_algorithm, best_params, r2, rmse, mae, mse, accuracy, duration_ms, stop_reason`

// ListRuns returns up to limit runs, newest first, without their trials.
// A limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, errors.WithStack(rows.Err())
}

// GetRun returns the run with its trials, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Wrapf(ErrNotFound, "run %s", id)
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT attempt, position, algorithm, status, r2, rmse, mae, cv_mean, cv_std, params, error, duration_ms
		 FROM trials WHERE run_id = ? ORDER BY attempt`, id)
	if err != nil {
		return Run{}, errors.Wrap(err, "query trials")
	}
	defer rows.Close()
	for rows.Next() {
		var t Trial
		var r2, rmse, mae, cvMean, cvStd sql.NullFloat64
		var ms int64
		if err := rows.Scan(&t.Attempt, &t.Rank, &t.Algorithm, &t.Status, &r2, &rmse, &mae,
			&cvMean, &cvStd, &t.Params, &t.Error, &ms); err != nil {
			return Run{}, errors.Wrap(err, "scan trial")
		}
		t.Metrics = metrics.Report{R2: fromNullable(r2), RMSE: fromNullable(rmse), MAE: fromNullable(mae)}
		t.CVMean, t.CVStd = fromNullable(cvMean), fromNullable(cvStd)
		t.Duration = time.Duration(ms) * time.Millisecond
		run.Trials = append(run.Trials, t)
	}
	return run, errors.WithStack(rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var created, features string
	var r2, rmse, mae, mse, acc sql.NullFloat64
	var ms int64
	err := sc.Scan(&run.ID, &run.SessionID, &created, &run.Dataset, &run.Target, &features, &run.Tier,
		&run.Grid, &run.Sampled, &run.BestAlgorithm, &run.BestParams, &r2, &rmse, &mae, &mse, &acc,
		&ms, &run.StopReason)
	if err != nil {
		return Run{}, errors.WithStack(err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, errors.Wrap(err, "parse created_at")
	}
	if err := json.Unmarshal([]byte(features), &run.Features); err != nil {
		return Run{}, errors.Wrap(err, "unmarshal features")
	}
	run.Metrics = metrics.Report{R2: fromNullable(r2), RMSE: fromNullable(rmse), MAE: fromNullable(mae), MSE: fromNullable(mse), Accuracy: fromNullable(acc)}
	run.Duration = time.Duration(ms) * time.Millisecond
	return run, nil
}

// nullable maps non-finite values to NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// fromNullable maps NULL back to NaN.
func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
