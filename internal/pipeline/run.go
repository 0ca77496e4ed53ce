// Package pipeline runs the movie ETL end to end: resolve the three
// sources, reconcile the two movie datasets, aggregate the rating log onto
// the canonical table, then load the movies table and the raw rating log.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/config"
	"github.com/sells-group/movie-etl/internal/etlerr"
	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/loader"
	"github.com/sells-group/movie-etl/internal/ratings"
	"github.com/sells-group/movie-etl/internal/reconcile"
	"github.com/sells-group/movie-etl/internal/source"
	"github.com/sells-group/movie-etl/internal/store"
)

// RatingsKey is the movies column the rating counts join on.
const RatingsKey = "kaggle_id"

// Options adjusts a single run.
type Options struct {
	// DryRun reconciles and aggregates without touching the store.
	DryRun bool
	// SkipRatingsLoad loads the movies table but not the raw rating log.
	SkipRatingsLoad bool
	// Rules overrides cfg.Pipeline.RulesPath when set.
	Rules *reconcile.Rules
}

// Sources are the resolved local paths of the three inputs.
type Sources struct {
	Wiki    string `json:"wiki"`
	Catalog string `json:"catalog"`
	Ratings string `json:"ratings"`
}

// Result summarizes a run. It is stored as the run-log summary.
type Result struct {
	RunID        string                `json:"run_id"`
	DryRun       bool                  `json:"dry_run"`
	Sources      Sources               `json:"sources"`
	Reconcile    *reconcile.Report     `json:"reconcile,omitempty"`
	RatingEvents int64                 `json:"rating_events"`
	RatedMovies  int                   `json:"rated_movies"`
	RatingScores []string              `json:"rating_scores,omitempty"`
	Movies       *loader.MoviesResult  `json:"movies,omitempty"`
	Ratings      *loader.RatingsResult `json:"ratings,omitempty"`
	Stages       []StageResult         `json:"stages"`
	Elapsed      time.Duration         `json:"elapsed"`

	// Table is the canonical movies table with rating counts attached.
	Table *frame.Frame `json:"-"`
}

// Summary renders the result as JSON.
func (r *Result) Summary() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: marshal summary")
	}
	return data, nil
}

// Run executes one full batch. Stages run one after another; the first
// fatal error stops the run and is returned with its stage and kind (see
// etlerr) together with the partial result. Unless opts.DryRun is set, st
// must be non-nil and the run is recorded in the store's run log once the
// sources have resolved; a SourceUnavailable failure leaves the store
// untouched.
func Run(ctx context.Context, cfg *config.Config, st store.Store, opts Options) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), DryRun: opts.DryRun}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", res.RunID))
	start := time.Now()

	if !opts.DryRun && st == nil {
		return nil, eris.New("pipeline: a store is required unless dry-run is set")
	}

	log.Info("pipeline: starting run", zap.Bool("dry_run", opts.DryRun))
	t := &tracker{res: res, log: log}

	err := t.stage("resolve sources", func() error {
		return resolveSources(ctx, cfg.Sources, &res.Sources)
	})
	if err != nil {
		res.Elapsed = time.Since(start)
		logFailure(log, err)
		return res, err
	}

	if !opts.DryRun {
		if err := st.StartRun(ctx, res.RunID); err != nil {
			return res, etlerr.New(etlerr.StoreWriteFailure, "start run", err)
		}
	}

	err = run(ctx, cfg, st, opts, t)
	res.Elapsed = time.Since(start)

	if !opts.DryRun {
		finishRun(st, res, err, log)
	}
	if err != nil {
		logFailure(log, err)
		return res, err
	}

	log.Info("pipeline: run complete", zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func logFailure(log *zap.Logger, err error) {
	log.Error("pipeline: run failed",
		zap.String("stage", etlerr.StageOf(err)),
		zap.Stringer("kind", etlerr.KindOf(err)),
		zap.Error(err),
	)
}

func resolveSources(ctx context.Context, cfg config.SourcesConfig, out *Sources) error {
	r := source.NewResolver(cfg)
	var err error
	if out.Wiki, err = r.Resolve(ctx, cfg.Wiki); err != nil {
		return err
	}
	if out.Catalog, err = r.Resolve(ctx, cfg.Catalog); err != nil {
		return err
	}
	out.Ratings, err = r.Resolve(ctx, cfg.Ratings)
	return err
}

// run executes the stages after source resolution. The movies table is
// loaded with the canonical schema; the rating-count columns only appear
// in res.Table.
func run(ctx context.Context, cfg *config.Config, st store.Store, opts Options, t *tracker) error {
	res, log := t.res, t.log

	var movies *frame.Frame
	err := t.stage("reconcile", func() error {
		rules, ropts, err := reconcileSettings(cfg, opts)
		if err != nil {
			return err
		}
		var rep *reconcile.Report
		movies, rep, err = reconcile.Reconcile(ctx, res.Sources.Wiki, res.Sources.Catalog, rules, ropts)
		res.Reconcile = rep
		return err
	})
	if err != nil {
		return err
	}

	err = t.stage("aggregate ratings", func() error {
		counts, err := countRatings(ctx, res.Sources.Ratings)
		if err != nil {
			return err
		}
		res.RatingEvents = counts.Events
		res.RatedMovies = counts.Movies()
		res.RatingScores = counts.Columns()

		res.Table, err = ratings.Attach(movies, counts, RatingsKey)
		return etlerr.New(etlerr.MergeInconsistency, "aggregate ratings", err)
	})
	if err != nil {
		return err
	}

	if opts.DryRun {
		log.Info("pipeline: dry run, skipping store writes", zap.Int("movies", movies.Len()))
		return nil
	}

	err = t.stage("load movies", func() error {
		var err error
		res.Movies, err = loader.LoadMovies(ctx, st, cfg.Pipeline.MoviesTable, movies)
		return err
	})
	if err != nil {
		return err
	}

	if opts.SkipRatingsLoad {
		log.Info("pipeline: skipping rating log load")
		return nil
	}

	return t.stage("load ratings", func() error {
		f, err := os.Open(res.Sources.Ratings)
		if err != nil {
			return etlerr.New(etlerr.SourceUnavailable, "load ratings", eris.Wrap(err, "pipeline: open rating log"))
		}
		defer f.Close() //nolint:errcheck

		res.Ratings, err = loader.LoadRatings(ctx, st, cfg.Pipeline.RatingsTable, f, cfg.Pipeline.RatingsChunkSize)
		return err
	})
}

func reconcileSettings(cfg *config.Config, opts Options) (reconcile.Rules, reconcile.Options, error) {
	var rules reconcile.Rules
	if opts.Rules != nil {
		rules = *opts.Rules
	} else {
		var err error
		if rules, err = reconcile.LoadRules(cfg.Pipeline.RulesPath); err != nil {
			return reconcile.Rules{}, reconcile.Options{}, err
		}
	}
	ropts, err := reconcile.OptionsFromConfig(cfg.Pipeline)
	if err != nil {
		return reconcile.Rules{}, reconcile.Options{}, err
	}
	return rules, ropts, nil
}

func countRatings(ctx context.Context, path string) (*ratings.Counts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, etlerr.New(etlerr.SourceUnavailable, "aggregate ratings", eris.Wrap(err, "pipeline: open rating log"))
	}
	defer f.Close() //nolint:errcheck

	counts, err := ratings.Count(ctx, f)
	if err != nil {
		return nil, etlerr.New(etlerr.SourceUnavailable, "aggregate ratings", eris.Wrap(err, "pipeline: count ratings"))
	}
	return counts, nil
}

// finishRun records the outcome in the run log. It uses a fresh context so
// a cancelled run is still marked failed.
func finishRun(st store.Store, res *Result, runErr error, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := store.RunStatusComplete
	errText := ""
	if runErr != nil {
		status = store.RunStatusFailed
		errText = runErr.Error()
	}

	summary, err := res.Summary()
	if err != nil {
		log.Warn("pipeline: failed to build run summary", zap.Error(err))
	}
	if err := st.FinishRun(ctx, res.RunID, status, summary, errText); err != nil {
		log.Warn("pipeline: failed to record run outcome", zap.Error(err))
	}
}
