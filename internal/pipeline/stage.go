package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/etlerr"
)

// StageStatus is the outcome of one stage.
type StageStatus string

const (
	StageComplete StageStatus = "complete"
	StageFailed   StageStatus = "failed"
)

// StageResult records one stage of a run.
type StageResult struct {
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

type tracker struct {
	res *Result
	log *zap.Logger
}

// stage runs fn, records its outcome on the result and logs it. Errors that
// carry no kind yet are tagged with the stage name.
func (t *tracker) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()

	sr := StageResult{Name: name, Status: StageComplete, DurationMs: duration}
	if err != nil {
		if etlerr.StageOf(err) == "" {
			err = etlerr.New(etlerr.Unknown, name, err)
		}
		sr.Status = StageFailed
		sr.Error = err.Error()
		t.log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	} else {
		t.log.Info("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
		)
	}
	t.res.Stages = append(t.res.Stages, sr)
	return err
}
