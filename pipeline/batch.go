package pipeline

import (
	"context"
	"runtime"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/hbctool/errors"
)

// Kind selects the operation of a batch job.
type Kind string

const (
	KindDisassemble Kind = "disassemble"
	KindAssemble    Kind = "assemble"
)

// Job is one unit of work for Batch.
type Job struct {
	Kind      Kind
	Input     string
	OutputDir string
	Options   Options
}

// Batch runs jobs with at most parallelism of them in flight; a value below
// one means GOMAXPROCS. Results are returned in job order. The error
// combines the errors of every failed job; a failed job does not stop the
// others, but cancelling ctx fails every job that has not started.
func Batch(ctx context.Context, jobs []Job, parallelism int) ([]*Result, error) {
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	results := make([]*Result, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(parallelism)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = run(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	var err error
	failed := 0
	for i, r := range results {
		if r.Status != StatusSuccess {
			failed++
			kind, ok := errors.KindOf(r.Err)
			if !ok {
				kind = errors.KindInvalidInput
			}
			err = multierr.Append(err, errors.New(errors.PhaseLoad, kind).
				Path(jobs[i].Input).
				Cause(r.Err).
				Detail("%s failed", jobs[i].Kind).
				Build())
		}
	}
	Logger().Info("batch finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("failed", failed),
		zap.Int("parallelism", parallelism))
	return results, err
}

func run(ctx context.Context, job Job) *Result {
	switch job.Kind {
	case KindDisassemble:
		return Disassemble(ctx, job.Input, job.OutputDir, job.Options)
	case KindAssemble:
		return Assemble(ctx, job.Input, job.OutputDir, job.Options)
	}
	j := newJournal(string(job.Kind), job.Input, job.Options)
	return j.fail(errors.InvalidInput(errors.PhaseLoad, "unknown job kind "+string(job.Kind)))
}
