package dump

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// JobDone is called once per job of ConvertAll, from the job's goroutine.
// Jobs skipped because an earlier one failed are reported with the
// cancellation error and a nil result.
type JobDone func(job Job, res *Result, err error)

// ConvertAll runs independent jobs concurrently, at most parallel at a time
// (parallel <= 0 means one per job). Each job is still a single sequential
// pass. Results are returned in job order; the first failure cancels the
// jobs that have not started yet. done may be nil.
func (c *Converter) ConvertAll(ctx context.Context, jobs []Job, parallel int, done JobDone) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	if done == nil {
		done = func(Job, *Result, error) {}
	}

	eg, egctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		eg.SetLimit(parallel)
	}

	for i, job := range jobs {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				done(job, nil, err)
				return err
			}
			c.logger.Debug("starting job", slog.String("job", job.Name), slog.String("input", job.Input))

			res, err := c.Convert(egctx, job)
			results[i] = res
			done(job, res, err)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			return nil
		})
	}

	return results, eg.Wait()
}
