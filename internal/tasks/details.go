package tasks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// DetailSource reads one snack's details.
type DetailSource interface {
	Detail(ctx context.Context, id int64) (*models.SnackDetail, error)
}

// DetailOpts configures [FetchDetails].
type DetailOpts struct {
	NumWorkers int     // Concurrent workers (default: 4, max: 10)
	RateLimit  float64 // Requests per second (default: 5)
}

// DetailResult is the outcome for one id.
type DetailResult struct {
	ID     int64
	Detail *models.SnackDetail
	Err    error
}

// BulkDetailResult summarizes a [FetchDetails] run. Results keep the order of the requested ids.
type BulkDetailResult struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []DetailResult
}

// Details returns the fetched details in request order, skipping failures.
func (r *BulkDetailResult) Details() []models.SnackDetail {
	out := make([]models.SnackDetail, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.Err == nil && res.Detail != nil {
			out = append(out, *res.Detail)
		}
	}
	return out
}

type detailJob struct {
	index int
	id    int64
}

type indexedResult struct {
	index int
	res   DetailResult
}

// FetchDetails loads details for ids concurrently with rate limiting and progress tracking.
//
// Individual failures are recorded in the result and do not stop the run.
// Cancelling ctx stops scheduling; ids never attempted are recorded with the context error.
func FetchDetails(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	src DetailSource,
	ids []int64,
	opts DetailOpts,
) (*BulkDetailResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: detail source not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &BulkDetailResult{Total: len(ids), Results: make([]DetailResult, len(ids))}
	for i, id := range ids {
		result.Results[i] = DetailResult{ID: id}
	}
	if len(ids) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan detailJob, len(ids))
	results := make(chan indexedResult, len(ids))
	done := make([]bool, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go detailWorker(ctx, &wg, src, limiter, jobs, results)
	}

	sendProgress(prog, fetchingDetailsUpdate(len(ids)))
	go func() {
		defer close(jobs)
		for i, id := range ids {
			select {
			case <-ctx.Done():
				return
			case jobs <- detailJob{index: i, id: id}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for r := range results {
		completed++
		done[r.index] = true
		result.Results[r.index] = r.res

		if r.res.Err == nil {
			result.Succeeded++
			sendProgress(prog, detailFetchedUpdate(completed, len(ids), r.res))
		} else {
			result.Failed++
			sendProgress(prog, detailFailedUpdate(completed, len(ids), r.res))
		}
	}

	if err := ctx.Err(); err != nil {
		for i, ok := range done {
			if !ok {
				result.Results[i].Err = err
				result.Failed++
			}
		}
		return result, err
	}
	return result, nil
}

// detailWorker fetches details for jobs until the channel closes or ctx is cancelled.
func detailWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	src DetailSource,
	limiter *rate.Limiter,
	jobs <-chan detailJob,
	results chan<- indexedResult,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		d, err := src.Detail(ctx, job.id)
		if err != nil {
			err = fmt.Errorf("snack %d: %w", job.id, err)
		}
		results <- indexedResult{index: job.index, res: DetailResult{ID: job.id, Detail: d, Err: err}}
	}
}
