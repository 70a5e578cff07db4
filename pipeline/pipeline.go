// Package pipeline turns a list of item references into validated
// records under a concurrency cap and a per-task delay, and writes the
// aggregate to disk.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-shelf/config"
	"github.com/aluiziolira/go-scrape-shelf/fetch"
	"github.com/aluiziolira/go-scrape-shelf/jsonld"
	"github.com/aluiziolira/go-scrape-shelf/models"
	"golang.org/x/sync/semaphore"
)

// Extractor maps a fetched page to a record. A (nil, nil) return means
// the page carries no structured data, which is not a failure.
type Extractor func(models.ItemRef, []byte) (*models.Record, error)

// Pipeline fans out detail fetches over a weighted semaphore. At most
// Workers fetches are in flight at once; every task sleeps Delay after
// taking its slot. The delay is per task, not a shared limiter, so the
// effective request spacing is Delay/Workers in steady state.
type Pipeline struct {
	cfg     *config.Config
	fetcher fetch.PageFetcher
	extract Extractor
	Metrics *Metrics
}

// NewPipeline builds the bounded detail pipeline.
func NewPipeline(cfg *config.Config, fetcher fetch.PageFetcher) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		extract: jsonld.Extract,
		Metrics: NewMetrics(),
	}
}

type outcome struct {
	ref    models.ItemRef
	record *models.Record // nil for absent and failed
	err    error          // nil for success and absent
}

// Run executes one fetch+extract task per reference and blocks until
// every task has resolved. One task's failure never cancels or blocks
// its siblings. Results come back in completion order; exactly one of
// record/absent/failure is counted per reference.
func (p *Pipeline) Run(ctx context.Context, refs []models.ItemRef) *models.Run {
	run := &models.Run{
		StartTime:    time.Now(),
		RefCount:     len(refs),
		ErrorsByType: make(map[string]int),
	}

	sem := semaphore.NewWeighted(int64(p.cfg.Workers))
	outcomes := make(chan outcome, len(refs))

	for _, ref := range refs {
		go func(ref models.ItemRef) {
			outcomes <- p.runTask(ctx, sem, ref)
		}(ref)
	}

	// fan-in barrier: one outcome per scheduled task, no early return
	for range refs {
		o := <-outcomes
		switch {
		case o.err != nil:
			label := fetch.ErrorLabel(o.err)
			run.ErrorsByType[label]++
			run.Failed = append(run.Failed, models.FailedRef{
				ID:     o.ref.ID,
				URL:    o.ref.URL,
				Reason: o.err.Error(),
			})
			slog.Error("item failed",
				slog.Int64("id", o.ref.ID),
				slog.String("url", o.ref.URL),
				slog.String("category", label),
				slog.Any("error", o.err),
			)
			p.Metrics.IncFetch("failed")
		case o.record == nil:
			run.Absent++
			slog.Warn("no structured data on page",
				slog.Int64("id", o.ref.ID),
				slog.String("url", o.ref.URL),
			)
			p.Metrics.IncFetch("absent")
		default:
			run.Results = append(run.Results, o.record)
			p.Metrics.IncFetch("success")
			p.Metrics.IncRecords()
		}
	}

	run.EndTime = time.Now()
	return run
}

// runTask walks one reference through admission, delay, fetch, and
// extraction. Every exit path yields exactly one outcome.
func (p *Pipeline) runTask(ctx context.Context, sem *semaphore.Weighted, ref models.ItemRef) outcome {
	if err := sem.Acquire(ctx, 1); err != nil {
		return outcome{ref: ref, err: err}
	}
	defer sem.Release(1)

	if p.cfg.Delay > 0 {
		timer := time.NewTimer(p.cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return outcome{ref: ref, err: ctx.Err()}
		case <-timer.C:
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	body, err := p.fetcher.Fetch(fetchCtx, p.detailURL(ref))
	p.Metrics.ObserveDuration(time.Since(start))
	if err != nil {
		return outcome{ref: ref, err: err}
	}

	record, err := p.extract(ref, body)
	if err != nil {
		return outcome{ref: ref, err: err}
	}
	return outcome{ref: ref, record: record}
}

func (p *Pipeline) detailURL(ref models.ItemRef) string {
	if strings.HasPrefix(ref.URL, "http://") || strings.HasPrefix(ref.URL, "https://") {
		return ref.URL
	}
	path := ref.URL
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}
