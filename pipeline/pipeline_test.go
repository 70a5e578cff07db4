package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-shelf/config"
	"github.com/aluiziolira/go-scrape-shelf/fetch"
	"github.com/aluiziolira/go-scrape-shelf/models"
)

func pipelineTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Username = "spif"
	cfg.BaseURL = "http://example.test"
	cfg.Workers = 3
	cfg.Delay = 0
	cfg.Timeout = 2 * time.Second
	return cfg
}

func makeRefs(n int) []models.ItemRef {
	refs := make([]models.ItemRef, 0, n)
	for i := 1; i <= n; i++ {
		refs = append(refs, models.ItemRef{
			ID:  int64(i),
			URL: fmt.Sprintf("/livre/book-%d/%d", i, i),
		})
	}
	return refs
}

func detailPage(ld string) []byte {
	return []byte(`<html><head><script type="application/ld+json">` + ld + `</script></head><body></body></html>`)
}

// fakeFetcher serves canned responses per URL and records peak
// concurrent in-flight calls.
type fakeFetcher struct {
	mu       sync.Mutex
	inflight int
	peak     int
	hold     time.Duration
	respond  func(url string) ([]byte, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.peak {
		f.peak = f.inflight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if f.hold > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.hold):
		}
	}
	return f.respond(url)
}

func (f *fakeFetcher) peakConcurrency() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

func okFetcher() *fakeFetcher {
	return &fakeFetcher{
		respond: func(url string) ([]byte, error) {
			return detailPage(`{"name":"Book","creator":[{"name":"Author"}]}`), nil
		},
	}
}

func TestRunAllSuccessful(t *testing.T) {
	cfg := pipelineTestConfig()
	p := NewPipeline(cfg, okFetcher())

	run := p.Run(context.Background(), makeRefs(10))

	if len(run.Results) != 10 || run.Failures() != 0 || run.Absent != 0 {
		t.Fatalf("results=%d failures=%d absent=%d, want 10/0/0",
			len(run.Results), run.Failures(), run.Absent)
	}
	if run.RefCount != 10 {
		t.Fatalf("ref count=%d, want 10", run.RefCount)
	}
}

func TestRunAccountsForEveryReference(t *testing.T) {
	cfg := pipelineTestConfig()
	fetcher := &fakeFetcher{
		respond: func(url string) ([]byte, error) {
			switch {
			case strings.Contains(url, "book-2/"):
				return nil, fetch.ErrStatus{Code: 500, URL: url}
			case strings.Contains(url, "book-5/"):
				return []byte(`<html><body>no block</body></html>`), nil
			case strings.Contains(url, "book-7/"):
				return detailPage(`{"name":`), nil
			default:
				return detailPage(`{"name":"Book"}`), nil
			}
		},
	}
	p := NewPipeline(cfg, fetcher)

	refs := makeRefs(10)
	run := p.Run(context.Background(), refs)

	if got := len(run.Results) + run.Failures() + run.Absent; got != len(refs) {
		t.Fatalf("outcome counts do not cover input: %d+%d+%d != %d",
			len(run.Results), run.Failures(), run.Absent, len(refs))
	}
	if len(run.Results) != 7 || run.Failures() != 2 || run.Absent != 1 {
		t.Fatalf("results=%d failures=%d absent=%d, want 7/2/1",
			len(run.Results), run.Failures(), run.Absent)
	}
}

func TestRunConcurrencyNeverExceedsCap(t *testing.T) {
	cfg := pipelineTestConfig()
	cfg.Workers = 3
	fetcher := okFetcher()
	fetcher.hold = 10 * time.Millisecond
	p := NewPipeline(cfg, fetcher)

	run := p.Run(context.Background(), makeRefs(20))

	if len(run.Results) != 20 {
		t.Fatalf("results=%d, want 20", len(run.Results))
	}
	if peak := fetcher.peakConcurrency(); peak > cfg.Workers {
		t.Fatalf("peak concurrency %d exceeds cap %d", peak, cfg.Workers)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	// one reference always returns HTTP 500; the other nine must land
	cfg := pipelineTestConfig()
	fetcher := &fakeFetcher{
		respond: func(url string) ([]byte, error) {
			if strings.Contains(url, "book-4/") {
				return nil, fetch.ErrStatus{Code: 500, URL: url}
			}
			return detailPage(`{"name":"Book"}`), nil
		},
	}
	p := NewPipeline(cfg, fetcher)

	run := p.Run(context.Background(), makeRefs(10))

	if len(run.Results) != 9 {
		t.Fatalf("results=%d, want 9", len(run.Results))
	}
	if run.Failures() != 1 {
		t.Fatalf("failures=%d, want 1", run.Failures())
	}
	if run.Failed[0].ID != 4 {
		t.Fatalf("failed id=%d, want 4", run.Failed[0].ID)
	}
	if run.Failed[0].URL == "" || run.Failed[0].Reason == "" {
		t.Fatalf("failed ref should carry url and reason: %+v", run.Failed[0])
	}
	if run.ErrorsByType["http_status"] != 1 {
		t.Fatalf("errors by type=%v, want one http_status", run.ErrorsByType)
	}
}

func TestRunMalformedBlockIsolated(t *testing.T) {
	cfg := pipelineTestConfig()
	fetcher := &fakeFetcher{
		respond: func(url string) ([]byte, error) {
			if strings.Contains(url, "book-3/") {
				return detailPage(`{"name":"Broken",`), nil
			}
			return detailPage(`{"name":"Book"}`), nil
		},
	}
	p := NewPipeline(cfg, fetcher)

	run := p.Run(context.Background(), makeRefs(5))

	if len(run.Results) != 4 || run.Failures() != 1 {
		t.Fatalf("results=%d failures=%d, want 4/1", len(run.Results), run.Failures())
	}
	if run.Failed[0].ID != 3 {
		t.Fatalf("failed id=%d, want 3", run.Failed[0].ID)
	}
	if !strings.Contains(run.Failed[0].Reason, "malformed") {
		t.Fatalf("reason=%q, want malformed linked-data failure", run.Failed[0].Reason)
	}
}

func TestRunThroughputModel(t *testing.T) {
	// 10 refs, 3 workers, 40ms per-task delay: each slot serialises
	// ceil(10/3)=4 delays, so the run takes at least ~160ms and far
	// less than the 400ms a single-worker run would need.
	cfg := pipelineTestConfig()
	cfg.Workers = 3
	cfg.Delay = 40 * time.Millisecond
	p := NewPipeline(cfg, okFetcher())

	start := time.Now()
	run := p.Run(context.Background(), makeRefs(10))
	elapsed := time.Since(start)

	if len(run.Results) != 10 {
		t.Fatalf("results=%d, want 10", len(run.Results))
	}
	if elapsed < 150*time.Millisecond {
		t.Fatalf("elapsed %v is faster than the bounded model allows", elapsed)
	}
	if elapsed > 390*time.Millisecond {
		t.Fatalf("elapsed %v suggests delays were serialised globally", elapsed)
	}
}

func TestRunCancelledContext(t *testing.T) {
	cfg := pipelineTestConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(cfg, okFetcher())
	run := p.Run(ctx, makeRefs(6))

	if len(run.Results) != 0 {
		t.Fatalf("cancelled run should produce no results, got %d", len(run.Results))
	}
	if got := run.Failures() + run.Absent; got != 6 {
		t.Fatalf("outcome counts do not cover input after cancel: failures+absent=%d, want 6", got)
	}
}

func TestRunEmptyReferenceList(t *testing.T) {
	cfg := pipelineTestConfig()
	p := NewPipeline(cfg, okFetcher())

	run := p.Run(context.Background(), nil)

	if len(run.Results) != 0 || run.Failures() != 0 || run.Absent != 0 {
		t.Fatalf("empty input should yield an empty run")
	}
	if run.RefCount != 0 {
		t.Fatalf("ref count=%d, want 0", run.RefCount)
	}
}

func TestRunFetchTimeoutIsPerTask(t *testing.T) {
	cfg := pipelineTestConfig()
	cfg.Timeout = 20 * time.Millisecond
	fetcher := okFetcher()
	fetcher.hold = 200 * time.Millisecond
	p := NewPipeline(cfg, fetcher)

	run := p.Run(context.Background(), makeRefs(2))

	if run.Failures() != 2 {
		t.Fatalf("failures=%d, want 2 timed-out tasks", run.Failures())
	}
}
