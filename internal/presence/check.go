package presence

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/516hackers/osint516/internal/probe"
)

var errNoKnownUsernames = errors.New("missing username_claimed/username_unclaimed")

// CheckFailure describes a platform whose existence rule no longer tells a
// claimed username from a free one.
type CheckFailure struct {
	Platform  string
	Claimed   probe.Outcome
	Unclaimed probe.Outcome
	Err       error
}

// Check probes every roster platform with its claimed and unclaimed
// usernames and reports the platforms that misclassify either. It returns
// the number of failures.
func (a *Aggregator) Check(ctx context.Context, onFailure func(CheckFailure)) int {
	workers := min(a.cfg.Concurrency, len(a.roster))
	if workers == 0 {
		return 0
	}

	jobs := make(chan int)
	failures := make(chan CheckFailure, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p := a.roster[idx]
				if p.Claimed == "" || p.Unclaimed == "" {
					failures <- CheckFailure{Platform: p.Name, Err: errNoKnownUsernames}
					continue
				}

				used := a.prober.Probe(ctx, p.Claimed, p)
				free := a.prober.Probe(ctx, p.Unclaimed, p)
				if used.Exists && !free.Exists {
					continue
				}
				failures <- CheckFailure{Platform: p.Name, Claimed: used, Unclaimed: free}
			}
		}()
	}

	go func() {
		defer close(failures)
		wg.Wait()
	}()

	go func() {
		defer close(jobs)
		for idx := range a.roster {
			select {
			case <-ctx.Done():
				return
			case jobs <- idx:
			}
		}
	}()

	count := 0
	for f := range failures {
		count++
		if onFailure != nil {
			onFailure(f)
		}
	}
	return count
}
