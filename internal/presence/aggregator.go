package presence

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/516hackers/osint516/internal/platform"
	"github.com/516hackers/osint516/internal/probe"
)

// Prober is satisfied by *probe.Prober.
type Prober interface {
	Probe(ctx context.Context, username string, p *platform.Platform) probe.Outcome
}

type Config struct {
	// Concurrency bounds in-flight probes; 1 checks platforms one by one.
	Concurrency int
	Now         func() time.Time
}

type Aggregator struct {
	prober Prober
	roster platform.Roster
	cfg    Config
	log    logrus.FieldLogger
}

func NewAggregator(prober Prober, roster platform.Roster, cfg Config, log logrus.FieldLogger) *Aggregator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{prober: prober, roster: roster, cfg: cfg, log: log}
}

func (a *Aggregator) Roster() platform.Roster { return a.roster }

// MapPresence probes every roster platform for username.
func (a *Aggregator) MapPresence(ctx context.Context, username string) Report {
	return a.Stream(ctx, username, nil)
}

// Stream is MapPresence with a callback invoked for each outcome as soon as
// it settles. Callbacks run on the calling goroutine, in completion order.
// The returned report always lists platforms in roster order.
func (a *Aggregator) Stream(ctx context.Context, username string, onOutcome func(probe.Outcome)) Report {
	report := Report{
		Username:    username,
		GeneratedAt: a.cfg.Now(),
	}

	entries := make(Platforms, len(a.roster))
	workers := min(a.cfg.Concurrency, len(a.roster))

	type settled struct {
		idx int
		out probe.Outcome
	}

	jobs := make(chan int)
	results := make(chan settled, max(workers, 1))

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- settled{idx: idx, out: a.prober.Probe(ctx, username, a.roster[idx])}
			}
		}()
	}

	go func() {
		defer close(results)
		wg.Wait()
	}()

	// Every roster entry is dispatched even after ctx is done; a cancelled
	// probe settles immediately with an error, which keeps the report complete.
	go func() {
		defer close(jobs)
		for idx := range a.roster {
			jobs <- idx
		}
	}()

	for res := range results {
		entries[res.idx] = EntryFrom(res.out)
		if onOutcome != nil {
			onOutcome(res.out)
		}
	}

	report.Platforms = entries
	report.Summary = Summarize(entries)

	a.log.WithFields(logrus.Fields{
		"username": username,
		"checked":  report.Summary.Checked,
		"found":    report.Summary.Found,
	}).Info("presence mapping complete")
	return report
}
