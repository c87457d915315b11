// Package status polls services and republishes a consolidated view.
package status

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/maniartech/signals"

	"trainer/sim/service"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = time.Second

// Reporter is anything that publishes a service report.
type Reporter interface {
	Name() string
	Report() service.Report
}

// Sink receives status tuples. Only changed tuples are delivered.
type Sink interface {
	ReportStatus(name string, s service.Status, label string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, s service.Status, label string)

func (f SinkFunc) ReportStatus(name string, s service.Status, label string) { f(name, s, label) }

// Service is the status aggregator.
type Service struct {
	*service.Base

	mu        sync.Mutex
	reporters []Reporter
	sinks     []Sink
	last      map[string]service.Report

	latest    []service.Report
	latestMu  sync.RWMutex
	published signals.Signal[[]service.Report]
}

// New returns a stopped aggregator.
func New(cfg service.Config, reporters ...Reporter) *Service {
	if cfg.Name == "" {
		cfg.Name = "status"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	s := &Service{
		reporters: reporters,
		published: signals.NewSync[[]service.Report](),
	}
	s.Base = service.New(cfg, s)
	return s
}

// Watch adds reporters to the polled set.
func (s *Service) Watch(rs ...Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reporters = append(s.reporters, rs...)
}

// AddSink registers a sink. It receives every current tuple on the next poll.
func (s *Service) AddSink(k Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, k)
	s.last = nil
}

// Published is emitted after every poll with the name-sorted reports.
func (s *Service) Published() signals.Signal[[]service.Report] { return s.published }

// Latest returns the reports from the most recent poll.
func (s *Service) Latest() []service.Report {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return slices.Clone(s.latest)
}

func (s *Service) OnStart(ctx context.Context) error {
	s.Poll()
	return nil
}

func (s *Service) OnStop() {}

func (s *Service) Update(context.Context) error {
	s.Poll()
	return nil
}

// Poll collects and publishes once. Update calls it on every tick.
func (s *Service) Poll() {
	s.mu.Lock()
	reporters := slices.Clone(s.reporters)
	sinks := slices.Clone(s.sinks)
	last := s.last
	s.mu.Unlock()

	reports := make([]service.Report, 0, len(reporters)+1)
	for _, r := range reporters {
		reports = append(reports, r.Report())
	}
	slices.SortFunc(reports, func(a, b service.Report) int { return cmp.Compare(a.Service, b.Service) })

	next := make(map[string]service.Report, len(reports))
	for _, r := range reports {
		next[r.Service] = r
		prev, ok := last[r.Service]
		if ok && prev.Status == r.Status && prev.Label == r.Label {
			continue
		}
		for _, k := range sinks {
			k.ReportStatus(r.Service, r.Status, r.Label)
		}
	}

	s.mu.Lock()
	s.last = next
	s.mu.Unlock()

	s.latestMu.Lock()
	s.latest = reports
	s.latestMu.Unlock()

	s.SetStatus(service.Running, fmt.Sprintf("Monitoring %d services", len(reports)))
	s.published.Emit(context.Background(), slices.Clone(reports))
}
