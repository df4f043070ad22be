package probe

import (
	"context"
	"errors"
	"time"

	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/clinicops/pulsewatch/pkg/metrics"
)

// Prober issues one reachability check against a dependent service.
// Name must be unique across the probe set, results are keyed by it.
type Prober interface {
	Name() string
	// Timeout overrides the orchestrator probe timeout when positive
	Timeout() time.Duration
	// Probe performs the check. A nil error means reachable, detail carries
	// optional diagnostic key-values for the result metadata.
	Probe(ctx context.Context) (map[string]string, error)
}

// Result the classified outcome of one probe
type Result struct {
	Service      string            `json:"service"`
	Status       string            `json:"status"`
	ResponseTime int64             `json:"response_time"` // milliseconds
	LastCheck    time.Time         `json:"last_check"`
	Error        string            `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Report the merged outcome of one orchestrator invocation. Transient data,
// persisting snapshots for uptime history is the scheduler's business.
type Report struct {
	OverallStatus     string    `json:"overall_status"`
	TotalResponseTime int64     `json:"total_response_time_ms"`
	Services          []Result  `json:"services"`
	SLACompliance     bool      `json:"sla_compliance"`
	Timestamp         time.Time `json:"timestamp"`
}

// Orchestrator fans the configured probes out in parallel and joins them at
// one overall deadline. Each invocation is self-contained, there are no
// retries and no state between calls.
type Orchestrator struct {
	probers      []Prober
	deadline     time.Duration
	probeTimeout time.Duration
	goodLatency  time.Duration
	slaTarget    time.Duration
	now          func() time.Time
}

// NewOrchestrator builds an orchestrator over a fixed probe set. goodLatency
// separates healthy from degraded, slaTarget bounds the whole invocation for
// the compliance flag.
func NewOrchestrator(probers []Prober, deadline, probeTimeout, goodLatency, slaTarget time.Duration) *Orchestrator {
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	if probeTimeout <= 0 || probeTimeout > deadline {
		probeTimeout = deadline
	}
	if goodLatency <= 0 {
		goodLatency = 500 * time.Millisecond
	}
	if slaTarget <= 0 {
		slaTarget = 2 * time.Second
	}
	return &Orchestrator{
		probers:      probers,
		deadline:     deadline,
		probeTimeout: probeTimeout,
		goodLatency:  goodLatency,
		slaTarget:    slaTarget,
		now:          time.Now,
	}
}

type outcome struct {
	name    string
	elapsed time.Duration
	detail  map[string]string
	err     error
}

// Check runs every probe concurrently and classifies the outcomes. Probes
// still outstanding when the deadline fires are recorded unhealthy with a
// timeout error and abandoned, their late results are discarded because the
// channel is buffered to the probe count and never read again.
func (o *Orchestrator) Check(ctx context.Context) *Report {
	start := o.now()
	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	results := make(chan outcome, len(o.probers))
	for _, p := range o.probers {
		go func(p Prober) {
			pctx, pcancel := context.WithTimeout(ctx, o.timeoutFor(p))
			defer pcancel()
			began := time.Now()
			detail, err := p.Probe(pctx)
			results <- outcome{name: p.Name(), elapsed: time.Since(began), detail: detail, err: err}
		}(p)
	}

	byName := make(map[string]Result, len(o.probers))
	pending := len(o.probers)
collect:
	for pending > 0 {
		select {
		case out := <-results:
			pending--
			if _, taken := byName[out.name]; taken {
				continue
			}
			byName[out.name] = o.classify(out)
		case <-ctx.Done():
			break collect
		}
	}

	checked := o.now()
	for _, p := range o.probers {
		if _, done := byName[p.Name()]; !done {
			metrics.IncrCounter("monitor_probe_timeout_total", 1)
			byName[p.Name()] = Result{
				Service:      p.Name(),
				Status:       domain.HealthUnhealthy,
				ResponseTime: o.deadline.Milliseconds(),
				LastCheck:    checked,
				Error:        "timeout",
			}
		}
	}

	services := make([]Result, 0, len(o.probers))
	for _, p := range o.probers {
		services = append(services, byName[p.Name()])
	}

	elapsed := o.now().Sub(start)
	return &Report{
		OverallStatus:     overallStatus(services),
		TotalResponseTime: elapsed.Milliseconds(),
		Services:          services,
		SLACompliance:     elapsed < o.slaTarget,
		Timestamp:         checked,
	}
}

func (o *Orchestrator) timeoutFor(p Prober) time.Duration {
	if t := p.Timeout(); t > 0 {
		return t
	}
	return o.probeTimeout
}

// classify maps one probe outcome onto a health status
func (o *Orchestrator) classify(out outcome) Result {
	r := Result{
		Service:      out.name,
		ResponseTime: out.elapsed.Milliseconds(),
		LastCheck:    o.now(),
		Metadata:     out.detail,
	}
	switch {
	case out.err != nil && errors.Is(out.err, context.DeadlineExceeded):
		metrics.IncrCounter("monitor_probe_timeout_total", 1)
		r.Status = domain.HealthUnhealthy
		r.Error = "timeout"
	case out.err != nil:
		r.Status = domain.HealthUnhealthy
		r.Error = out.err.Error()
	case out.elapsed > o.goodLatency:
		r.Status = domain.HealthDegraded
	default:
		r.Status = domain.HealthHealthy
	}
	return r
}

// overallStatus is healthy only when every probe is healthy, unhealthy as
// soon as one probe is, degraded in between
func overallStatus(services []Result) string {
	status := domain.HealthHealthy
	for _, s := range services {
		switch s.Status {
		case domain.HealthUnhealthy:
			return domain.HealthUnhealthy
		case domain.HealthDegraded:
			status = domain.HealthDegraded
		}
	}
	return status
}

// Records converts a report into persistable history rows
func (r *Report) Records() []*domain.HealthCheckRecord {
	records := make([]*domain.HealthCheckRecord, 0, len(r.Services))
	for _, s := range r.Services {
		records = append(records, &domain.HealthCheckRecord{
			ServiceName:  s.Service,
			Status:       s.Status,
			ResponseTime: s.ResponseTime,
			CheckedAt:    s.LastCheck,
			Error:        s.Error,
		})
	}
	return records
}

// Unhealthy lists the names of failing services in probe order
func (r *Report) Unhealthy() []string {
	var names []string
	for _, s := range r.Services {
		if s.Status == domain.HealthUnhealthy {
			names = append(names, s.Service)
		}
	}
	return names
}
