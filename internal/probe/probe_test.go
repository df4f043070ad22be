package probe

import (
	"context"
	"testing"
	"time"

	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber completes after delay with the configured error
type fakeProber struct {
	name    string
	delay   time.Duration
	timeout time.Duration
	err     error
	detail  map[string]string
}

func (f *fakeProber) Name() string           { return f.name }
func (f *fakeProber) Timeout() time.Duration { return f.timeout }

func (f *fakeProber) Probe(ctx context.Context) (map[string]string, error) {
	select {
	case <-time.After(f.delay):
		return f.detail, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newOrchestrator(probers []Prober) *Orchestrator {
	return NewOrchestrator(probers, 2*time.Second, 500*time.Millisecond, 100*time.Millisecond, 2*time.Second)
}

func resultFor(t *testing.T, report *Report, name string) Result {
	t.Helper()
	for _, s := range report.Services {
		if s.Service == name {
			return s
		}
	}
	t.Fatalf("no result for service %s", name)
	return Result{}
}

func TestCheckAllHealthy(t *testing.T) {
	report := newOrchestrator([]Prober{
		&fakeProber{name: "database", delay: 5 * time.Millisecond},
		&fakeProber{name: "realtime", delay: 5 * time.Millisecond},
		&fakeProber{name: "functions", delay: 5 * time.Millisecond},
	}).Check(context.Background())

	assert.Equal(t, domain.HealthHealthy, report.OverallStatus)
	assert.True(t, report.SLACompliance)
	require.Len(t, report.Services, 3)
	for _, s := range report.Services {
		assert.Equal(t, domain.HealthHealthy, s.Status)
		assert.Empty(t, s.Error)
	}
}

func TestNewOrchestratorDefaultsZeroBounds(t *testing.T) {
	report := NewOrchestrator([]Prober{
		&fakeProber{name: "database", delay: 5 * time.Millisecond},
	}, 0, 0, 0, 0).Check(context.Background())

	// a fast successful probe stays healthy even when the bounds were
	// never configured
	assert.Equal(t, domain.HealthHealthy, report.OverallStatus)
	assert.True(t, report.SLACompliance)
	assert.Equal(t, domain.HealthHealthy, resultFor(t, report, "database").Status)
}

func TestCheckSlowProbeIsDegraded(t *testing.T) {
	report := newOrchestrator([]Prober{
		&fakeProber{name: "database", delay: 5 * time.Millisecond},
		&fakeProber{name: "functions", delay: 150 * time.Millisecond},
	}).Check(context.Background())

	assert.Equal(t, domain.HealthDegraded, report.OverallStatus)
	assert.Equal(t, domain.HealthHealthy, resultFor(t, report, "database").Status)
	assert.Equal(t, domain.HealthDegraded, resultFor(t, report, "functions").Status)
}

func TestCheckProbeErrorIsUnhealthy(t *testing.T) {
	report := newOrchestrator([]Prober{
		&fakeProber{name: "database", delay: 5 * time.Millisecond},
		&fakeProber{name: "realtime", delay: 5 * time.Millisecond, err: errors.New("connection refused")},
	}).Check(context.Background())

	assert.Equal(t, domain.HealthUnhealthy, report.OverallStatus)
	down := resultFor(t, report, "realtime")
	assert.Equal(t, domain.HealthUnhealthy, down.Status)
	assert.Contains(t, down.Error, "connection refused")
	assert.Equal(t, []string{"realtime"}, report.Unhealthy())
}

func TestCheckProbeTimeout(t *testing.T) {
	// probe-level timeout is 500ms, the probe needs 3s
	report := newOrchestrator([]Prober{
		&fakeProber{name: "database", delay: 3 * time.Second},
		&fakeProber{name: "functions", delay: 5 * time.Millisecond},
	}).Check(context.Background())

	down := resultFor(t, report, "database")
	assert.Equal(t, domain.HealthUnhealthy, down.Status)
	assert.Equal(t, "timeout", down.Error)
	assert.Equal(t, domain.HealthUnhealthy, report.OverallStatus)

	// the fast probe was never blocked by the slow one
	assert.Equal(t, domain.HealthHealthy, resultFor(t, report, "functions").Status)
}

func TestCheckDeadlineAbandonsOutstandingProbes(t *testing.T) {
	o := NewOrchestrator([]Prober{
		&fakeProber{name: "database", delay: 3 * time.Second, timeout: 5 * time.Second},
		&fakeProber{name: "functions", delay: 5 * time.Millisecond},
	}, 200*time.Millisecond, 5*time.Second, 100*time.Millisecond, 2*time.Second)

	began := time.Now()
	report := o.Check(context.Background())
	elapsed := time.Since(began)

	assert.Less(t, elapsed, time.Second, "deadline expiry must not wait for slow probes")
	down := resultFor(t, report, "database")
	assert.Equal(t, domain.HealthUnhealthy, down.Status)
	assert.Equal(t, "timeout", down.Error)
	assert.Equal(t, domain.HealthHealthy, resultFor(t, report, "functions").Status)
	assert.Equal(t, domain.HealthUnhealthy, report.OverallStatus)
}

func TestReportRecords(t *testing.T) {
	report := newOrchestrator([]Prober{
		&fakeProber{name: "database", delay: 5 * time.Millisecond},
		&fakeProber{name: "realtime", delay: 5 * time.Millisecond, err: errors.New("boom")},
	}).Check(context.Background())

	records := report.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "database", records[0].ServiceName)
	assert.Equal(t, domain.HealthHealthy, records[0].Status)
	assert.Equal(t, "realtime", records[1].ServiceName)
	assert.Equal(t, domain.HealthUnhealthy, records[1].Status)
	assert.Contains(t, records[1].Error, "boom")
}

func TestOverallStatusDerivation(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"all healthy", []string{domain.HealthHealthy, domain.HealthHealthy}, domain.HealthHealthy},
		{"one degraded", []string{domain.HealthHealthy, domain.HealthDegraded}, domain.HealthDegraded},
		{"one unhealthy", []string{domain.HealthDegraded, domain.HealthUnhealthy}, domain.HealthUnhealthy},
		{"empty set", nil, domain.HealthHealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			services := make([]Result, 0, len(tc.statuses))
			for _, s := range tc.statuses {
				services = append(services, Result{Status: s})
			}
			assert.Equal(t, tc.want, overallStatus(services))
		})
	}
}
