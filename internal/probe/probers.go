package probe

import (
	"context"
	"strconv"
	"time"

	"github.com/clinicops/pulsewatch/config"
	"github.com/clinicops/pulsewatch/internal/monitor"
	"github.com/gorilla/websocket"
	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DatabaseProber checks the primary store: connection ping plus a sentinel
// query so a wedged pool does not pass as healthy
type DatabaseProber struct {
	name    string
	db      *gorm.DB
	timeout time.Duration
}

func NewDatabaseProber(name string, db *gorm.DB, timeout time.Duration) *DatabaseProber {
	return &DatabaseProber{name: name, db: db, timeout: timeout}
}

func (p *DatabaseProber) Name() string           { return p.name }
func (p *DatabaseProber) Timeout() time.Duration { return p.timeout }

func (p *DatabaseProber) Probe(ctx context.Context) (map[string]string, error) {
	sqlDB, err := p.db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "database ping")
	}

	var one int
	if err := p.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return nil, errors.Wrap(err, "sentinel query")
	}
	return map[string]string{"dialect": p.db.Name()}, nil
}

// RealtimeProber dials the realtime channel websocket and hangs up again
type RealtimeProber struct {
	name     string
	endpoint string
	timeout  time.Duration
}

func NewRealtimeProber(name, endpoint string, timeout time.Duration) *RealtimeProber {
	return &RealtimeProber{name: name, endpoint: endpoint, timeout: timeout}
}

func (p *RealtimeProber) Name() string           { return p.name }
func (p *RealtimeProber) Timeout() time.Duration { return p.timeout }

func (p *RealtimeProber) Probe(ctx context.Context) (map[string]string, error) {
	dialer := websocket.Dialer{HandshakeTimeout: p.timeout}
	conn, resp, err := dialer.DialContext(ctx, p.endpoint, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrap(err, "realtime dial")
	}
	defer conn.Close()

	detail := map[string]string{}
	if resp != nil {
		detail["http_status"] = strconv.Itoa(resp.StatusCode)
	}
	return detail, nil
}

// FunctionsProber pokes the downstream functions gateway with a lightweight
// POST. Any response below 500 counts as reachable, the gateway owns its own
// business errors.
type FunctionsProber struct {
	name     string
	endpoint string
	timeout  time.Duration
}

func NewFunctionsProber(name, endpoint string, timeout time.Duration) *FunctionsProber {
	return &FunctionsProber{name: name, endpoint: endpoint, timeout: timeout}
}

func (p *FunctionsProber) Name() string           { return p.name }
func (p *FunctionsProber) Timeout() time.Duration { return p.timeout }

func (p *FunctionsProber) Probe(ctx context.Context) (map[string]string, error) {
	var code int
	err := gout.POST(p.endpoint).
		WithContext(ctx).
		SetJSON(gout.H{"source": "pulsewatch"}).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "functions request")
	}
	if code >= 500 {
		return nil, errors.Errorf("functions endpoint returned %d", code)
	}
	return map[string]string{"http_status": strconv.Itoa(code)}, nil
}

// HTTPProber issues a plain GET reachability check against any extra target
type HTTPProber struct {
	name     string
	endpoint string
	timeout  time.Duration
}

func NewHTTPProber(name, endpoint string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{name: name, endpoint: endpoint, timeout: timeout}
}

func (p *HTTPProber) Name() string           { return p.name }
func (p *HTTPProber) Timeout() time.Duration { return p.timeout }

func (p *HTTPProber) Probe(ctx context.Context) (map[string]string, error) {
	var code int
	err := gout.GET(p.endpoint).
		WithContext(ctx).
		Code(&code).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "http request")
	}
	if code >= 500 {
		return nil, errors.Errorf("endpoint returned %d", code)
	}
	return map[string]string{"http_status": strconv.Itoa(code)}, nil
}

// FromTargets builds the probe set declared in the monitor configuration.
// Unknown kinds fall back to the plain HTTP prober.
func FromTargets(targets []config.ProbeTarget, db *gorm.DB) []Prober {
	probers := make([]Prober, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true

		var timeout time.Duration
		if t.Timeout != "" {
			timeout = monitor.ParseTimeWindow(t.Timeout)
		}

		switch t.Kind {
		case "database":
			probers = append(probers, NewDatabaseProber(t.Name, db, timeout))
		case "realtime":
			probers = append(probers, NewRealtimeProber(t.Name, t.Endpoint, timeout))
		case "functions":
			probers = append(probers, NewFunctionsProber(t.Name, t.Endpoint, timeout))
		default:
			probers = append(probers, NewHTTPProber(t.Name, t.Endpoint, timeout))
		}
	}
	return probers
}
