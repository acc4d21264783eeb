package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Pinger checks remote reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// ERP states reported by Status
const (
	StateUnknown = "unknown"
	StateUp      = "up"
	StateDown    = "down"
)

// Status is the result of the last ERP probe
type Status struct {
	State     string    `json:"erp_state"`
	Reachable bool      `json:"erp_reachable"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Prober periodically pings the ERP and keeps the last result
type Prober struct {
	pinger  Pinger
	log     *logrus.Logger
	timeout time.Duration
	cron    *cron.Cron
	wg      sync.WaitGroup

	mu     sync.RWMutex
	status Status
}

// NewProber schedules Check on the given cron spec
func NewProber(pinger Pinger, schedule string, timeout time.Duration, log *logrus.Logger) (*Prober, error) {
	p := &Prober{
		pinger:  pinger,
		log:     log,
		timeout: timeout,
		cron:    cron.New(),
	}
	if _, err := p.cron.AddFunc(schedule, func() { p.Check(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid probe schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start starts the schedule and runs a first check in the background.
// Status reports StateUnknown until that check completes.
func (p *Prober) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Check(ctx)
	}()
	p.cron.Start()
}

// Stop stops the schedule and waits for running checks
func (p *Prober) Stop() {
	<-p.cron.Stop().Done()
	p.wg.Wait()
}

// Check pings the ERP once and records the outcome
func (p *Prober) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	st := Status{State: StateUp, Reachable: true, CheckedAt: time.Now().UTC()}
	if err := p.pinger.Ping(ctx); err != nil {
		st.State = StateDown
		st.Reachable = false
		st.Error = err.Error()
	}

	p.mu.Lock()
	prev := p.status
	p.status = st
	p.mu.Unlock()

	if st.Reachable != prev.Reachable || prev.CheckedAt.IsZero() {
		if st.Reachable {
			p.log.Info("ERP reachable")
		} else {
			p.log.WithField("error", st.Error).Warn("ERP unreachable")
		}
	}
	return st
}

// Status returns the last recorded probe result
func (p *Prober) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.status.CheckedAt.IsZero() {
		return Status{State: StateUnknown}
	}
	return p.status
}
