package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-ping/ping"
)

const (
	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 2 * time.Second
)

// PingFunc reports whether host answered within timeout.
type PingFunc func(ctx context.Context, host string, timeout time.Duration) (bool, error)

// ProberOptions configure a Prober.
type ProberOptions struct {
	Host       string
	Interval   time.Duration
	Timeout    time.Duration
	Privileged bool
	Ping       PingFunc
	Logger     *slog.Logger
}

// Prober checks reachability of one host on a fixed cadence.
type Prober struct {
	host     string
	interval time.Duration
	timeout  time.Duration
	ping     PingFunc
	logger   *slog.Logger
	results  chan bool
}

// NewProber returns an idle prober. Without a Ping function it sends ICMP
// echo requests.
func NewProber(opts ProberOptions) (*Prober, error) {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		return nil, fmt.Errorf("probe host required")
	}
	p := &Prober{
		host:     host,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		ping:     opts.Ping,
		logger:   opts.Logger,
		results:  make(chan bool, 1),
	}
	if p.interval <= 0 {
		p.interval = defaultProbeInterval
	}
	if p.timeout <= 0 {
		p.timeout = defaultProbeTimeout
	}
	if p.ping == nil {
		privileged := opts.Privileged
		p.ping = func(ctx context.Context, host string, timeout time.Duration) (bool, error) {
			return icmpPing(ctx, host, timeout, privileged)
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Start runs the prober in its own goroutine.
func (p *Prober) Start(ctx context.Context) {
	go func() { _ = p.Run(ctx) }()
}

// Run probes immediately and then every interval until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.probe(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll returns the newest probe result not yet consumed.
func (p *Prober) Poll() (up bool, ok bool) {
	select {
	case up = <-p.results:
		return up, true
	default:
		return false, false
	}
}

func (p *Prober) probe(ctx context.Context) {
	up, err := p.ping(ctx, p.host, p.timeout)
	if err != nil {
		p.logger.Debug("telemetry: probe failed", "host", p.host, "error", err)
		up = false
	}
	if ctx.Err() != nil {
		return
	}
	// Keep only the newest result.
	select {
	case <-p.results:
	default:
	}
	p.results <- up
}

func icmpPing(ctx context.Context, host string, timeout time.Duration, privileged bool) (bool, error) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", host, err)
	}
	pinger.SetPrivileged(privileged)
	pinger.Count = 1
	pinger.Timeout = timeout

	stop := context.AfterFunc(ctx, pinger.Stop)
	defer stop()
	if err := pinger.Run(); err != nil {
		return false, fmt.Errorf("ping %s: %w", host, err)
	}
	return pinger.Statistics().PacketsRecv > 0, nil
}
