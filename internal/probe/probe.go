package probe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/mirrormon/internal/domain"
)

// Prober measures reachability and latency of a single URL.
//
// Implementations never panic and never return an error: every failure is
// reported through the returned Measurement's Error field together with the
// elapsed wall-clock time.
type Prober interface {
	Probe(ctx context.Context, target string, timeout time.Duration) domain.Measurement
}

// Strategy names a probing implementation.
type Strategy string

const (
	StrategyPing   Strategy = "ping"
	StrategyDirect Strategy = "direct"
	StrategyICMP   Strategy = "icmp"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyPing, StrategyDirect, StrategyICMP:
		return st, nil
	}
	return "", fmt.Errorf("unknown probe strategy %q", s)
}

// Preset returns the threshold table that goes with a strategy.
func (s Strategy) Preset() Thresholds {
	if s == StrategyDirect {
		return DirectPreset
	}
	return PingPreset
}

var errInvalidHost = errors.New("invalid host")

// Options tune the probers built by New.
type Options struct {
	PingAPIURL     string
	ConnectTimeout time.Duration
	ICMPCount      int
}

func New(s Strategy, opts Options) (Prober, error) {
	switch s {
	case StrategyPing:
		return NewPingAPIProber(opts.PingAPIURL), nil
	case StrategyDirect:
		return NewDirectProber(opts.ConnectTimeout), nil
	case StrategyICMP:
		return NewICMPProber(opts.ICMPCount), nil
	}
	return nil, fmt.Errorf("unknown probe strategy %q", s)
}

// Measure probes target and classifies the result with th.
func Measure(ctx context.Context, p Prober, th Thresholds, target string, timeout time.Duration) domain.Measurement {
	m := p.Probe(ctx, target, timeout)
	m.Status = th.Classify(m.ResponseTimeMS, m.Reachable)
	return m
}

// ValidTarget reports whether raw is an absolute http(s) URL with a host.
func ValidTarget(raw string) bool {
	_, err := parseTarget(raw)
	return err == nil
}

func parseTarget(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, errInvalidHost
	}
	return u, nil
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
