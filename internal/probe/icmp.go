package probe

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/hamed0406/mirrormon/internal/domain"
)

const (
	MethodICMP       = "ICMP"
	defaultICMPCount = 3
)

// ICMPProber pings the mirror host. It tries an unprivileged UDP socket first
// and falls back to a raw socket, which needs root or CAP_NET_RAW.
type ICMPProber struct {
	Count    int
	Interval time.Duration
}

func NewICMPProber(count int) *ICMPProber {
	if count <= 0 {
		count = defaultICMPCount
	}
	return &ICMPProber{Count: count, Interval: 100 * time.Millisecond}
}

func (p *ICMPProber) Probe(ctx context.Context, target string, timeout time.Duration) domain.Measurement {
	start := time.Now()
	m := domain.Measurement{URL: target, Method: MethodICMP, Timestamp: domain.Now()}

	u, err := parseTarget(target)
	if err != nil {
		m.Error = "Invalid host"
		m.ResponseTimeMS = elapsedMS(start)
		return m
	}

	pinger, err := probing.NewPinger(u.Hostname())
	if err != nil {
		m.Error = fmt.Sprintf("create pinger failed: %v", err)
		m.ResponseTimeMS = elapsedMS(start)
		return m
	}
	pinger.Count = p.Count
	pinger.Timeout = timeout
	pinger.Interval = p.Interval

	pinger.SetPrivileged(false)
	if err := pinger.RunWithContext(ctx); err != nil {
		pinger.SetPrivileged(true)
		if err := pinger.RunWithContext(ctx); err != nil {
			m.Error = fmt.Sprintf("ping failed: %v", err)
			m.ResponseTimeMS = elapsedMS(start)
			return m
		}
	}

	stats := pinger.Statistics()
	if addr := pinger.IPAddr(); addr != nil {
		m.IP = addr.String()
	}
	if stats.PacketsRecv == 0 {
		m.Error = fmt.Sprintf("all %d ping attempts failed", stats.PacketsSent)
		m.ResponseTimeMS = elapsedMS(start)
		return m
	}
	m.Reachable = true
	m.ResponseTimeMS = stats.AvgRtt.Milliseconds()
	return m
}
