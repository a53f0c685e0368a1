package logging

import (
	"strconv"

	"go.uber.org/zap"
)

const maxUALen = 50

// PerfEntry is one served batch request.
type PerfEntry struct {
	Action      string
	Cached      bool
	ElapsedMS   int64
	SuccessRate float64
	Services    int
	ClientIP    string
	UserAgent   string
}

// PerfLog appends one line per batch request to its own rotating file.
type PerfLog struct {
	log *zap.Logger
}

func NewPerfLog(logDir string) (*PerfLog, error) {
	core, err := fileCore(logDir, PerfLogFile, zap.InfoLevel)
	if err != nil {
		return nil, err
	}
	return &PerfLog{log: zap.New(core)}, nil
}

// NewPerfLogFrom wraps an existing logger; handy in tests.
func NewPerfLogFrom(l *zap.Logger) *PerfLog {
	if l == nil {
		l = zap.NewNop()
	}
	return &PerfLog{log: l}
}

func (p *PerfLog) Record(e PerfEntry) {
	if p == nil {
		return
	}
	cache := "MISS"
	if e.Cached {
		cache = "HIT"
	}
	ua := e.UserAgent
	if ua == "" {
		ua = "unknown"
	}
	if len(ua) > maxUALen {
		ua = ua[:maxUALen]
	}
	ip := e.ClientIP
	if ip == "" {
		ip = "unknown"
	}
	p.log.Info("performance",
		zap.String("action", e.Action),
		zap.String("cache", cache),
		zap.Int64("elapsed_ms", e.ElapsedMS),
		zap.String("success_rate", formatRate(e.SuccessRate)),
		zap.Int("services", e.Services),
		zap.String("client_ip", ip),
		zap.String("user_agent", ua),
	)
}

func (p *PerfLog) Sync() error {
	if p == nil {
		return nil
	}
	return p.log.Sync()
}

func formatRate(r float64) string {
	return strconv.FormatFloat(r, 'f', 1, 64) + "%"
}
