package domain

// Tier is the discrete health classification of one probed endpoint.
type Tier string

const (
	TierFast    Tier = "fast"
	TierFair    Tier = "fair"
	TierSlow    Tier = "slow"
	TierError   Tier = "error"
	TierHealthy Tier = "healthy"
	TierTimeout Tier = "timeout"
	TierUnknown Tier = "unknown"
)

// Usable reports whether a tier means the mirror answered fast enough to pull from.
func (t Tier) Usable() bool {
	switch t {
	case TierFast, TierFair, TierSlow, TierHealthy:
		return true
	}
	return false
}

// Endpoint is one configured registry mirror.
type Endpoint struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	URL      string `json:"url" yaml:"url" validate:"required,http_url"`
	Provider string `json:"provider" yaml:"provider"`
}

// Measurement is the raw outcome of probing a single URL. Status is filled in
// by the classifier after the probe returns.
type Measurement struct {
	URL            string    `json:"url"`
	Status         Tier      `json:"status"`
	ResponseTimeMS int64     `json:"responseTime"`
	Error          string    `json:"error"`
	Method         string    `json:"method"`
	Server         string    `json:"server"`
	IP             string    `json:"ip"`
	HTTPCode       int       `json:"httpCode,omitempty"`
	Timestamp      Timestamp `json:"timestamp"`

	// Reachable is the classifier's success flag: a usable latency was obtained.
	Reachable bool `json:"-"`
}

// ServiceResult is a classified measurement tagged with its endpoint metadata.
type ServiceResult struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Measurement
}
