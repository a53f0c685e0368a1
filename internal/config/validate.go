package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/hamed0406/mirrormon/internal/domain"
)

var validate = validator.New()

// Validate reports every problem with cfg and endpoints at once.
func (c Config) Validate(endpoints []domain.Endpoint) error {
	var err error

	switch c.Strategy {
	case "ping", "direct", "icmp":
	default:
		err = multierr.Append(err, fmt.Errorf("PROBE_STRATEGY %q: want ping, direct or icmp", c.Strategy))
	}
	switch c.CacheBackend {
	case "memory", "file", "bolt":
	default:
		err = multierr.Append(err, fmt.Errorf("CACHE_BACKEND %q: want memory, file or bolt", c.CacheBackend))
	}
	if c.DefaultTimeout < time.Second || c.DefaultTimeout > 30*time.Second {
		err = multierr.Append(err, fmt.Errorf("DEFAULT_TIMEOUT_S %s out of range [1s,30s]", c.DefaultTimeout))
	}
	if c.QuickTimeout < time.Second || c.QuickTimeout > 30*time.Second {
		err = multierr.Append(err, fmt.Errorf("QUICK_TIMEOUT_S %s out of range [1s,30s]", c.QuickTimeout))
	}
	if c.MaxConcurrent < 1 {
		err = multierr.Append(err, errors.New("MAX_CONCURRENT_CHECKS must be at least 1"))
	}
	if c.PingAPIURL != "" {
		if verr := validate.Var(c.PingAPIURL, "http_url"); verr != nil {
			err = multierr.Append(err, fmt.Errorf("PING_API_URL %q is not an http(s) URL", c.PingAPIURL))
		}
	}
	if c.SlackWebhookURL != "" && !strings.HasPrefix(c.SlackWebhookURL, "https://") {
		err = multierr.Append(err, errors.New("SLACK_WEBHOOK_URL must be https"))
	}
	if _, lerr := c.Location(); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("TZ_NAME %q: %w", c.TZName, lerr))
	}

	return multierr.Append(err, ValidateEndpoints(endpoints))
}

// Location resolves TZName; empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.TZName == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TZName)
}

// ValidateEndpoints checks each endpoint and rejects duplicate URLs.
func ValidateEndpoints(endpoints []domain.Endpoint) error {
	if len(endpoints) == 0 {
		return errors.New("no endpoints configured")
	}
	var err error
	seen := make(map[string]int, len(endpoints))
	for i, ep := range endpoints {
		if verr := validate.Struct(ep); verr != nil {
			err = multierr.Append(err, fmt.Errorf("endpoint %d (%s): %w", i, ep.Name, verr))
			continue
		}
		key := strings.TrimRight(strings.ToLower(ep.URL), "/")
		if j, dup := seen[key]; dup {
			err = multierr.Append(err, fmt.Errorf("endpoint %d (%s): duplicate of endpoint %d", i, ep.URL, j))
			continue
		}
		seen[key] = i
	}
	return err
}
