// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/hamed0406/mirrormon/internal/config"
)

func main() {
	if !run(os.Stdout, os.Stderr, afero.NewOsFs(), config.FromEnv()) {
		os.Exit(1)
	}
}

// run reports on cfg and returns false when the API would refuse to start.
func run(stdout, stderr io.Writer, fs afero.Fs, cfg config.Config) bool {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	endpoints, err := config.LoadEndpoints(fs, cfg.EndpointsFile)
	if err != nil {
		fail(err.Error())
		return false
	}
	if cfg.EndpointsFile == "" {
		ok(fmt.Sprintf("using %d built-in mirrors", len(endpoints)))
	} else {
		ok(fmt.Sprintf("ENDPOINTS_FILE=%s (%d mirrors)", cfg.EndpointsFile, len(endpoints)))
	}

	for _, e := range multierr.Errors(cfg.Validate(endpoints)) {
		fail(e.Error())
	}

	ok("API_ADDR=" + cfg.Addr)
	ok(fmt.Sprintf("PROBE_STRATEGY=%s CACHE_BACKEND=%s CACHE_TTL=%s", cfg.Strategy, cfg.CacheBackend, cfg.CacheTTL))

	if cfg.Strategy == "icmp" {
		warn("icmp probes need ping privileges (net.ipv4.ping_group_range or CAP_NET_RAW).")
	}
	if cfg.CacheBackend != "memory" {
		if err := fs.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			fail("CACHE_DIR not writable: " + err.Error())
		}
	}
	if len(cfg.APIKeys) == 0 {
		warn("API_KEYS empty; the API is open to anyone who can reach it.")
	}
	for _, k := range cfg.APIKeys {
		if strings.ContainsAny(k, " \t") {
			warn("API_KEYS contains whitespace; use comma-separated keys, e.g. key1,key2")
			break
		}
	}
	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; any origin may call the API from a browser.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}
	if cfg.RefreshInterval > 0 && cfg.SlackWebhookURL == "" {
		warn("REFRESH_INTERVAL set without SLACK_WEBHOOK_URL; alerts go to the log only.")
	}

	if failed {
		fmt.Fprintln(stderr, "✖ preflight failed")
		return false
	}
	ok("preflight passed")
	return true
}
