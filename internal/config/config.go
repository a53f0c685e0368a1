package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr          string // API bind address, e.g., "127.0.0.1:8080" (Windows) or ":8080" (Docker)
	LogDir        string
	EndpointsFile string // YAML endpoint list; empty means the built-in mirrors

	Strategy       string // ping | direct | icmp
	PingAPIURL     string
	DefaultTimeout time.Duration
	QuickTimeout   time.Duration
	ConnectTimeout time.Duration
	MaxConcurrent  int
	QuickCount     int

	CacheBackend string // memory | file | bolt
	CacheDir     string
	CacheTTL     time.Duration

	RefreshInterval time.Duration // 0 disables background refresh
	SlackWebhookURL string
	AlertCooldown   time.Duration
	AlertOnRecovery bool

	PublicRPM      int
	PublicBurst    int
	APIKeys        []string
	AllowedOrigins []string
	TZName         string
}

func FromEnv() Config {
	return Config{
		Addr:          getString("API_ADDR", "127.0.0.1:8080"),
		LogDir:        getString("LOG_DIR", "logs"),
		EndpointsFile: strings.TrimSpace(os.Getenv("ENDPOINTS_FILE")),

		Strategy:       strings.ToLower(getString("PROBE_STRATEGY", "ping")),
		PingAPIURL:     strings.TrimSpace(os.Getenv("PING_API_URL")),
		DefaultTimeout: getSeconds("DEFAULT_TIMEOUT_S", 10*time.Second),
		QuickTimeout:   getSeconds("QUICK_TIMEOUT_S", 3*time.Second),
		ConnectTimeout: getMillis("CONNECT_TIMEOUT_MS", 5*time.Second),
		MaxConcurrent:  getInt("MAX_CONCURRENT_CHECKS", 50),
		QuickCount:     getInt("QUICK_COUNT", 10),

		CacheBackend: strings.ToLower(getString("CACHE_BACKEND", "file")),
		CacheDir:     getString("CACHE_DIR", "cache"),
		CacheTTL:     getSeconds("CACHE_TTL_S", 300*time.Second),

		RefreshInterval: getDuration("REFRESH_INTERVAL", 0),
		SlackWebhookURL: strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
		AlertCooldown:   getMillis("ALERT_COOLDOWN_MS", 15*time.Minute),
		AlertOnRecovery: getBool("ALERT_ON_RECOVERY", true),

		PublicRPM:      getInt("PUBLIC_RPM", 0),
		PublicBurst:    getInt("PUBLIC_BURST", 30),
		APIKeys:        getList("API_KEYS"),
		AllowedOrigins: getList("ALLOWED_ORIGINS"),
		TZName:         strings.TrimSpace(os.Getenv("TZ_NAME")), // empty keeps the process zone
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func getSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func getMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

// getDuration accepts Go durations ("90s", "5m") or bare seconds.
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func getList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
