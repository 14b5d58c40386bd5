package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dispatch-backend/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting. Values are layered: Default, then the
// optional YAML file, then DISPATCH_* environment variables, then flags.
type Config struct {
	Env         string `yaml:"env" json:"env"`
	Port        int    `yaml:"port" json:"port"`
	LogJSON     bool   `yaml:"log_json" json:"logJson"`
	DatabaseURL string `yaml:"database_url" json:"-"`

	Secrets  Secrets  `yaml:"secrets" json:"-"`
	Upstream Upstream `yaml:"upstream" json:"upstream"`
	Poll     Poll     `yaml:"poll" json:"poll"`
	Events   Events   `yaml:"events" json:"events"`
}

// Secrets are four independent credentials. None falls back to another.
type Secrets struct {
	// Webhook authenticates inbound courier status updates.
	Webhook string `yaml:"webhook"`
	// Import authenticates the order import endpoint.
	Import string `yaml:"import"`
	// Upstream is sent on every outbound call to the upstream admin API.
	Upstream string `yaml:"upstream"`
	// AdminJWT signs dashboard tokens.
	AdminJWT string `yaml:"admin_jwt"`
}

type Upstream struct {
	BaseURL string        `yaml:"base_url" json:"baseUrl"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// StatusLookup is "direct" or "list".
	StatusLookup string `yaml:"status_lookup" json:"statusLookup"`
	SourceTag    string `yaml:"source_tag" json:"sourceTag"`
}

type Poll struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
	Statuses []string      `yaml:"statuses" json:"statuses"`
}

type Events struct {
	AMQPURL  string `yaml:"amqp_url" json:"-"`
	Exchange string `yaml:"exchange" json:"exchange"`
}

func Default() Config {
	return Config{
		Env:     "dev",
		Port:    5000,
		LogJSON: true,
		Upstream: Upstream{
			BaseURL:      "http://127.0.0.1:8081",
			Timeout:      10 * time.Second,
			StatusLookup: "direct",
			SourceTag:    "upstream",
		},
		Poll: Poll{
			Interval: 0,
			Statuses: []string{string(domain.UpstreamConfirmed), string(domain.UpstreamAccepted)},
		},
		Events: Events{
			Exchange: "order_events",
		},
	}
}

// Load reads path (when non-empty) over the defaults and applies the
// environment on top.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return fromEnv(c), nil
}

// Validate rejects settings the service cannot run with. Missing secrets are
// not an error here: the guarded endpoints fail closed on their own.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Upstream.StatusLookup {
	case "direct", "list":
	default:
		return fmt.Errorf("invalid upstream.status_lookup %q", c.Upstream.StatusLookup)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Poll.Interval < 0 {
		return fmt.Errorf("poll.interval must not be negative")
	}
	return nil
}

func fromEnv(c Config) Config {
	if v := os.Getenv("DISPATCH_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("DISPATCH_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("DISPATCH_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	if v := os.Getenv("DISPATCH_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("DISPATCH_WEBHOOK_SECRET"); v != "" {
		c.Secrets.Webhook = v
	}
	if v := os.Getenv("DISPATCH_IMPORT_SECRET"); v != "" {
		c.Secrets.Import = v
	}
	if v := os.Getenv("DISPATCH_UPSTREAM_SECRET"); v != "" {
		c.Secrets.Upstream = v
	}
	if v := os.Getenv("DISPATCH_ADMIN_JWT_SECRET"); v != "" {
		c.Secrets.AdminJWT = v
	}
	if v := os.Getenv("DISPATCH_UPSTREAM_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("DISPATCH_UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Upstream.Timeout = d
		}
	}
	if v := os.Getenv("DISPATCH_UPSTREAM_STATUS_LOOKUP"); v != "" {
		c.Upstream.StatusLookup = v
	}
	if v := os.Getenv("DISPATCH_SOURCE_TAG"); v != "" {
		c.Upstream.SourceTag = v
	}
	if v := os.Getenv("DISPATCH_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Poll.Interval = d
		}
	}
	if v := os.Getenv("DISPATCH_POLL_STATUSES"); v != "" {
		c.Poll.Statuses = splitList(v)
	}
	if v := os.Getenv("DISPATCH_AMQP_URL"); v != "" {
		c.Events.AMQPURL = v
	}
	if v := os.Getenv("DISPATCH_AMQP_EXCHANGE"); v != "" {
		c.Events.Exchange = v
	}
	return c
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
