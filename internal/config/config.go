// Package config builds server settings from defaults, an optional JSON file,
// command-line flags and environment variables, in that order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Config holds runtime settings for the catalog server.
type Config struct {
	Addr            string
	DatabaseDSN     string // empty selects the in-memory store
	JWTKey          string
	AccessTTL       time.Duration
	SweepInterval   time.Duration
	CORSOrigins     []string
	AuthPerMinute   int
	AuthBurst       int
	ShutdownTimeout time.Duration
	ConfigFile      string
}

// LoadDefaults populates c with development defaults. JWTKey has none.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DatabaseDSN = ""
	c.AccessTTL = 8 * time.Hour
	c.SweepInterval = time.Hour
	c.CORSOrigins = []string{"http://localhost:3000"}
	c.AuthPerMinute = 20
	c.AuthBurst = 5
	c.ShutdownTimeout = 10 * time.Second
}

// Load applies defaults, the JSON file named by -config, flags from args and
// finally the environment looked up through getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	// First pass only discovers -config; unknown flags are reported by the second pass.
	pre := flag.NewFlagSet("config", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	cfg.bind(pre)
	_ = pre.Parse(args)
	if p := getenv("CONFIG"); p != "" {
		cfg.ConfigFile = p
	}
	if cfg.ConfigFile != "" {
		if err := cfg.loadFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if cfg.JWTKey == "" {
		return nil, errors.New("missing jwt signing key (-jwt-key or JWT_KEY)")
	}
	if cfg.AccessTTL <= 0 || cfg.SweepInterval <= 0 {
		return nil, errors.New("access-ttl and sweep-interval must be positive")
	}
	return cfg, nil
}

// bind registers flags whose defaults are the current values of c.
func (c *Config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar(&c.DatabaseDSN, "dsn", c.DatabaseDSN, "PostgreSQL DSN; empty keeps data in memory")
	fs.StringVar(&c.JWTKey, "jwt-key", c.JWTKey, "HS256 signing key (required)")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "access token TTL")
	fs.DurationVar(&c.SweepInterval, "sweep-interval", c.SweepInterval, "how often expired revoked tokens are purged")
	fs.Func("cors-origin", "comma-separated allowed CORS origins", func(v string) error {
		c.CORSOrigins = splitList(v)
		return nil
	})
	fs.IntVar(&c.AuthPerMinute, "auth-rate", c.AuthPerMinute, "signup/login requests per minute per IP")
	fs.IntVar(&c.AuthBurst, "auth-burst", c.AuthBurst, "signup/login burst per IP")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown limit")
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "path to JSON config file")
	fs.StringVar(&c.ConfigFile, "c", c.ConfigFile, "path to JSON config file (shorthand)")
}

// fileConfig mirrors Config with durations as strings like "8h".
type fileConfig struct {
	Addr            *string  `json:"addr"`
	DatabaseDSN     *string  `json:"database_dsn"`
	JWTKey          *string  `json:"jwt_key"`
	AccessTTL       *string  `json:"access_ttl"`
	SweepInterval   *string  `json:"sweep_interval"`
	CORSOrigins     []string `json:"cors_origins"`
	AuthPerMinute   *int     `json:"auth_per_minute"`
	AuthBurst       *int     `json:"auth_burst"`
	ShutdownTimeout *string  `json:"shutdown_timeout"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	setStr(&c.Addr, fc.Addr)
	setStr(&c.DatabaseDSN, fc.DatabaseDSN)
	setStr(&c.JWTKey, fc.JWTKey)
	if fc.CORSOrigins != nil {
		c.CORSOrigins = fc.CORSOrigins
	}
	if fc.AuthPerMinute != nil {
		c.AuthPerMinute = *fc.AuthPerMinute
	}
	if fc.AuthBurst != nil {
		c.AuthBurst = *fc.AuthBurst
	}
	for _, d := range []struct {
		dst *time.Duration
		src *string
	}{
		{&c.AccessTTL, fc.AccessTTL},
		{&c.SweepInterval, fc.SweepInterval},
		{&c.ShutdownTimeout, fc.ShutdownTimeout},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SERVER_ADDRESS"); v != "" {
		c.Addr = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		c.DatabaseDSN = v
	}
	if v := getenv("JWT_KEY"); v != "" {
		c.JWTKey = v
	}
	if v := getenv("ORIGIN"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := getenv("ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ACCESS_TTL: %w", err)
		}
		c.AccessTTL = d
	}
	return nil
}

func setStr(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func splitList(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
