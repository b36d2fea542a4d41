package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type appConfig struct {
	listenAddr    string
	listenBacklog int
	agencies      int
	logFormat     string
	logLevel      string
	storeBackend  string
	storePath     string
	storeDSN      string
	metricsAddr   string
	mdnsEnable    bool
	mdnsName      string
	strictWinners bool
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":12345", "TCP listen address")
	backlog := flag.Int("listen-backlog", 128, "Listen socket backlog (validated only; the listener uses the OS default)")
	agencies := flag.Int("agencies", 5, "Number of agencies the draw waits for")
	logFormat := flag.String("log-format", "plain", "Log format: plain|color")
	logLevel := flag.String("log-level", "INFO", "Log level: DEBUG|INFO|WARNING|ERROR|CRITICAL")
	storeBackend := flag.String("store-backend", "file", "Bet store backend: file|postgres")
	storePath := flag.String("store-path", "bets.csv", "CSV file path (file backend)")
	storeDSN := flag.String("store-dsn", "", "PostgreSQL connection string (postgres backend)")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g. :9090); empty disables")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS service advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default lotteryd-<hostname>)")
	strictWinners := flag.Bool("strict-winners", false, "Reply NOT_READY to REQUEST_WINNERS before quorum instead of an empty list")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.listenAddr = *listen
	cfg.listenBacklog = *backlog
	cfg.agencies = *agencies
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.storeBackend = *storeBackend
	cfg.storePath = *storePath
	cfg.storeDSN = *storeDSN
	cfg.metricsAddr = *metricsAddr
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.strictWinners = *strictWinners

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "plain", "color":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.storeBackend {
	case "file", "postgres":
	default:
		return fmt.Errorf("invalid store-backend: %s", c.storeBackend)
	}
	if c.storeBackend == "postgres" && c.storeDSN == "" {
		return errors.New("store-dsn is required when store-backend=postgres")
	}
	if c.agencies <= 0 {
		return fmt.Errorf("agencies must be > 0 (got %d)", c.agencies)
	}
	if c.listenBacklog < 0 {
		return fmt.Errorf("listen-backlog must be >= 0 (got %d)", c.listenBacklog)
	}
	return nil
}

// applyEnvOverrides maps LOTTERYD_* environment variables onto cfg, unless
// the corresponding flag was explicitly set (flags win).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["listen"]; !ok {
		if v, ok := get("LOTTERYD_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["listen-backlog"]; !ok {
		if v, ok := get("LOTTERYD_LISTEN_BACKLOG"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.listenBacklog = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LOTTERYD_LISTEN_BACKLOG: %w", err)
			}
		}
	}
	if _, ok := set["agencies"]; !ok {
		if v, ok := get("LOTTERYD_AGENCIES"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.agencies = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid LOTTERYD_AGENCIES: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("LOTTERYD_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("LOTTERYD_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["store-backend"]; !ok {
		if v, ok := get("LOTTERYD_STORE_BACKEND"); ok && v != "" {
			c.storeBackend = v
		}
	}
	if _, ok := set["store-path"]; !ok {
		if v, ok := get("LOTTERYD_STORE_PATH"); ok && v != "" {
			c.storePath = v
		}
	}
	if _, ok := set["store-dsn"]; !ok {
		if v, ok := get("LOTTERYD_STORE_DSN"); ok {
			c.storeDSN = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("LOTTERYD_METRICS_ADDR"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("LOTTERYD_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("LOTTERYD_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["strict-winners"]; !ok {
		if v, ok := get("LOTTERYD_STRICT_WINNERS"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.strictWinners = true
			case "0", "false", "no", "off":
				c.strictWinners = false
			}
		}
	}
	return firstErr
}
