// Package config loads agent and CLI settings from CONFGEN_* environment
// variables.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"daos-confgen/internal/model"
)

const Version = "0.3.0"

type Config struct {
	NodeID             string
	Hostname           string
	SysfsRoot          string
	LibvirtURI         string
	UseLibvirt         bool
	IBProviders        []string
	EthProviders       []string
	ScanTimeout        time.Duration
	ScanInterval       time.Duration
	ListenAddr         string
	ProbeListenAddr    string
	Token              string
	HealthInterval     time.Duration
	ReconnectInterval  time.Duration
	MaxReconnectJitter time.Duration
	ShutdownTimeout    time.Duration
	ErrorBackoff       time.Duration
	TLSEnabled         bool
	TLSSkipVerify      bool
	TLSCAPath          string
	TLSCertPath        string
	TLSKeyPath         string
	LogJSON            bool
	LogLevel           string
}

func Load() (Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	cfg := Config{
		NodeID:             env("CONFGEN_NODE_ID", hostname),
		Hostname:           hostname,
		SysfsRoot:          env("CONFGEN_SYSFS_ROOT", "/"),
		LibvirtURI:         env("CONFGEN_LIBVIRT_URI", "qemu+unix:///system"),
		UseLibvirt:         envBool("CONFGEN_USE_LIBVIRT", false),
		IBProviders:        envList("CONFGEN_IB_PROVIDERS", []string{"ofi+verbs;ofi_rxm", "ucx+dc_x", "ofi+tcp;ofi_rxm"}),
		EthProviders:       envList("CONFGEN_ETH_PROVIDERS", []string{"ofi+tcp;ofi_rxm", "ofi+sockets"}),
		ScanTimeout:        envDuration("CONFGEN_SCAN_TIMEOUT", 30*time.Second),
		ScanInterval:       envDuration("CONFGEN_SCAN_INTERVAL", 5*time.Minute),
		ListenAddr:         env("CONFGEN_LISTEN_ADDR", "0.0.0.0:10101"),
		ProbeListenAddr:    env("CONFGEN_PROBE_ADDR", "0.0.0.0:10102"),
		Token:              env("CONFGEN_TOKEN", ""),
		HealthInterval:     envDuration("CONFGEN_HEALTH_INTERVAL", 10*time.Second),
		ReconnectInterval:  envDuration("CONFGEN_RECONNECT_INTERVAL", 4*time.Second),
		MaxReconnectJitter: envDuration("CONFGEN_RECONNECT_MAX_JITTER", 900*time.Millisecond),
		ShutdownTimeout:    envDuration("CONFGEN_SHUTDOWN_TIMEOUT", 20*time.Second),
		ErrorBackoff:       envDuration("CONFGEN_ERROR_BACKOFF", 1500*time.Millisecond),
		TLSEnabled:         envBool("CONFGEN_TLS_ENABLED", false),
		TLSSkipVerify:      envBool("CONFGEN_TLS_SKIP_VERIFY", false),
		TLSCAPath:          env("CONFGEN_TLS_CA_PATH", ""),
		TLSCertPath:        env("CONFGEN_TLS_CERT_PATH", ""),
		TLSKeyPath:         env("CONFGEN_TLS_KEY_PATH", ""),
		LogJSON:            envBool("CONFGEN_LOG_JSON", false),
		LogLevel:           strings.ToLower(env("CONFGEN_LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("CONFGEN_NODE_ID is required")
	}
	if strings.TrimSpace(c.SysfsRoot) == "" {
		return errors.New("CONFGEN_SYSFS_ROOT must not be empty")
	}
	if c.UseLibvirt && c.LibvirtURI == "" {
		return errors.New("CONFGEN_LIBVIRT_URI is required when libvirt is enabled")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("CONFGEN_LISTEN_ADDR is required")
	}
	if strings.TrimSpace(c.ProbeListenAddr) == "" {
		return errors.New("CONFGEN_PROBE_ADDR is required")
	}
	if len(c.IBProviders) == 0 && len(c.EthProviders) == 0 {
		return errors.New("at least one fabric provider must be configured")
	}
	if c.ScanTimeout <= 0 || c.ScanInterval <= 0 {
		return errors.New("scan timeout and interval must be > 0")
	}
	if c.HealthInterval <= 0 {
		return errors.New("CONFGEN_HEALTH_INTERVAL must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("CONFGEN_SHUTDOWN_TIMEOUT must be > 0")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unsupported log level %q", c.LogLevel)
	}
	return nil
}

// Providers maps each fabric class to the providers offered on it.
func (c Config) Providers() map[string][]string {
	return map[string][]string{
		model.NetClassInfiniband: append([]string(nil), c.IBProviders...),
		model.NetClassEthernet:   append([]string(nil), c.EthProviders...),
	}
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSSkipVerify}
	if c.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, errors.Wrap(err, "read CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
		tlsCfg.ClientCAs = pool
	}
	if c.TLSCertPath != "" || c.TLSKeyPath != "" {
		if c.TLSCertPath == "" || c.TLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath)
		if err != nil {
			return nil, errors.Wrap(err, "load mTLS cert/key")
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// envList splits a comma separated value. Provider names contain ';' so it
// is not a separator.
func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	out := make([]string, 0, 4)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if secs, convErr := strconv.Atoi(v); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}
