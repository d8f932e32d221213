// Package rpcconfig loads the default RPC endpoint configuration of
// §6.6: an optional YAML file, found via the ODBC_DRIVER_CONFIG
// environment variable or a platform-default path, falling back to
// built-in defaults when absent. Uses gopkg.in/yaml.v3, the teacher's
// own YAML library (see go.mod), repurposed from schema/query config to
// driver-level dial config.
package rpcconfig

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/rpcodbc/internal/obslog"
)

// EnvVar names the override environment variable.
const EnvVar = "ODBC_DRIVER_CONFIG"

const defaultPath = "/etc/rpcodbc/config.yaml"

// Config is the default RPC target a connection falls back to when no
// facade has been supplied out-of-band.
type Config struct {
	Address     string        `yaml:"address"`
	TLS         bool          `yaml:"tls"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// Default returns the built-in configuration used when no file is
// found.
func Default() Config {
	return Config{
		Address:     "localhost:443",
		TLS:         true,
		DialTimeout: 5 * time.Second,
		CallTimeout: 30 * time.Second,
	}
}

type wireConfig struct {
	Address     string `yaml:"address"`
	TLS         *bool  `yaml:"tls"`
	DialTimeout string `yaml:"dial_timeout"`
	CallTimeout string `yaml:"call_timeout"`
}

// Load reads the config file named by ODBC_DRIVER_CONFIG, or
// defaultPath if that variable is unset. A missing file is not an
// error; it yields Default(). A present-but-malformed file logs via
// obslog and also falls back to Default(), since a config error should
// never itself block a connection attempt.
func Load() Config {
	path := os.Getenv(EnvVar)
	if path == "" {
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			obslog.Warnf("rpcconfig: reading %s: %v", path, err)
		}
		return Default()
	}

	var w wireConfig
	if err := yaml.Unmarshal(data, &w); err != nil {
		obslog.Warnf("rpcconfig: parsing %s: %v", path, err)
		return Default()
	}

	cfg := Default()
	if w.Address != "" {
		cfg.Address = w.Address
	}
	if w.TLS != nil {
		cfg.TLS = *w.TLS
	}
	if w.DialTimeout != "" {
		if d, err := time.ParseDuration(w.DialTimeout); err == nil {
			cfg.DialTimeout = d
		} else {
			obslog.Warnf("rpcconfig: invalid dial_timeout %q: %v", w.DialTimeout, err)
		}
	}
	if w.CallTimeout != "" {
		if d, err := time.ParseDuration(w.CallTimeout); err == nil {
			cfg.CallTimeout = d
		} else {
			obslog.Warnf("rpcconfig: invalid call_timeout %q: %v", w.CallTimeout, err)
		}
	}
	return cfg
}
