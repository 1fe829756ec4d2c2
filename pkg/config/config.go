// Package config manages jumphost and credential configuration for the
// automation engine. The jumphost record is persisted as a mutable JSON file
// so UI or CLI changes take effect without a restart; environment variables
// provide fallback router credentials.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/netscope-network/netscope/pkg/util"
)

// Environment keys recognized for fallback credentials and jumphost setup.
const (
	EnvRouterUsername   = "ROUTER_USERNAME"
	EnvRouterPassword   = "ROUTER_PASSWORD"
	EnvJumphostEnabled  = "JUMPHOST_ENABLED"
	EnvJumphostHost     = "JUMPHOST_HOST"
	EnvJumphostPort     = "JUMPHOST_PORT"
	EnvJumphostUsername = "JUMPHOST_USERNAME"
	EnvJumphostPassword = "JUMPHOST_PASSWORD"
)

// DefaultRouterUsername and DefaultRouterPassword are the last-resort device
// credentials when neither the jumphost record nor the environment provides any.
const (
	DefaultRouterUsername = "cisco"
	DefaultRouterPassword = "cisco"
)

// JumphostConfig is the persisted bastion configuration.
// When enabled, every device session is tunneled through the jumphost and
// the jumphost credentials are used as the device credentials: in the fleets
// this engine targets, routers and bastion share one credential set. The
// per-device username/password fields in the inventory are historical and
// are never consulted for authentication.
type JumphostConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// DefaultConfigPath returns the default location of the jumphost record.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/netscope_jumphost.json"
	}
	return filepath.Join(home, ".netscope", "jumphost.json")
}

// Source provides configuration snapshots to the connection layer.
// Current re-reads the persisted record on every call, so a saved change is
// picked up by the next connect. Save notifies invalidation observers so the
// shared tunnel can be torn down and rebuilt with fresh settings.
type Source struct {
	path   string
	getenv func(string) string

	mu        sync.Mutex
	observers []func()
}

// NewSource creates a config source backed by the given record path.
// An empty path uses DefaultConfigPath.
func NewSource(path string) *Source {
	if path == "" {
		path = DefaultConfigPath()
	}
	return &Source{path: path, getenv: os.Getenv}
}

// Current returns a snapshot of the jumphost configuration: the persisted
// record when present, else environment settings, else disabled defaults.
func (s *Source) Current() JumphostConfig {
	cfg := JumphostConfig{Port: 22}

	data, err := os.ReadFile(s.path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr == nil {
			if cfg.Port == 0 {
				cfg.Port = 22
			}
			return cfg
		}
		util.Logger.Warnf("ignoring malformed jumphost record %s", s.path)
	}

	// Fall back to environment for initial setup.
	cfg = JumphostConfig{
		Enabled:  s.getenv(EnvJumphostEnabled) == "true",
		Host:     s.getenv(EnvJumphostHost),
		Port:     22,
		Username: s.getenv(EnvJumphostUsername),
		Password: s.getenv(EnvJumphostPassword),
	}
	if p := s.getenv(EnvJumphostPort); p != "" {
		if port, err := strconv.Atoi(p); err == nil && port > 0 {
			cfg.Port = port
		}
	}
	return cfg
}

// Save persists the jumphost record and notifies invalidation observers.
func (s *Source) Save(cfg JumphostConfig) error {
	if cfg.Port == 0 {
		cfg.Port = 22
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return err
	}

	util.Logger.Infof("jumphost config saved: enabled=%v host=%s", cfg.Enabled, cfg.Host)
	s.Invalidate()
	return nil
}

// OnInvalidate registers an observer called whenever the configuration
// changes. The connection layer uses this to close the shared tunnel so the
// next connect sees fresh settings.
func (s *Source) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Invalidate notifies all registered observers.
func (s *Source) Invalidate() {
	s.mu.Lock()
	observers := make([]func(), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// Credentials is a resolved username/password pair for one device session.
type Credentials struct {
	Username string
	Password string
}

// Resolve determines the credentials for a device connection.
//
// Resolution order:
//  1. Jumphost enabled: the jumphost username/password are the device
//     credentials. An enabled jumphost with an empty host is a
//     configuration error.
//  2. Jumphost disabled or its password unset: ROUTER_USERNAME and
//     ROUTER_PASSWORD from the environment.
//  3. Neither configured: the factory-default cisco/cisco pair.
func (s *Source) Resolve() (Credentials, error) {
	cfg := s.Current()

	if cfg.Enabled {
		if cfg.Host == "" {
			return Credentials{}, util.NewConfigError("jumphost.host", "jumphost enabled but host is empty")
		}
		if cfg.Password != "" {
			return Credentials{Username: cfg.Username, Password: cfg.Password}, nil
		}
		// Jumphost enabled without a password: fall through to env.
	}

	username := s.getenv(EnvRouterUsername)
	password := s.getenv(EnvRouterPassword)
	if username == "" {
		username = DefaultRouterUsername
	}
	if password == "" {
		password = DefaultRouterPassword
	}
	return Credentials{Username: username, Password: password}, nil
}
