package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/netscope-network/netscope/pkg/util"
)

func testSource(t *testing.T, env map[string]string) *Source {
	t.Helper()
	s := NewSource(filepath.Join(t.TempDir(), "jumphost.json"))
	s.getenv = func(key string) string { return env[key] }
	return s
}

func TestSource_CurrentDefaults(t *testing.T) {
	s := testSource(t, nil)

	cfg := s.Current()
	if cfg.Enabled {
		t.Error("Enabled = true, want false")
	}
	if cfg.Port != 22 {
		t.Errorf("Port = %d, want 22", cfg.Port)
	}
}

func TestSource_SaveLoad(t *testing.T) {
	s := testSource(t, nil)

	want := JumphostConfig{
		Enabled:  true,
		Host:     "bastion.example.net",
		Port:     2222,
		Username: "netops",
		Password: "hunter2",
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got := s.Current()
	if got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}

func TestSource_SaveNotifiesObservers(t *testing.T) {
	s := testSource(t, nil)

	invalidated := 0
	s.OnInvalidate(func() { invalidated++ })

	if err := s.Save(JumphostConfig{Enabled: true, Host: "jump1"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if invalidated != 1 {
		t.Errorf("observer called %d times, want 1", invalidated)
	}
}

func TestSource_CurrentEnvFallback(t *testing.T) {
	s := testSource(t, map[string]string{
		EnvJumphostEnabled:  "true",
		EnvJumphostHost:     "10.0.0.1",
		EnvJumphostPort:     "2022",
		EnvJumphostUsername: "jumper",
		EnvJumphostPassword: "secret",
	})

	cfg := s.Current()
	if !cfg.Enabled || cfg.Host != "10.0.0.1" || cfg.Port != 2022 || cfg.Username != "jumper" {
		t.Errorf("Current() = %+v", cfg)
	}
}

func TestResolve_JumphostCredentialsWin(t *testing.T) {
	s := testSource(t, map[string]string{
		EnvRouterUsername: "fallback-user",
		EnvRouterPassword: "fallback-pass",
	})
	if err := s.Save(JumphostConfig{Enabled: true, Host: "jump1", Username: "bastion-user", Password: "bastion-pass"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	creds, err := s.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if creds.Username != "bastion-user" || creds.Password != "bastion-pass" {
		t.Errorf("Resolve() = %+v, want bastion credentials", creds)
	}
}

func TestResolve_EnvFallback(t *testing.T) {
	s := testSource(t, map[string]string{
		EnvRouterUsername: "router-user",
		EnvRouterPassword: "router-pass",
	})

	creds, err := s.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if creds.Username != "router-user" || creds.Password != "router-pass" {
		t.Errorf("Resolve() = %+v, want env credentials", creds)
	}
}

func TestResolve_FactoryDefault(t *testing.T) {
	s := testSource(t, nil)

	creds, err := s.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if creds.Username != DefaultRouterUsername || creds.Password != DefaultRouterPassword {
		t.Errorf("Resolve() = %+v, want factory defaults", creds)
	}
}

func TestResolve_EnabledEmptyHost(t *testing.T) {
	s := testSource(t, nil)
	if err := s.Save(JumphostConfig{Enabled: true, Host: "", Password: "x"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	_, err := s.Resolve()
	if err == nil {
		t.Fatal("Resolve() error = nil, want ConfigError")
	}
	if !errors.Is(err, util.ErrConfig) {
		t.Errorf("Resolve() error = %v, want ErrConfig", err)
	}
}

func TestResolve_JumphostWithoutPasswordFallsBack(t *testing.T) {
	s := testSource(t, map[string]string{
		EnvRouterPassword: "env-pass",
	})
	if err := s.Save(JumphostConfig{Enabled: true, Host: "jump1", Username: "bastion-user"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	creds, err := s.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if creds.Password != "env-pass" {
		t.Errorf("Password = %q, want env fallback", creds.Password)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	want := filepath.Join(home, ".netscope", "jumphost.json")
	if got := DefaultConfigPath(); got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
}
