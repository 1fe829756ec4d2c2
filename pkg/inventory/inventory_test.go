package inventory

import (
	"os"
	"path/filepath"
	"testing"
)

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeInventory(t, `
devices:
  - id: dev-1
    name: zwe-r1
    address: 172.20.0.11
    software: IOS-XR 7.3.2
    platform: ASR9001
  - id: dev-2
    name: usa-r2
    address: 172.20.0.12
    port: 2222
    country: USA
`)

	devices, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("len(devices) = %d, want 2", len(devices))
	}

	d := devices[0]
	if d.Name != "zwe-r1" || d.Address != "172.20.0.11" {
		t.Errorf("device[0] = %+v", d)
	}
	if d.EffectivePort() != 22 {
		t.Errorf("EffectivePort() = %d, want 22", d.EffectivePort())
	}
	if d.EffectiveCountry() != "ZWE" {
		t.Errorf("EffectiveCountry() = %q, want ZWE", d.EffectiveCountry())
	}

	if devices[1].EffectivePort() != 2222 {
		t.Errorf("device[1] port = %d, want 2222", devices[1].EffectivePort())
	}
	if devices[1].EffectiveCountry() != "USA" {
		t.Errorf("device[1] country = %q, want USA", devices[1].EffectiveCountry())
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", "devices:\n  - name: r1\n    address: 1.2.3.4\n"},
		{"missing name", "devices:\n  - id: d1\n    address: 1.2.3.4\n"},
		{"missing address", "devices:\n  - id: d1\n    name: r1\n"},
		{"duplicate id", "devices:\n  - {id: d1, name: r1, address: 1.2.3.4}\n  - {id: d1, name: r2, address: 1.2.3.5}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInventory(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want validation error")
			}
		})
	}
}

func TestNames(t *testing.T) {
	devices := []Device{{Name: "a"}, {Name: "b"}}
	names := Names(devices)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v", names)
	}
}
