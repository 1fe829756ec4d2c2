// Package inventory defines the device inventory consumed by the automation
// engine and loads it from YAML files.
package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/netscope-network/netscope/pkg/util"
)

// Device is one router in the fleet. Devices are externally owned; the
// engine only reads them. Username and Password are historical fields kept
// for inventory compatibility and are not used for authentication (see
// config.Resolve).
type Device struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Address  string `yaml:"address" json:"address"`
	Port     int    `yaml:"port,omitempty" json:"port"`
	Protocol string `yaml:"protocol,omitempty" json:"protocol"`
	Software string `yaml:"software,omitempty" json:"software"`
	Platform string `yaml:"platform,omitempty" json:"platform"`
	Country  string `yaml:"country,omitempty" json:"country"`
	Username string `yaml:"username,omitempty" json:"-"`
	Password string `yaml:"password,omitempty" json:"-"`
}

// EffectivePort returns the SSH port, defaulting to 22.
func (d Device) EffectivePort() int {
	if d.Port == 0 {
		return 22
	}
	return d.Port
}

// EffectiveCountry returns the device country, deriving it from the
// hostname prefix when the inventory leaves it unset.
func (d Device) EffectiveCountry() string {
	if d.Country != "" {
		return d.Country
	}
	return util.CountryCode(d.Name)
}

// File is the on-disk inventory document.
type File struct {
	Devices []Device `yaml:"devices"`
}

// Load reads a YAML inventory file and validates it.
func Load(path string) ([]Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Devices))
	for i, d := range f.Devices {
		if d.ID == "" {
			return nil, fmt.Errorf("inventory %s: device %d has no id", path, i)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("inventory %s: device %s has no name", path, d.ID)
		}
		if d.Address == "" {
			return nil, fmt.Errorf("inventory %s: device %s has no address", path, d.ID)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("inventory %s: duplicate device id %s", path, d.ID)
		}
		seen[d.ID] = true
	}

	return f.Devices, nil
}

// Names returns the device names, used as the valid-device allowlist for
// topology transformation.
func Names(devices []Device) []string {
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name)
	}
	return names
}
