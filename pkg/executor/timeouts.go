package executor

import (
	"strings"
	"time"
)

// commandTimeouts maps command prefixes to read timeouts. Commands that
// can return large output (full configs, LSA databases, per-interface
// counters) get more headroom; the first matching prefix wins.
var commandTimeouts = []struct {
	prefix  string
	timeout time.Duration
}{
	{"show running-config", 180 * time.Second},
	{"show ospf database", 120 * time.Second},
	{"show interface", 120 * time.Second},
	{"show cdp neighbor detail", 90 * time.Second},
	{"terminal length 0", 10 * time.Second},
}

// DefaultCommandTimeout applies when no prefix matches.
const DefaultCommandTimeout = 60 * time.Second

// CommandTimeout returns the read timeout for a command.
func CommandTimeout(command string) time.Duration {
	cmd := strings.ToLower(strings.TrimSpace(command))
	for _, entry := range commandTimeouts {
		if strings.HasPrefix(cmd, entry.prefix) {
			return entry.timeout
		}
	}
	return DefaultCommandTimeout
}

// DefaultCommands is the built-in OSPF data collection battery used when
// the caller supplies no command list.
var DefaultCommands = []string{
	"terminal length 0",
	"show process cpu",
	"show process memory",
	"show route connected",
	"show route ospf",
	"show ospf database",
	"show ospf database self-originate",
	"show ospf database router",
	"show ospf database network",
	"show ospf interface brief",
	"show ospf neighbor",
	"show running-config router ospf",
	"show cdp neighbor",
	"show cdp neighbor detail",
	"show interface description",
	"show interface brief",
	"show ipv4 interface brief",
	"show interface",
	"show bundle",
}
