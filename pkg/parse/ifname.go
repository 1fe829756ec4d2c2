package parse

import (
	"regexp"
	"strings"
)

// expandFullNames lists full IOS-XR interface type names; a name that
// already starts with one passes through ExpandInterfaceName untouched.
var expandFullNames = []string{
	"HundredGigE",
	"FortyGigE",
	"TwentyFiveGigE",
	"TenGigE",
	"GigabitEthernet",
	"FastEthernet",
	"Bundle-Ether",
	"Loopback",
	"MgmtEth",
	"BVI",
	"tunnel-ip",
	"tunnel-te",
	"NVE",
	"Null",
}

var expandAbbrevs = []struct {
	abbrev string
	full   string
}{
	{"Hu", "HundredGigE"},
	{"Fo", "FortyGigE"},
	{"Tf", "TwentyFiveGigE"},
	{"Te", "TenGigE"},
	{"Gi", "GigabitEthernet"},
	{"Fa", "FastEthernet"},
	{"BE", "Bundle-Ether"},
	{"Lo", "Loopback"},
	{"Mg", "MgmtEth"},
	{"Nu", "Null"},
}

var abbrevMap = []struct {
	full   string
	abbrev string
}{
	{"HUNDREDGIGE", "Hu"},
	{"FORTYGIGE", "Fo"},
	{"TWENTYFIVEGIGE", "Tf"},
	{"TENGIGABITETHERNET", "Te"},
	{"TENGIGE", "Te"},
	{"GIGABITETHERNET", "Gi"},
	{"FASTETHERNET", "Fa"},
	{"BUNDLE-ETHER", "BE"},
	{"LOOPBACK", "Lo"},
	{"MGMTETH", "Mg"},
	{"NULL", "Nu"},
}

var (
	holdtimeRe   = regexp.MustCompile(`(?i)Holdtime.*`)
	capabilityRe = regexp.MustCompile(`(?i)Capability.*`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// CleanInterfaceName strips CDP table garbage that leaks into interface
// names: wrapped-line remnants ("FastEthernet1/0\nHoldtime"), stray
// whitespace and control characters.
func CleanInterfaceName(name string) string {
	if name == "" {
		return ""
	}
	name = strings.NewReplacer("\n", "", "\r", "", "\t", "").Replace(name)
	name = holdtimeRe.ReplaceAllString(name, "")
	name = capabilityRe.ReplaceAllString(name, "")
	name = spaceRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// ExpandInterfaceName converts an abbreviated interface name to its full
// IOS-XR form: Gi0/0/0/1 -> GigabitEthernet0/0/0/1, BE200 -> Bundle-Ether200.
// Full names and unrecognized types pass through unchanged.
func ExpandInterfaceName(name string) string {
	for _, full := range expandFullNames {
		if strings.HasPrefix(name, full) {
			return name
		}
	}
	for _, m := range expandAbbrevs {
		if strings.HasPrefix(name, m.abbrev) {
			return m.full + name[len(m.abbrev):]
		}
	}
	return name
}

// AbbreviateInterfaceName converts an interface name to its canonical
// abbreviated form used as the storage key, so GigabitEthernet0/0/0/0 and
// Gi0/0/0/0 land in the same row. Subinterface suffixes are preserved and
// CDP garbage is cleaned first. Idempotent.
func AbbreviateInterfaceName(name string) string {
	name = CleanInterfaceName(name)
	if name == "" {
		return ""
	}

	suffix := ""
	if idx := strings.Index(name, "."); idx >= 0 {
		suffix = name[idx:]
		name = name[:idx]
	}

	upper := strings.ToUpper(name)
	for _, m := range abbrevMap {
		if strings.HasPrefix(upper, m.full) {
			return m.abbrev + name[len(m.full):] + suffix
		}
	}
	return name + suffix
}

// ShortenInterfaceID compresses an interface name for use inside link ids:
// GigabitEthernet0/0/0/1 -> Gi0001, Bundle-Ether200 -> BE200.
func ShortenInterfaceID(name string) string {
	short := AbbreviateInterfaceName(name)
	return strings.ReplaceAll(short, "/", "")
}

// IsPhysicalInterface reports whether the interface is a physical port as
// opposed to a subinterface.
func IsPhysicalInterface(name string) bool {
	return !strings.Contains(name, ".")
}

// ParentInterface returns the parent of a subinterface, or "" for
// physical interfaces.
func ParentInterface(name string) string {
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx]
	}
	return ""
}
