package device

import "strings"

// Dialect identifies the CLI family a device speaks. It drives prompt
// handling and session pacing quirks.
type Dialect string

const (
	DialectIOS   Dialect = "ios"
	DialectIOSXR Dialect = "ios-xr"
	DialectNXOS  Dialect = "nxos"
)

// DetectDialect selects the CLI dialect from the inventory's software and
// platform hints. Priority order matters: XR platforms report "IOS XR"
// software which also contains "IOS", so XR and NX-OS are checked before
// the IOS default.
func DetectDialect(software, platform string) Dialect {
	sw := strings.ToUpper(software)
	pf := strings.ToUpper(platform)

	switch {
	case strings.Contains(sw, "XR") || strings.Contains(pf, "ASR9"):
		return DialectIOSXR
	case strings.Contains(sw, "NX") || strings.Contains(pf, "NEXUS"):
		return DialectNXOS
	case strings.Contains(sw, "XE"):
		return DialectIOS // IOS-XE shares the IOS CLI
	default:
		return DialectIOS
	}
}
