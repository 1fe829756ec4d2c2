package parse

import (
	"regexp"
	"strings"
)

// CDPNeighbor is one neighbor from CDP output. Brief output fills only the
// identity and interface fields; detail output adds platform and address.
type CDPNeighbor struct {
	DeviceID        string `json:"device_id"`
	LocalInterface  string `json:"local_interface"`
	RemoteInterface string `json:"remote_interface"`
	Platform        string `json:"platform,omitempty"`
	IPAddress       string `json:"ip_address,omitempty"`
}

// CDPResult is the parse of a CDP neighbor command.
type CDPResult struct {
	Neighbors []CDPNeighbor `json:"neighbors"`
}

var (
	cdpDetailIntfRe = regexp.MustCompile(`Interface:\s+(\S+?),.*Port ID.*:\s+(\S+)`)
	cdpPortIDRe     = regexp.MustCompile(`(Gig|Fast|Ten|Et|Hu|Fo)[a-zA-Z]*\s?[\d/]+`)
)

// interfaceHint reports whether a CDP table row plausibly contains
// interface columns.
func interfaceHint(line string) bool {
	for _, h := range []string{"Gi", "Te", "Hu", "Fa", "Eth", "Ten", "Gig", "Fast"} {
		if strings.Contains(line, h) {
			return true
		}
	}
	return false
}

// CDPBrief parses the tabular "show cdp neighbors" output. Long device
// names wrap onto their own line with the remaining columns indented on
// the next; indented continuation lines are skipped, matching how the
// table is read device-first.
//
//	Device ID        Local Intrfce     Holdtme    Capability  Platform  Port ID
//	deu-r6.cisco.lo  Gi0/0/0/4         164        R           IOS-XRv 9 Gi0/0/0/4
func CDPBrief(output string) *CDPResult {
	r := &CDPResult{Neighbors: []CDPNeighbor{}}

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Device ID") || strings.Contains(line, "Capability") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !interfaceHint(line) {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 6 {
			continue
		}
		r.Neighbors = append(r.Neighbors, CDPNeighbor{
			DeviceID:        parts[0],
			LocalInterface:  CleanInterfaceName(parts[1]),
			RemoteInterface: CleanInterfaceName(parts[len(parts)-1]),
		})
	}

	return r
}

// CDPDetail parses "show cdp neighbors detail" blocks:
//
//	Device ID: deu-r6
//	  ...
//	Platform: cisco IOS-XRv 9000,  Capabilities: Router
//	Interface: GigabitEthernet0/0/0/1
//	Port ID (outgoing port): GigabitEthernet0/0/0/1
//	  IP address: 172.13.0.6
func CDPDetail(output string) *CDPResult {
	r := &CDPResult{Neighbors: []CDPNeighbor{}}

	var current *CDPNeighbor
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, "Device ID:"):
			if current != nil {
				r.Neighbors = append(r.Neighbors, *current)
			}
			idx := strings.LastIndex(line, ":")
			current = &CDPNeighbor{DeviceID: strings.TrimSpace(line[idx+1:])}

		case current == nil:
			continue

		case strings.Contains(line, "Platform:"):
			fields := strings.Split(line, ",")
			platform := strings.TrimSpace(strings.Replace(fields[0], "Platform:", "", 1))
			current.Platform = platform

		case strings.Contains(line, "Interface:"):
			if m := cdpDetailIntfRe.FindStringSubmatch(line); m != nil {
				current.LocalInterface = CleanInterfaceName(m[1])
				current.RemoteInterface = CleanInterfaceName(m[2])
			} else {
				// IOS-XR splits Interface and Port ID over two lines.
				rest := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
				current.LocalInterface = CleanInterfaceName(strings.TrimSuffix(rest, ","))
			}

		case strings.Contains(line, "Port ID") && current.RemoteInterface == "":
			if idx := strings.LastIndex(line, ":"); idx >= 0 {
				current.RemoteInterface = CleanInterfaceName(strings.TrimSpace(line[idx+1:]))
			}

		case strings.Contains(line, "IP address:"):
			idx := strings.LastIndex(line, ":")
			current.IPAddress = strings.TrimSpace(line[idx+1:])
		}
	}
	if current != nil {
		r.Neighbors = append(r.Neighbors, *current)
	}

	return r
}

// PortID extracts a remote interface from the tail of a wrapped CDP row.
func PortID(line string) string {
	tail := line
	if idx := strings.LastIndex(line, "  "); idx >= 0 {
		tail = line[idx:]
	}
	if m := cdpPortIDRe.FindString(tail); m != "" {
		return CleanInterfaceName(m)
	}
	return ""
}
