package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// BundleMember is one member port of a Bundle-Ether LAG.
type BundleMember struct {
	Interface string `json:"interface"`
	Device    string `json:"device"`
	SpeedKbps int    `json:"speed_kbps"`
	State     string `json:"state"`
}

// Bundle is one LAG from "show bundle".
type Bundle struct {
	Name            string         `json:"bundle_name"`
	Status          string         `json:"status"`
	ActiveLinks     int            `json:"active_links"`
	StandbyLinks    int            `json:"standby_links"`
	ConfiguredLinks int            `json:"configured_links"`
	Members         []BundleMember `json:"members"`
	TotalBWKbps     int            `json:"total_bandwidth_kbps"`
	ActiveBWKbps    int            `json:"active_bandwidth_kbps"`
	CapacityClass   string         `json:"capacity_class"`
}

// BundlesResult is the parse of "show bundle".
type BundlesResult struct {
	Bundles []Bundle `json:"bundles"`
}

var (
	bundleHeaderRe = regexp.MustCompile(`^(Bundle-Ether\d+|BE\d+)`)
	bundleStatusRe = regexp.MustCompile(`Status:\s+(\S+)`)
	bundleLinksRe  = regexp.MustCompile(`Local links.*:\s+(\d+)\s*/\s*(\d+)\s*/\s*(\d+)`)
	bundleBWRe     = regexp.MustCompile(`(?i)bandwidth.*:\s+(\d+)`)
	memberHeadRe   = regexp.MustCompile(`(?i)Port\s+.*State`)
	bundleMemberRe = regexp.MustCompile(`^\s*((?:Gi|Te|Hu|GigabitEthernet|TenGigE|HundredGigE)\S*)\s+(\w+)\s+(\w+)\s+\S+,\s+\S+\s+(\d+)`)
)

// Bundles parses IOS-XR "show bundle" output:
//
//	Bundle-Ether200
//	  Status:                                    Up
//	  Local links <active/standby/configured>:   2 / 0 / 2
//	  Local bandwidth <effective/available>:     2000000 (2000000) kbps
//
//	  Port                  Device           State        Port ID         B/W, kbps
//	  --------------------  ---------------  -----------  --------------  ----------
//	  Gi0/0/0/5             Local            Active       0x8000, 0x0002     1000000
//
// Active bandwidth is the sum of active member speeds; the capacity class
// reflects the aggregated active capacity, or "LAG" when no members are
// active.
func Bundles(output string) *BundlesResult {
	r := &BundlesResult{Bundles: []Bundle{}}

	var current *Bundle
	inMembers := false

	flush := func() {
		if current == nil {
			return
		}
		active := 0
		for _, m := range current.Members {
			if strings.EqualFold(m.State, "active") {
				active += m.SpeedKbps
			}
		}
		current.ActiveBWKbps = active
		current.CapacityClass = bundleCapacityClass(active)
		r.Bundles = append(r.Bundles, *current)
		current = nil
	}

	for _, line := range strings.Split(output, "\n") {
		if m := bundleHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &Bundle{Name: m[1], Status: "Unknown", Members: []BundleMember{}}
			inMembers = false
			continue
		}
		if current == nil {
			continue
		}

		if m := bundleStatusRe.FindStringSubmatch(line); m != nil {
			current.Status = m[1]
		}
		if m := bundleLinksRe.FindStringSubmatch(line); m != nil {
			current.ActiveLinks, _ = strconv.Atoi(m[1])
			current.StandbyLinks, _ = strconv.Atoi(m[2])
			current.ConfiguredLinks, _ = strconv.Atoi(m[3])
		}
		if m := bundleBWRe.FindStringSubmatch(line); m != nil {
			current.TotalBWKbps, _ = strconv.Atoi(m[1])
		}

		if memberHeadRe.MatchString(line) {
			inMembers = true
			continue
		}
		if !inMembers {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "-") || strings.Contains(line, "Link is") {
			continue
		}
		if m := bundleMemberRe.FindStringSubmatch(line); m != nil {
			speed, _ := strconv.Atoi(m[4])
			current.Members = append(current.Members, BundleMember{
				Interface: m[1],
				Device:    m[2],
				State:     m[3],
				SpeedKbps: speed,
			})
		}
	}
	flush()

	return r
}

// bundleCapacityClass labels the aggregated active bandwidth of a LAG.
// Gigabit-and-above aggregates are reported as "<N>G" so a 2x1G bundle
// reads as 2G rather than a nominal port class.
func bundleCapacityClass(activeKbps int) string {
	switch {
	case activeKbps >= 1000000:
		return strconv.Itoa(activeKbps/1000000) + "G"
	case activeKbps >= 100000:
		return "100M"
	case activeKbps > 0:
		return strconv.Itoa(activeKbps) + "K"
	default:
		return "LAG"
	}
}
