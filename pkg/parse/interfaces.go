package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CapacityClassFromBandwidth buckets a nominal bandwidth in kbps into a
// capacity class label.
func CapacityClassFromBandwidth(bwKbps int) string {
	switch {
	case bwKbps >= 100000000:
		return "100G"
	case bwKbps >= 40000000:
		return "40G"
	case bwKbps >= 25000000:
		return "25G"
	case bwKbps >= 10000000:
		return "10G"
	case bwKbps >= 1000000:
		return "1G"
	case bwKbps >= 100000:
		return "100M"
	case bwKbps > 0:
		return strconv.Itoa(bwKbps) + "K"
	default:
		return "Unknown"
	}
}

// BriefInterface is one row of "show interface brief".
type BriefInterface struct {
	Interface     string `json:"interface"`
	State         string `json:"state"`
	LineProtocol  string `json:"line_protocol"`
	Encap         string `json:"encap"`
	MTU           int    `json:"mtu"`
	BWKbps        int    `json:"bw_kbps"`
	CapacityClass string `json:"capacity_class"`
}

// InterfaceBriefResult is the parse of "show interface brief" or
// "show ipv4 interface brief".
type InterfaceBriefResult struct {
	Interfaces []BriefInterface `json:"interfaces"`
}

var intfBriefRe = regexp.MustCompile(`^\s*((?:Gi|Te|Hu|Fo|Tf|Fa|BE|Lo|Mg|Nu)\S*)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\d+)\s+(\d+)`)

// InterfaceBrief parses the tabular brief format:
//
//	Intf Name       Intf State  LineP State  Encap Type  MTU   BW(Kbps)
//	Gi0/0/0/1       up          up           ARPA        1514  1000000
func InterfaceBrief(output string) *InterfaceBriefResult {
	r := &InterfaceBriefResult{Interfaces: []BriefInterface{}}

	for _, line := range strings.Split(output, "\n") {
		m := intfBriefRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		mtu, _ := strconv.Atoi(m[5])
		bw, _ := strconv.Atoi(m[6])
		r.Interfaces = append(r.Interfaces, BriefInterface{
			Interface:     m[1],
			State:         m[2],
			LineProtocol:  m[3],
			Encap:         m[4],
			MTU:           mtu,
			BWKbps:        bw,
			CapacityClass: CapacityClassFromBandwidth(bw),
		})
	}

	return r
}

// InterfaceDescription is one row of "show interface description".
type InterfaceDescription struct {
	Interface   string `json:"interface"`
	Status      string `json:"status"`
	Protocol    string `json:"protocol"`
	Description string `json:"description"`
}

// InterfaceDescriptionResult is the parse of "show interface description".
type InterfaceDescriptionResult struct {
	Interfaces []InterfaceDescription `json:"interfaces"`
}

var intfDescRe = regexp.MustCompile(`(?i)^(\S+)\s+(up|down|admin-down)\s+(up|down|admin-down)\s*(.*)`)

// InterfaceDescriptions parses "show interface description" rows.
func InterfaceDescriptions(output string) *InterfaceDescriptionResult {
	r := &InterfaceDescriptionResult{Interfaces: []InterfaceDescription{}}

	for _, line := range strings.Split(output, "\n") {
		m := intfDescRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		r.Interfaces = append(r.Interfaces, InterfaceDescription{
			Interface:   m[1],
			Status:      m[2],
			Protocol:    m[3],
			Description: strings.TrimSpace(m[4]),
		})
	}

	return r
}

// InterfaceDetail is one interface block from full "show interface" output.
type InterfaceDetail struct {
	Interface     string  `json:"interface"`
	AdminStatus   string  `json:"admin_status"`
	LineProtocol  string  `json:"line_protocol"`
	BWKbps        int     `json:"bw_kbps"`
	InputRateBps  int64   `json:"input_rate_bps"`
	OutputRateBps int64   `json:"output_rate_bps"`
	InputRatePps  int64   `json:"input_rate_pps"`
	OutputRatePps int64   `json:"output_rate_pps"`
	InputUtilPct  float64 `json:"input_utilization_pct"`
	OutputUtilPct float64 `json:"output_utilization_pct"`
	MACAddress    string  `json:"mac_address,omitempty"`
	Description   string  `json:"description,omitempty"`
	CapacityClass string  `json:"capacity_class"`
}

// InterfacesResult is the parse of full "show interface" output.
type InterfacesResult struct {
	Interfaces []InterfaceDetail `json:"interfaces"`
}

var (
	intfHeaderRe = regexp.MustCompile(`^(\S+) is ([\w-]+), line protocol is ([\w-]+)`)
	intfBWRe     = regexp.MustCompile(`BW\s+(\d+)\s+Kbit`)
	inputRateRe  = regexp.MustCompile(`input rate\s+(\d+)\s+bits/sec,\s+(\d+)\s+packets/sec`)
	outputRateRe = regexp.MustCompile(`output rate\s+(\d+)\s+bits/sec,\s+(\d+)\s+packets/sec`)
	macRe        = regexp.MustCompile(`address is\s+([0-9a-fA-F]{4}\.[0-9a-fA-F]{4}\.[0-9a-fA-F]{4})`)
	descRe       = regexp.MustCompile(`Description:\s+(.+)`)
)

// Interfaces parses full "show interface" output: one block per interface
// headed by "<name> is <state>, line protocol is <state>". Utilization is
// the observed rate over nominal bandwidth; zero-bandwidth interfaces
// report zero utilization.
func Interfaces(output string) *InterfacesResult {
	r := &InterfacesResult{Interfaces: []InterfaceDetail{}}

	var current *InterfaceDetail
	flush := func() {
		if current == nil {
			return
		}
		if current.BWKbps > 0 {
			bwBps := float64(current.BWKbps) * 1000
			current.InputUtilPct = round2(float64(current.InputRateBps) / bwBps * 100)
			current.OutputUtilPct = round2(float64(current.OutputRateBps) / bwBps * 100)
		}
		r.Interfaces = append(r.Interfaces, *current)
		current = nil
	}

	for _, line := range strings.Split(output, "\n") {
		if m := intfHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &InterfaceDetail{
				Interface:     m[1],
				AdminStatus:   m[2],
				LineProtocol:  m[3],
				CapacityClass: "Unknown",
			}
			continue
		}
		if current == nil {
			continue
		}
		if m := intfBWRe.FindStringSubmatch(line); m != nil {
			current.BWKbps, _ = strconv.Atoi(m[1])
			current.CapacityClass = CapacityClassFromBandwidth(current.BWKbps)
		}
		if m := inputRateRe.FindStringSubmatch(line); m != nil {
			current.InputRateBps, _ = strconv.ParseInt(m[1], 10, 64)
			current.InputRatePps, _ = strconv.ParseInt(m[2], 10, 64)
		}
		if m := outputRateRe.FindStringSubmatch(line); m != nil {
			current.OutputRateBps, _ = strconv.ParseInt(m[1], 10, 64)
			current.OutputRatePps, _ = strconv.ParseInt(m[2], 10, 64)
		}
		if m := macRe.FindStringSubmatch(line); m != nil {
			current.MACAddress = m[1]
		}
		if m := descRe.FindStringSubmatch(line); m != nil {
			current.Description = strings.TrimSpace(m[1])
		}
	}
	flush()

	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CapacityClassFromType labels an interface from its hardware type
// designation alone, never from observed traffic. Bundle-Ether aggregates
// are "LAG" here; callers with bundle data substitute the aggregated class.
func CapacityClassFromType(name string) string {
	intf := strings.ToUpper(name)
	switch {
	case strings.HasPrefix(intf, "HUNDREDGIGE") || strings.HasPrefix(intf, "HU"):
		return "100G"
	case strings.HasPrefix(intf, "FORTYGIGE") || strings.HasPrefix(intf, "FO"):
		return "40G"
	case strings.HasPrefix(intf, "TWENTYFIVEGIGE") || strings.HasPrefix(intf, "TF"):
		return "25G"
	case strings.HasPrefix(intf, "TENGIGABITETHERNET") || strings.HasPrefix(intf, "TENGIGE") || strings.HasPrefix(intf, "TE"):
		return "10G"
	case strings.HasPrefix(intf, "GIGABITETHERNET") || strings.HasPrefix(intf, "GI"):
		return "1G"
	case strings.HasPrefix(intf, "FASTETHERNET") || strings.HasPrefix(intf, "FA"):
		return "100M"
	case strings.HasPrefix(intf, "BUNDLE-ETHER") || strings.HasPrefix(intf, "BE"):
		return "LAG"
	case strings.HasPrefix(intf, "LOOPBACK") || strings.HasPrefix(intf, "LO"):
		return "1G"
	default:
		return "1G"
	}
}

// BandwidthFromType returns the nominal bandwidth in kbps for an interface
// type. LAG bandwidth is unknown without bundle data.
func BandwidthFromType(name string) int {
	switch CapacityClassFromType(name) {
	case "100G":
		return 100000000
	case "40G":
		return 40000000
	case "25G":
		return 25000000
	case "10G":
		return 10000000
	case "1G":
		return 1000000
	case "100M":
		return 100000
	case "LAG":
		return 0
	default:
		return 1000000
	}
}
