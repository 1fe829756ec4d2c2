package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ipv4Re     = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
	routerIDRe = regexp.MustCompile(`OSPF Router with ID \((\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\)`)

	// LSA summary rows: Link ID, ADV Router, Age, Seq#, Checksum, Link count
	lsaRowRe = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\s+(\d+)\s+(0x[0-9a-fA-F]+)\s+(0x[0-9a-fA-F]+)\s+(\d+)`)

	advRouterRe   = regexp.MustCompile(`Advertising Router:\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	linkStateIDRe = regexp.MustCompile(`Link State ID:\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	drAddressRe   = regexp.MustCompile(`\(Link ID\)\s+Designated Router address:\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	tosMetricRe   = regexp.MustCompile(`TOS 0 [Mm]etrics?:\s+(\d+)`)
	attachedRe    = regexp.MustCompile(`Attached Router:\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	costLineRe    = regexp.MustCompile(`cost\s+(\d+)`)
)

// RouterID extracts the local OSPF router id from any database or neighbor
// output carrying the "OSPF Router with ID (x.x.x.x)" header.
func RouterID(output string) string {
	if m := routerIDRe.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return ""
}

// FirstIPv4 returns the first dotted-quad in the output, used as a
// loopback/router-id fallback.
func FirstIPv4(output string) string {
	return ipv4Re.FindString(output)
}

// LSASummary is one row of an OSPF database summary table.
type LSASummary struct {
	LinkID    string `json:"link_id"`
	AdvRouter string `json:"adv_router"`
	Age       int    `json:"age"`
	Seq       string `json:"seq"`
	Checksum  string `json:"checksum"`
	LinkCount int    `json:"link_count"`
}

// DatabaseResult is the parse of a generic "show ospf database".
type DatabaseResult struct {
	RouterID string       `json:"router_id,omitempty"`
	LSAs     []LSASummary `json:"lsas"`
}

// Database parses the summary table of "show ospf database".
func Database(output string) *DatabaseResult {
	r := &DatabaseResult{RouterID: RouterID(output), LSAs: []LSASummary{}}
	for _, m := range lsaRowRe.FindAllStringSubmatch(output, -1) {
		age, _ := strconv.Atoi(m[3])
		count, _ := strconv.Atoi(m[6])
		r.LSAs = append(r.LSAs, LSASummary{
			LinkID:    m[1],
			AdvRouter: m[2],
			Age:       age,
			Seq:       m[4],
			Checksum:  m[5],
			LinkCount: count,
		})
	}
	return r
}

// RouterLSAResult is the parse of "show ospf database router": the summary
// rows plus per-link costs extracted from the local router's Transit
// Network blocks.
type RouterLSAResult struct {
	RouterID string       `json:"router_id,omitempty"`
	LSAs     []LSASummary `json:"lsas"`
	// LinkCosts maps a Transit Network Link ID (the DR address) to the
	// advertised TOS 0 metric for links originated by RouterID.
	LinkCosts map[string]int `json:"link_costs"`
}

// RouterLSAs parses "show ospf database router" output. Link costs are
// scoped to the blocks advertised by the output's own router id; use
// RouterLSACosts for an explicit source router.
func RouterLSAs(output string) *RouterLSAResult {
	id := RouterID(output)
	return &RouterLSAResult{
		RouterID:  id,
		LSAs:      Database(output).LSAs,
		LinkCosts: RouterLSACosts(output, id),
	}
}

// RouterLSACosts extracts {link_id -> TOS 0 metric} from the Router LSA
// blocks advertised by sourceRouterID. Each "Transit Network" link block
// carries a "(Link ID) Designated Router address" line followed within a
// few lines by a "TOS 0 metric(s): N" line.
func RouterLSACosts(output, sourceRouterID string) map[string]int {
	costs := make(map[string]int)
	if sourceRouterID == "" {
		return costs
	}

	lines := strings.Split(output, "\n")
	currentRouter := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := linkStateIDRe.FindStringSubmatch(line); m != nil {
			currentRouter = m[1]
			continue
		}
		// Advertising Router is the authoritative originator.
		if m := advRouterRe.FindStringSubmatch(line); m != nil {
			currentRouter = m[1]
			continue
		}

		if currentRouter != sourceRouterID {
			continue
		}

		if strings.Contains(line, "connected to: a Transit Network") {
			linkID := ""
			end := i + 10
			if end > len(lines) {
				end = len(lines)
			}
			for j := i + 1; j < end; j++ {
				if m := drAddressRe.FindStringSubmatch(lines[j]); m != nil {
					linkID = m[1]
				}
				if m := tosMetricRe.FindStringSubmatch(lines[j]); m != nil {
					if linkID != "" {
						cost, _ := strconv.Atoi(m[1])
						costs[linkID] = cost
					}
					i = j
					break
				}
			}
		}
	}

	return costs
}

// NetworkLSAResult maps each Network LSA's Link State ID (the designated
// router address) to the router ids attached to that segment.
type NetworkLSAResult struct {
	Networks map[string][]string `json:"networks"`
}

// NetworkLSAs parses "show ospf database network" output.
func NetworkLSAs(output string) *NetworkLSAResult {
	r := &NetworkLSAResult{Networks: make(map[string][]string)}

	currentLinkID := ""
	for _, line := range strings.Split(output, "\n") {
		if m := linkStateIDRe.FindStringSubmatch(line); m != nil {
			currentLinkID = m[1]
			if _, ok := r.Networks[currentLinkID]; !ok {
				r.Networks[currentLinkID] = []string{}
			}
			continue
		}
		if currentLinkID == "" {
			continue
		}
		if m := attachedRe.FindStringSubmatch(line); m != nil {
			r.Networks[currentLinkID] = append(r.Networks[currentLinkID], m[1])
		}
	}

	return r
}

// OSPFInterface is one row of "show ospf interface brief".
type OSPFInterface struct {
	Interface string `json:"interface"`
	Area      string `json:"area"`
	IPMask    string `json:"ip_mask"`
	Cost      int    `json:"cost"`
	State     string `json:"state"`
}

// OSPFInterfaceBriefResult is the parse of "show ospf interface brief".
type OSPFInterfaceBriefResult struct {
	Interfaces []OSPFInterface `json:"interfaces"`
}

var ospfIntfBriefRe = regexp.MustCompile(`^(\S+)\s+\d+\s+(\S+)\s+(\d+\.\d+\.\d+\.\d+/\d+)\s+(\d+)\s+(\S+)`)

// OSPFInterfaceBrief parses "show ospf interface brief" rows:
//
//	Interface    PID   Area       IP Address/Mask    Cost  State Nbrs F/C
//	Gi0/0/0/1    1     0          172.13.0.37/30     600   DR    1/1
func OSPFInterfaceBrief(output string) *OSPFInterfaceBriefResult {
	r := &OSPFInterfaceBriefResult{Interfaces: []OSPFInterface{}}

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.Contains(line, "Interface") {
			continue
		}
		m := ospfIntfBriefRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		cost, _ := strconv.Atoi(m[4])
		r.Interfaces = append(r.Interfaces, OSPFInterface{
			Interface: m[1],
			Area:      m[2],
			IPMask:    m[3],
			Cost:      cost,
			State:     m[5],
		})
	}

	return r
}

// CostsByInterface returns the operational cost table keyed by interface.
func (r *OSPFInterfaceBriefResult) CostsByInterface() map[string]int {
	costs := make(map[string]int, len(r.Interfaces))
	for _, intf := range r.Interfaces {
		costs[intf.Interface] = intf.Cost
	}
	return costs
}

// OSPFNeighbor is one adjacency row from "show ospf neighbor".
type OSPFNeighbor struct {
	NeighborID string `json:"neighbor_id"`
	Priority   string `json:"priority"`
	State      string `json:"state"`
	DeadTime   string `json:"dead_time"`
	Address    string `json:"address"`
	Interface  string `json:"interface"`
}

// OSPFNeighborResult is the parse of "show ospf neighbor".
type OSPFNeighborResult struct {
	RouterID  string         `json:"router_id,omitempty"`
	Neighbors []OSPFNeighbor `json:"neighbors"`
}

// OSPFNeighbors parses the neighbor table:
//
//	Neighbor ID     Pri   State        Dead Time   Address      Interface
//	172.16.1.1      1     FULL/DR      00:00:35    172.13.0.1   GigabitEthernet0/0/0/0
func OSPFNeighbors(output string) *OSPFNeighborResult {
	r := &OSPFNeighborResult{RouterID: RouterID(output), Neighbors: []OSPFNeighbor{}}

	parsing := false
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Neighbor ID") {
			parsing = true
			continue
		}
		if !parsing || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 6 {
			continue
		}
		if !ipv4Re.MatchString(parts[0]) {
			continue
		}
		r.Neighbors = append(r.Neighbors, OSPFNeighbor{
			NeighborID: parts[0],
			Priority:   parts[1],
			State:      parts[2],
			DeadTime:   parts[3],
			Address:    parts[4],
			Interface:  parts[5],
		})
	}

	return r
}

// FullAdjacencies returns the neighbors in FULL state, excluding
// management interfaces.
func (r *OSPFNeighborResult) FullAdjacencies() []OSPFNeighbor {
	full := make([]OSPFNeighbor, 0, len(r.Neighbors))
	for _, n := range r.Neighbors {
		if !strings.Contains(n.State, "FULL") {
			continue
		}
		if strings.Contains(n.Interface, "Mgmt") ||
			strings.Contains(n.Interface, "Management") ||
			strings.Contains(n.Interface, "Ma0") {
			continue
		}
		full = append(full, n)
	}
	return full
}

// OSPFConfigResult holds explicitly configured interface costs from
// "show running-config router ospf".
type OSPFConfigResult struct {
	// ConfiguredCosts is keyed by the full interface name as written in
	// the configuration.
	ConfiguredCosts map[string]int `json:"configured_costs"`
}

// OSPFConfig parses area-scoped interface cost statements:
//
//	router ospf 1
//	 area 0
//	  interface GigabitEthernet0/0/0/1
//	   cost 200
//	  !
//
// Costs outside an area block are ignored.
func OSPFConfig(output string) *OSPFConfigResult {
	r := &OSPFConfigResult{ConfiguredCosts: make(map[string]int)}

	currentInterface := ""
	inArea := false

	for _, line := range strings.Split(output, "\n") {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "area ") {
			inArea = true
			continue
		}
		if inArea && strings.HasPrefix(stripped, "interface ") {
			currentInterface = strings.TrimSpace(strings.TrimPrefix(stripped, "interface "))
			continue
		}
		if currentInterface != "" && strings.Contains(stripped, "cost ") {
			if m := costLineRe.FindStringSubmatch(stripped); m != nil {
				cost, _ := strconv.Atoi(m[1])
				r.ConfiguredCosts[currentInterface] = cost
			}
		}
		if stripped == "!" {
			currentInterface = ""
		}
	}

	return r
}
