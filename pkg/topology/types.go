// Package topology transforms captured command output into a typed
// network model: nodes, directional OSPF adjacencies with resolved costs,
// bidirectional physical links with asymmetry detection, interface
// capacity records, and CDP neighbor correlation.
package topology

// Cost sources in resolution priority order.
const (
	CostSourceConfigured  = "configured"
	CostSourceOperational = "operational"
	CostSourceLSA         = "lsa"
	CostSourceDefault     = "default"
)

// DefaultOSPFCost applies when no configured, operational, or LSA cost is
// found for an adjacency.
const DefaultOSPFCost = 1

// Node is one router in the topology, keyed by name.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RouterID string `json:"router_id"`
	Country  string `json:"country"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

// DirectionalLink is one OSPF adjacency as seen from its source router.
// Parallel adjacencies between the same pair are kept as separate links.
type DirectionalLink struct {
	ID              string `json:"id"`
	Source          string `json:"source"`
	Target          string `json:"target"`
	Cost            int    `json:"cost"`
	CostSource      string `json:"cost_source"`
	SourceInterface string `json:"source_interface"`
	TargetInterface string `json:"target_interface"`
	Status          string `json:"status"`
}

// PhysicalLink pairs the two directions of one physical adjacency.
// RouterA sorts lexicographically before RouterB; either cost may be
// missing when only one side's data was captured.
type PhysicalLink struct {
	ID           string `json:"id"`
	RouterA      string `json:"router_a"`
	RouterB      string `json:"router_b"`
	CostAToB     *int   `json:"cost_a_to_b"`
	CostBToA     *int   `json:"cost_b_to_a"`
	InterfaceA   string `json:"interface_a,omitempty"`
	InterfaceB   string `json:"interface_b,omitempty"`
	CostSourceA  string `json:"cost_source_a,omitempty"`
	CostSourceB  string `json:"cost_source_b,omitempty"`
	IsAsymmetric bool   `json:"is_asymmetric"`
	Status       string `json:"status"`
}

// Metadata summarizes one build.
type Metadata struct {
	NodeCount         int            `json:"node_count"`
	LinkCount         int            `json:"link_count"`
	PhysicalLinkCount int            `json:"physical_link_count"`
	AsymmetricCount   int            `json:"asymmetric_link_count"`
	UniqueCosts       []int          `json:"unique_costs"`
	CostSources       map[string]int `json:"cost_sources"`
}

// Topology is the complete build output.
type Topology struct {
	Nodes         []Node            `json:"nodes"`
	Links         []DirectionalLink `json:"links"`
	PhysicalLinks []PhysicalLink    `json:"physical_links"`
	Timestamp     string            `json:"timestamp"`
	Metadata      Metadata          `json:"metadata"`
}

// InterfaceCapacity is one interface's capacity and traffic record,
// keyed by (router, interface) with the interface name in canonical
// abbreviated form.
type InterfaceCapacity struct {
	Router            string  `json:"router"`
	Interface         string  `json:"interface"`
	Description       string  `json:"description,omitempty"`
	AdminStatus       string  `json:"admin_status"`
	LineProtocol      string  `json:"line_protocol"`
	BWKbps            int     `json:"bw_kbps"`
	CapacityClass     string  `json:"capacity_class"`
	InputRateBps      int64   `json:"input_rate_bps"`
	OutputRateBps     int64   `json:"output_rate_bps"`
	InputUtilPct      float64 `json:"input_utilization_pct"`
	OutputUtilPct     float64 `json:"output_utilization_pct"`
	MACAddress        string  `json:"mac_address,omitempty"`
	MTU               int     `json:"mtu,omitempty"`
	Encapsulation     string  `json:"encapsulation,omitempty"`
	IsPhysical        bool    `json:"is_physical"`
	ParentInterface   string  `json:"parent_interface,omitempty"`
	NeighborRouter    string  `json:"neighbor_router,omitempty"`
	NeighborInterface string  `json:"neighbor_interface,omitempty"`
	OSPFCost          int     `json:"ospf_cost,omitempty"`
	IPAddress         string  `json:"ip_address,omitempty"`
}

// CdpNeighbor is one CDP adjacency, keyed by
// (local_router, local_interface, remote_router).
type CdpNeighbor struct {
	LocalRouter     string `json:"local_router"`
	LocalInterface  string `json:"local_interface"`
	RemoteRouter    string `json:"remote_router"`
	RemoteInterface string `json:"remote_interface,omitempty"`
	RemotePlatform  string `json:"remote_platform,omitempty"`
	RemoteIP        string `json:"remote_ip,omitempty"`
}

// InterfaceSet is the interface transformation output.
type InterfaceSet struct {
	Interfaces   []InterfaceCapacity `json:"interfaces"`
	CdpNeighbors []CdpNeighbor       `json:"cdp_neighbors"`
	Source       string              `json:"source"`
}
