package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/netscope-network/netscope/pkg/execstore"
	"github.com/netscope-network/netscope/pkg/parse"
	"github.com/netscope-network/netscope/pkg/util"
)

// Command classes extracted from TEXT artifact filenames. Order matters:
// the first matching substring classifies the file, so the more specific
// database classes are tested before the generic ospf_database fallback.
const (
	classCDP          = "cdp"
	classOSPFNeighbor = "ospf_neighbor"
	classDBRouter     = "ospf_db_router"
	classDBNetwork    = "ospf_db_network"
	classOSPFIntf     = "ospf_interface"
	classOSPFConfig   = "ospf_config"
	classOSPFDB       = "ospf_db"
)

var classPatterns = []struct {
	substr string
	class  string
}{
	{"cdp_neighbor", classCDP},
	{"ospf_neighbor", classOSPFNeighbor},
	{"ospf_database_router", classDBRouter},
	{"ospf_database_network", classDBNetwork},
	{"ospf_interface", classOSPFIntf},
	{"running-config_router_ospf", classOSPFConfig},
	{"ospf_database", classOSPFDB},
}

var routerNumRe = regexp.MustCompile(`-r(\d+)$`)

// Builder reads the latest execution's raw outputs and assembles the
// topology.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a topology builder.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// classify returns the command class for an artifact filename, or "".
func classify(filename string) string {
	for _, p := range classPatterns {
		if strings.Contains(filename, p.substr) {
			return p.class
		}
	}
	return ""
}

// latestFiles selects the newest artifact per (device, class), filtered to
// the allowlist when one is given.
func latestFiles(files []execstore.ArtifactFile, validDevices []string) map[string]map[string]execstore.ArtifactFile {
	allowed := allowSet(validDevices)

	latest := make(map[string]map[string]execstore.ArtifactFile)
	for _, f := range files {
		if allowed != nil && !allowed[f.Device] {
			continue
		}
		class := classify(f.Name)
		if class == "" {
			continue
		}
		byClass, ok := latest[f.Device]
		if !ok {
			byClass = make(map[string]execstore.ArtifactFile)
			latest[f.Device] = byClass
		}
		if prev, ok := byClass[class]; !ok || f.Timestamp.After(prev.Timestamp) {
			byClass[class] = f
		}
	}
	return latest
}

func allowSet(validDevices []string) map[string]bool {
	if len(validDevices) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(validDevices))
	for _, name := range validDevices {
		allowed[name] = true
	}
	return allowed
}

// Build parses the execution's TEXT outputs into a topology. When
// validDevices is non-empty, both source files and discovered neighbors
// are restricted to it.
func (b *Builder) Build(exec execstore.Execution, validDevices []string) (*Topology, error) {
	artifacts, err := exec.TextFiles()
	if err != nil {
		return nil, fmt.Errorf("scan execution outputs: %w", err)
	}

	// Phase 1: latest file per (device, class), then load contents.
	latest := latestFiles(artifacts, validDevices)
	data := make(map[string]map[string]string, len(latest))
	for device, byClass := range latest {
		data[device] = make(map[string]string, len(byClass))
		for class, f := range byClass {
			content, err := os.ReadFile(f.Path)
			if err != nil {
				util.WithDevice(device).Warnf("unreadable artifact %s: %v", f.Name, err)
				continue
			}
			data[device][class] = string(content)
		}
	}

	devices := make([]string, 0, len(data))
	for device := range data {
		devices = append(devices, device)
	}
	sort.Strings(devices)

	topo := &Topology{
		Nodes:         []Node{},
		Links:         []DirectionalLink{},
		PhysicalLinks: []PhysicalLink{},
		Timestamp:     b.now().Format(time.RFC3339),
	}

	// Phase 2: nodes from devices with any OSPF output.
	for _, device := range devices {
		classes := data[device]
		if !hasOSPFData(classes) {
			continue
		}
		routerID := "0.0.0.0"
		if db, ok := classes[classOSPFDB]; ok {
			if ip := parse.FirstIPv4(db); ip != "" {
				routerID = ip
			}
		}
		topo.Nodes = append(topo.Nodes, Node{
			ID:       device,
			Name:     device,
			RouterID: routerID,
			Country:  util.CountryCode(device),
			Type:     "router",
			Status:   "active",
		})
	}

	// Phase 3: router-id <-> device mapping.
	routerIDToDevice := make(map[string]string)
	deviceToRouterID := make(map[string]string)
	for _, device := range devices {
		classes := data[device]
		id := ""
		for _, class := range []string{classOSPFDB, classDBRouter, classOSPFNeighbor} {
			if content, ok := classes[class]; ok {
				if id = parse.RouterID(content); id != "" {
					break
				}
			}
		}
		if id != "" {
			routerIDToDevice[id] = device
			deviceToRouterID[device] = id
		}
	}
	// Synthesize ids for devices following the -r<N> naming convention.
	for _, device := range devices {
		if _, ok := deviceToRouterID[device]; ok {
			continue
		}
		if m := routerNumRe.FindStringSubmatch(device); m != nil {
			id := fmt.Sprintf("172.16.%s.%s", m[1], m[1])
			routerIDToDevice[id] = device
			deviceToRouterID[device] = id
			util.WithDevice(device).Debugf("inferred router id %s", id)
		}
	}

	// Phase 4: aggregate network LSAs across all devices.
	networkMap := make(map[string][]string)
	for _, device := range devices {
		if content, ok := data[device][classDBNetwork]; ok {
			for linkID, attached := range parse.NetworkLSAs(content).Networks {
				networkMap[linkID] = attached
			}
		}
	}

	// Phase 5: directional links from FULL adjacencies.
	allowed := allowSet(validDevices)
	counter := 1
	for _, device := range devices {
		classes := data[device]
		neighborOut, ok := classes[classOSPFNeighbor]
		if !ok {
			continue
		}
		sourceRouterID := deviceToRouterID[device]
		if sourceRouterID == "" {
			util.WithDevice(device).Warn("no router id, skipping adjacency extraction")
			continue
		}

		linkCosts := map[string]int{}
		if content, ok := classes[classDBRouter]; ok {
			linkCosts = parse.RouterLSACosts(content, sourceRouterID)
		}
		interfaceCosts := map[string]int{}
		if content, ok := classes[classOSPFIntf]; ok {
			interfaceCosts = parse.OSPFInterfaceBrief(content).CostsByInterface()
		}
		configuredCosts := map[string]int{}
		if content, ok := classes[classOSPFConfig]; ok {
			configuredCosts = parse.OSPFConfig(content).ConfiguredCosts
		}

		for _, nbr := range parse.OSPFNeighbors(neighborOut).FullAdjacencies() {
			neighborName := nbr.NeighborID
			if name, ok := routerIDToDevice[nbr.NeighborID]; ok {
				neighborName = name
			}
			if allowed != nil && !allowed[neighborName] {
				continue
			}
			if neighborName == device {
				continue
			}

			cost, source := resolveCost(costInputs{
				iface:           nbr.Interface,
				sourceRouterID:  sourceRouterID,
				neighborID:      nbr.NeighborID,
				configuredCosts: configuredCosts,
				interfaceCosts:  interfaceCosts,
				linkCosts:       linkCosts,
				networkMap:      networkMap,
			})

			topo.Links = append(topo.Links, DirectionalLink{
				ID:              fmt.Sprintf("%s-%s-%d", device, neighborName, counter),
				Source:          device,
				Target:          neighborName,
				Cost:            cost,
				CostSource:      source,
				SourceInterface: nbr.Interface,
				TargetInterface: "unknown",
				Status:          "up",
			})
			counter++
		}
	}

	// Phase 6: bidirectional pairing.
	topo.PhysicalLinks = pairLinks(topo.Links)

	// Phase 7: metadata.
	topo.Metadata = buildMetadata(topo)
	util.Logger.Infof("topology built: %d nodes, %d directional links, %d physical links (%d asymmetric)",
		len(topo.Nodes), len(topo.Links), len(topo.PhysicalLinks), topo.Metadata.AsymmetricCount)

	return topo, nil
}

func hasOSPFData(classes map[string]string) bool {
	for class := range classes {
		if class != classCDP {
			return true
		}
	}
	return false
}

// costInputs carries everything cost resolution may consult.
type costInputs struct {
	iface           string
	sourceRouterID  string
	neighborID      string
	configuredCosts map[string]int
	interfaceCosts  map[string]int
	linkCosts       map[string]int
	networkMap      map[string][]string
}

// resolveCost applies the four-tier priority: configured cost from the
// running config, operational cost from the OSPF interface table, LSA
// metric for the shared transit segment, then the default.
func resolveCost(in costInputs) (int, string) {
	normalized := parse.ExpandInterfaceName(in.iface)

	if cost, ok := in.configuredCosts[normalized]; ok {
		return cost, CostSourceConfigured
	}

	if cost, ok := in.interfaceCosts[in.iface]; ok {
		return cost, CostSourceOperational
	}
	if cost, ok := in.interfaceCosts[normalized]; ok {
		return cost, CostSourceOperational
	}

	// LSA: a transit segment whose attached set contains both endpoints.
	linkIDs := make([]string, 0, len(in.linkCosts))
	for linkID := range in.linkCosts {
		linkIDs = append(linkIDs, linkID)
	}
	sort.Strings(linkIDs)
	for _, linkID := range linkIDs {
		attached, ok := in.networkMap[linkID]
		if !ok {
			continue
		}
		if containsAll(attached, in.sourceRouterID, in.neighborID) {
			return in.linkCosts[linkID], CostSourceLSA
		}
	}

	return DefaultOSPFCost, CostSourceDefault
}

func containsAll(haystack []string, needles ...string) bool {
	for _, needle := range needles {
		found := false
		for _, h := range haystack {
			if h == needle {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// pairLinks consolidates directional links into physical links keyed by
// (router_a, router_b, interface_a) with router_a the lexicographically
// lower name.
//
// Pass 1 creates a record per A->B link. Pass 2 matches each B->A link to
// a record for the pair, preferring one whose interface_a equals the B
// side's interface (the common same-name-on-both-ends wiring) and whose B
// slot is still empty; otherwise any record with an empty B slot. A B->A
// link with no candidate becomes an orphan record with no A-side cost.
func pairLinks(links []DirectionalLink) []PhysicalLink {
	type key struct {
		a, b, iface string
	}

	records := make(map[key]*PhysicalLink)
	var order []key

	for _, link := range links {
		a, b := sortPair(link.Source, link.Target)
		if link.Source != a {
			continue
		}
		k := key{a, b, link.SourceInterface}
		if _, exists := records[k]; exists {
			continue
		}
		cost := link.Cost
		records[k] = &PhysicalLink{
			RouterA:     a,
			RouterB:     b,
			CostAToB:    &cost,
			InterfaceA:  link.SourceInterface,
			CostSourceA: link.CostSource,
			Status:      "up",
		}
		order = append(order, k)
	}

	for _, link := range links {
		a, b := sortPair(link.Source, link.Target)
		if link.Source != b {
			continue
		}
		interfaceB := link.SourceInterface

		var matched *PhysicalLink
		for _, k := range order {
			rec := records[k]
			if rec.RouterA != a || rec.RouterB != b || rec.InterfaceB != "" {
				continue
			}
			if rec.InterfaceA == interfaceB {
				matched = rec
				break
			}
			if matched == nil {
				matched = rec
			}
		}

		cost := link.Cost
		if matched != nil {
			matched.CostBToA = &cost
			matched.InterfaceB = interfaceB
			matched.CostSourceB = link.CostSource
			continue
		}

		k := key{a, b, "B2A-" + interfaceB}
		if _, exists := records[k]; exists {
			continue
		}
		records[k] = &PhysicalLink{
			RouterA:     a,
			RouterB:     b,
			CostBToA:    &cost,
			InterfaceB:  interfaceB,
			CostSourceB: link.CostSource,
			Status:      "up",
		}
		order = append(order, k)
	}

	out := make([]PhysicalLink, 0, len(order))
	for _, k := range order {
		rec := records[k]
		rec.IsAsymmetric = rec.CostAToB != nil && rec.CostBToA != nil && *rec.CostAToB != *rec.CostBToA

		suffix := ""
		if rec.InterfaceA != "" {
			suffix = "-" + parse.ShortenInterfaceID(rec.InterfaceA)
		}
		rec.ID = rec.RouterA + "-" + rec.RouterB + suffix
		out = append(out, *rec)
	}
	return out
}

func sortPair(x, y string) (string, string) {
	if x <= y {
		return x, y
	}
	return y, x
}

func buildMetadata(topo *Topology) Metadata {
	md := Metadata{
		NodeCount:         len(topo.Nodes),
		LinkCount:         len(topo.Links),
		PhysicalLinkCount: len(topo.PhysicalLinks),
		CostSources: map[string]int{
			CostSourceConfigured:  0,
			CostSourceOperational: 0,
			CostSourceLSA:         0,
			CostSourceDefault:     0,
		},
	}

	costSet := make(map[int]bool)
	for _, link := range topo.Links {
		md.CostSources[link.CostSource]++
		costSet[link.Cost] = true
	}
	for cost := range costSet {
		md.UniqueCosts = append(md.UniqueCosts, cost)
	}
	sort.Ints(md.UniqueCosts)

	for _, pl := range topo.PhysicalLinks {
		if pl.IsAsymmetric {
			md.AsymmetricCount++
		}
	}
	return md
}

// WriteJSON exports the topology to a dated JSON file in dir, returning
// the path.
func WriteJSON(topo *Topology, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("network_topology_%s.json", time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(topo, "", "  ")
	if err != nil {
		return "", err
	}
	if err := execstore.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}
