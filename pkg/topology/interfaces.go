package topology

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/netscope-network/netscope/pkg/execstore"
	"github.com/netscope-network/netscope/pkg/parse"
	"github.com/netscope-network/netscope/pkg/util"
)

// rawArtifact is the subset of the JSON artifact the transformer reads.
type rawArtifact struct {
	Command    string          `json:"command"`
	DeviceName string          `json:"device_name"`
	ParsedData json.RawMessage `json:"parsed_data"`
	RawOutput  string          `json:"raw_output"`
}

// bundleInfo is a loaded LAG's capacity summary, keyed by
// (device, bundle name) under both short and long names.
type bundleInfo struct {
	capacityClass string
	activeBWKbps  int
}

// Transformer builds interface capacity and CDP records from the latest
// execution's JSON artifacts.
type Transformer struct {
	bundles map[[2]string]bundleInfo
}

// NewTransformer creates an interface transformer.
func NewTransformer() *Transformer {
	return &Transformer{bundles: make(map[[2]string]bundleInfo)}
}

// Transform reads the execution's JSON outputs and produces interface and
// CDP records. Full "show interface" data is preferred; when none exists
// across the whole execution, "show ospf interface brief" is the fallback
// source. Records are restricted to validDevices when non-empty.
func (t *Transformer) Transform(exec execstore.Execution, validDevices []string) (*InterfaceSet, error) {
	files, err := exec.JSONFiles()
	if err != nil {
		return nil, err
	}
	allowed := allowSet(validDevices)

	var interfaceFiles, ospfIntfFiles, cdpFiles, bundleFiles []execstore.ArtifactFile
	for _, f := range files {
		if allowed != nil && !allowed[f.Device] {
			continue
		}
		switch {
		case strings.Contains(f.Name, "show_bundle"):
			bundleFiles = append(bundleFiles, f)
		case strings.Contains(f.Name, "show_cdp"):
			cdpFiles = append(cdpFiles, f)
		case strings.Contains(f.Name, "show_ospf_interface_brief"):
			ospfIntfFiles = append(ospfIntfFiles, f)
		case strings.Contains(f.Name, "show_interface") || strings.Contains(f.Name, "show_int"):
			// Brief and description variants carry no rate data; the full
			// parser tolerates them and extracts nothing.
			if strings.Contains(f.Name, "show_interface_brief") ||
				strings.Contains(f.Name, "show_ipv4_interface") ||
				strings.Contains(f.Name, "show_interface_description") {
				continue
			}
			interfaceFiles = append(interfaceFiles, f)
		}
	}

	// Bundle data first: LAG capacity classes feed interface records.
	t.loadBundles(bundleFiles)
	util.Logger.Infof("interface transform: %d interface, %d ospf-brief, %d cdp, %d bundle files",
		len(interfaceFiles), len(ospfIntfFiles), len(cdpFiles), len(bundleFiles))

	set := &InterfaceSet{Interfaces: []InterfaceCapacity{}, CdpNeighbors: []CdpNeighbor{}, Source: "show_interface"}

	for _, f := range interfaceFiles {
		set.Interfaces = append(set.Interfaces, t.parseInterfaceFile(f)...)
	}
	if len(set.Interfaces) == 0 && len(ospfIntfFiles) > 0 {
		set.Source = "ospf_interface_brief_fallback"
		for _, f := range ospfIntfFiles {
			set.Interfaces = append(set.Interfaces, t.parseOSPFInterfaceFile(f)...)
		}
	}

	for _, f := range cdpFiles {
		set.CdpNeighbors = append(set.CdpNeighbors, t.parseCDPFile(f)...)
	}

	correlateCDP(set.Interfaces, set.CdpNeighbors)

	sort.Slice(set.Interfaces, func(a, b int) bool {
		if set.Interfaces[a].Router != set.Interfaces[b].Router {
			return set.Interfaces[a].Router < set.Interfaces[b].Router
		}
		return set.Interfaces[a].Interface < set.Interfaces[b].Interface
	})

	util.Logger.Infof("interface transform complete: %d interfaces, %d cdp neighbors",
		len(set.Interfaces), len(set.CdpNeighbors))
	return set, nil
}

func readArtifact(path string) (*rawArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a rawArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// loadBundles indexes LAG capacity by (device, name), storing each bundle
// under both its Bundle-Ether and BE spellings.
func (t *Transformer) loadBundles(files []execstore.ArtifactFile) {
	t.bundles = make(map[[2]string]bundleInfo)

	for _, f := range files {
		a, err := readArtifact(f.Path)
		if err != nil {
			util.WithDevice(f.Device).Warnf("bundle artifact unreadable: %v", err)
			continue
		}
		var parsed parse.BundlesResult
		if err := json.Unmarshal(a.ParsedData, &parsed); err != nil {
			continue
		}
		for _, b := range parsed.Bundles {
			if b.Name == "" {
				continue
			}
			info := bundleInfo{capacityClass: b.CapacityClass, activeBWKbps: b.ActiveBWKbps}
			name := strings.ToUpper(b.Name)
			t.bundles[[2]string{f.Device, name}] = info
			if strings.HasPrefix(name, "BUNDLE-ETHER") {
				t.bundles[[2]string{f.Device, "BE" + strings.TrimPrefix(name, "BUNDLE-ETHER")}] = info
			} else if strings.HasPrefix(name, "BE") {
				t.bundles[[2]string{f.Device, "BUNDLE-ETHER" + strings.TrimPrefix(name, "BE")}] = info
			}
		}
	}
}

// bundleCapacity looks up a Bundle-Ether interface's aggregated class,
// reducing subinterfaces to their parent LAG. Empty when unknown.
func (t *Transformer) bundleCapacity(device, iface string) string {
	name := strings.ToUpper(iface)
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[:idx]
	}
	if info, ok := t.bundles[[2]string{device, name}]; ok {
		return info.capacityClass
	}
	return ""
}

func isBundleName(iface string) bool {
	upper := strings.ToUpper(iface)
	return strings.HasPrefix(upper, "BUNDLE-ETHER") || strings.HasPrefix(upper, "BE")
}

// capacityClassFor resolves the class for one interface: bundle data for
// LAGs, hardware type for everything else. Never derived from utilization.
func (t *Transformer) capacityClassFor(device, iface string) string {
	hw := iface
	if parent := parse.ParentInterface(iface); parent != "" {
		hw = parent
	}
	if isBundleName(hw) {
		if class := t.bundleCapacity(device, hw); class != "" {
			return class
		}
		return "LAG"
	}
	return parse.CapacityClassFromType(hw)
}

// parseInterfaceFile converts one full "show interface" artifact.
func (t *Transformer) parseInterfaceFile(f execstore.ArtifactFile) []InterfaceCapacity {
	a, err := readArtifact(f.Path)
	if err != nil {
		util.WithDevice(f.Device).Warnf("interface artifact unreadable: %v", err)
		return nil
	}
	var parsed parse.InterfacesResult
	if err := json.Unmarshal(a.ParsedData, &parsed); err != nil || len(parsed.Interfaces) == 0 {
		// Parsed data absent: recover from the preserved raw output.
		parsed = *parse.Interfaces(a.RawOutput)
	}

	records := make([]InterfaceCapacity, 0, len(parsed.Interfaces))
	for _, intf := range parsed.Interfaces {
		name := parse.AbbreviateInterfaceName(intf.Interface)
		if name == "" {
			continue
		}
		records = append(records, InterfaceCapacity{
			Router:          f.Device,
			Interface:       name,
			Description:     intf.Description,
			AdminStatus:     intf.AdminStatus,
			LineProtocol:    intf.LineProtocol,
			BWKbps:          intf.BWKbps,
			CapacityClass:   t.capacityClassFor(f.Device, name),
			InputRateBps:    intf.InputRateBps,
			OutputRateBps:   intf.OutputRateBps,
			InputUtilPct:    intf.InputUtilPct,
			OutputUtilPct:   intf.OutputUtilPct,
			MACAddress:      intf.MACAddress,
			IsPhysical:      parse.IsPhysicalInterface(name),
			ParentInterface: parse.ParentInterface(name),
		})
	}
	return records
}

// parseOSPFInterfaceFile converts one "show ospf interface brief" artifact
// into basic interface records; the fallback when no full interface data
// was collected.
func (t *Transformer) parseOSPFInterfaceFile(f execstore.ArtifactFile) []InterfaceCapacity {
	a, err := readArtifact(f.Path)
	if err != nil {
		util.WithDevice(f.Device).Warnf("ospf interface artifact unreadable: %v", err)
		return nil
	}
	parsed := parse.OSPFInterfaceBrief(a.RawOutput)

	records := make([]InterfaceCapacity, 0, len(parsed.Interfaces))
	for _, intf := range parsed.Interfaces {
		name := parse.AbbreviateInterfaceName(intf.Interface)
		if name == "" {
			continue
		}

		hw := name
		if parent := parse.ParentInterface(name); parent != "" {
			hw = parent
		}
		bw := parse.BandwidthFromType(hw)
		class := t.capacityClassFor(f.Device, name)

		lineUp := false
		switch intf.State {
		case "DR", "BDR", "DROTHER", "P2P", "LOOP", "WAIT":
			lineUp = true
		}
		adminStatus := "up"
		if strings.EqualFold(intf.State, "DOWN") {
			adminStatus = "down"
		}

		records = append(records, InterfaceCapacity{
			Router:          f.Device,
			Interface:       name,
			Description:     "OSPF Area " + intf.Area + " - " + intf.IPMask,
			AdminStatus:     adminStatus,
			LineProtocol:    boolStatus(lineUp),
			BWKbps:          bw,
			CapacityClass:   class,
			IsPhysical:      parse.IsPhysicalInterface(name),
			ParentInterface: parse.ParentInterface(name),
			OSPFCost:        intf.Cost,
			IPAddress:       strings.SplitN(intf.IPMask, "/", 2)[0],
		})
	}
	return records
}

func boolStatus(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

// parseCDPFile converts one CDP artifact into neighbor records.
func (t *Transformer) parseCDPFile(f execstore.ArtifactFile) []CdpNeighbor {
	a, err := readArtifact(f.Path)
	if err != nil {
		util.WithDevice(f.Device).Warnf("cdp artifact unreadable: %v", err)
		return nil
	}

	var parsed parse.CDPResult
	if err := json.Unmarshal(a.ParsedData, &parsed); err != nil || len(parsed.Neighbors) == 0 {
		if strings.Contains(a.Command, "detail") {
			parsed = *parse.CDPDetail(a.RawOutput)
		} else {
			parsed = *parse.CDPBrief(a.RawOutput)
		}
	}

	records := make([]CdpNeighbor, 0, len(parsed.Neighbors))
	for _, nbr := range parsed.Neighbors {
		remote := strings.SplitN(nbr.DeviceID, ".", 2)[0]
		if remote == "" {
			continue
		}
		records = append(records, CdpNeighbor{
			LocalRouter:     f.Device,
			LocalInterface:  parse.AbbreviateInterfaceName(nbr.LocalInterface),
			RemoteRouter:    remote,
			RemoteInterface: parse.AbbreviateInterfaceName(nbr.RemoteInterface),
			RemotePlatform:  nbr.Platform,
			RemoteIP:        nbr.IPAddress,
		})
	}
	return records
}

// correlateCDP joins CDP neighbors onto interface records by
// (router, normalized local interface).
func correlateCDP(interfaces []InterfaceCapacity, neighbors []CdpNeighbor) {
	lookup := make(map[[2]string]CdpNeighbor, len(neighbors))
	for _, nbr := range neighbors {
		lookup[[2]string{nbr.LocalRouter, nbr.LocalInterface}] = nbr
	}
	for i := range interfaces {
		if nbr, ok := lookup[[2]string{interfaces[i].Router, interfaces[i].Interface}]; ok {
			interfaces[i].NeighborRouter = nbr.RemoteRouter
			interfaces[i].NeighborInterface = nbr.RemoteInterface
		}
	}
}
