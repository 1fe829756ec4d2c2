package topology

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/netscope-network/netscope/pkg/execstore"
	"github.com/netscope-network/netscope/pkg/util"
)

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newExecution(t *testing.T) execstore.Execution {
	t.Helper()
	store, err := execstore.NewStore(filepath.Join(t.TempDir(), "executions"))
	if err != nil {
		t.Fatal(err)
	}
	exec, err := store.Create("exec_20260314_090000_abcd1234")
	if err != nil {
		t.Fatal(err)
	}
	return exec
}

func writeText(t *testing.T, exec execstore.Execution, device, command string, ts time.Time, content string) {
	t.Helper()
	name := util.OutputFilename(device, command, ts) + ".txt"
	if err := os.WriteFile(filepath.Join(exec.TextDir(), name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func neighborOutput(routerID string, rows ...string) string {
	out := fmt.Sprintf("            OSPF Router with ID (%s) (Process ID 1)\n\nNeighbors for OSPF 1\n\n", routerID)
	out += "Neighbor ID     Pri   State           Dead Time   Address         Interface\n"
	for _, row := range rows {
		out += row + "\n"
	}
	return out
}

func dbRouterOutput(advRouter, drAddress string, cost int) string {
	return fmt.Sprintf(`            OSPF Router with ID (%s) (Process ID 1)

  Link State ID: %s
  Advertising Router: %s

    Link connected to: a Transit Network
     (Link ID) Designated Router address: %s
     (Link Data) Router Interface address: 172.13.0.9
      Number of TOS metrics: 0
       TOS 0 Metrics: %d
`, advRouter, advRouter, advRouter, drAddress, cost)
}

func networkLSAOutput(drAddress string, attached ...string) string {
	out := fmt.Sprintf("  Link State ID: %s (address of Designated Router)\n", drAddress)
	for _, r := range attached {
		out += fmt.Sprintf("        Attached Router: %s\n", r)
	}
	return out
}

func configOutput(iface string, cost int) string {
	return fmt.Sprintf("router ospf 1\n area 0\n  interface %s\n   cost %d\n  !\n !\n!\n", iface, cost)
}

// writeSymmetricPair lays down the two-node LSA-cost scenario.
func writeSymmetricPair(t *testing.T, exec execstore.Execution) {
	writeText(t, exec, "zwe-r1", "show ospf neighbor", baseTime,
		neighborOutput("172.16.1.1",
			"172.16.2.2      1     FULL/DR         00:00:35    172.13.0.10     Gi0/0/0/1"))
	writeText(t, exec, "zwe-r2", "show ospf neighbor", baseTime,
		neighborOutput("172.16.2.2",
			"172.16.1.1      1     FULL/BDR        00:00:38    172.13.0.9      Gi0/0/0/1"))

	writeText(t, exec, "zwe-r1", "show ospf database router", baseTime,
		dbRouterOutput("172.16.1.1", "172.13.0.10", 100))
	writeText(t, exec, "zwe-r2", "show ospf database router", baseTime,
		dbRouterOutput("172.16.2.2", "172.13.0.10", 100))

	writeText(t, exec, "zwe-r1", "show ospf database network", baseTime,
		networkLSAOutput("172.13.0.10", "172.16.1.1", "172.16.2.2"))
}

func TestBuild_SymmetricTwoNode(t *testing.T) {
	exec := newExecution(t)
	writeSymmetricPair(t, exec)

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(topo.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(topo.Nodes))
	}
	for _, n := range topo.Nodes {
		if n.Country != "ZWE" {
			t.Errorf("node %s country = %q, want ZWE", n.Name, n.Country)
		}
		if n.Type != "router" {
			t.Errorf("node type = %q", n.Type)
		}
	}

	if len(topo.Links) != 2 {
		t.Fatalf("directional links = %d, want 2", len(topo.Links))
	}
	for _, l := range topo.Links {
		if l.Cost != 100 || l.CostSource != CostSourceLSA {
			t.Errorf("link %s cost = %d (%s), want 100 (lsa)", l.ID, l.Cost, l.CostSource)
		}
		if l.TargetInterface != "unknown" {
			t.Errorf("target_interface = %q, want unknown", l.TargetInterface)
		}
	}

	if len(topo.PhysicalLinks) != 1 {
		t.Fatalf("physical links = %d, want 1", len(topo.PhysicalLinks))
	}
	pl := topo.PhysicalLinks[0]
	if pl.RouterA != "zwe-r1" || pl.RouterB != "zwe-r2" {
		t.Errorf("pair = %s/%s", pl.RouterA, pl.RouterB)
	}
	if pl.CostAToB == nil || *pl.CostAToB != 100 || pl.CostBToA == nil || *pl.CostBToA != 100 {
		t.Errorf("costs = %v/%v, want 100/100", pl.CostAToB, pl.CostBToA)
	}
	if pl.InterfaceA != "Gi0/0/0/1" || pl.InterfaceB != "Gi0/0/0/1" {
		t.Errorf("interfaces = %q/%q", pl.InterfaceA, pl.InterfaceB)
	}
	if pl.IsAsymmetric {
		t.Error("symmetric link flagged asymmetric")
	}
	if pl.CostSourceA != CostSourceLSA || pl.CostSourceB != CostSourceLSA {
		t.Errorf("cost sources = %q/%q", pl.CostSourceA, pl.CostSourceB)
	}

	if topo.Metadata.CostSources[CostSourceLSA] != 2 || topo.Metadata.AsymmetricCount != 0 {
		t.Errorf("metadata = %+v", topo.Metadata)
	}
}

func TestBuild_AsymmetricConfiguredCost(t *testing.T) {
	exec := newExecution(t)
	writeSymmetricPair(t, exec)
	writeText(t, exec, "zwe-r1", "show running-config router ospf", baseTime,
		configOutput("GigabitEthernet0/0/0/1", 200))
	writeText(t, exec, "zwe-r2", "show running-config router ospf", baseTime,
		configOutput("GigabitEthernet0/0/0/1", 500))

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(topo.PhysicalLinks) != 1 {
		t.Fatalf("physical links = %d", len(topo.PhysicalLinks))
	}
	pl := topo.PhysicalLinks[0]
	if pl.CostAToB == nil || *pl.CostAToB != 200 || pl.CostBToA == nil || *pl.CostBToA != 500 {
		t.Errorf("costs = %v/%v, want 200/500", pl.CostAToB, pl.CostBToA)
	}
	if !pl.IsAsymmetric {
		t.Error("asymmetric costs not flagged")
	}
	if pl.CostSourceA != CostSourceConfigured || pl.CostSourceB != CostSourceConfigured {
		t.Errorf("cost sources = %q/%q, want configured", pl.CostSourceA, pl.CostSourceB)
	}
}

func TestBuild_CostPriority(t *testing.T) {
	exec := newExecution(t)
	writeSymmetricPair(t, exec)
	// Operational cost present alongside the LSA cost
	writeText(t, exec, "zwe-r1", "show ospf interface brief", baseTime,
		"Interface          PID   Area            IP Address/Mask    Cost  State Nbrs F/C\n"+
			"Gi0/0/0/1          1     0               172.13.0.9/30      600   DR    1/1\n")

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}

	var fromA *DirectionalLink
	for i := range topo.Links {
		if topo.Links[i].Source == "zwe-r1" {
			fromA = &topo.Links[i]
		}
	}
	if fromA == nil {
		t.Fatal("no link from zwe-r1")
	}
	if fromA.Cost != 600 || fromA.CostSource != CostSourceOperational {
		t.Errorf("cost = %d (%s), want 600 (operational)", fromA.Cost, fromA.CostSource)
	}

	// Configured beats operational
	writeText(t, exec, "zwe-r1", "show running-config router ospf", baseTime,
		configOutput("GigabitEthernet0/0/0/1", 200))
	topo, _ = NewBuilder().Build(exec, nil)
	for _, l := range topo.Links {
		if l.Source == "zwe-r1" && (l.Cost != 200 || l.CostSource != CostSourceConfigured) {
			t.Errorf("cost = %d (%s), want 200 (configured)", l.Cost, l.CostSource)
		}
	}
}

func TestBuild_DefaultCost(t *testing.T) {
	exec := newExecution(t)
	writeText(t, exec, "zwe-r1", "show ospf neighbor", baseTime,
		neighborOutput("172.16.1.1",
			"172.16.2.2      1     FULL/DR         00:00:35    172.13.0.10     Gi0/0/0/1"))
	writeText(t, exec, "zwe-r2", "show ospf neighbor", baseTime,
		neighborOutput("172.16.2.2",
			"172.16.1.1      1     FULL/BDR        00:00:38    172.13.0.9      Gi0/0/0/1"))

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range topo.Links {
		if l.Cost != DefaultOSPFCost || l.CostSource != CostSourceDefault {
			t.Errorf("link cost = %d (%s), want default", l.Cost, l.CostSource)
		}
	}
}

func TestBuild_ParallelAdjacencies(t *testing.T) {
	exec := newExecution(t)
	writeText(t, exec, "zwe-r1", "show ospf neighbor", baseTime,
		neighborOutput("172.16.1.1",
			"172.16.2.2      1     FULL/DR         00:00:35    172.13.0.10     Gi0/0/0/1",
			"172.16.2.2      1     FULL/DR         00:00:35    172.13.0.14     Gi0/0/0/2"))
	writeText(t, exec, "zwe-r2", "show ospf neighbor", baseTime,
		neighborOutput("172.16.2.2",
			"172.16.1.1      1     FULL/BDR        00:00:38    172.13.0.9      Gi0/0/0/1",
			"172.16.1.1      1     FULL/BDR        00:00:38    172.13.0.13     Gi0/0/0/2"))

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(topo.Links) != 4 {
		t.Fatalf("directional links = %d, want 4 (two per direction)", len(topo.Links))
	}
	if len(topo.PhysicalLinks) != 2 {
		t.Fatalf("physical links = %d, want 2", len(topo.PhysicalLinks))
	}
	if topo.PhysicalLinks[0].InterfaceA == topo.PhysicalLinks[1].InterfaceA {
		t.Error("parallel links share interface_a")
	}
	for _, pl := range topo.PhysicalLinks {
		if pl.InterfaceA != pl.InterfaceB {
			t.Errorf("same-name pairing failed: %q vs %q", pl.InterfaceA, pl.InterfaceB)
		}
	}
}

func TestBuild_OrphanReverseLink(t *testing.T) {
	exec := newExecution(t)
	// Only the B side (zwe-r2 > zwe-r1) reports the adjacency.
	writeText(t, exec, "zwe-r2", "show ospf neighbor", baseTime,
		neighborOutput("172.16.2.2",
			"172.16.1.1      1     FULL/BDR        00:00:38    172.13.0.9      Gi0/0/0/1"))
	writeText(t, exec, "zwe-r1", "show ospf database", baseTime,
		"            OSPF Router with ID (172.16.1.1) (Process ID 1)\n")

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(topo.PhysicalLinks) != 1 {
		t.Fatalf("physical links = %d, want 1 orphan", len(topo.PhysicalLinks))
	}
	pl := topo.PhysicalLinks[0]
	if pl.CostAToB != nil {
		t.Errorf("orphan CostAToB = %v, want nil", pl.CostAToB)
	}
	if pl.CostBToA == nil || pl.InterfaceB != "Gi0/0/0/1" {
		t.Errorf("orphan = %+v", pl)
	}
	if pl.IsAsymmetric {
		t.Error("one-sided link flagged asymmetric")
	}
}

func TestBuild_MgmtAndNonFullFiltered(t *testing.T) {
	exec := newExecution(t)
	writeText(t, exec, "zwe-r1", "show ospf neighbor", baseTime,
		neighborOutput("172.16.1.1",
			"172.16.2.2      1     FULL/DR         00:00:35    172.13.0.10     Gi0/0/0/1",
			"172.16.3.3      1     EXCHANGE/DR     00:00:31    172.13.0.18     Gi0/0/0/3",
			"172.16.4.4      1     FULL/DR         00:00:33    10.255.1.8      MgmtEth0/RP0/CPU0/0"))

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(topo.Links) != 1 {
		t.Fatalf("links = %d, want 1 (EXCHANGE and Mgmt filtered)", len(topo.Links))
	}
}

func TestBuild_ValidDevicesFilter(t *testing.T) {
	exec := newExecution(t)
	writeSymmetricPair(t, exec)
	// zwe-r9 is not in the allowlist: its files and any neighbors
	// resolving to it are skipped.
	writeText(t, exec, "zwe-r9", "show ospf neighbor", baseTime,
		neighborOutput("172.16.9.9",
			"172.16.1.1      1     FULL/DR         00:00:35    172.13.0.9      Gi0/0/0/9"))

	topo, err := NewBuilder().Build(exec, []string{"zwe-r1", "zwe-r2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(topo.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(topo.Nodes))
	}
	for _, l := range topo.Links {
		if l.Source == "zwe-r9" || l.Target == "zwe-r9" {
			t.Errorf("filtered device leaked into links: %+v", l)
		}
	}
}

func TestBuild_LatestFileWins(t *testing.T) {
	exec := newExecution(t)
	writeText(t, exec, "zwe-r1", "show ospf neighbor", baseTime,
		neighborOutput("172.16.1.1",
			"172.16.2.2      1     FULL/DR         00:00:35    172.13.0.10     Gi0/0/0/1"))
	// A newer capture with no adjacencies supersedes the older one.
	writeText(t, exec, "zwe-r1", "show ospf neighbor", baseTime.Add(time.Hour),
		neighborOutput("172.16.1.1"))

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(topo.Links) != 0 {
		t.Errorf("links = %d, want 0 (stale file used)", len(topo.Links))
	}
}

func TestBuild_RouterIDSynthesis(t *testing.T) {
	exec := newExecution(t)
	// No "OSPF Router with ID" header anywhere, name matches -r<N>.
	writeText(t, exec, "deu-r2", "show ospf neighbor", baseTime,
		"Neighbor ID     Pri   State           Dead Time   Address         Interface\n"+
			"172.16.1.1      1     FULL/DR         00:00:35    172.13.0.9      Gi0/0/0/1\n")
	writeText(t, exec, "deu-r1", "show ospf database", baseTime, "no router id header here\n")

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}

	// deu-r1 synthesized 172.16.1.1, so deu-r2's neighbor resolves to it.
	if len(topo.Links) != 1 {
		t.Fatalf("links = %d, want 1", len(topo.Links))
	}
	if topo.Links[0].Target != "deu-r1" {
		t.Errorf("target = %q, want deu-r1 via synthesized router id", topo.Links[0].Target)
	}
}

func TestBuild_NodeRouterIDFromDatabase(t *testing.T) {
	exec := newExecution(t)
	writeText(t, exec, "zwe-r1", "show ospf database", baseTime,
		"            OSPF Router with ID (172.16.1.1) (Process ID 1)\n")

	topo, err := NewBuilder().Build(exec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(topo.Nodes) != 1 || topo.Nodes[0].RouterID != "172.16.1.1" {
		t.Errorf("nodes = %+v", topo.Nodes)
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	topo := &Topology{Nodes: []Node{{ID: "a", Name: "a"}}}

	path, err := WriteJSON(topo, dir)
	if err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export missing: %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"zwe-r1_show_cdp_neighbor_2026-03-14_09-00-00.txt", classCDP},
		{"zwe-r1_show_cdp_neighbor_detail_2026-03-14_09-00-00.txt", classCDP},
		{"zwe-r1_show_ospf_neighbor_2026-03-14_09-00-00.txt", classOSPFNeighbor},
		{"zwe-r1_show_ospf_database_router_2026-03-14_09-00-00.txt", classDBRouter},
		{"zwe-r1_show_ospf_database_network_2026-03-14_09-00-00.txt", classDBNetwork},
		{"zwe-r1_show_ospf_database_2026-03-14_09-00-00.txt", classOSPFDB},
		{"zwe-r1_show_ospf_interface_brief_2026-03-14_09-00-00.txt", classOSPFIntf},
		{"zwe-r1_show_running-config_router_ospf_2026-03-14_09-00-00.txt", classOSPFConfig},
		{"zwe-r1_terminal_length_0_2026-03-14_09-00-00.txt", ""},
	}
	for _, tt := range tests {
		if got := classify(tt.filename); got != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
