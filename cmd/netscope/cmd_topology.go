package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/netscope-network/netscope/pkg/cli"
	"github.com/netscope-network/netscope/pkg/inventory"
	"github.com/netscope-network/netscope/pkg/topology"
)

func newTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Build and inspect the network topology",
	}
	cmd.AddCommand(newTopologyBuildCmd(), newTopologyShowCmd())
	return cmd
}

func newTopologyBuildCmd() *cobra.Command {
	var inventoryPath string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Transform the latest execution into topology records",
		Long: `Build parses the current execution's output into nodes, directional
OSPF links with resolved costs, and paired physical links, then upserts
them into the topology store and exports a JSON snapshot.

  netscope topology build
  netscope topology build -i devices.yaml   # restrict to inventory devices`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var valid []string
			if inventoryPath != "" {
				devices, err := inventory.Load(inventoryPath)
				if err != nil {
					return err
				}
				valid = inventory.Names(devices)
			}
			return transformLatest(valid)
		},
	}
	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "", "Restrict to devices in this inventory")
	return cmd
}

func newTopologyShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored topology",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := topology.NewStore(app.redisAddr, app.redisDB)
			defer store.Close()
			if err := store.Connect(); err != nil {
				return fmt.Errorf("topology store unavailable: %w", err)
			}

			topo, err := store.LoadTopology()
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(topo)
			}

			fmt.Printf("%s\n\n", cli.Bold(fmt.Sprintf("Nodes (%d)", len(topo.Nodes))))
			nodes := cli.NewTable(os.Stdout, "NAME", "ROUTER ID", "COUNTRY", "TYPE")
			for _, n := range topo.Nodes {
				nodes.Row(n.Name, n.RouterID, n.Country, n.Type)
			}
			nodes.Flush()

			fmt.Printf("\n%s\n\n", cli.Bold(fmt.Sprintf("Physical links (%d)", len(topo.PhysicalLinks))))
			links := cli.NewTable(os.Stdout, "A", "B", "IF A", "IF B", "COST A>B", "COST B>A", "ASYM")
			for _, pl := range topo.PhysicalLinks {
				asym := ""
				if pl.IsAsymmetric {
					asym = cli.Yellow("yes")
				}
				links.Row(pl.RouterA, pl.RouterB, pl.InterfaceA, pl.InterfaceB,
					costString(pl.CostAToB), costString(pl.CostBToA), asym)
			}
			links.Flush()
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Machine-readable output")
	return cmd
}

func costString(cost *int) string {
	if cost == nil {
		return "-"
	}
	return strconv.Itoa(*cost)
}
