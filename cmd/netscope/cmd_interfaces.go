package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/netscope-network/netscope/pkg/cli"
	"github.com/netscope-network/netscope/pkg/topology"
)

func newInterfacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interfaces",
		Short: "Inspect interface capacity records",
	}
	cmd.AddCommand(newInterfacesShowCmd(), newInterfacesSummaryCmd())
	return cmd
}

func loadInterfaceSet() (*topology.InterfaceSet, error) {
	store := topology.NewStore(app.redisAddr, app.redisDB)
	defer store.Close()
	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("topology store unavailable: %w", err)
	}
	return store.LoadInterfaces()
}

func newInterfacesShowCmd() *cobra.Command {
	var (
		router     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List stored interfaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadInterfaceSet()
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(set)
			}

			sort.Slice(set.Interfaces, func(a, b int) bool {
				if set.Interfaces[a].Router != set.Interfaces[b].Router {
					return set.Interfaces[a].Router < set.Interfaces[b].Router
				}
				return set.Interfaces[a].Interface < set.Interfaces[b].Interface
			})

			tbl := cli.NewTable(os.Stdout, "ROUTER", "INTERFACE", "CLASS", "STATUS", "IN%", "OUT%", "NEIGHBOR")
			for _, intf := range set.Interfaces {
				if router != "" && intf.Router != router {
					continue
				}
				neighbor := ""
				if intf.NeighborRouter != "" {
					neighbor = intf.NeighborRouter + " " + intf.NeighborInterface
				}
				tbl.Row(intf.Router, intf.Interface, intf.CapacityClass,
					cli.StatusColor(intf.AdminStatus),
					fmt.Sprintf("%.2f", intf.InputUtilPct),
					fmt.Sprintf("%.2f", intf.OutputUtilPct),
					neighbor)
			}
			tbl.Flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&router, "router", "", "Filter by router name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Machine-readable output")
	return cmd
}

func newInterfacesSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize capacity classes and utilization",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadInterfaceSet()
			if err != nil {
				return err
			}

			physical := 0
			byClass := map[string]int{}
			byRouter := map[string]int{}
			type hot struct {
				router, iface string
				in, out       float64
			}
			var high []hot

			for _, intf := range set.Interfaces {
				if intf.IsPhysical {
					physical++
				}
				byClass[intf.CapacityClass]++
				byRouter[intf.Router]++
				if intf.InputUtilPct > 50 || intf.OutputUtilPct > 50 {
					high = append(high, hot{intf.Router, intf.Interface, intf.InputUtilPct, intf.OutputUtilPct})
				}
			}

			fmt.Printf("%d interfaces (%d physical, %d logical) on %d routers\n\n",
				len(set.Interfaces), physical, len(set.Interfaces)-physical, len(byRouter))

			classes := make([]string, 0, len(byClass))
			for class := range byClass {
				classes = append(classes, class)
			}
			sort.Strings(classes)
			tbl := cli.NewTable(os.Stdout, "CLASS", "COUNT")
			for _, class := range classes {
				tbl.Row(class, fmt.Sprintf("%d", byClass[class]))
			}
			tbl.Flush()

			if len(high) > 0 {
				sort.Slice(high, func(a, b int) bool {
					return high[a].in+high[a].out > high[b].in+high[b].out
				})
				fmt.Printf("\n%s\n\n", cli.Bold("High utilization (>50%)"))
				hotTbl := cli.NewTable(os.Stdout, "ROUTER", "INTERFACE", "IN%", "OUT%")
				for _, h := range high {
					hotTbl.Row(h.router, h.iface,
						fmt.Sprintf("%.2f", h.in), fmt.Sprintf("%.2f", h.out))
				}
				hotTbl.Flush()
			}
			return nil
		},
	}
}
