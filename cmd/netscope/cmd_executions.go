package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netscope-network/netscope/pkg/cli"
	"github.com/netscope-network/netscope/pkg/execstore"
)

func newExecutionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "List and inspect past collection runs",
	}
	cmd.AddCommand(newExecutionsListCmd(), newExecutionsShowCmd())
	return cmd
}

func newExecutionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List executions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := execstore.NewStore(app.executionsDir())
			if err != nil {
				return err
			}

			ids, err := store.List()
			if err != nil {
				return err
			}
			current := ""
			if cur, err := store.Current(); err == nil {
				current = cur.ID
			}

			tbl := cli.NewTable(os.Stdout, "EXECUTION", "STATUS", "DEVICES", "STARTED", "")
			for _, id := range ids {
				exec, err := store.Open(id)
				if err != nil {
					continue
				}
				status, devices, started := "?", "?", ""
				if md, err := exec.ReadMetadata(); err == nil {
					status = md.Status
					devices = fmt.Sprintf("%d", md.TotalDevices)
					started = md.StartTime
					if started == "" {
						started = md.Timestamp
					}
				}
				marker := ""
				if id == current {
					marker = cli.Green("current")
				}
				tbl.Row(id, cli.StatusColor(status), devices, started, marker)
			}
			tbl.Flush()
			return nil
		},
	}
}

func newExecutionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Show one execution's metadata and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := execstore.NewStore(app.executionsDir())
			if err != nil {
				return err
			}
			exec, err := store.Open(args[0])
			if err != nil {
				return err
			}

			md, err := exec.ReadMetadata()
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", cli.Bold(exec.ID))
			fmt.Printf("  status:   %s\n", cli.StatusColor(md.Status))
			fmt.Printf("  job:      %s\n", md.JobID)
			fmt.Printf("  devices:  %d\n", md.TotalDevices)
			fmt.Printf("  commands: %d\n", len(md.Commands))
			if md.StartTime != "" {
				fmt.Printf("  started:  %s\n", md.StartTime)
			}
			if md.EndTime != "" {
				fmt.Printf("  ended:    %s\n", md.EndTime)
			}
			if md.Results != nil {
				fmt.Printf("  result:   %d/%d devices (%d%%)\n",
					md.Results.CompletedDevices, md.Results.TotalDevices, md.Results.ProgressPercent)
			}

			text, _ := exec.TextFiles()
			jsonFiles, _ := exec.JSONFiles()
			fmt.Printf("  files:    %d text, %d json\n", len(text), len(jsonFiles))
			return nil
		},
	}
}
