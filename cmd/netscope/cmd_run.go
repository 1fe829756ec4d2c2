package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netscope-network/netscope/pkg/broadcast"
	"github.com/netscope-network/netscope/pkg/cli"
	"github.com/netscope-network/netscope/pkg/execstore"
	"github.com/netscope-network/netscope/pkg/executor"
	"github.com/netscope-network/netscope/pkg/inventory"
	"github.com/netscope-network/netscope/pkg/job"
	"github.com/netscope-network/netscope/pkg/topology"
)

func newRunCmd() *cobra.Command {
	var (
		inventoryPath  string
		commands       []string
		batchSize      int
		devicesPerHour int
		healthCheck    bool
		transform      bool
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a collection job against the inventory",
		Long: `Run connects to every device in the inventory, executes the command
battery (the built-in OSPF set unless --commands is given), and stores
raw and parsed output under a new execution directory.

  netscope run -i devices.yaml
  netscope run -i devices.yaml --batch-size 5 --devices-per-hour 20
  netscope run -i devices.yaml --commands "show ospf neighbor,show cdp neighbor"
  netscope run -i devices.yaml --transform   # build topology afterwards`,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := inventory.Load(inventoryPath)
			if err != nil {
				return err
			}

			eng, err := newEngine(app)
			if err != nil {
				return err
			}
			defer eng.close()

			sub := eng.broadcaster.Subscribe("")
			defer sub.Close()

			jobID, execID, err := eng.executor.Start(devices, executor.Options{
				Commands:       commands,
				BatchSize:      batchSize,
				DevicesPerHour: devicesPerHour,
				HealthGate:     healthCheck,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Job %s started (execution %s) on %d devices\n", jobID, execID, len(devices))

			final := watchJob(sub, jobID, quiet)
			printJobSummary(final)

			if final.Status == job.StatusFailed {
				return fmt.Errorf("job %s failed", jobID)
			}

			if transform {
				return transformLatest(inventory.Names(devices))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "inventory", "i", "", "Device inventory YAML (required)")
	cmd.MarkFlagRequired("inventory")
	cmd.Flags().StringSliceVar(&commands, "commands", nil, "Commands to run (default: built-in OSPF battery)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "Devices per batch (0 = single batch)")
	cmd.Flags().IntVar(&devicesPerHour, "devices-per-hour", 0, "Rate limit across batches (0 = none)")
	cmd.Flags().BoolVar(&healthCheck, "health-check", false, "Skip devices with CPU or memory above 70%")
	cmd.Flags().BoolVar(&transform, "transform", false, "Build topology and interface records after the run")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-device progress lines")

	return cmd
}

// watchJob prints progress events until the job reaches a terminal state
// and returns the final snapshot.
func watchJob(sub *broadcast.Subscription, jobID string, quiet bool) *job.Job {
	var last *job.Job
	for ev := range sub.Events() {
		if ev.JobID != jobID {
			continue
		}
		last = ev.Job

		if !quiet {
			switch ev.Kind {
			case job.EventDeviceStatusUpdate:
				if cd := ev.Job.CurrentDevice; cd != nil {
					fmt.Printf("  %s %s\n", cd.DeviceName, cli.StatusColor(string(cd.Status)))
				}
			case job.EventProgressUpdate:
				fmt.Printf("  progress: %d/%d devices (%d%%)\n",
					ev.Job.CompletedDevices, ev.Job.TotalDevices, ev.Job.ProgressPercent)
			case job.EventJobStopping:
				fmt.Println("  stop requested, finishing in-flight work...")
			}
		}

		if ev.Job.Status.Terminal() {
			return ev.Job
		}
	}
	return last
}

func printJobSummary(j *job.Job) {
	if j == nil {
		return
	}
	fmt.Printf("\nJob %s %s: %d/%d devices\n", j.ID, cli.StatusColor(string(j.Status)),
		j.CompletedDevices, j.TotalDevices)

	tbl := cli.NewTable(os.Stdout, "DEVICE", "COUNTRY", "STATUS", "COMMANDS")
	for _, dp := range j.DeviceProgress {
		tbl.Row(dp.DeviceName, dp.Country, cli.StatusColor(string(dp.Status)),
			fmt.Sprintf("%d/%d", dp.CompletedCommands, dp.TotalCommands))
	}
	tbl.Flush()
}

// transformLatest builds topology and interface records from the current
// execution and saves them to the store.
func transformLatest(validDevices []string) error {
	execs, err := execstore.NewStore(app.executionsDir())
	if err != nil {
		return err
	}
	exec, err := execs.Current()
	if err != nil {
		return err
	}

	topo, err := topology.NewBuilder().Build(exec, validDevices)
	if err != nil {
		return err
	}
	set, err := topology.NewTransformer().Transform(exec, validDevices)
	if err != nil {
		return err
	}

	store := topology.NewStore(app.redisAddr, app.redisDB)
	defer store.Close()
	if err := store.Connect(); err != nil {
		return fmt.Errorf("topology store unavailable: %w", err)
	}
	if err := store.SaveTopology(topo); err != nil {
		return err
	}
	if err := store.SaveInterfaces(set); err != nil {
		return err
	}

	path, err := topology.WriteJSON(topo, app.transformDir())
	if err != nil {
		return err
	}
	fmt.Printf("Topology: %d nodes, %d links, %d physical (%d asymmetric); %d interfaces; exported %s\n",
		len(topo.Nodes), len(topo.Links), len(topo.PhysicalLinks),
		topo.Metadata.AsymmetricCount, len(set.Interfaces), path)
	return nil
}
