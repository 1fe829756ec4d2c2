package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/netscope-network/netscope/pkg/cli"
	"github.com/netscope-network/netscope/pkg/job"
)

// serverClient talks to a running netscope serve instance.
type serverClient struct {
	base string
	http *http.Client
}

func newServerClient() *serverClient {
	return &serverClient{
		base: app.serverAddr,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *serverClient) getJSON(path string, out interface{}) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("netscope server unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeServerError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *serverClient) post(path string) error {
	resp, err := c.http.Post(c.base+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("netscope server unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeServerError(resp)
	}
	return nil
}

func decodeServerError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s", body.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show job status from a running netscope server",
		Long: `Status queries a netscope serve instance for job progress.
Without a job id, all jobs are listed newest first.

  netscope status
  netscope status 4b825dc6-42fa-4775-a8f1-3e7a2b1c9d00
  netscope status --server http://netops-host:8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newServerClient()

			if len(args) == 1 {
				var j job.Job
				if err := client.getJSON("/api/jobs/"+args[0], &j); err != nil {
					return err
				}
				if jsonOutput {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(&j)
				}
				printJobSummary(&j)
				return nil
			}

			var jobs []*job.Job
			if err := client.getJSON("/api/jobs", &jobs); err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(jobs)
			}

			tbl := cli.NewTable(os.Stdout, "JOB", "STATUS", "PROGRESS", "STARTED", "EXECUTION")
			for _, j := range jobs {
				tbl.Row(j.ID, cli.StatusColor(string(j.Status)),
					fmt.Sprintf("%d/%d (%d%%)", j.CompletedDevices, j.TotalDevices, j.ProgressPercent),
					j.StartTime.Format(time.RFC3339), j.ExecutionID)
			}
			tbl.Flush()
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Machine-readable output")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <job-id>",
		Short: "Request cooperative cancellation of a running job",
		Long: `Stop asks the server to cancel a job. In-flight commands complete;
batches that have not started are skipped, and every device is
disconnected before the job reaches its terminal state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newServerClient()
			if err := client.post("/api/jobs/" + args[0] + "/stop"); err != nil {
				return err
			}
			fmt.Printf("Stop requested for job %s\n", args[0])
			return nil
		},
	}
}
