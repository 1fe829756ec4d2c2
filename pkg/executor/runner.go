package executor

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/netscope-network/netscope/pkg/execstore"
	"github.com/netscope-network/netscope/pkg/inventory"
	"github.com/netscope-network/netscope/pkg/parse"
	"github.com/netscope-network/netscope/pkg/util"
)

// CommandSession is the slice of a device session the runner needs.
// *device.Session implements it.
type CommandSession interface {
	Run(command string, timeout time.Duration) (string, error)
}

// CommandResult is the outcome of running one command on one device.
type CommandResult struct {
	Command       string  `json:"command"`
	DeviceID      string  `json:"device_id"`
	DeviceName    string  `json:"device_name"`
	Output        string  `json:"output,omitempty"`
	ExecutionTime float64 `json:"execution_time_seconds"`
	Filename      string  `json:"filename,omitempty"`
	Err           error   `json:"-"`
}

// jsonArtifact is the structured record persisted per command run.
type jsonArtifact struct {
	Command              string      `json:"command"`
	DeviceID             string      `json:"device_id"`
	DeviceName           string      `json:"device_name"`
	Timestamp            string      `json:"timestamp"`
	ExecutionTimeSeconds float64     `json:"execution_time_seconds"`
	ParsedData           interface{} `json:"parsed_data"`
	RawOutput            string      `json:"raw_output"`
}

// Runner executes commands and persists their raw and parsed artifacts
// into one execution directory.
type Runner struct {
	exec execstore.Execution
	now  func() time.Time
}

// NewRunner creates a runner bound to an execution directory.
func NewRunner(exec execstore.Execution) *Runner {
	return &Runner{exec: exec, now: time.Now}
}

// Run executes one command with its policy timeout and writes the TEXT and
// JSON artifacts. Device-reported errors in the output still count as
// success; only transport and timeout failures (and artifact write
// failures) set Err.
func (r *Runner) Run(sess CommandSession, dev inventory.Device, command string) CommandResult {
	result := CommandResult{
		Command:    command,
		DeviceID:   dev.ID,
		DeviceName: dev.Name,
	}

	timeout := CommandTimeout(command)
	start := r.now()

	util.WithCommand(dev.Name, command).Debug("executing")
	output, err := sess.Run(command, timeout)
	elapsed := r.now().Sub(start).Seconds()
	result.ExecutionTime = elapsed

	if err != nil {
		result.Err = err
		util.WithCommand(dev.Name, command).Warnf("command failed after %.2fs: %v", elapsed, err)
		return result
	}
	result.Output = output

	base := util.OutputFilename(dev.Name, command, start)
	result.Filename = base + ".txt"

	banner := fmt.Sprintf("# Command: %s\n# Device: %s (%s)\n# Timestamp: %s\n# Execution Time: %.2fs\n#%s\n\n",
		command, dev.Name, dev.ID, start.Format(time.RFC3339), elapsed, strings.Repeat("=", 78))

	textPath := filepath.Join(r.exec.TextDir(), base+".txt")
	if err := execstore.WriteFileAtomic(textPath, []byte(banner+output)); err != nil {
		result.Err = fmt.Errorf("write text artifact: %w", err)
		return result
	}

	artifact := jsonArtifact{
		Command:              command,
		DeviceID:             dev.ID,
		DeviceName:           dev.Name,
		Timestamp:            start.Format(time.RFC3339),
		ExecutionTimeSeconds: elapsed,
		ParsedData:           parsedData(command, output),
		RawOutput:            output,
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		result.Err = fmt.Errorf("encode json artifact: %w", err)
		return result
	}
	jsonPath := filepath.Join(r.exec.JSONDir(), base+".json")
	if err := execstore.WriteFileAtomic(jsonPath, data); err != nil {
		result.Err = fmt.Errorf("write json artifact: %w", err)
		return result
	}

	util.WithCommand(dev.Name, command).Infof("executed in %.2fs, saved %s", elapsed, result.Filename)
	return result
}

// parsedData runs the matching parser and flattens its result with the
// parsed marker; unmatched or empty parses record parsed=false so every
// artifact is self-describing.
func parsedData(command, output string) map[string]interface{} {
	res, ok := parse.Parse(command, output)
	if !ok {
		return map[string]interface{}{"parsed": false}
	}

	data, err := json.Marshal(res)
	if err != nil {
		return map[string]interface{}{"parsed": false}
	}
	m := make(map[string]interface{})
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]interface{}{"parsed": false}
	}
	m["parsed"] = true
	return m
}
