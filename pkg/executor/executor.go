// Package executor orchestrates automation jobs: batching, rate-limited
// pacing, a bounded per-batch worker pool, per-command progress, and
// cooperative cancellation. It glues the connection pool, the command
// runner, the job manager, and the execution store together.
package executor

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/netscope-network/netscope/pkg/device"
	"github.com/netscope-network/netscope/pkg/execstore"
	"github.com/netscope-network/netscope/pkg/inventory"
	"github.com/netscope-network/netscope/pkg/job"
	"github.com/netscope-network/netscope/pkg/parse"
	"github.com/netscope-network/netscope/pkg/util"
)

// maxBatchWorkers caps the parallel device workers within one batch.
const maxBatchWorkers = 10

// Health-gate thresholds: devices above either are skipped to avoid
// loading an already stressed control plane.
const (
	healthCPUThreshold    = 70
	healthMemoryThreshold = 70.0
)

// SessionOpener is the slice of the connection pool the executor needs.
type SessionOpener interface {
	Connect(dev inventory.Device, timeout time.Duration) (CommandSession, error)
	IsConnected(deviceID string) bool
	Disconnect(deviceID string) error
}

// PoolOpener adapts *device.Pool to SessionOpener.
type PoolOpener struct {
	Pool *device.Pool
}

func (p PoolOpener) Connect(dev inventory.Device, timeout time.Duration) (CommandSession, error) {
	return p.Pool.Connect(dev, timeout)
}

func (p PoolOpener) IsConnected(deviceID string) bool { return p.Pool.IsConnected(deviceID) }
func (p PoolOpener) Disconnect(deviceID string) error { return p.Pool.Disconnect(deviceID) }

// Options tunes one automation run.
type Options struct {
	// Commands to run on every device; nil uses DefaultCommands.
	Commands []string
	// BatchSize splits the inventory; 0 processes everything in one batch.
	BatchSize int
	// DevicesPerHour paces batches; 0 disables rate limiting.
	DevicesPerHour int
	// HealthGate skips devices with CPU or memory over 70%.
	HealthGate bool
}

// Executor runs automation jobs in the background.
type Executor struct {
	jobs  *job.Manager
	pool  SessionOpener
	store *execstore.Store

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates an executor.
func New(jobs *job.Manager, pool SessionOpener, store *execstore.Store) *Executor {
	return &Executor{
		jobs:  jobs,
		pool:  pool,
		store: store,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Start creates the job and its execution directory, then launches the
// run in the background and returns immediately.
func (e *Executor) Start(devices []inventory.Device, opts Options) (jobID, executionID string, err error) {
	if len(devices) == 0 {
		return "", "", util.NewConfigError("devices", "no devices to run against")
	}
	commands := opts.Commands
	if len(commands) == 0 {
		commands = DefaultCommands
	}

	seeds := make([]job.DeviceSeed, len(devices))
	mdDevices := make([]execstore.MetadataDevice, len(devices))
	for i, d := range devices {
		seeds[i] = job.DeviceSeed{ID: d.ID, Name: d.Name, Country: d.EffectiveCountry()}
		mdDevices[i] = execstore.MetadataDevice{ID: d.ID, Name: d.Name, IP: d.Address}
	}

	jobID = e.jobs.CreateJob(seeds)
	executionID = execstore.NewExecutionID(jobID, e.now())
	e.jobs.SetExecutionID(jobID, executionID)

	exec, err := e.store.Create(executionID)
	if err != nil {
		e.jobs.FailJob(jobID, err.Error())
		return "", "", err
	}
	md := execstore.Metadata{
		ExecutionID:  executionID,
		JobID:        jobID,
		Timestamp:    e.now().Format(time.RFC3339),
		Status:       string(job.StatusRunning),
		Devices:      mdDevices,
		Commands:     commands,
		TotalDevices: len(devices),
	}
	if err := exec.WriteMetadata(md); err != nil {
		e.jobs.FailJob(jobID, err.Error())
		return "", "", err
	}

	util.WithJob(jobID).Infof("starting job on %d devices (execution %s, batch=%d, rate=%d/hr)",
		len(devices), executionID, opts.BatchSize, opts.DevicesPerHour)

	go e.execute(jobID, exec, devices, commands, opts)
	return jobID, executionID, nil
}

// BatchDelay is the pause between batches needed to hold the fleet to
// devicesPerHour.
func BatchDelay(batchSize, devicesPerHour int) time.Duration {
	if devicesPerHour <= 0 || batchSize <= 0 {
		return 0
	}
	seconds := float64(batchSize) / float64(devicesPerHour) * 3600
	return time.Duration(seconds * float64(time.Second))
}

// splitBatches chunks devices; size 0 yields a single batch.
func splitBatches(devices []inventory.Device, size int) [][]inventory.Device {
	if size <= 0 || size >= len(devices) {
		return [][]inventory.Device{devices}
	}
	var batches [][]inventory.Device
	for start := 0; start < len(devices); start += size {
		end := start + size
		if end > len(devices) {
			end = len(devices)
		}
		batches = append(batches, devices[start:end])
	}
	return batches
}

// execute is the background job body.
func (e *Executor) execute(jobID string, exec execstore.Execution, devices []inventory.Device, commands []string, opts Options) {
	runner := &Runner{exec: exec, now: e.now}
	batches := splitBatches(devices, opts.BatchSize)
	delay := BatchDelay(opts.BatchSize, opts.DevicesPerHour)
	if delay > 0 {
		util.WithJob(jobID).Infof("rate limiting: %d devices/hr, %s between batches", opts.DevicesPerHour, delay)
	}

	done := newDoneSet()

	for i, batch := range batches {
		if e.jobs.IsStopRequested(jobID) {
			util.WithJob(jobID).Warn("stop requested, abandoning remaining batches")
			break
		}

		util.WithJob(jobID).Infof("processing batch %d/%d (%d devices)", i+1, len(batches), len(batch))
		e.processBatch(jobID, runner, batch, commands, opts.HealthGate, done)

		if i < len(batches)-1 && delay > 0 {
			if !e.sleepInterruptible(jobID, delay) {
				break
			}
		}
	}

	// Devices never processed (stop before their batch or worker slot)
	// are recorded as stopped so the job converges to a terminal state.
	for _, d := range devices {
		if !done.has(d.ID) {
			e.jobs.UpdateDeviceStatus(jobID, d.ID, job.DeviceStopped, "")
			e.jobs.UpdateJobProgress(jobID, d.ID, job.DeviceResult{Status: job.ResultStopped})
		}
	}

	e.finalize(jobID, exec, devices, commands)
}

// finalize rewrites the metadata with the job outcome and repoints the
// current pointer at this execution.
func (e *Executor) finalize(jobID string, exec execstore.Execution, devices []inventory.Device, commands []string) {
	snapshot, err := e.jobs.Get(jobID)
	if err != nil {
		util.WithJob(jobID).Errorf("finalize: %v", err)
		return
	}

	mdDevices := make([]execstore.MetadataDevice, len(devices))
	for i, d := range devices {
		mdDevices[i] = execstore.MetadataDevice{ID: d.ID, Name: d.Name, IP: d.Address}
	}
	md := execstore.Metadata{
		ExecutionID:  exec.ID,
		JobID:        jobID,
		Timestamp:    e.now().Format(time.RFC3339),
		StartTime:    snapshot.StartTime.Format(time.RFC3339),
		Status:       string(snapshot.Status),
		Devices:      mdDevices,
		Commands:     commands,
		TotalDevices: snapshot.TotalDevices,
		Results: &execstore.MetadataResults{
			TotalDevices:     snapshot.TotalDevices,
			CompletedDevices: snapshot.CompletedDevices,
			ProgressPercent:  snapshot.ProgressPercent,
		},
	}
	if snapshot.EndTime != nil {
		md.EndTime = snapshot.EndTime.Format(time.RFC3339)
	}

	if err := exec.WriteMetadata(md); err != nil {
		util.WithJob(jobID).Errorf("write final metadata: %v", err)
		return
	}
	if err := e.store.SetCurrent(exec.ID); err != nil {
		util.WithJob(jobID).Errorf("repoint current execution: %v", err)
		return
	}
	util.WithJob(jobID).Infof("execution %s complete (%s)", exec.ID, snapshot.Status)
}

// sleepInterruptible pauses in one-second chunks, checking for a stop
// request between chunks. Returns false when interrupted.
func (e *Executor) sleepInterruptible(jobID string, delay time.Duration) bool {
	util.WithJob(jobID).Infof("waiting %s before next batch", delay)
	for slept := time.Duration(0); slept < delay; slept += time.Second {
		if e.jobs.IsStopRequested(jobID) {
			return false
		}
		chunk := time.Second
		if remaining := delay - slept; remaining < chunk {
			chunk = remaining
		}
		e.sleep(chunk)
	}
	return !e.jobs.IsStopRequested(jobID)
}

// processBatch fans the batch out over a bounded worker pool, then
// disconnects every device in the batch regardless of outcome so no
// session survives across batches.
func (e *Executor) processBatch(jobID string, runner *Runner, batch []inventory.Device, commands []string, healthGate bool, done *doneSet) {
	var g errgroup.Group
	workers := len(batch)
	if workers > maxBatchWorkers {
		workers = maxBatchWorkers
	}
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, dev := range batch {
		dev := dev
		g.Go(func() error {
			e.processDevice(jobID, runner, dev, commands, healthGate, done)
			return nil
		})
	}
	g.Wait()

	for _, dev := range batch {
		if !e.pool.IsConnected(dev.ID) {
			continue
		}
		e.jobs.UpdateDeviceStatus(jobID, dev.ID, job.DeviceDisconnecting, "")
		if err := e.pool.Disconnect(dev.ID); err != nil {
			util.WithDevice(dev.Name).Warnf("disconnect error: %v", err)
		}
		e.jobs.UpdateDeviceStatus(jobID, dev.ID, job.DeviceDisconnected, "")
	}
	util.WithJob(jobID).Info("batch complete and disconnected")
}

// processDevice runs the full per-device procedure: lazy connect, optional
// health gate, sequential commands with progress, aggregate result.
func (e *Executor) processDevice(jobID string, runner *Runner, dev inventory.Device, commands []string, healthGate bool, done *doneSet) {
	if e.jobs.IsStopRequested(jobID) {
		return
	}

	finish := func(result job.DeviceResult) {
		e.jobs.UpdateJobProgress(jobID, dev.ID, result)
		done.add(dev.ID)
	}

	// Batches always disconnect on exit, so the device connects fresh here.
	e.jobs.UpdateDeviceStatus(jobID, dev.ID, job.DeviceConnecting, "")
	sess, err := e.pool.Connect(dev, device.ConnectTimeout)
	if err != nil {
		util.WithDevice(dev.Name).Errorf("connection failed: %v", err)
		e.jobs.UpdateDeviceStatus(jobID, dev.ID, job.DeviceConnectionFailed, err.Error())
		finish(job.DeviceResult{Status: job.ResultFailed, Error: "connection failed: " + err.Error()})
		return
	}
	e.jobs.UpdateDeviceStatus(jobID, dev.ID, job.DeviceConnected, "")

	if healthGate {
		if reason := e.checkHealth(sess, dev, runner); reason != "" {
			util.WithDevice(dev.Name).Warnf("health gate: %s", reason)
			e.jobs.UpdateDeviceStatus(jobID, dev.ID, job.DeviceFailed, reason)
			finish(job.DeviceResult{Status: job.ResultFailed, Error: reason})
			return
		}
	}

	e.jobs.InitDeviceCommands(jobID, dev.ID, commands)
	e.jobs.UpdateDeviceStatus(jobID, dev.ID, job.DeviceExecuting, "")

	successes, failures := 0, 0
	for i, cmd := range commands {
		if e.jobs.IsStopRequested(jobID) {
			break
		}

		e.jobs.SetCurrentCommand(jobID, dev.ID, cmd, i+1, len(commands))
		e.jobs.UpdateDeviceCommandStatus(jobID, dev.ID, i, job.CommandRunning, 0, "")

		res := runner.Run(sess, dev, cmd)
		if res.Err != nil {
			failures++
			e.jobs.UpdateDeviceCommandStatus(jobID, dev.ID, i, job.CommandFailed, res.ExecutionTime, res.Err.Error())
			continue
		}
		successes++
		e.jobs.UpdateDeviceCommandStatus(jobID, dev.ID, i, job.CommandSuccess, res.ExecutionTime, "")
	}

	result := job.DeviceResult{
		Summary: fmt.Sprintf("%d/%d commands success", successes, len(commands)),
	}
	switch {
	case failures == 0:
		result.Status = job.ResultSuccess
	case successes > 0:
		result.Status = job.ResultPartialSuccess
	default:
		result.Status = job.ResultFailed
	}
	finish(result)
}

// checkHealth runs the CPU and memory probes through the runner (so the
// evidence is archived) and returns a failure reason, or "".
func (e *Executor) checkHealth(sess CommandSession, dev inventory.Device, runner *Runner) string {
	cpuRes := runner.Run(sess, dev, "show process cpu")
	if cpuRes.Err != nil {
		return "health check failed: " + cpuRes.Err.Error()
	}
	if cpu := parse.CPU(cpuRes.Output); cpu != nil && cpu.CPU1Min > healthCPUThreshold {
		return fmt.Sprintf("high CPU usage: %d%% (>%d%%)", cpu.CPU1Min, healthCPUThreshold)
	}

	memRes := runner.Run(sess, dev, "show process memory")
	if memRes.Err != nil {
		return "health check failed: " + memRes.Err.Error()
	}
	if mem := parse.Memory(memRes.Output); mem != nil {
		if pct := mem.UtilizationPercent(); pct > healthMemoryThreshold {
			return fmt.Sprintf("high memory usage: %.1f%% (>%.0f%%)", pct, healthMemoryThreshold)
		}
	}
	return ""
}

// doneSet tracks devices that have reported a terminal result.
type doneSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newDoneSet() *doneSet {
	return &doneSet{ids: make(map[string]bool)}
}

func (d *doneSet) add(id string) {
	d.mu.Lock()
	d.ids[id] = true
	d.mu.Unlock()
}

func (d *doneSet) has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ids[id]
}
