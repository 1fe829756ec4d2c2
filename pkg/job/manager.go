package job

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netscope-network/netscope/pkg/util"
)

// Sink receives one snapshot per job mutation. Implementations must not
// block: the manager calls Publish outside its mutex but on the mutating
// goroutine.
type Sink interface {
	Publish(event, jobID string, snapshot *Job)
}

// nopSink drops snapshots when no broadcaster is attached.
type nopSink struct{}

func (nopSink) Publish(string, string, *Job) {}

// DeviceSeed describes one device at job creation time.
type DeviceSeed struct {
	ID      string
	Name    string
	Country string
}

// Manager owns all job state. One mutex guards the job map and every
// job's fields; each public mutator acquires it, mutates, recomputes the
// derived aggregates, and publishes exactly one snapshot after unlocking.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*Job
	sink Sink
	now  func() time.Time
}

// NewManager creates a job manager publishing to sink (nil for none).
func NewManager(sink Sink) *Manager {
	if sink == nil {
		sink = nopSink{}
	}
	return &Manager{
		jobs: make(map[string]*Job),
		sink: sink,
		now:  time.Now,
	}
}

// publish emits the snapshot for one mutation. Callers must NOT hold mu.
func (m *Manager) publish(event, jobID string, snapshot *Job) {
	if snapshot != nil {
		m.sink.Publish(event, jobID, snapshot)
	}
}

// CreateJob registers a new running job over the given devices, with all
// devices pending and country buckets initialized.
func (m *Manager) CreateJob(devices []DeviceSeed) string {
	id := uuid.New().String()

	m.mu.Lock()
	j := &Job{
		ID:             id,
		Status:         StatusRunning,
		StartTime:      m.now(),
		TotalDevices:   len(devices),
		DeviceProgress: make(map[string]*DeviceProgress, len(devices)),
		CountryStats:   make(map[string]*CountryStats),
		Results:        make(map[string]DeviceResult),
	}
	for _, d := range devices {
		j.DeviceProgress[d.ID] = &DeviceProgress{
			DeviceName: d.Name,
			Country:    d.Country,
			Status:     DevicePending,
			Commands:   []CommandProgress{},
		}
		stats, ok := j.CountryStats[d.Country]
		if !ok {
			stats = &CountryStats{}
			j.CountryStats[d.Country] = stats
		}
		stats.TotalDevices++
		stats.PendingDevices++
	}
	m.jobs[id] = j
	snapshot := j.clone()
	m.mu.Unlock()

	util.WithJob(id).Infof("job created for %d devices", len(devices))
	m.publish(EventJobCreated, id, snapshot)
	return id
}

// SetExecutionID records the execution directory id on the job.
func (m *Manager) SetExecutionID(jobID, executionID string) {
	m.mu.Lock()
	var snapshot *Job
	if j := m.jobs[jobID]; j != nil {
		j.ExecutionID = executionID
		snapshot = j.clone()
	}
	m.mu.Unlock()

	m.publish(EventExecutionUpdate, jobID, snapshot)
}

// InitDeviceCommands sets up the device's command slots and adds them to
// the country totals.
func (m *Manager) InitDeviceCommands(jobID, deviceID string, commands []string) {
	m.mu.Lock()
	j := m.jobs[jobID]
	if j == nil || j.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	dp := j.DeviceProgress[deviceID]
	if dp == nil {
		m.mu.Unlock()
		return
	}

	dp.TotalCommands = len(commands)
	dp.Commands = make([]CommandProgress, len(commands))
	for i, cmd := range commands {
		dp.Commands[i] = CommandProgress{Command: cmd, Status: CommandPending}
	}
	if stats := j.CountryStats[dp.Country]; stats != nil {
		stats.TotalCommands += len(commands)
	}
	recomputeCountryStats(j, m.now())
	snapshot := j.clone()
	m.mu.Unlock()

	m.publish(EventCommandUpdate, jobID, snapshot)
}

// UpdateDeviceStatus moves a device through its lifecycle and maintains
// the job's current-device marker. Illegal transitions are dropped with a
// warning.
func (m *Manager) UpdateDeviceStatus(jobID, deviceID string, status DeviceStatus, errMsg string) {
	m.mu.Lock()
	j := m.jobs[jobID]
	if j == nil || j.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	dp := j.DeviceProgress[deviceID]
	if dp == nil {
		m.mu.Unlock()
		return
	}

	if !ValidDeviceTransition(dp.Status, status) {
		m.mu.Unlock()
		util.WithJob(jobID).Warnf("ignoring illegal device transition %s -> %s for %s",
			dp.Status, status, deviceID)
		return
	}
	dp.Status = status
	if errMsg != "" {
		dp.Errors = append(dp.Errors, errMsg)
	}

	switch status {
	case DeviceConnecting, DeviceConnected, DeviceExecuting:
		j.CurrentDevice = &CurrentDevice{
			DeviceID:   deviceID,
			DeviceName: dp.DeviceName,
			Country:    dp.Country,
			Status:     status,
		}
	case DeviceCompleted, DeviceFailed, DeviceConnectionFailed, DeviceDisconnected:
		if j.CurrentDevice != nil && j.CurrentDevice.DeviceID == deviceID {
			j.CurrentDevice = nil
		}
	}

	recomputeCountryStats(j, m.now())
	snapshot := j.clone()
	m.mu.Unlock()

	m.publish(EventDeviceStatusUpdate, jobID, snapshot)
}

// SetCurrentCommand updates the current-device marker with command-level
// detail while a device is executing.
func (m *Manager) SetCurrentCommand(jobID, deviceID, command string, index, total int) {
	m.mu.Lock()
	j := m.jobs[jobID]
	if j == nil || j.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	dp := j.DeviceProgress[deviceID]
	if dp == nil {
		m.mu.Unlock()
		return
	}

	j.CurrentDevice = &CurrentDevice{
		DeviceID:       deviceID,
		DeviceName:     dp.DeviceName,
		Country:        dp.Country,
		Status:         DeviceExecuting,
		CurrentCommand: command,
		CommandIndex:   index,
		TotalCommands:  total,
	}
	snapshot := j.clone()
	m.mu.Unlock()

	m.publish(EventExecutionUpdate, jobID, snapshot)
}

// UpdateDeviceCommandStatus writes one command slot. Success or failure
// advances the completed counters and the device percent.
func (m *Manager) UpdateDeviceCommandStatus(jobID, deviceID string, index int, status CommandStatus, executionTime float64, errMsg string) {
	m.mu.Lock()
	j := m.jobs[jobID]
	if j == nil || j.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	dp := j.DeviceProgress[deviceID]
	if dp == nil || index < 0 || index >= len(dp.Commands) {
		m.mu.Unlock()
		return
	}

	cmd := &dp.Commands[index]
	cmd.Status = status
	switch status {
	case CommandSuccess:
		cmd.Percent = 100
	case CommandRunning, CommandFailed:
		cmd.Percent = 0
	}
	if executionTime > 0 {
		cmd.ExecutionTime = executionTime
	}
	if errMsg != "" {
		cmd.Error = errMsg
	}

	if status.Done() {
		dp.CompletedCommands++
		if stats := j.CountryStats[dp.Country]; stats != nil {
			stats.CompletedCommands++
		}
	}
	if dp.TotalCommands > 0 {
		dp.Percent = dp.CompletedCommands * 100 / dp.TotalCommands
	}

	recomputeCountryStats(j, m.now())
	snapshot := j.clone()
	m.mu.Unlock()

	m.publish(EventCommandUpdate, jobID, snapshot)
}

// UpdateJobProgress records a finished device and advances job-level
// progress, completing the job when the last device reports in.
func (m *Manager) UpdateJobProgress(jobID, deviceID string, result DeviceResult) {
	m.mu.Lock()
	j := m.jobs[jobID]
	if j == nil || j.Status.Terminal() {
		m.mu.Unlock()
		return
	}

	j.CompletedDevices++
	j.recomputeProgress()
	j.Results[deviceID] = result

	if dp := j.DeviceProgress[deviceID]; dp != nil {
		switch result.Status {
		case ResultSuccess, ResultPartialSuccess:
			if ValidDeviceTransition(dp.Status, DeviceCompleted) {
				dp.Status = DeviceCompleted
			}
		case ResultStopped:
			if ValidDeviceTransition(dp.Status, DeviceStopped) {
				dp.Status = DeviceStopped
			}
		default:
			if ValidDeviceTransition(dp.Status, DeviceFailed) {
				dp.Status = DeviceFailed
			}
		}
	}

	event := EventProgressUpdate
	if j.CompletedDevices >= j.TotalDevices {
		j.Status = StatusCompleted
		t := m.now()
		j.EndTime = &t
		j.CurrentDevice = nil
		event = EventJobCompleted
	}

	recomputeCountryStats(j, m.now())
	snapshot := j.clone()
	m.mu.Unlock()

	m.publish(event, jobID, snapshot)
}

// StopJob requests cooperative cancellation. Idempotent; only a running
// job moves to stopping.
func (m *Manager) StopJob(jobID string) error {
	m.mu.Lock()
	j := m.jobs[jobID]
	if j == nil {
		m.mu.Unlock()
		return util.ErrJobNotFound
	}

	var snapshot *Job
	if j.Status == StatusRunning {
		j.StopRequested = true
		j.Status = StatusStopping
		snapshot = j.clone()
	}
	m.mu.Unlock()

	if snapshot != nil {
		util.WithJob(jobID).Info("stop requested")
		m.publish(EventJobStopping, jobID, snapshot)
	}
	return nil
}

// IsStopRequested reports whether cancellation was requested.
func (m *Manager) IsStopRequested(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j := m.jobs[jobID]; j != nil {
		return j.StopRequested
	}
	return false
}

// FailJob marks the job terminally failed.
func (m *Manager) FailJob(jobID, errMsg string) {
	m.mu.Lock()
	j := m.jobs[jobID]
	if j == nil || j.Status.Terminal() {
		m.mu.Unlock()
		return
	}

	j.Status = StatusFailed
	if errMsg != "" {
		j.Errors = append(j.Errors, errMsg)
	}
	t := m.now()
	j.EndTime = &t
	j.CurrentDevice = nil
	recomputeCountryStats(j, m.now())
	snapshot := j.clone()
	m.mu.Unlock()

	util.WithJob(jobID).Errorf("job failed: %s", errMsg)
	m.publish(EventJobFailed, jobID, snapshot)
}

// Get returns a snapshot of the job.
func (m *Manager) Get(jobID string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[jobID]
	if j == nil {
		return nil, util.ErrJobNotFound
	}
	return j.clone(), nil
}

// Latest returns a snapshot of the most recently started job, or nil.
func (m *Manager) Latest() *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *Job
	for _, j := range m.jobs {
		if latest == nil || j.StartTime.After(latest.StartTime) {
			latest = j
		}
	}
	if latest == nil {
		return nil
	}
	return latest.clone()
}

// List returns snapshots of all jobs, newest first.
func (m *Manager) List() []*Job {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j.clone())
	}
	m.mu.Unlock()

	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].StartTime.After(jobs[b].StartTime)
	})
	return jobs
}
