package job

import (
	"sync"
	"testing"
	"time"
)

// recordingSink captures published events in order.
type recordingSink struct {
	mu     sync.Mutex
	events []string
	jobs   []*Job
}

func (s *recordingSink) Publish(event, jobID string, snapshot *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.jobs = append(s.jobs, snapshot)
}

func (s *recordingSink) last() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return nil
	}
	return s.jobs[len(s.jobs)-1]
}

func seedDevices() []DeviceSeed {
	return []DeviceSeed{
		{ID: "d1", Name: "zwe-r1", Country: "ZWE"},
		{ID: "d2", Name: "zwe-r2", Country: "ZWE"},
		{ID: "d3", Name: "usa-r1", Country: "USA"},
	}
}

func TestCreateJob(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink)

	id := m.CreateJob(seedDevices())

	j, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if j.Status != StatusRunning {
		t.Errorf("Status = %q, want running", j.Status)
	}
	if j.TotalDevices != 3 || j.CompletedDevices != 0 || j.ProgressPercent != 0 {
		t.Errorf("counters = %d/%d/%d%%", j.CompletedDevices, j.TotalDevices, j.ProgressPercent)
	}
	for _, dp := range j.DeviceProgress {
		if dp.Status != DevicePending {
			t.Errorf("device status = %q, want pending", dp.Status)
		}
	}
	if j.CountryStats["ZWE"].TotalDevices != 2 || j.CountryStats["USA"].TotalDevices != 1 {
		t.Errorf("country totals wrong: %+v", j.CountryStats)
	}
	if len(sink.events) != 1 || sink.events[0] != EventJobCreated {
		t.Errorf("events = %v, want [job_created]", sink.events)
	}
}

func TestProgressInvariants(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateJob(seedDevices())

	check := func() {
		j, _ := m.Get(id)
		if j.CompletedDevices < 0 || j.CompletedDevices > j.TotalDevices {
			t.Fatalf("completed_devices out of range: %d/%d", j.CompletedDevices, j.TotalDevices)
		}
		want := j.CompletedDevices * 100 / j.TotalDevices
		if j.ProgressPercent != want {
			t.Fatalf("progress_percent = %d, want %d", j.ProgressPercent, want)
		}
	}

	check()
	m.UpdateJobProgress(id, "d1", DeviceResult{Status: ResultSuccess})
	check()
	m.UpdateJobProgress(id, "d2", DeviceResult{Status: ResultFailed})
	check()

	j, _ := m.Get(id)
	if j.ProgressPercent != 66 {
		t.Errorf("ProgressPercent = %d, want 66 (floor)", j.ProgressPercent)
	}
}

func TestJobCompletion(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink)
	id := m.CreateJob(seedDevices())

	m.UpdateJobProgress(id, "d1", DeviceResult{Status: ResultSuccess})
	m.UpdateJobProgress(id, "d2", DeviceResult{Status: ResultSuccess})
	m.UpdateJobProgress(id, "d3", DeviceResult{Status: ResultPartialSuccess})

	j, _ := m.Get(id)
	if j.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", j.Status)
	}
	if j.CompletedDevices != j.TotalDevices {
		t.Errorf("completed %d != total %d", j.CompletedDevices, j.TotalDevices)
	}
	if j.EndTime == nil {
		t.Error("EndTime not set")
	}
	if j.CurrentDevice != nil {
		t.Error("CurrentDevice not cleared")
	}
	if sink.events[len(sink.events)-1] != EventJobCompleted {
		t.Errorf("last event = %q, want job_completed", sink.events[len(sink.events)-1])
	}
}

func TestNoMutationAfterCompletion(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateJob([]DeviceSeed{{ID: "d1", Name: "zwe-r1", Country: "ZWE"}})

	m.UpdateJobProgress(id, "d1", DeviceResult{Status: ResultSuccess})
	before, _ := m.Get(id)

	m.UpdateDeviceStatus(id, "d1", DeviceFailed, "late error")
	m.UpdateJobProgress(id, "d1", DeviceResult{Status: ResultFailed})
	m.FailJob(id, "too late")

	after, _ := m.Get(id)
	if after.Status != before.Status || after.CompletedDevices != before.CompletedDevices {
		t.Errorf("job mutated after completion: %+v -> %+v", before, after)
	}
	if after.DeviceProgress["d1"].Status != before.DeviceProgress["d1"].Status {
		t.Error("device mutated after completion")
	}
}

func TestDeviceLifecycleAndCurrentDevice(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateJob(seedDevices())

	m.UpdateDeviceStatus(id, "d1", DeviceConnecting, "")
	j, _ := m.Get(id)
	if j.CurrentDevice == nil || j.CurrentDevice.DeviceID != "d1" {
		t.Fatalf("CurrentDevice = %+v, want d1", j.CurrentDevice)
	}

	m.UpdateDeviceStatus(id, "d1", DeviceConnected, "")
	m.UpdateDeviceStatus(id, "d1", DeviceExecuting, "")
	m.UpdateDeviceStatus(id, "d1", DeviceCompleted, "")

	j, _ = m.Get(id)
	if j.CurrentDevice != nil {
		t.Errorf("CurrentDevice = %+v, want nil after completion", j.CurrentDevice)
	}
	if j.DeviceProgress["d1"].Status != DeviceCompleted {
		t.Errorf("device status = %q", j.DeviceProgress["d1"].Status)
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateJob(seedDevices())

	// pending -> connected skips connecting
	m.UpdateDeviceStatus(id, "d1", DeviceConnected, "")

	j, _ := m.Get(id)
	if j.DeviceProgress["d1"].Status != DevicePending {
		t.Errorf("status = %q, want pending (illegal transition dropped)", j.DeviceProgress["d1"].Status)
	}
}

func TestValidDeviceTransition(t *testing.T) {
	legal := [][2]DeviceStatus{
		{DevicePending, DeviceConnecting},
		{DeviceConnecting, DeviceConnected},
		{DeviceConnecting, DeviceConnectionFailed},
		{DeviceConnected, DeviceExecuting},
		{DeviceExecuting, DeviceCompleted},
		{DeviceExecuting, DeviceFailed},
		{DeviceCompleted, DeviceDisconnecting},
		{DeviceDisconnecting, DeviceDisconnected},
		{DeviceExecuting, DeviceExecuting},
	}
	for _, tr := range legal {
		if !ValidDeviceTransition(tr[0], tr[1]) {
			t.Errorf("ValidDeviceTransition(%s, %s) = false, want true", tr[0], tr[1])
		}
	}

	illegal := [][2]DeviceStatus{
		{DevicePending, DeviceConnected},
		{DeviceDisconnected, DeviceConnecting},
		{DeviceCompleted, DeviceExecuting},
		{DeviceConnectionFailed, DeviceConnected},
	}
	for _, tr := range illegal {
		if ValidDeviceTransition(tr[0], tr[1]) {
			t.Errorf("ValidDeviceTransition(%s, %s) = true, want false", tr[0], tr[1])
		}
	}
}

func TestCommandStatusUpdates(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateJob(seedDevices())
	commands := []string{"terminal length 0", "show ospf neighbor"}

	m.InitDeviceCommands(id, "d1", commands)

	j, _ := m.Get(id)
	dp := j.DeviceProgress["d1"]
	if dp.TotalCommands != 2 || len(dp.Commands) != 2 {
		t.Fatalf("TotalCommands = %d, Commands = %d", dp.TotalCommands, len(dp.Commands))
	}
	if j.CountryStats["ZWE"].TotalCommands != 2 {
		t.Errorf("country TotalCommands = %d", j.CountryStats["ZWE"].TotalCommands)
	}

	m.UpdateDeviceCommandStatus(id, "d1", 0, CommandRunning, 0, "")
	m.UpdateDeviceCommandStatus(id, "d1", 0, CommandSuccess, 0.42, "")
	m.UpdateDeviceCommandStatus(id, "d1", 1, CommandFailed, 1.2, "read timeout")

	j, _ = m.Get(id)
	dp = j.DeviceProgress["d1"]
	if dp.Commands[0].Status != CommandSuccess || dp.Commands[0].Percent != 100 {
		t.Errorf("Commands[0] = %+v", dp.Commands[0])
	}
	if dp.Commands[0].ExecutionTime != 0.42 {
		t.Errorf("ExecutionTime = %v", dp.Commands[0].ExecutionTime)
	}
	if dp.Commands[1].Status != CommandFailed || dp.Commands[1].Error != "read timeout" {
		t.Errorf("Commands[1] = %+v", dp.Commands[1])
	}
	if dp.CompletedCommands != 2 || dp.Percent != 100 {
		t.Errorf("completed = %d, percent = %d", dp.CompletedCommands, dp.Percent)
	}
	if dp.CompletedCommands > dp.TotalCommands {
		t.Error("completed_commands exceeds total_commands")
	}
	if j.CountryStats["ZWE"].CompletedCommands != 2 {
		t.Errorf("country CompletedCommands = %d", j.CountryStats["ZWE"].CompletedCommands)
	}

	// Out-of-range index is ignored
	m.UpdateDeviceCommandStatus(id, "d1", 9, CommandSuccess, 0, "")
}

func TestStopJob(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink)
	id := m.CreateJob(seedDevices())

	if m.IsStopRequested(id) {
		t.Error("IsStopRequested = true before stop")
	}

	if err := m.StopJob(id); err != nil {
		t.Fatalf("StopJob() error: %v", err)
	}
	if !m.IsStopRequested(id) {
		t.Error("IsStopRequested = false after stop")
	}
	j, _ := m.Get(id)
	if j.Status != StatusStopping {
		t.Errorf("Status = %q, want stopping", j.Status)
	}

	// Idempotent: second stop emits nothing new
	events := len(sink.events)
	if err := m.StopJob(id); err != nil {
		t.Fatalf("StopJob() second call error: %v", err)
	}
	if len(sink.events) != events {
		t.Error("second StopJob emitted an event")
	}

	if err := m.StopJob("missing"); err == nil {
		t.Error("StopJob(missing) error = nil")
	}
}

func TestFailJob(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink)
	id := m.CreateJob(seedDevices())

	m.FailJob(id, "executor panic")

	j, _ := m.Get(id)
	if j.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", j.Status)
	}
	if j.EndTime == nil {
		t.Error("EndTime not set")
	}
	if len(j.Errors) != 1 || j.Errors[0] != "executor panic" {
		t.Errorf("Errors = %v", j.Errors)
	}
	if sink.events[len(sink.events)-1] != EventJobFailed {
		t.Errorf("last event = %q", sink.events[len(sink.events)-1])
	}
}

func TestCountryStats(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateJob(seedDevices())

	m.UpdateDeviceStatus(id, "d1", DeviceConnecting, "")

	j, _ := m.Get(id)
	zwe := j.CountryStats["ZWE"]
	if zwe.RunningDevices != 1 || zwe.PendingDevices != 1 {
		t.Errorf("ZWE = %+v", zwe)
	}
	if zwe.StartTime == nil {
		t.Error("StartTime not latched on first running device")
	}
	if j.CountryStats["USA"].StartTime != nil {
		t.Error("USA StartTime latched without activity")
	}

	m.UpdateDeviceStatus(id, "d1", DeviceConnectionFailed, "unreachable")
	m.UpdateJobProgress(id, "d1", DeviceResult{Status: ResultFailed, Error: "unreachable"})

	m.UpdateDeviceStatus(id, "d2", DeviceConnecting, "")
	m.UpdateDeviceStatus(id, "d2", DeviceConnected, "")
	m.UpdateDeviceStatus(id, "d2", DeviceExecuting, "")
	m.UpdateDeviceStatus(id, "d2", DeviceCompleted, "")
	m.UpdateJobProgress(id, "d2", DeviceResult{Status: ResultSuccess})

	j, _ = m.Get(id)
	zwe = j.CountryStats["ZWE"]
	if zwe.CompletedDevices != 1 || zwe.FailedDevices != 1 {
		t.Errorf("ZWE = %+v", zwe)
	}
	if zwe.EndTime == nil {
		t.Error("EndTime not latched when completed+failed = total")
	}
}

func TestCountryStats_DisconnectedUsesResult(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateJob(seedDevices())

	m.UpdateDeviceStatus(id, "d1", DeviceConnecting, "")
	m.UpdateDeviceStatus(id, "d1", DeviceConnected, "")
	m.UpdateDeviceStatus(id, "d1", DeviceExecuting, "")
	m.UpdateDeviceStatus(id, "d1", DeviceCompleted, "")
	m.UpdateJobProgress(id, "d1", DeviceResult{Status: ResultSuccess})
	m.UpdateDeviceStatus(id, "d1", DeviceDisconnecting, "")
	m.UpdateDeviceStatus(id, "d1", DeviceDisconnected, "")

	j, _ := m.Get(id)
	if j.CountryStats["ZWE"].CompletedDevices != 1 {
		t.Errorf("disconnected successful device not counted completed: %+v", j.CountryStats["ZWE"])
	}
}

func TestLatestAndList(t *testing.T) {
	m := NewManager(nil)
	first := m.CreateJob(seedDevices())
	m.now = func() time.Time { return time.Now().Add(time.Minute) }
	second := m.CreateJob(seedDevices())

	if got := m.Latest(); got == nil || got.ID != second {
		t.Errorf("Latest() = %v, want %s", got, second)
	}

	jobs := m.List()
	if len(jobs) != 2 || jobs[0].ID != second || jobs[1].ID != first {
		t.Errorf("List() order wrong")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m := NewManager(nil)
	id := m.CreateJob(seedDevices())

	snap, _ := m.Get(id)
	snap.DeviceProgress["d1"].Status = DeviceFailed
	snap.CountryStats["ZWE"].TotalDevices = 99

	j, _ := m.Get(id)
	if j.DeviceProgress["d1"].Status != DevicePending {
		t.Error("snapshot mutation leaked into manager state")
	}
	if j.CountryStats["ZWE"].TotalDevices != 2 {
		t.Error("snapshot country mutation leaked into manager state")
	}
}
