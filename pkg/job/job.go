// Package job tracks automation job state: per-device and per-command
// progress, country-level aggregation, and cooperative cancellation.
// All state lives behind the Manager's mutex; snapshots handed to
// subscribers are deep copies.
package job

import "time"

// CommandProgress is the state of one command slot on one device.
type CommandProgress struct {
	Command       string        `json:"command"`
	Status        CommandStatus `json:"status"`
	Percent       int           `json:"percent"`
	ExecutionTime float64       `json:"execution_time,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// DeviceProgress tracks one device through a job.
type DeviceProgress struct {
	DeviceName        string            `json:"device_name"`
	Country           string            `json:"country"`
	Status            DeviceStatus      `json:"status"`
	CompletedCommands int               `json:"completed_commands"`
	TotalCommands     int               `json:"total_commands"`
	Percent           int               `json:"percent"`
	Commands          []CommandProgress `json:"commands"`
	Errors            []string          `json:"errors,omitempty"`
}

// CountryStats aggregates devices sharing a country. It is recomputed
// from the device-progress map after every mutation.
type CountryStats struct {
	TotalDevices      int        `json:"total_devices"`
	CompletedDevices  int        `json:"completed_devices"`
	RunningDevices    int        `json:"running_devices"`
	FailedDevices     int        `json:"failed_devices"`
	PendingDevices    int        `json:"pending_devices"`
	TotalCommands     int        `json:"total_commands"`
	CompletedCommands int        `json:"completed_commands"`
	DevicePercent     int        `json:"device_percent"`
	CommandPercent    int        `json:"command_percent"`
	Percent           int        `json:"percent"`
	StartTime         *time.Time `json:"start_time,omitempty"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	ElapsedSeconds    float64    `json:"elapsed_seconds"`
}

// CurrentDevice identifies what the job is working on right now.
type CurrentDevice struct {
	DeviceID       string       `json:"device_id"`
	DeviceName     string       `json:"device_name"`
	Country        string       `json:"country"`
	Status         DeviceStatus `json:"status"`
	CurrentCommand string       `json:"current_command,omitempty"`
	CommandIndex   int          `json:"command_index,omitempty"`
	TotalCommands  int          `json:"total_commands,omitempty"`
}

// DeviceResult is the per-device outcome recorded when a device finishes.
type DeviceResult struct {
	Status  string `json:"status"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Job is the root aggregate for one automation run.
type Job struct {
	ID               string                     `json:"id"`
	Status           Status                     `json:"status"`
	StartTime        time.Time                  `json:"start_time"`
	EndTime          *time.Time                 `json:"end_time,omitempty"`
	TotalDevices     int                        `json:"total_devices"`
	CompletedDevices int                        `json:"completed_devices"`
	ProgressPercent  int                        `json:"progress_percent"`
	StopRequested    bool                       `json:"stop_requested"`
	ExecutionID      string                     `json:"execution_id,omitempty"`
	CurrentDevice    *CurrentDevice             `json:"current_device,omitempty"`
	DeviceProgress   map[string]*DeviceProgress `json:"device_progress"`
	CountryStats     map[string]*CountryStats   `json:"country_stats"`
	Results          map[string]DeviceResult    `json:"results"`
	Errors           []string                   `json:"errors,omitempty"`
}

// clone deep-copies the job for handing outside the manager's lock.
func (j *Job) clone() *Job {
	c := *j

	if j.EndTime != nil {
		t := *j.EndTime
		c.EndTime = &t
	}
	if j.CurrentDevice != nil {
		cd := *j.CurrentDevice
		c.CurrentDevice = &cd
	}

	c.DeviceProgress = make(map[string]*DeviceProgress, len(j.DeviceProgress))
	for id, dp := range j.DeviceProgress {
		d := *dp
		d.Commands = append([]CommandProgress(nil), dp.Commands...)
		d.Errors = append([]string(nil), dp.Errors...)
		c.DeviceProgress[id] = &d
	}

	c.CountryStats = make(map[string]*CountryStats, len(j.CountryStats))
	for country, cs := range j.CountryStats {
		s := *cs
		if cs.StartTime != nil {
			t := *cs.StartTime
			s.StartTime = &t
		}
		if cs.EndTime != nil {
			t := *cs.EndTime
			s.EndTime = &t
		}
		c.CountryStats[country] = &s
	}

	c.Results = make(map[string]DeviceResult, len(j.Results))
	for id, r := range j.Results {
		c.Results[id] = r
	}

	c.Errors = append([]string(nil), j.Errors...)
	return &c
}

// recomputeProgress refreshes the job-level percent from device counts.
func (j *Job) recomputeProgress() {
	if j.TotalDevices > 0 {
		j.ProgressPercent = j.CompletedDevices * 100 / j.TotalDevices
	}
}
