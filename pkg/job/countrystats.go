package job

import "time"

// recomputeCountryStats rebuilds the per-country aggregation from the
// device-progress map. Counters are reset and re-bucketed on every call;
// start and end times latch: start on the first device entering an active
// state, end when completed+failed covers every device in the country.
func recomputeCountryStats(j *Job, now time.Time) {
	for _, stats := range j.CountryStats {
		stats.CompletedDevices = 0
		stats.RunningDevices = 0
		stats.FailedDevices = 0
		stats.PendingDevices = 0
	}

	for id, dp := range j.DeviceProgress {
		stats, ok := j.CountryStats[dp.Country]
		if !ok {
			continue
		}

		status := dp.Status
		if status == DeviceDisconnected || status == DeviceStopped {
			// Past the teardown states the recorded result is authoritative.
			switch j.Results[id].Status {
			case ResultSuccess, ResultPartialSuccess:
				status = DeviceCompleted
			case ResultFailed:
				status = DeviceFailed
			}
		}

		switch {
		case status == DeviceCompleted:
			stats.CompletedDevices++
		case status == DeviceFailed || status == DeviceConnectionFailed:
			stats.FailedDevices++
		case status.Active():
			stats.RunningDevices++
			if stats.StartTime == nil {
				t := now
				stats.StartTime = &t
			}
		default:
			stats.PendingDevices++
		}
	}

	for _, stats := range j.CountryStats {
		if stats.TotalDevices > 0 {
			stats.DevicePercent = stats.CompletedDevices * 100 / stats.TotalDevices
		}
		if stats.TotalCommands > 0 {
			stats.CommandPercent = stats.CompletedCommands * 100 / stats.TotalCommands
		}
		// Command progress is the finer-grained signal.
		stats.Percent = stats.CommandPercent

		if stats.StartTime != nil {
			stats.ElapsedSeconds = now.Sub(*stats.StartTime).Seconds()
		}
		if stats.CompletedDevices+stats.FailedDevices == stats.TotalDevices &&
			stats.EndTime == nil && stats.StartTime != nil {
			t := now
			stats.EndTime = &t
		}
	}
}
