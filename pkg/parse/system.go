package parse

import (
	"regexp"
	"strconv"
)

var (
	cpu1MinRe = regexp.MustCompile(`one minute: (\d+)%`)
	cpu5MinRe = regexp.MustCompile(`five minutes: (\d+)%`)
	memoryRe  = regexp.MustCompile(`(?i)Total:\s*(\d+).*Used:\s*(\d+).*Free:\s*(\d+)`)
)

// CPUStats is the processor load from "show process cpu".
type CPUStats struct {
	CPU1Min int `json:"cpu_1min"`
	CPU5Min int `json:"cpu_5min"`
}

// CPU parses "show process cpu" output, e.g.
// "CPU utilization for five seconds: 8%/0%; one minute: 8%; five minutes: 7%".
// Returns nil when no utilization line is present.
func CPU(output string) *CPUStats {
	m := cpu1MinRe.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	stats := &CPUStats{}
	stats.CPU1Min, _ = strconv.Atoi(m[1])
	if m5 := cpu5MinRe.FindStringSubmatch(output); m5 != nil {
		stats.CPU5Min, _ = strconv.Atoi(m5[1])
	}
	return stats
}

// MemoryStats is the processor pool usage from "show process memory".
type MemoryStats struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

// Memory parses "show process memory" output, e.g.
// "Processor Pool Total: 1000000000 Used: 200000000 Free: 800000000".
// Returns nil when no pool line is present.
func Memory(output string) *MemoryStats {
	m := memoryRe.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	stats := &MemoryStats{}
	stats.Total, _ = strconv.ParseInt(m[1], 10, 64)
	stats.Used, _ = strconv.ParseInt(m[2], 10, 64)
	stats.Free, _ = strconv.ParseInt(m[3], 10, 64)
	return stats
}

// UtilizationPercent returns used memory as a percentage of total, or 0
// when total is unknown.
func (m *MemoryStats) UtilizationPercent() float64 {
	if m == nil || m.Total == 0 {
		return 0
	}
	return float64(m.Used) / float64(m.Total) * 100
}
