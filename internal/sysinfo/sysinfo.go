package sysinfo

import (
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

var startedAt = time.Now()

// Metrics represents process metrics for the health endpoint
type Metrics struct {
	CPUCount    int    `json:"cpu_count"`
	Goroutines  int    `json:"goroutines"`
	HeapAlloc   string `json:"heap_alloc"`
	HeapObjects uint64 `json:"heap_objects"`
	SysMemory   string `json:"sys_memory"`
	NumGC       uint32 `json:"num_gc"`
	Uptime      string `json:"uptime"`
	StartedAt   string `json:"started_at"`
}

// GetMetrics returns the current process metrics
func GetMetrics() Metrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Metrics{
		CPUCount:    runtime.NumCPU(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   humanize.IBytes(mem.HeapAlloc),
		HeapObjects: mem.HeapObjects,
		SysMemory:   humanize.IBytes(mem.Sys),
		NumGC:       mem.NumGC,
		Uptime:      time.Since(startedAt).Round(time.Second).String(),
		StartedAt:   humanize.Time(startedAt),
	}
}
