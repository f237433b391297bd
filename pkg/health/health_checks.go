package health

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/dd0wney/infrasim/pkg/source"
)

// SimpleCheck always reports healthy.
func SimpleCheck(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{Name: name, Status: StatusHealthy}
	}
}

// LevelSourceCheck lists src. An unreachable source is unhealthy; a
// reachable one with no documents is degraded, since the batch check would
// have nothing to do.
func LevelSourceCheck(src source.Source) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "level_source",
			Details: map[string]any{"kind": src.Kind()},
		}

		names, err := src.List(ctx)
		switch {
		case err != nil:
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		case len(names) == 0:
			check.Status = StatusDegraded
			check.Message = "No level documents found"
			check.Details["documents"] = 0
		default:
			check.Status = StatusHealthy
			check.Message = "Level source reachable"
			check.Details["documents"] = len(names)
		}
		return check
	}
}

// Cached reuses the last result of check for ttl.
func Cached(check CheckFunc, ttl time.Duration) CheckFunc {
	var (
		mu      sync.Mutex
		last    Check
		expires time.Time
	)
	return func(ctx context.Context) Check {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Before(expires) {
			return last
		}
		last = check(ctx)
		last.LastChecked = now
		last.DurationMs = float64(time.Since(now).Microseconds()) / 1000
		expires = now.Add(ttl)
		return last
	}
}

// DocsCheck reports whether the documentation directory is present.
func DocsCheck(dir string) CheckFunc {
	return func(context.Context) Check {
		check := Check{Name: "docs", Details: map[string]any{"dir": dir}}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			check.Status = StatusDegraded
			check.Message = "Documentation directory missing"
			return check
		}
		check.Status = StatusHealthy
		return check
	}
}

// RuntimeMemory reads heap and system memory from the Go runtime.
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc, m.Sys
}

// MemoryCheck degrades when the heap exceeds 90% of memory obtained from
// the OS.
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		check := Check{Name: "memory", Details: make(map[string]any)}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys == 0 {
			check.Status = StatusHealthy
			check.Message = "Memory usage unknown"
			return check
		}

		usagePercent := float64(alloc) / float64(sys) * 100
		check.Details["usage_percent"] = usagePercent
		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
