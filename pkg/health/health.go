package health

import (
	"context"
	"sync"
	"time"
)

// NewHealthChecker creates a checker whose check runs are bounded by
// timeout; zero means no bound beyond the caller's context.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	return &HealthChecker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		liveChecks:  make(map[string]CheckFunc),
		started:     time.Now(),
		timeout:     timeout,
	}
}

// RegisterCheck registers a check reported by /health.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.register(hc.checks, name, check)
}

// RegisterReadinessCheck registers a check reported by /health/ready.
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.register(hc.readyChecks, name, check)
}

// RegisterLivenessCheck registers a check reported by /health/live.
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.register(hc.liveChecks, name, check)
}

func (hc *HealthChecker) register(group map[string]CheckFunc, name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	group[name] = check
}

// Check runs the /health group.
func (hc *HealthChecker) Check(ctx context.Context) Response {
	return hc.run(ctx, hc.checks)
}

// CheckReadiness runs the readiness group.
func (hc *HealthChecker) CheckReadiness(ctx context.Context) Response {
	return hc.run(ctx, hc.readyChecks)
}

// CheckLiveness runs the liveness group.
func (hc *HealthChecker) CheckLiveness(ctx context.Context) Response {
	return hc.run(ctx, hc.liveChecks)
}

// run executes every check of a group concurrently and keeps the worst status.
func (hc *HealthChecker) run(ctx context.Context, group map[string]CheckFunc) Response {
	hc.mu.RLock()
	funcs := make(map[string]CheckFunc, len(group))
	for name, fn := range group {
		funcs[name] = fn
	}
	hc.mu.RUnlock()

	if hc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hc.timeout)
		defer cancel()
	}

	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(funcs)),
		Uptime:    time.Since(hc.started).Seconds(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, fn := range funcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			check := fn(ctx)
			if check.Name == "" {
				check.Name = name
			}
			if check.LastChecked.IsZero() {
				check.LastChecked = start
				check.DurationMs = float64(time.Since(start).Microseconds()) / 1000
			}

			mu.Lock()
			defer mu.Unlock()
			response.Checks[name] = check
			if check.Status.rank() > response.Status.rank() {
				response.Status = check.Status
			}
		}()
	}
	wg.Wait()

	return response
}
